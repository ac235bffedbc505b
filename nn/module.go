// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/param/internal/nn"
	"github.com/born-ml/param/internal/serialization"
	"github.com/born-ml/param/tensor"
)

// Header is the JSON header of a .born file.
type Header = serialization.Header

// Save writes the parameters, buffers and requires-grad flags of m to a
// .born file. Tags and hooks are not written.
//
// Example:
//
//	err := nn.Save(model, "model.born", "MLP", map[string]string{"dataset": "mnist"})
func Save[B tensor.Backend](m Module[B], path, modelType string, metadata map[string]string) error {
	return nn.Save(m, path, modelType, metadata)
}

// Load reads a .born file into m. Data and requires-grad flags are restored;
// tags already on m's parameters are kept.
//
// Example:
//
//	header, err := nn.Load("model.born", backend, model)
func Load[B tensor.Backend](path string, backend B, m Module[B]) (Header, error) {
	return nn.Load(path, backend, m)
}

// OptimizerState is an optimizer whose state can be checkpointed.
type OptimizerState = nn.OptimizerState

// ErrNotCheckpoint is returned by LoadCheckpoint for plain model files.
var ErrNotCheckpoint = nn.ErrNotCheckpoint

// Checkpoint is a model, its optimizer and training progress.
type Checkpoint[B tensor.Backend] = nn.Checkpoint[B]

// SaveCheckpoint saves model and optimizer state with the epoch number.
func SaveCheckpoint[B tensor.Backend](path string, model Module[B], optimizer OptimizerState, epoch int) error {
	return nn.SaveCheckpoint(path, model, optimizer, epoch)
}

// LoadCheckpoint restores model and optimizer state from a checkpoint file.
//
// Example:
//
//	ckpt, err := nn.LoadCheckpoint("ckpt.born", backend, model, optimizer)
//	start := ckpt.Epoch + 1
func LoadCheckpoint[B tensor.Backend](path string, backend B, model Module[B], optimizer OptimizerState) (*Checkpoint[B], error) {
	return nn.LoadCheckpoint(path, backend, model, optimizer)
}
