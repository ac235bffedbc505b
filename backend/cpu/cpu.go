// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/param/internal/backend/cpu"
	"github.com/born-ml/param/tensor"
)

// Backend keeps tensor storage in host memory.
type Backend = internalcpu.CPUBackend

var _ tensor.Backend = (*Backend)(nil)

// New returns the CPU backend. It is stateless; every call is equivalent.
//
//	w := nn.NewParameter(tensor.Zeros[float32](tensor.Shape{2, 3}, cpu.New()))
func New() *Backend {
	return internalcpu.New()
}
