// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"io"

	"github.com/born-ml/param/internal/nn"
	"github.com/born-ml/param/tensor"
)

// Qualified name of the parameter rebuild function.
const (
	RebuildModule    = nn.RebuildModule
	RebuildParamName = nn.RebuildParamName
)

// ErrBadRecipe is returned when recipe arguments cannot rebuild a parameter.
var ErrBadRecipe = nn.ErrBadRecipe

// Recipe is the rebuild function name and positional arguments of a parameter.
//
// Untagged parameters produce three arguments (data, requires_grad, hooks)
// and tagged ones a fourth (tags). Hooks are always empty.
type Recipe = nn.Recipe

// DecodeOptions configures DecodeParameter.
type DecodeOptions = nn.DecodeOptions

// RebuildParameter replays a three- or four-argument recipe.
func RebuildParameter[B tensor.Backend](backend B, args ...any) (*Parameter[B], error) {
	return nn.RebuildParameter(backend, args...)
}

// RebuildParameterV1 replays a three-argument recipe and rejects tags.
func RebuildParameterV1[B tensor.Backend](backend B, args ...any) (*Parameter[B], error) {
	return nn.RebuildParameterV1(backend, args...)
}

// EncodeParameter writes p as a pickle (protocol 3) stream.
//
// Example:
//
//	var buf bytes.Buffer
//	err := nn.EncodeParameter(&buf, model.Weight())
func EncodeParameter[B tensor.Backend](w io.Writer, p *Parameter[B]) error {
	return nn.EncodeParameter(w, p)
}

// DecodeParameter reads a stream written by EncodeParameter.
//
// Example:
//
//	p, err := nn.DecodeParameter(&buf, cpu.New(), nn.DecodeOptions{})
func DecodeParameter[B tensor.Backend](r io.Reader, backend B, opts DecodeOptions) (*Parameter[B], error) {
	return nn.DecodeParameter(r, backend, opts)
}
