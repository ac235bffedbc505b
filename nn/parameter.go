// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/param/internal/nn"
	"github.com/born-ml/param/tensor"
)

// ParameterBanner is the first line of a Parameter's string form.
const ParameterBanner = nn.ParameterBanner

// Parameter marks a float32 tensor as a learnable parameter.
//
// A Parameter aliases the tensor it wraps: writes through either are
// visible through the other. On top of the tensor it carries:
//
//	Name() string                  set when registered with a module
//	RequiresGrad() bool            whether optimizers update it
//	Tags() Tags                    free-form metadata, shared by reference
//	Grad() / SetGrad / ZeroGrad    the gradient slot, run through hooks
//	RegisterHook / RemoveHook      named gradient hooks in call order
//	DeepCopy(memo)                 an independent copy, keyed by identity
//	Reduce() Recipe                how to rebuild it
//
// Example:
//
//	w := nn.NewParameter(tensor.Randn[float32](tensor.Shape{3, 4}, backend),
//	    nn.WithTags(nn.Tags{"lr_scale": 0.1}))
//	fmt.Println(w)
//	// Parameter containing:
//	// Tensor[float32][3 4] on CPU
//	// ...
type Parameter[B tensor.Backend] = nn.Parameter[B]

// Tags is the free-form metadata attached to a parameter.
type Tags = nn.Tags

// GradHook transforms a gradient before it is stored. Returning nil keeps
// the gradient it was given.
type GradHook[B tensor.Backend] = nn.GradHook[B]

// ParameterOption configures NewParameter.
type ParameterOption = nn.ParameterOption

// WithName sets the parameter name.
func WithName(name string) ParameterOption {
	return nn.WithName(name)
}

// WithRequiresGrad sets whether the parameter is trainable. Default: true.
func WithRequiresGrad(requiresGrad bool) ParameterOption {
	return nn.WithRequiresGrad(requiresGrad)
}

// WithTags attaches tags. The map is stored by reference.
func WithTags(tags Tags) ParameterOption {
	return nn.WithTags(tags)
}

// NewParameter wraps t as a parameter. A nil t becomes an empty float32
// tensor of shape [0].
func NewParameter[B tensor.Backend](t *tensor.Tensor[float32, B], opts ...ParameterOption) *Parameter[B] {
	return nn.NewParameter(t, opts...)
}

// CopyMemo records copies made during a deep copy so that an object reached
// twice is copied once.
type CopyMemo = nn.CopyMemo

// NewCopyMemo returns an empty memo.
func NewCopyMemo() *CopyMemo {
	return nn.NewCopyMemo()
}
