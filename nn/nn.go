// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/param/internal/nn"
	"github.com/born-ml/param/tensor"
)

// Registration and loading errors.
var (
	ErrInvalidName       = nn.ErrInvalidName
	ErrDuplicateName     = nn.ErrDuplicateName
	ErrMissingKey        = nn.ErrMissingKey
	ErrUnexpectedKey     = nn.ErrUnexpectedKey
	ErrStateDictMismatch = nn.ErrStateDictMismatch
)

// Module is anything that owns parameters and state.
//
//	Parameters() []*Parameter[B]
//	NamedParameters() []NamedParameter[B]
//	StateDict() map[string]*tensor.RawTensor
//	LoadStateDict(map[string]*tensor.RawTensor) error
type Module[B tensor.Backend] = nn.Module[B]

// Container is a Module that can be nested under another module.
type Container[B tensor.Backend] = nn.Container[B]

// ModuleCopier is implemented by containers that deep-copy into their own
// concrete type.
type ModuleCopier[B tensor.Backend] = nn.ModuleCopier[B]

// NamedParameter pairs a dotted path with its parameter.
type NamedParameter[B tensor.Backend] = nn.NamedParameter[B]

// Registry holds parameters, buffers and sub-modules in registration order.
// Embed it to build a module:
//
//	type Block struct {
//	    nn.Registry[*cpu.Backend]
//	    fc *nn.Linear[*cpu.Backend]
//	}
//
//	b := &Block{fc: nn.NewLinear(4, 4, backend)}
//	_ = b.RegisterModule("fc", b.fc)
//	b.NamedParameters() // fc.weight, fc.bias
type Registry[B tensor.Backend] = nn.Registry[B]

// NewRegistry returns an empty registry.
func NewRegistry[B tensor.Backend]() *Registry[B] {
	return nn.NewRegistry[B]()
}

// Linear is a fully connected layer computing y = x @ W.T + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// LinearOption configures NewLinear.
type LinearOption = nn.LinearOption

// WithBias controls whether a Linear layer has a bias. Default: true.
func WithBias(bias bool) LinearOption {
	return nn.WithBias(bias)
}

// NewLinear creates a fully connected layer.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(784, 128, backend)
//	layer.Weight().SetTag("weight_decay", 1e-4)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B, opts ...LinearOption) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend, opts...)
}

// Xavier returns a tensor initialized with the Xavier/Glorot uniform distribution.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, backend)
}

// Uniform returns a float32 tensor drawn from U(-bound, bound).
func Uniform[B tensor.Backend](bound float64, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Uniform(bound, shape, backend)
}

// Zeros returns a float32 tensor of zeros.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Zeros(shape, backend)
}

// Ones returns a float32 tensor of ones.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Ones(shape, backend)
}

// Randn returns a float32 tensor drawn from the standard normal distribution.
func Randn[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Randn(shape, backend)
}
