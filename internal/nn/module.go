// Package nn implements trainable parameters and the modules that own them.
//
// This package provides:
//   - Parameter: a tensor marked as trainable, with a requires-grad flag and tags
//   - Registry: explicit registration of parameters, buffers and sub-modules
//   - Linear: fully connected layer built on Registry
//   - Deep copy with identity memo, parameter recipes, .born save/load, checkpoints
//
// Design inspired by PyTorch's nn.Module, with registration made explicit:
// a module calls RegisterParameter instead of relying on attribute assignment.
package nn

import (
	"github.com/born-ml/param/internal/tensor"
)

// Module is the base interface for all components that own parameters.
//
// Modules can be composed to build complex architectures:
//
//	type MLP struct {
//	    nn.Registry[*cpu.CPUBackend]
//	}
//
//	m := &MLP{}
//	m.RegisterModule("fc1", nn.NewLinear(784, 128, backend))
//	m.RegisterModule("fc2", nn.NewLinear(128, 10, backend))
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Parameters returns all registered parameters, each exactly once.
	//
	// This includes parameters of nested modules. Returns an empty slice
	// for modules without parameters.
	Parameters() []*Parameter[B]

	// NamedParameters returns the parameters with their dotted names, each
	// exactly once, in registration order.
	NamedParameters() []NamedParameter[B]

	// StateDict returns a map of names to raw tensors.
	//
	// It contains parameter data and buffers. Tags are never included.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies values from a state dictionary into the module.
	//
	// Returns an error if a key is missing, unexpected, or has the wrong shape.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// Container is a Module backed by a Registry, which lets it be nested with
// RegisterModule. Any struct embedding Registry satisfies it.
type Container[B tensor.Backend] interface {
	Module[B]

	// Base returns the registry that holds the module's state.
	Base() *Registry[B]
}

// ModuleCopier is implemented by containers that deep-copy into their own
// concrete type. Containers without it are copied as a bare Registry.
type ModuleCopier[B tensor.Backend] interface {
	DeepCopyModule(memo *CopyMemo) Container[B]
}

// NamedParameter pairs a parameter with its dotted name.
type NamedParameter[B tensor.Backend] struct {
	Name  string
	Param *Parameter[B]
}
