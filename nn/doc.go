// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides learnable parameters and the modules that own them.
//
// # Overview
//
// This package contains:
//   - Parameter: a tensor marked as learnable, with tags and gradient hooks
//   - Registry: ordered parameters, buffers and sub-modules for any struct
//   - Linear: a fully connected layer built on Registry
//   - Recipes and pickle encoding of single parameters
//   - .born files and training checkpoints
//   - Initialization: Xavier, Zeros, Ones, Randn
//
// # Parameters
//
// A Parameter aliases the tensor it wraps. It is trainable by default:
//
//	backend := cpu.New()
//	w := nn.NewParameter(tensor.Zeros[float32](tensor.Shape{2, 2}, backend))
//	w.RequiresGrad() // true
//
//	frozen := nn.NewParameter(x, nn.WithRequiresGrad(false))
//
// Tags are free-form metadata read by optimizers and user code:
//
//	w.SetTag("lr_scale", 0.1)
//
// # Modules
//
// Embedding Registry gives a struct the Module methods. Parameters are
// reported with dotted names in registration order, and a parameter shared
// by two modules is reported once:
//
//	type MLP struct {
//	    nn.Registry[*cpu.Backend]
//	    fc1, fc2 *nn.Linear[*cpu.Backend]
//	}
//
//	func NewMLP(backend *cpu.Backend) *MLP {
//	    m := &MLP{
//	        fc1: nn.NewLinear(784, 128, backend),
//	        fc2: nn.NewLinear(128, 10, backend),
//	    }
//	    _ = m.RegisterModule("fc1", m.fc1)
//	    _ = m.RegisterModule("fc2", m.fc2)
//	    return m
//	}
//
// Buffers registered with RegisterBuffer are saved and loaded with the
// module but never returned by Parameters.
//
// # Copying
//
// DeepCopy allocates new storage for every tensor and shares one CopyMemo
// across the whole tree, so aliasing inside a model survives the copy.
// Gradients and hooks are not copied.
//
// # Persistence
//
// Reduce returns the recipe that rebuilds a parameter. Untagged parameters
// produce three arguments and stay readable by RebuildParameterV1; tagged
// parameters add a fourth. EncodeParameter and DecodeParameter carry
// recipes over pickle protocol 3.
//
// Save and Load write whole modules to .born files, including each
// parameter's requires-grad flag but not its tags:
//
//	err := nn.Save(model, "model.born", "MLP", nil)
//	header, err := nn.Load("model.born", backend, model)
package nn
