// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimizers that update parameters from their
// gradients.
//
// # Overview
//
// This package contains:
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation with bias correction
//   - Optimizer interface for custom optimizers
//
// # Basic Usage
//
//	backend := cpu.New()
//	model := nn.NewLinear(784, 10, backend)
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.001}, backend)
//
//	for step := range steps {
//	    for _, p := range model.TrainableParameters() {
//	        p.SetGrad(computeGrad(p))
//	    }
//	    optimizer.Step()
//	    optimizer.ZeroGrad()
//	}
//
// # Parameter Tags
//
// Each parameter is updated according to its requires-grad flag and tags:
//
//	p.SetTag(optim.TagLRScale, 0.1)          // learning rate * 0.1
//	p.SetTag(optim.TagWeightDecay, 1e-4)     // grad += 1e-4 * p
//	p.SetTag(optim.TagOptimizer, optim.FrozenTag) // never updated
//
// Parameters with requires-grad false or without a gradient are skipped.
//
// # Checkpoints
//
// SGD and Adam export their state through StateDict and restore it with
// LoadStateDict, so nn.Checkpoint can store them next to the model.
package optim
