// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the host-memory backend.
//
//	backend := cpu.New()
//	w := nn.NewParameter(tensor.Zeros[float32](tensor.Shape{2, 3}, backend))
//	layer := nn.NewLinear(784, 10, backend)
//
// The backend holds no state, so one value can be shared freely and a nil
// *Backend still reports the CPU device.
package cpu
