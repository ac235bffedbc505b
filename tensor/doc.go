// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the typed tensors that parameters wrap.
//
// # Overview
//
// A Tensor[T, B] pairs a reference-counted RawTensor with the backend that
// owns it. The package provides:
//   - Generic type-safe tensors (Tensor[T, B])
//   - Copy-on-write sharing (Clone) and deep copies (CloneStorage)
//   - Per-tensor gradient slots and requires-grad flags
//   - Device abstraction
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/param/tensor"
//	    "github.com/born-ml/param/backend/cpu"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
//	    fmt.Println(x)
//	    // Tensor[float32][2 3] on CPU
//	    // [[1 2 3]
//	    //  [4 5 6]]
//	}
//
// # Sharing and Copying
//
// Clone returns a tensor that shares storage until one side writes.
// CloneStorage always allocates, so the copy never observes writes to the
// original. Data returns the live backing slice of a contiguous tensor.
//
//	y := x.CloneStorage()
//	y.Data()[0] = 42 // x is unchanged
//
// # Type Safety
//
// The element type is part of the tensor type, so mixing float32 and int64
// tensors is a compile-time error:
//
//	var a *tensor.Tensor[float32, *cpu.Backend]
//	var b *tensor.Tensor[int64, *cpu.Backend]
//	// a = b  // does not compile
package tensor
