// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/param/internal/tensor"

type (
	// DType constrains element types: float32, float64, int32, int64, uint8, bool.
	DType = tensor.DType
	// DataType tags a RawTensor's element type at run time.
	DataType = tensor.DataType
	// Device says where storage lives.
	Device = tensor.Device
	// Shape lists dimensions outermost first; Shape{} is a scalar.
	Shape = tensor.Shape
)

const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Uint8   = tensor.Uint8
	Bool    = tensor.Bool
)

const (
	CPU    = tensor.CPU
	CUDA   = tensor.CUDA
	Vulkan = tensor.Vulkan
	Metal  = tensor.Metal
	WebGPU = tensor.WebGPU
)

// RawTensor is the untyped, reference-counted storage behind a Tensor.
//
// Clone shares the buffer and copies on the next write; CloneStorage makes an
// independent buffer and keeps the strides.
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
//	data := raw.AsFloat32()
type RawTensor = tensor.RawTensor

// Tensor is a generic type-safe tensor.
//
// T is the data type and B the backend that owns its storage.
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// Zeros, Ones, Full, Randn and Rand allocate on b's device. Empty always
// uses the CPU. Randn and Rand panic for integer and bool T.

func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T](shape, b)
}

func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T](shape, b)
}

func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full(shape, value, b)
}

func Empty[T DType, B Backend](b B) *Tensor[T, B] {
	return tensor.Empty[T](b)
}

func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Randn[T](shape, b)
}

func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Rand[T](shape, b)
}

// FromSlice creates a tensor from a Go slice.
//
//	data := []float32{1, 2, 3, 4, 5, 6}
//	x, err := tensor.FromSlice(data, tensor.Shape{2, 3}, backend)
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice(data, shape, b)
}

// New wraps raw as a typed tensor bound to b.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T](raw, b)
}

// NewRaw allocates a zeroed RawTensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// NewRawFromBytes creates a RawTensor that copies data, which must be
// exactly shape.NumElements() * dtype.Size() bytes.
func NewRawFromBytes(shape Shape, dtype DataType, device Device, data []byte) (*RawTensor, error) {
	return tensor.NewRawFromBytes(shape, dtype, device, data)
}

// ParseDataType is the inverse of DataType.String ("float32", ...).
func ParseDataType(s string) (DataType, bool) {
	return tensor.ParseDataType(s)
}

// ParseDevice is the inverse of Device.String ("CPU", ...).
func ParseDevice(s string) (Device, bool) {
	return tensor.ParseDevice(s)
}
