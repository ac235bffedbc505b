package tensor

import (
	"fmt"
	"math/rand/v2"
)

// Zeros allocates a zero-filled tensor on b's device.
//
//	w := tensor.Zeros[float32](tensor.Shape{3, 4}, cpu.New())
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	raw, err := NewRaw(shape, dataTypeOf[T](), b.Device())
	if err != nil {
		panic(err)
	}
	return New[T, B](raw, b)
}

// Empty returns a one-dimensional tensor with no elements (shape {0}).
//
// Empty never calls into b, so the zero value of B is accepted; the
// storage then lives on the CPU.
func Empty[T DType, B Backend](b B) *Tensor[T, B] {
	raw, err := NewRaw(Shape{0}, dataTypeOf[T](), CPU)
	if err != nil {
		panic(err)
	}
	return New[T, B](raw, b)
}

// Full allocates a tensor with every element set to value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	if value != *new(T) {
		data := t.Data()
		for i := range data {
			data[i] = value
		}
	}
	return t
}

// Ones is Full with the type's one (true for bool).
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full(shape, one[T](), b)
}

func one[T DType]() T {
	var v any
	switch dataTypeOf[T]() {
	case Float32:
		v = float32(1)
	case Float64:
		v = float64(1)
	case Int32:
		v = int32(1)
	case Int64:
		v = int64(1)
	case Uint8:
		v = uint8(1)
	case Bool:
		v = true
	}
	return v.(T)
}

// Randn fills a float tensor with samples of N(0, 1). It panics for
// integer and bool element types.
func Randn[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return fillRandom[T](shape, b, "Randn", rand.NormFloat64)
}

// Rand fills a float tensor with samples of U[0, 1). It panics for
// integer and bool element types.
func Rand[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return fillRandom[T](shape, b, "Rand", rand.Float64)
}

//nolint:gosec // G404: weights are not secrets
func fillRandom[T DType, B Backend](shape Shape, b B, op string, sample func() float64) *Tensor[T, B] {
	if !dataTypeOf[T]().IsFloat() {
		panic(fmt.Sprintf("%s only supports float32 and float64, got %s", op, dataTypeOf[T]()))
	}
	t := Zeros[T, B](shape, b)
	switch data := any(t.Data()).(type) {
	case []float32:
		for i := range data {
			data[i] = float32(sample())
		}
	case []float64:
		for i := range data {
			data[i] = sample()
		}
	}
	return t
}
