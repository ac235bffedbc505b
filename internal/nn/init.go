package nn

import (
	"math"

	"github.com/born-ml/param/internal/tensor"
)

// Uniform returns a float32 tensor with values drawn from U(-bound, bound).
func Uniform[B tensor.Backend](bound float64, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	t := tensor.Rand[float32](shape, backend)
	data := t.Data()
	for i, u := range data {
		data[i] = float32((2*float64(u) - 1) * bound)
	}
	return t
}

// Xavier draws Glorot-uniform weights: U(-a, a) with
// a = sqrt(6 / (fanIn + fanOut)).
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return Uniform(math.Sqrt(6/float64(fanIn+fanOut)), shape, backend)
}

// Zeros, Ones and Randn are float32 shorthands for the tensor constructors.

func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}

func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Ones[float32](shape, backend)
}

// Randn samples N(0, 1).
func Randn[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Randn[float32](shape, backend)
}
