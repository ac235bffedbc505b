package nn

import (
	"fmt"

	"github.com/born-ml/param/internal/parallel"
	"github.com/born-ml/param/internal/tensor"
)

// Linear is a fully connected layer computing y = x·Wᵀ + b for x of shape
// [batch, in], W of shape [out, in] and b of shape [out].
//
// W and b are registered as "weight" and "bias", so a Linear nested under
// "fc1" reports "fc1.weight" and "fc1.bias".
//
//	layer := nn.NewLinear(784, 128, backend)
//	y := layer.Forward(tensor.Randn[float32](tensor.Shape{32, 784}, backend)) // [32 128]
type Linear[B tensor.Backend] struct {
	Registry[B]

	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features]
	backend     B
}

// LinearOption configures NewLinear.
type LinearOption func(*linearConfig)

type linearConfig struct {
	bias bool
}

// WithBias controls whether the layer has a bias. Default: true.
func WithBias(bias bool) LinearOption {
	return func(c *linearConfig) {
		c.bias = bias
	}
}

// NewLinear builds a layer with Xavier-uniform weights and a zero bias.
// WithBias(false) leaves the bias nil; its name stays registered.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B, opts ...LinearOption) *Linear[B] {
	cfg := linearConfig{bias: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &Linear[B]{inFeatures: inFeatures, outFeatures: outFeatures, backend: backend}
	l.weight = NewParameter(Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, backend))
	if cfg.bias {
		l.bias = NewParameter(Zeros(tensor.Shape{outFeatures}, backend))
	}

	// Fresh registry, names are valid and unique.
	_ = l.RegisterParameter("weight", l.weight)
	_ = l.RegisterParameter("bias", l.bias)
	return l
}

// Forward maps [batch, in] to [batch, out]. Rows are split across
// goroutines by parallel.Rows. It panics on any other input shape.
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 2 || shape[1] != l.inFeatures {
		panic(fmt.Sprintf("linear: want input [batch %d], got %v", l.inFeatures, shape))
	}

	in, out := l.inFeatures, l.outFeatures
	batch := shape[0]
	x, w := input.Data(), l.weight.Tensor().Data()
	var bias []float32
	if l.bias != nil {
		bias = l.bias.Tensor().Data()
	}

	y := make([]float32, batch*out)
	parallel.Rows(batch, in*out, parallel.DefaultConfig(), func(start, end int) {
		for n := start; n < end; n++ {
			xs := x[n*in : (n+1)*in]
			ys := y[n*out : (n+1)*out]
			for o := range ys {
				var acc float32
				if bias != nil {
					acc = bias[o]
				}
				for i, wi := range w[o*in : (o+1)*in] {
					acc += xs[i] * wi
				}
				ys[o] = acc
			}
		}
	})

	result, err := tensor.FromSlice(y, tensor.Shape{batch, out}, input.Backend())
	if err != nil {
		panic(err)
	}
	return result
}

func (l *Linear[B]) Weight() *Parameter[B] { return l.weight }
func (l *Linear[B]) InFeatures() int       { return l.inFeatures }
func (l *Linear[B]) OutFeatures() int      { return l.outFeatures }

// Bias is nil for a layer built WithBias(false).
func (l *Linear[B]) Bias() *Parameter[B] { return l.bias }

// DeepCopy returns an independent copy of the layer made through memo.
func (l *Linear[B]) DeepCopy(memo *CopyMemo) *Linear[B] {
	if memo == nil {
		memo = NewCopyMemo()
	}
	if c, ok := memo.Lookup(l); ok {
		return c.(*Linear[B])
	}

	reg := l.Registry.DeepCopy(memo)
	c := &Linear[B]{
		Registry:    *reg,
		inFeatures:  l.inFeatures,
		outFeatures: l.outFeatures,
		backend:     l.backend,
	}
	c.weight, _ = c.Parameter("weight")
	c.bias, _ = c.Parameter("bias")
	memo.Store(l, c)
	return c
}

// DeepCopyModule implements ModuleCopier.
func (l *Linear[B]) DeepCopyModule(memo *CopyMemo) Container[B] {
	return l.DeepCopy(memo)
}
