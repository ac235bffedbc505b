package nn_test

import (
	"math"
	"testing"

	"github.com/born-ml/param/internal/backend/cpu"
	"github.com/born-ml/param/internal/nn"
	"github.com/born-ml/param/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearForward(t *testing.T) {
	backend := cpu.New()
	l := nn.NewLinear(3, 2, backend)

	copy(l.Weight().Tensor().Data(), []float32{
		1, 0, -1,
		2, 1, 0,
	})
	copy(l.Bias().Tensor().Data(), []float32{0.5, -1})

	x := fromSlice(t, []float32{
		1, 2, 3,
		0, 1, 0,
	}, 2, 3)
	y := l.Forward(x)

	assert.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.InDeltaSlice(t, []float32{-1.5, 3, 0.5, 0}, y.Data(), 1e-6)
}

func TestLinearWithoutBias(t *testing.T) {
	l := nn.NewLinear(2, 1, cpu.New(), nn.WithBias(false))
	copy(l.Weight().Tensor().Data(), []float32{2, 3})

	y := l.Forward(fromSlice(t, []float32{1, 1}, 1, 2))
	assert.Equal(t, []float32{5}, y.Data())
	assert.Len(t, l.Parameters(), 1)
}

func TestLinearForwardPanicsOnBadInput(t *testing.T) {
	l := nn.NewLinear(3, 2, cpu.New())
	assert.Panics(t, func() { l.Forward(fromSlice(t, []float32{1, 2, 3}, 3)) })
	assert.Panics(t, func() { l.Forward(fromSlice(t, []float32{1, 2}, 1, 2)) })
}

func TestLinearInit(t *testing.T) {
	l := nn.NewLinear(20, 30, cpu.New())

	assert.Equal(t, 20, l.InFeatures())
	assert.Equal(t, 30, l.OutFeatures())
	assert.Equal(t, tensor.Shape{30, 20}, l.Weight().Tensor().Shape())
	assert.Equal(t, "weight", l.Weight().Name())
	assert.Equal(t, "bias", l.Bias().Name())

	bound := float32(math.Sqrt(6.0 / 50.0))
	for _, v := range l.Weight().Tensor().Data() {
		assert.LessOrEqual(t, v, bound)
		assert.GreaterOrEqual(t, v, -bound)
	}
	for _, v := range l.Bias().Tensor().Data() {
		assert.Zero(t, v)
	}
}

func TestLinearDeepCopy(t *testing.T) {
	l := nn.NewLinear(2, 2, cpu.New())
	l.Bias().SetRequiresGrad(false)

	c := l.DeepCopy(nil)
	require.NotSame(t, l, c)
	assert.Equal(t, l.Weight().Tensor().Data(), c.Weight().Tensor().Data())
	assert.False(t, c.Bias().RequiresGrad())

	c.Weight().Tensor().Data()[0] = 42
	assert.NotEqual(t, float32(42), l.Weight().Tensor().Data()[0])

	w, _ := c.Parameter("weight")
	assert.Same(t, c.Weight(), w, "fields and registry agree after a copy")
}

func TestLinearForwardParallelMatchesInline(t *testing.T) {
	backend := cpu.New()
	l := nn.NewLinear(64, 32, backend)
	x := tensor.Randn[float32](tensor.Shape{128, 64}, backend)

	t.Setenv("BORN_NUM_THREADS", "1")
	want := l.Forward(x).Data()

	t.Setenv("BORN_NUM_THREADS", "8")
	got := l.Forward(x).Data()

	assert.Equal(t, want, got)
}

func TestUniformSpread(t *testing.T) {
	u := nn.Uniform(0.5, tensor.Shape{2000}, cpu.New())

	var lo, hi bool
	for _, v := range u.Data() {
		require.LessOrEqual(t, v, float32(0.5))
		require.GreaterOrEqual(t, v, float32(-0.5))
		lo = lo || v < -0.25
		hi = hi || v > 0.25
	}
	assert.True(t, lo && hi, "samples cover both halves of the range")
	assert.False(t, u.RequiresGrad())
}
