package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/param/internal/tensor"
)

func TestIdentity(t *testing.T) {
	for name, b := range map[string]*CPUBackend{"new": New(), "zero": {}, "nil": nil} {
		assert.Equal(t, "CPU", b.Name(), name)
		assert.Equal(t, tensor.CPU, b.Device(), name)
	}
}

func TestTensorsLiveOnCPU(t *testing.T) {
	var zero *CPUBackend
	assert.Zero(t, tensor.Empty[float32](zero).NumElements())

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, New())
	require.NoError(t, err)
	assert.Equal(t, tensor.CPU, x.Device())
	assert.Equal(t, float32(3), x.At(1, 0))
}
