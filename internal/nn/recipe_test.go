package nn_test

import (
	"testing"

	"github.com/born-ml/param/internal/backend/cpu"
	"github.com/born-ml/param/internal/nn"
	"github.com/born-ml/param/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lenner interface{ Len() int }

func TestReduceWithoutTags(t *testing.T) {
	data := fromSlice(t, []float32{1, 2}, 2)
	p := nn.NewParameter(data, nn.WithRequiresGrad(false))

	r := p.Reduce()
	assert.Equal(t, "born.nn.rebuild_parameter", r.Rebuild)
	require.Equal(t, 3, r.Arity())
	assert.Same(t, data, r.Args[0])
	assert.Equal(t, false, r.Args[1])
	hooks, ok := r.Args[2].(lenner)
	require.True(t, ok)
	assert.Equal(t, 0, hooks.Len())
}

func TestReduceWithTags(t *testing.T) {
	tags := nn.Tags{"optimizer": "frozen"}
	p := nn.NewParameter(fromSlice(t, []float32{1}, 1), nn.WithTags(tags))

	r := p.Reduce()
	require.Equal(t, 4, r.Arity())
	got, ok := r.Args[3].(nn.Tags)
	require.True(t, ok)
	got["probe"] = true
	assert.Contains(t, tags, "probe", "the fourth argument is the parameter's own tag map")
}

func TestReduceOmitsHooks(t *testing.T) {
	p := nn.NewParameter(fromSlice(t, []float32{1}, 1))
	p.RegisterHook("h", nil)

	r := p.Reduce()
	assert.Equal(t, 0, r.Args[2].(lenner).Len())
}

func TestRebuildParameter(t *testing.T) {
	backend := cpu.New()

	tests := []struct {
		name         string
		tags         nn.Tags
		requiresGrad bool
	}{
		{"untagged trainable", nil, true},
		{"untagged frozen", nil, false},
		{"tagged", nn.Tags{"lr_scale": 0.1, "group": "head"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := nn.NewParameter(fromSlice(t, []float32{3, 4, 5}, 3),
				nn.WithRequiresGrad(tt.requiresGrad), nn.WithTags(tt.tags))

			r := p.Reduce()
			rebuilt, err := nn.RebuildParameter(backend, r.Args...)
			require.NoError(t, err)

			assert.Equal(t, p.Tensor().Data(), rebuilt.Tensor().Data())
			assert.Equal(t, tt.requiresGrad, rebuilt.RequiresGrad())
			if len(tt.tags) > 0 {
				assert.Equal(t, tt.tags, rebuilt.Tags())
			} else {
				assert.Empty(t, rebuilt.Tags())
			}
		})
	}
}

func TestRebuildParameterFromRaw(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), []float32{7, 8})

	p, err := nn.RebuildParameter(cpu.New(), raw, true, nil, map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, []float32{7, 8}, p.Tensor().Data())
	assert.True(t, p.Tensor().Raw().SameStorage(raw))
	assert.Equal(t, "v", p.Tags()["k"])
}

func TestRebuildParameterErrors(t *testing.T) {
	backend := cpu.New()
	data := fromSlice(t, []float32{1}, 1)
	intRaw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Int32, tensor.CPU)
	require.NoError(t, err)

	tests := []struct {
		name string
		args []any
	}{
		{"too few", []any{data, true}},
		{"too many", []any{data, true, nil, nil, nil}},
		{"data not a tensor", []any{"weights", true, nil}},
		{"wrong dtype", []any{intRaw, true, nil}},
		{"flag not bool", []any{data, 1, nil}},
		{"bad hook slot", []any{data, true, 42}},
		{"bad tags", []any{data, true, nil, []string{"a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := nn.RebuildParameter(backend, tt.args...)
			require.ErrorIs(t, err, nn.ErrBadRecipe)
		})
	}
}

func TestRebuildParameterV1(t *testing.T) {
	backend := cpu.New()

	untagged := nn.NewParameter(fromSlice(t, []float32{1, 2}, 2), nn.WithRequiresGrad(false))
	p, err := nn.RebuildParameterV1(backend, untagged.Reduce().Args...)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, p.Tensor().Data())
	assert.False(t, p.RequiresGrad())

	tagged := nn.NewParameter(fromSlice(t, []float32{1}, 1), nn.WithTags(nn.Tags{"a": 1}))
	_, err = nn.RebuildParameterV1(backend, tagged.Reduce().Args...)
	require.ErrorIs(t, err, nn.ErrBadRecipe)
}
