package nn_test

import (
	"path/filepath"
	"testing"

	"github.com/born-ml/param/internal/backend/cpu"
	"github.com/born-ml/param/internal/nn"
	"github.com/born-ml/param/internal/optim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRestoresDataAndGradFlags(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "model.born")

	src := nn.NewLinear(3, 2, backend)
	src.Bias().SetRequiresGrad(false)
	src.Weight().SetTag("lr_scale", 0.5)
	require.NoError(t, nn.Save[backendT](src, path, "Linear", map[string]string{"run": "a"}))

	dst := nn.NewLinear(3, 2, backend)
	dst.Weight().SetTag("keep", true)
	header, err := nn.Load[backendT](path, backend, dst)
	require.NoError(t, err)

	assert.Equal(t, "Linear", header.ModelType)
	assert.Equal(t, "a", header.Metadata["run"])
	assert.Equal(t, src.Weight().Tensor().Data(), dst.Weight().Tensor().Data())
	assert.Equal(t, src.Bias().Tensor().Data(), dst.Bias().Tensor().Data())
	assert.True(t, dst.Weight().RequiresGrad())
	assert.False(t, dst.Bias().RequiresGrad())

	assert.Equal(t, nn.Tags{"keep": true}, dst.Weight().Tags(), "tags are not stored in files")
}

func TestLoadShapeMismatch(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "model.born")

	require.NoError(t, nn.Save[backendT](nn.NewLinear(3, 2, backend), path, "Linear", nil))

	_, err := nn.Load[backendT](path, backend, nn.NewLinear(4, 2, backend))
	require.ErrorIs(t, err, nn.ErrStateDictMismatch)
}

func TestCheckpointRoundTrip(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "ckpt.born")

	model := nn.NewLinear(2, 2, backend)
	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)
	for _, p := range model.Parameters() {
		grad := nn.Ones(p.Tensor().Shape(), backend)
		p.SetGrad(grad)
	}
	opt.Step()
	model.Weight().SetRequiresGrad(false)

	ckpt := &nn.Checkpoint[backendT]{
		Model:     model,
		Optimizer: opt,
		Epoch:     3,
		Step:      120,
		Loss:      0.25,
		Metadata:  map[string]any{"batch_size": float64(32)},
	}
	require.NoError(t, ckpt.Save(path))

	model2 := nn.NewLinear(2, 2, backend)
	opt2 := optim.NewSGD(model2.Parameters(), optim.SGDConfig{LR: 0.1, Momentum: 0.9}, backend)
	loaded, err := nn.LoadCheckpoint[backendT](path, backend, model2, opt2)
	require.NoError(t, err)

	assert.Equal(t, 3, loaded.Epoch)
	assert.Equal(t, int64(120), loaded.Step)
	assert.InDelta(t, 0.25, loaded.Loss, 1e-12)
	assert.Equal(t, float64(32), loaded.Metadata["batch_size"])
	assert.False(t, loaded.CreatedAt.IsZero())

	assert.Equal(t, model.Weight().Tensor().Data(), model2.Weight().Tensor().Data())
	assert.False(t, model2.Weight().RequiresGrad())
	assert.True(t, model2.Bias().RequiresGrad())

	state := opt2.StateDict()
	require.Contains(t, state, "velocity.0")
	assert.Equal(t, opt.StateDict()["velocity.0"].AsFloat32(), state["velocity.0"].AsFloat32())
}

func TestLoadCheckpointRejectsPlainModel(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "model.born")

	model := nn.NewLinear(2, 2, backend)
	require.NoError(t, nn.Save[backendT](model, path, "Linear", nil))

	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{}, backend)
	_, err := nn.LoadCheckpoint[backendT](path, backend, model, opt)
	assert.ErrorIs(t, err, nn.ErrNotCheckpoint)
}

func TestSaveCheckpointConvenience(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "ckpt.born")

	model := nn.NewLinear(2, 1, backend)
	opt := optim.NewAdam(model.Parameters(), optim.AdamConfig{}, backend)
	require.NoError(t, nn.SaveCheckpoint[backendT](path, model, opt, 7))

	opt2 := optim.NewAdam(model.Parameters(), optim.AdamConfig{}, backend)
	loaded, err := nn.LoadCheckpoint[backendT](path, backend, model, opt2)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Epoch)
	assert.Equal(t, 0, opt2.GetTimestep())
}
