package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/param/internal/backend/cpu"
	"github.com/born-ml/param/internal/nn"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewCLI()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func saveModel(t *testing.T) string {
	t.Helper()
	backend := cpu.New()
	model := nn.NewLinear(3, 2, backend)
	copy(model.Bias().Tensor().Data(), []float32{0.5, -1})
	model.Weight().SetRequiresGrad(false)

	path := filepath.Join(t.TempDir(), "model.born")
	require.NoError(t, nn.Save[*cpu.CPUBackend](model, path, "Linear", map[string]string{"dataset": "toy"}))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "born version "+version+"\n", out)
}

func TestInspect(t *testing.T) {
	out, err := run(t, "inspect", saveModel(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Linear")
	assert.Contains(t, out, "bias")
	assert.Contains(t, out, "[2 3]")
	assert.Contains(t, out, "false")
	assert.Contains(t, out, "dataset")
	assert.Contains(t, out, "sha256")
	assert.NotContains(t, out, "Checkpoint")
}

func TestInspectMissingFile(t *testing.T) {
	_, err := run(t, "inspect", filepath.Join(t.TempDir(), "missing.born"))
	assert.Error(t, err)
}

func TestExportAndDecodeParam(t *testing.T) {
	model := saveModel(t)
	output := filepath.Join(t.TempDir(), "bias.pkl")

	_, err := run(t, "export-param", model, "bias", "-o", output,
		"--tag", "lr_scale=0.5", "--tag", "optimizer=frozen", "--tag", "group=2")
	require.NoError(t, err)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	p, err := nn.DecodeParameter(f, cpu.New(), nn.DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1}, p.Tensor().Data())
	assert.True(t, p.RequiresGrad())
	assert.Equal(t, nn.Tags{"lr_scale": 0.5, "optimizer": "frozen", "group": 2}, p.Tags())

	out, err := run(t, "param", output)
	require.NoError(t, err)
	assert.Contains(t, out, nn.ParameterBanner)
	assert.Contains(t, out, "requires_grad: true")
	assert.Contains(t, out, "recipe arity:  4")
	assert.Contains(t, out, "lr_scale = 0.5")
	assert.Contains(t, out, "optimizer = frozen")
}

func TestExportParamRequiresGradFlag(t *testing.T) {
	output := filepath.Join(t.TempDir(), "weight.pkl")
	_, err := run(t, "export-param", saveModel(t), "weight", "-o", output)
	require.NoError(t, err)

	out, err := run(t, "param", output)
	require.NoError(t, err)
	assert.Contains(t, out, "requires_grad: false")
	assert.Contains(t, out, "recipe arity:  3")
	assert.NotContains(t, out, "tags:")
}

func TestExportParamUnknownTensor(t *testing.T) {
	_, err := run(t, "export-param", saveModel(t), "nope", "-o", filepath.Join(t.TempDir(), "x.pkl"))
	assert.Error(t, err)
}

func TestParseTags(t *testing.T) {
	tags, err := parseTags([]string{"a=true", "b=3", "c=1.5", "d=text", "e="})
	require.NoError(t, err)
	assert.Equal(t, nn.Tags{"a": true, "b": 3, "c": 1.5, "d": "text", "e": ""}, tags)

	tags, err = parseTags(nil)
	require.NoError(t, err)
	assert.Nil(t, tags)

	_, err = parseTags([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseTags([]string{"=x"})
	assert.Error(t, err)
}
