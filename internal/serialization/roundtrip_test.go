package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/param/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFloat32(t testing.TB, shape tensor.Shape, values ...float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), values)
	return raw
}

func writeFile(t *testing.T, stateDict map[string]*tensor.RawTensor, gradFlags map[string]bool, header Header) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.born")
	writer, err := NewBornWriter(path)
	require.NoError(t, err)
	require.NoError(t, writer.WriteStateDict(stateDict, gradFlags, header))
	require.NoError(t, writer.Close())
	return path
}

func strictOptions() ReaderOptions {
	return ReaderOptions{ValidationLevel: ValidationStrict}
}

func TestRoundTrip(t *testing.T) {
	backend := tensor.NewMockBackend()
	stateDict := map[string]*tensor.RawTensor{
		"fc.weight":    newFloat32(t, tensor.Shape{2, 2}, 1, 2, 3, 4),
		"fc.bias":      newFloat32(t, tensor.Shape{2}, 5, 6),
		"running_mean": newFloat32(t, tensor.Shape{2}, 7, 8),
	}
	gradFlags := map[string]bool{"fc.weight": true, "fc.bias": false}

	path := writeFile(t, stateDict, gradFlags, Header{ModelType: "MLP", Metadata: map[string]string{"run": "a"}})

	reader, err := NewBornReaderWithOptions(path, strictOptions())
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, uint32(FormatVersionV2), reader.Version())
	assert.Equal(t, FlagHasMetadata|FlagHasGradFlags, reader.Flags())
	assert.Equal(t, "MLP", reader.Header().ModelType)
	assert.Equal(t, LibraryVersion, reader.Header().BornVersion)
	assert.Equal(t, "a", reader.Metadata()["run"])
	assert.Equal(t, []string{"fc.bias", "fc.weight", "running_mean"}, reader.TensorNames(), "tensors are written in name order")
	assert.Equal(t, gradFlags, reader.GradFlags(), "buffers carry no grad flag")

	loaded, err := reader.ReadStateDict(backend)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for name, want := range stateDict {
		assert.Equal(t, want.Shape(), loaded[name].Shape(), name)
		assert.Equal(t, want.AsFloat32(), loaded[name].AsFloat32(), name)
	}
}

func TestHeaderHasNoTagField(t *testing.T) {
	var buf bytes.Buffer
	stateDict := map[string]*tensor.RawTensor{"w": newFloat32(t, tensor.Shape{1}, 1)}
	require.NoError(t, WriteTo(&buf, stateDict, map[string]bool{"w": true}, Header{}))

	raw := buf.Bytes()
	headerSize := binary.LittleEndian.Uint64(raw[16:24])
	var header map[string]any
	require.NoError(t, json.Unmarshal(raw[FixedHeaderSizeV2:FixedHeaderSizeV2+int(headerSize)], &header))

	tensors := header["tensors"].([]any)
	require.Len(t, tensors, 1)
	entry := tensors[0].(map[string]any)
	assert.Equal(t, true, entry["requires_grad"])
	assert.NotContains(t, entry, "tags")
}

func TestDeterministicOutput(t *testing.T) {
	stateDict := map[string]*tensor.RawTensor{
		"b": newFloat32(t, tensor.Shape{1}, 2),
		"a": newFloat32(t, tensor.Shape{1}, 1),
		"c": newFloat32(t, tensor.Shape{1}, 3),
	}
	header := Header{ModelType: "M"}
	header.CreatedAt = header.CreatedAt.AddDate(2025, 0, 0)

	var first, second bytes.Buffer
	require.NoError(t, WriteTo(&first, stateDict, nil, header))
	require.NoError(t, WriteTo(&second, stateDict, nil, header))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestReadFrom(t *testing.T) {
	var buf bytes.Buffer
	stateDict := map[string]*tensor.RawTensor{
		"w": newFloat32(t, tensor.Shape{3}, 1, 2, 3),
		"e": newFloat32(t, tensor.Shape{0}),
	}
	require.NoError(t, WriteTo(&buf, stateDict, map[string]bool{"w": false}, Header{ModelType: "Stream"}))

	loaded, header, err := ReadFrom(&buf, tensor.NewMockBackend(), strictOptions())
	require.NoError(t, err)
	assert.Equal(t, "Stream", header.ModelType)
	assert.Equal(t, []float32{1, 2, 3}, loaded["w"].AsFloat32())
	assert.Equal(t, 0, loaded["e"].NumElements())
	assert.Equal(t, map[string]bool{"w": false}, GradFlags(header))
}

func TestCorruptionDetection(t *testing.T) {
	stateDict := map[string]*tensor.RawTensor{"w": newFloat32(t, tensor.Shape{4}, 1, 2, 3, 4)}
	path := writeFile(t, stateDict, nil, Header{})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = NewBornReaderWithOptions(path, strictOptions())
	require.ErrorIs(t, err, ErrChecksumMismatch)

	_, _, err = ReadFrom(bytes.NewReader(data), tensor.NewMockBackend(), strictOptions())
	require.ErrorIs(t, err, ErrChecksumMismatch)

	reader, err := NewBornReaderWithOptions(path, ReaderOptions{SkipChecksumValidation: true})
	require.NoError(t, err, "corruption is ignored when checksums are skipped")
	require.NoError(t, reader.Close())

	_, err = reader.ReadTensorData("w")
	require.ErrorIs(t, err, ErrClosed)
}

func TestDefaultReaderOptionsFromEnvironment(t *testing.T) {
	t.Setenv("BORN_VALIDATION", "normal")
	t.Setenv("BORN_SKIP_CHECKSUM", "true")

	opts := DefaultReaderOptions()
	assert.Equal(t, ValidationNormal, opts.ValidationLevel)
	assert.True(t, opts.SkipChecksumValidation)
}

func TestCheckpointMetaRoundTrip(t *testing.T) {
	stateDict := map[string]*tensor.RawTensor{"w": newFloat32(t, tensor.Shape{1}, 1)}
	header := Header{
		ModelType: "Checkpoint",
		CheckpointMeta: &CheckpointMeta{
			IsCheckpoint:  true,
			Epoch:         3,
			Step:          120,
			Loss:          0.25,
			OptimizerType: "SGD",
		},
	}
	path := writeFile(t, stateDict, nil, header)

	reader, err := NewBornReaderWithOptions(path, strictOptions())
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, FlagHasOptimizer, reader.Flags())
	meta := reader.Header().CheckpointMeta
	require.NotNil(t, meta)
	assert.Equal(t, 3, meta.Epoch)
	assert.Equal(t, int64(120), meta.Step)
	assert.InDelta(t, 0.25, meta.Loss, 1e-12)
	assert.Equal(t, "SGD", meta.OptimizerType)
}

func TestWriteRejectsStridedTensor(t *testing.T) {
	raw := newFloat32(t, tensor.Shape{2, 3})
	require.NoError(t, raw.SetStrides([]int{1, 2}))

	err := WriteTo(&bytes.Buffer{}, map[string]*tensor.RawTensor{"view": raw}, nil, Header{})
	require.ErrorIs(t, err, ErrNonContiguous)

	err = WriteTo(&bytes.Buffer{}, map[string]*tensor.RawTensor{"gone": nil}, nil, Header{})
	require.ErrorIs(t, err, ErrNilTensor)
}

func TestInvalidMagicAndVersion(t *testing.T) {
	_, _, err := ReadFrom(bytes.NewReader([]byte("NOPE\x02\x00\x00\x00")), tensor.NewMockBackend(), strictOptions())
	require.ErrorIs(t, err, ErrInvalidMagic)

	_, _, err = ReadFrom(bytes.NewReader([]byte("BORN\x09\x00\x00\x00")), tensor.NewMockBackend(), strictOptions())
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

// writeV1 produces a version 1 file: no data size and no checksum.
func writeV1(t *testing.T, name string, raw *tensor.RawTensor) []byte {
	t.Helper()
	header := Header{
		FormatVersion: FormatVersion,
		Tensors: []TensorMeta{{
			Name:  name,
			DType: tensor.Float32.String(),
			Shape: []int(raw.Shape()),
			Size:  int64(raw.ByteSize()),
		}},
	}
	headerJSON, err := json.Marshal(header)
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.WriteString(MagicBytes)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(FormatVersion)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(0)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(headerJSON))))
	buf.Write(headerJSON)
	buf.Write(make([]byte, alignPadding(int64(buf.Len()))))
	buf.Write(raw.Data())
	return buf.Bytes()
}

func TestV1Compatibility(t *testing.T) {
	data := writeV1(t, "weight", newFloat32(t, tensor.Shape{2, 2}, 1, 2, 3, 4))

	path := filepath.Join(t.TempDir(), "v1.born")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	reader, err := NewBornReaderWithOptions(path, strictOptions())
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, uint32(FormatVersion), reader.Version())
	assert.Equal(t, Checksum{}, reader.Checksum())

	loaded, err := reader.ReadStateDict(tensor.NewMockBackend())
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, loaded["weight"].AsFloat32())
	assert.Empty(t, reader.GradFlags())

	streamed, _, err := ReadFrom(bytes.NewReader(data), tensor.NewMockBackend(), strictOptions())
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, streamed["weight"].AsFloat32())
}

func TestTruncatedDataSection(t *testing.T) {
	var buf bytes.Buffer
	stateDict := map[string]*tensor.RawTensor{"w": newFloat32(t, tensor.Shape{8})}
	require.NoError(t, WriteTo(&buf, stateDict, nil, Header{}))

	data := buf.Bytes()[:buf.Len()-4]
	path := filepath.Join(t.TempDir(), "short.born")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err := NewBornReaderWithOptions(path, strictOptions())
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func BenchmarkWriteTo(b *testing.B) {
	raw := newFloat32(b, tensor.Shape{1 << 18})
	stateDict := map[string]*tensor.RawTensor{"w": raw}
	b.SetBytes(int64(raw.ByteSize()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		if err := WriteTo(&buf, stateDict, nil, Header{}); err != nil {
			b.Fatal(err)
		}
	}
}
