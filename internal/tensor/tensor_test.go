package tensor

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertEqualFloat32(t *testing.T, expected, actual float32, msg string) {
	t.Helper()
	if math.Abs(float64(expected-actual)) > 1e-6 {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

func assertEqualShape(t *testing.T, expected, actual Shape, msg string) {
	t.Helper()
	if !expected.Equal(actual) {
		t.Errorf("%s: expected shape %v, got %v", msg, expected, actual)
	}
}

func TestDataTypeSize(t *testing.T) {
	tests := []struct {
		dtype DataType
		size  int
	}{
		{Float32, 4},
		{Float64, 8},
		{Int32, 4},
		{Int64, 8},
		{Uint8, 1},
		{Bool, 1},
	}

	for _, tt := range tests {
		if got := tt.dtype.Size(); got != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.dtype, got, tt.size)
		}
	}
}

func TestParseDataType(t *testing.T) {
	for _, dt := range []DataType{Float32, Float64, Int32, Int64, Uint8, Bool} {
		got, ok := ParseDataType(dt.String())
		if !ok || got != dt {
			t.Errorf("ParseDataType(%q) = %v, %v", dt.String(), got, ok)
		}
	}
	if _, ok := ParseDataType("complex64"); ok {
		t.Error("ParseDataType accepted an unknown dtype")
	}
}

func TestParseDevice(t *testing.T) {
	got, ok := ParseDevice("WebGPU")
	if !ok || got != WebGPU {
		t.Errorf("ParseDevice(WebGPU) = %v, %v", got, ok)
	}
	if _, ok := ParseDevice("TPU"); ok {
		t.Error("ParseDevice accepted an unknown device")
	}
}

func TestShapeValidate(t *testing.T) {
	tests := []struct {
		name    string
		shape   Shape
		wantErr bool
	}{
		{"scalar", Shape{}, false},
		{"matrix", Shape{2, 3}, false},
		{"empty", Shape{0}, false},
		{"negative", Shape{2, -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shape.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShapeComputeStrides(t *testing.T) {
	strides := Shape{2, 3, 4}.ComputeStrides()
	want := []int{12, 4, 1}
	for i := range want {
		if strides[i] != want[i] {
			t.Fatalf("ComputeStrides() = %v, want %v", strides, want)
		}
	}
}

func TestFromSlice(t *testing.T) {
	backend := NewMockBackend()

	x, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	assertEqualShape(t, Shape{2, 3}, x.Shape(), "shape")
	assertEqualFloat32(t, 6, x.At(1, 2), "At(1, 2)")

	if _, err := FromSlice([]float32{1, 2, 3}, Shape{2, 2}, backend); err == nil {
		t.Error("FromSlice should reject mismatched element count")
	}
}

func TestEmpty(t *testing.T) {
	x := Empty[float32](NewMockBackend())

	assertEqualShape(t, Shape{0}, x.Shape(), "shape")
	if x.NumElements() != 0 {
		t.Errorf("NumElements() = %d, want 0", x.NumElements())
	}
	if len(x.Data()) != 0 {
		t.Errorf("Data() has %d elements, want 0", len(x.Data()))
	}

	var zero *MockBackend
	y := Empty[float32](zero)
	if y.Device() != CPU {
		t.Errorf("Device() = %v, want CPU", y.Device())
	}
}

func TestCloneSharesStorage(t *testing.T) {
	x := Ones[float32](Shape{2, 2}, NewMockBackend())
	c := x.Clone()

	if !c.Raw().SameStorage(x.Raw()) {
		t.Error("Clone should share storage")
	}
	if x.Raw().IsUnique() {
		t.Error("buffer should have two references after Clone")
	}
}

func TestCloneStorageIsIndependent(t *testing.T) {
	x, _ := FromSlice([]float32{1, 2, 3, 4}, Shape{2, 2}, NewMockBackend())
	x.RequireGrad()

	c := x.CloneStorage()
	if c.Raw().SameStorage(x.Raw()) {
		t.Fatal("CloneStorage should allocate new storage")
	}
	assertEqualShape(t, x.Shape(), c.Shape(), "shape")
	if c.RequiresGrad() {
		t.Error("CloneStorage should not carry gradient tracking")
	}

	c.Set(100, 0, 0)
	assertEqualFloat32(t, 1, x.At(0, 0), "original after mutating copy")
	assertEqualFloat32(t, 4, c.At(1, 1), "copy value")
}

func TestCloneStoragePreservesStrides(t *testing.T) {
	raw, err := NewRaw(Shape{3, 2}, Float64, CPU)
	if err != nil {
		t.Fatal(err)
	}
	if err := raw.SetStrides([]int{1, 3}); err != nil { // column-major view
		t.Fatal(err)
	}

	if raw.IsContiguous() {
		t.Error("column-major view reported as contiguous")
	}

	c := raw.CloneStorage()
	got := c.Strides()
	if got[0] != 1 || got[1] != 3 {
		t.Errorf("Strides() = %v, want [1 3]", got)
	}
	if c.SameStorage(raw) {
		t.Error("CloneStorage should allocate new storage")
	}
}

func TestDetach(t *testing.T) {
	x := Ones[float32](Shape{2}, NewMockBackend()).RequireGrad()
	d := x.Detach()

	if d.RequiresGrad() {
		t.Error("Detach should drop gradient tracking")
	}
	if d.Raw() != x.Raw() {
		t.Error("Detach should share the raw tensor")
	}
}

func TestSetRequiresGrad(t *testing.T) {
	x := Zeros[float32](Shape{1}, NewMockBackend())
	x.SetRequiresGrad(true)
	if !x.RequiresGrad() {
		t.Error("SetRequiresGrad(true) did not stick")
	}
	x.SetRequiresGrad(false)
	if x.RequiresGrad() {
		t.Error("SetRequiresGrad(false) did not stick")
	}
}

func TestString(t *testing.T) {
	backend := NewMockBackend()

	tests := []struct {
		name string
		make func() string
		want string
	}{
		{
			name: "matrix",
			make: func() string {
				x, _ := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, backend)
				return x.String()
			},
			want: "Tensor[float32][2 3] on CPU\n[[1 2 3]\n [4 5 6]]",
		},
		{
			name: "empty",
			make: func() string { return Empty[float32](backend).String() },
			want: "Tensor[float32][0] on CPU\n[]",
		},
		{
			name: "scalar",
			make: func() string {
				x, _ := FromSlice([]int64{7}, Shape{}, backend)
				return x.String()
			},
			want: "Tensor[int64][] on CPU\n7",
		},
		{
			name: "elided",
			make: func() string {
				x, _ := FromSlice([]int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, Shape{10}, backend)
				return x.String()
			},
			want: "Tensor[int32][10] on CPU\n[0 1 2 ... 7 8 9]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.make(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStringBool(t *testing.T) {
	x, _ := FromSlice([]bool{true, false}, Shape{2}, NewMockBackend())
	if !strings.HasSuffix(x.String(), "[true false]") {
		t.Errorf("unexpected bool formatting: %q", x.String())
	}
}

func TestSetStrides(t *testing.T) {
	raw, _ := NewRaw(Shape{3, 2}, Float32, CPU)

	tests := []struct {
		name    string
		strides []int
		wantErr bool
	}{
		{"row-major", []int{2, 1}, false},
		{"column-major", []int{1, 3}, false},
		{"wrong rank", []int{1}, true},
		{"negative", []int{-1, 1}, true},
		{"out of range", []int{4, 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := raw.SetStrides(tt.strides)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetStrides(%v) error = %v, wantErr %v", tt.strides, err, tt.wantErr)
			}
		})
	}
}

func TestFullAndOnes(t *testing.T) {
	backend := NewMockBackend()

	f := Full[float64](Shape{2, 2}, 2.5, backend)
	for _, v := range f.Data() {
		assert.InDelta(t, 2.5, v, 0)
	}
	assert.Equal(t, []int32{1, 1, 1}, Ones[int32](Shape{3}, backend).Data())
	assert.Equal(t, []bool{true, true}, Ones[bool](Shape{2}, backend).Data())
	assert.Equal(t, []uint8{0, 0}, Full[uint8](Shape{2}, 0, backend).Data())
}

func TestRandomFill(t *testing.T) {
	backend := NewMockBackend()

	u := Rand[float32](Shape{1000}, backend)
	for _, v := range u.Data() {
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(1))
	}

	n := Randn[float64](Shape{4000}, backend)
	var sum float64
	for _, v := range n.Data() {
		sum += v
	}
	assert.InDelta(t, 0, sum/4000, 0.1, "sample mean of N(0, 1)")

	assert.PanicsWithValue(t, "Randn only supports float32 and float64, got int64", func() {
		Randn[int64](Shape{2}, backend)
	})
	assert.Panics(t, func() { Rand[bool](Shape{2}, backend) })
}

func TestDataTypeTable(t *testing.T) {
	assert.True(t, Float32.IsFloat())
	assert.True(t, Float64.IsFloat())
	assert.False(t, Int64.IsFloat())
	assert.False(t, DataType(42).IsFloat())
	assert.Equal(t, "unknown", DataType(-1).String())
	assert.Panics(t, func() { DataType(42).Size() })
}

func TestMockBackendDevice(t *testing.T) {
	gpu := NewMockBackendOn(CUDA)
	x := Zeros[float32](Shape{2}, gpu)
	assert.Equal(t, CUDA, x.Device())
	assert.Equal(t, "mock", gpu.Name())
	assert.Equal(t, CPU, Empty[float32](gpu).Device(), "empty tensors always live on the CPU")
}

func TestIndexing(t *testing.T) {
	x := Zeros[float32](Shape{2, 3}, NewMockBackend())
	x.Set(7, 1, 2)
	assert.InDelta(t, 7, x.At(1, 2), 0)
	assert.InDelta(t, 7, x.Data()[5], 0)

	assert.PanicsWithValue(t, "expected 2 indices, got 1", func() { x.At(0) })
	assert.PanicsWithValue(t, "index 3 out of bounds for dimension 1 (size 3)", func() { x.At(0, 3) })
	assert.Panics(t, func() { x.Item() })

	s, err := FromSlice([]float64{4.5}, Shape{}, NewMockBackend())
	require.NoError(t, err)
	assert.InDelta(t, 4.5, s.Item(), 0)
}
