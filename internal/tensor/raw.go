package tensor

import (
	"fmt"
	"iter"
	"slices"
	"sync/atomic"
	"unsafe"
)

// Device is where a tensor's storage lives.
type Device int

const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
)

var deviceNames = [...]string{CPU: "CPU", CUDA: "CUDA", Vulkan: "Vulkan", Metal: "Metal", WebGPU: "WebGPU"}

func (d Device) String() string {
	if d < 0 || int(d) >= len(deviceNames) {
		return "Unknown"
	}
	return deviceNames[d]
}

// ParseDevice is the inverse of Device.String.
func ParseDevice(s string) (Device, bool) {
	for d, name := range deviceNames {
		if name == s {
			return Device(d), true
		}
	}
	return 0, false
}

// storage is a byte buffer shared by every RawTensor cloned from the same
// origin. refs counts those RawTensors.
type storage struct {
	data []byte
	refs atomic.Int32
}

func newStorage(size int) *storage {
	st := &storage{data: make([]byte, size)}
	st.refs.Store(1)
	return st
}

func (st *storage) retain() *storage {
	st.refs.Add(1)
	return st
}

// release drops one reference and frees the bytes with the last one.
func (st *storage) release() {
	if st.refs.Add(-1) == 0 {
		st.data = nil
	}
}

// RawTensor is untyped tensor storage plus its layout. Clones share the
// storage copy-on-write style; CloneStorage makes an independent copy.
type RawTensor struct {
	buffer *storage
	shape  Shape
	stride []int // in elements
	dtype  DataType
	device Device
	offset int // in bytes
}

// NewRaw allocates a zeroed, row-major tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		buffer: newStorage(shape.NumElements() * dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// NewRawFromBytes creates a RawTensor whose storage is a copy of data.
// The byte length must match shape and dtype exactly.
func NewRawFromBytes(shape Shape, dtype DataType, device Device, data []byte) (*RawTensor, error) {
	raw, err := NewRaw(shape, dtype, device)
	if err != nil {
		return nil, err
	}
	if len(data) != raw.ByteSize() {
		return nil, fmt.Errorf("shape %v of %s requires %d bytes, got %d", shape, dtype, raw.ByteSize(), len(data))
	}
	copy(raw.buffer.data, data)
	return raw, nil
}

func (r *RawTensor) Shape() Shape     { return r.shape }
func (r *RawTensor) DType() DataType  { return r.dtype }
func (r *RawTensor) Device() Device   { return r.device }
func (r *RawTensor) NumElements() int { return r.shape.NumElements() }
func (r *RawTensor) ByteSize() int    { return r.NumElements() * r.dtype.Size() }

// Strides returns the element strides. The slice is r's own; do not modify it.
func (r *RawTensor) Strides() []int { return r.stride }

// IsContiguous reports whether the strides are the row-major strides of the shape.
func (r *RawTensor) IsContiguous() bool {
	want := r.shape.ComputeStrides()
	for i, s := range r.stride {
		if r.shape[i] > 1 && s != want[i] {
			return false
		}
	}
	return true
}

// SetStrides replaces the memory strides, e.g. to restore a serialized view.
// Every index reachable through the strides must stay inside the tensor.
func (r *RawTensor) SetStrides(strides []int) error {
	if len(strides) != len(r.shape) {
		return fmt.Errorf("got %d strides for %d dimensions", len(strides), len(r.shape))
	}
	maxIndex := 0
	for i, s := range strides {
		if s < 0 {
			return fmt.Errorf("negative stride %d at dimension %d", s, i)
		}
		if r.shape[i] > 0 {
			maxIndex += (r.shape[i] - 1) * s
		}
	}
	if n := r.NumElements(); n > 0 && maxIndex >= n {
		return fmt.Errorf("strides %v reach element %d of %d", strides, maxIndex, n)
	}
	r.stride = slices.Clone(strides)
	return nil
}

// Data returns the tensor's bytes in storage order, without copying.
func (r *RawTensor) Data() []byte {
	return r.buffer.data[r.offset : r.offset+r.ByteSize()]
}

// view returns a pointer to the first element, or nil for empty tensors.
// It panics when the tensor does not hold want.
func (r *RawTensor) view(want DataType) unsafe.Pointer {
	if r.dtype != want {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, want))
	}
	if r.NumElements() == 0 {
		return nil
	}
	return unsafe.Pointer(&r.buffer.data[r.offset])
}

// viewAs reinterprets the storage as []T without copying.
func viewAs[T DType](r *RawTensor) []T {
	p := r.view(dataTypeOf[T]())
	if p == nil {
		return []T{}
	}
	//nolint:gosec // length bounded by NumElements
	return unsafe.Slice((*T)(p), r.NumElements())
}

// offsets yields the storage index of every element in row-major order.
func (r *RawTensor) offsets() iter.Seq[int] {
	return func(yield func(int) bool) {
		idx := make([]int, len(r.shape))
		for range r.NumElements() {
			off := 0
			for d, i := range idx {
				off += i * r.stride[d]
			}
			if !yield(off) {
				return
			}
			for d := len(idx) - 1; d >= 0; d-- {
				if idx[d]++; idx[d] < r.shape[d] {
					break
				}
				idx[d] = 0
			}
		}
	}
}

// Values returns r's elements in row-major order. A contiguous tensor
// returns its own storage; a strided one returns a copy.
func Values[T DType](r *RawTensor) []T {
	data := viewAs[T](r)
	if r.IsContiguous() {
		return data
	}
	out := make([]T, 0, r.NumElements())
	for off := range r.offsets() {
		out = append(out, data[off])
	}
	return out
}

// CopyValues copies src into dst element by element, following the strides
// of both. It panics if the shapes differ or T is not their dtype.
func CopyValues[T DType](dst, src *RawTensor) {
	if !dst.shape.Equal(src.shape) {
		panic(fmt.Sprintf("copy between shapes %v and %v", src.shape, dst.shape))
	}
	values := Values[T](src)
	if dst.IsContiguous() {
		copy(viewAs[T](dst), values)
		return
	}
	data := viewAs[T](dst)
	i := 0
	for off := range dst.offsets() {
		data[off] = values[i]
		i++
	}
}

// The As* accessors return zero-copy views and panic on a dtype mismatch.

func (r *RawTensor) AsFloat32() []float32 { return viewAs[float32](r) }
func (r *RawTensor) AsFloat64() []float64 { return viewAs[float64](r) }
func (r *RawTensor) AsInt32() []int32     { return viewAs[int32](r) }
func (r *RawTensor) AsInt64() []int64     { return viewAs[int64](r) }
func (r *RawTensor) AsUint8() []uint8     { return viewAs[uint8](r) }
func (r *RawTensor) AsBool() []bool       { return viewAs[bool](r) }

// Clone returns a RawTensor sharing r's storage, with its own copy of the
// layout. The storage's reference count goes up by one.
func (r *RawTensor) Clone() *RawTensor {
	return r.withStorage(r.buffer.retain())
}

// CloneStorage returns a deep copy backed by new storage. Shape, strides,
// dtype, device and offset are all preserved, so a strided view stays a
// view of the same elements. Writes to either tensor never reach the other.
func (r *RawTensor) CloneStorage() *RawTensor {
	st := newStorage(len(r.buffer.data))
	copy(st.data, r.buffer.data)
	return r.withStorage(st)
}

func (r *RawTensor) withStorage(st *storage) *RawTensor {
	return &RawTensor{
		buffer: st,
		shape:  r.shape.Clone(),
		stride: slices.Clone(r.stride),
		dtype:  r.dtype,
		device: r.device,
		offset: r.offset,
	}
}

// SameStorage reports whether r and other share storage.
func (r *RawTensor) SameStorage(other *RawTensor) bool {
	return other != nil && r.buffer == other.buffer
}

// Release drops r's reference to its storage.
func (r *RawTensor) Release() {
	r.buffer.release()
}

// IsUnique reports whether r holds the only reference to its storage.
func (r *RawTensor) IsUnique() bool {
	return r.buffer.refs.Load() == 1
}
