package tensor

import "fmt"

// Tensor is a typed handle on a RawTensor bound to a backend.
//
// Several Tensors may share one RawTensor's storage (see Clone and
// Detach). The gradient slot and flag belong to the handle, not to the
// storage.
//
//	w := tensor.Zeros[float32](tensor.Shape{3, 4}, cpu.New())
//	w.Set(1, 0, 2)
type Tensor[T DType, B Backend] struct {
	raw          *RawTensor
	backend      B
	grad         *Tensor[T, B]
	requiresGrad bool
}

// New wraps raw without copying it.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return &Tensor[T, B]{raw: raw, backend: b}
}

// FromSlice copies data into a new tensor of the given shape.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	if n := shape.NumElements(); n != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, n, len(data))
	}
	raw, err := NewRaw(shape, dataTypeOf[T](), b.Device())
	if err != nil {
		return nil, err
	}
	t := New[T, B](raw, b)
	copy(t.Data(), data)
	return t, nil
}

func (t *Tensor[T, B]) Shape() Shape        { return t.raw.Shape() }
func (t *Tensor[T, B]) DType() DataType     { return t.raw.DType() }
func (t *Tensor[T, B]) Device() Device      { return t.raw.Device() }
func (t *Tensor[T, B]) NumElements() int    { return t.raw.NumElements() }
func (t *Tensor[T, B]) Raw() *RawTensor     { return t.raw }
func (t *Tensor[T, B]) Backend() B          { return t.backend }
func (t *Tensor[T, B]) Grad() *Tensor[T, B] { return t.grad }
func (t *Tensor[T, B]) RequiresGrad() bool  { return t.requiresGrad }

func (t *Tensor[T, B]) SetGrad(grad *Tensor[T, B])        { t.grad = grad }
func (t *Tensor[T, B]) SetRequiresGrad(requiresGrad bool) { t.requiresGrad = requiresGrad }

// RequireGrad sets the gradient flag and returns t for chaining.
func (t *Tensor[T, B]) RequireGrad() *Tensor[T, B] {
	t.requiresGrad = true
	return t
}

// Data returns the storage as []T. Writes go straight to the tensor and to
// every handle sharing its storage.
func (t *Tensor[T, B]) Data() []T {
	return viewAs[T](t.raw)
}

// Item returns the value of a 0-d tensor and panics for any other shape.
func (t *Tensor[T, B]) Item() T {
	if len(t.Shape()) != 0 {
		panic(fmt.Sprintf("Item() only works for scalar tensors, got shape %v", t.Shape()))
	}
	return t.Data()[0]
}

// At returns the element at indices, following the tensor's strides.
// It panics when an index is out of range.
func (t *Tensor[T, B]) At(indices ...int) T {
	return t.Data()[t.flatIndex(indices)]
}

// Set stores value at indices. It panics when an index is out of range.
func (t *Tensor[T, B]) Set(value T, indices ...int) {
	t.Data()[t.flatIndex(indices)] = value
}

func (t *Tensor[T, B]) flatIndex(indices []int) int {
	shape := t.Shape()
	if len(indices) != len(shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(shape), len(indices)))
	}
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, shape[i]))
		}
		offset += idx * t.raw.stride[i]
	}
	return offset
}

// String prints a summary line and the values:
//
//	Tensor[float32][2 3] on CPU
//	[[1 2 3]
//	 [4 5 6]]
func (t *Tensor[T, B]) String() string {
	return t.raw.String()
}

// Detach returns a handle on the same storage with no gradient state.
func (t *Tensor[T, B]) Detach() *Tensor[T, B] {
	return New[T, B](t.raw, t.backend)
}

// Clone returns a copy-on-write handle: the storage is shared and its
// reference count goes up. Gradient state is not carried over.
func (t *Tensor[T, B]) Clone() *Tensor[T, B] {
	return New[T, B](t.raw.Clone(), t.backend)
}

// CloneStorage returns a copy with its own storage and the same strides.
// Gradient state is not carried over.
func (t *Tensor[T, B]) CloneStorage() *Tensor[T, B] {
	return New[T, B](t.raw.CloneStorage(), t.backend)
}
