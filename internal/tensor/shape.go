package tensor

import (
	"fmt"
	"slices"
)

// Shape lists a tensor's dimensions, outermost first. The empty shape is a
// scalar; any zero dimension makes the tensor empty.
type Shape []int

// NumElements is the product of the dimensions (1 for a scalar).
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate rejects negative dimensions.
func (s Shape) Validate() error {
	if i := slices.IndexFunc(s, func(dim int) bool { return dim < 0 }); i >= 0 {
		return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, s[i])
	}
	return nil
}

func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy that never aliases s, even when s is nil.
func (s Shape) Clone() Shape {
	return append(make(Shape, 0, len(s)), s...)
}

// ComputeStrides returns the row-major (C order) element strides of s.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	step := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = step
		step *= s[i]
	}
	return strides
}
