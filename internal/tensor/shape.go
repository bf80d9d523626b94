package tensor

import (
	"fmt"

	"github.com/born-ml/etl/internal/traits"
)

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (no negative dimensions).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Strides calculates the element strides of the shape for the given storage order.
// Row-major: stride[i] = product of all dimensions after i.
// Column-major: stride[i] = product of all dimensions before i.
func (s Shape) Strides(order traits.Order) []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	if order == traits.ColumnMajor {
		strides[0] = 1
		for i := 1; i < len(s); i++ {
			strides[i] = strides[i-1] * s[i-1]
		}
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Offset returns the flat position of the multi-index idx.
func (s Shape) Offset(order traits.Order, idx ...int) int {
	if len(idx) != len(s) {
		panic(fmt.Sprintf("index: %d indices for %d dimensions", len(idx), len(s)))
	}
	strides := s.Strides(order)
	off := 0
	for i, v := range idx {
		if v < 0 || v >= s[i] {
			panic(fmt.Sprintf("index: %d out of range [0, %d) in dimension %d", v, s[i], i))
		}
		off += v * strides[i]
	}
	return off
}

// Unravel converts a flat position into a multi-index, writing it into idx.
func (s Shape) Unravel(order traits.Order, flat int, idx []int) {
	if order == traits.ColumnMajor {
		for i := 0; i < len(s); i++ {
			idx[i] = flat % s[i]
			flat /= s[i]
		}
		return
	}
	for i := len(s) - 1; i >= 0; i-- {
		idx[i] = flat % s[i]
		flat /= s[i]
	}
}
