// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/etl/internal/tensor"
	"github.com/born-ml/etl/internal/traits"
)

// Number is the set of element types.
type Number = tensor.Number

// Real is Number without the complex types.
type Real = tensor.Real

// Float is the set of real floating-point types.
type Float = tensor.Float

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Order is a storage order.
type Order = traits.Order

// Storage orders.
const (
	RowMajor    Order = traits.RowMajor
	ColumnMajor Order = traits.ColumnMajor
)

// Dense is a contiguous container with optional accelerator memory.
type Dense[T Number] = tensor.Dense[T]

// Half is a container of half-precision floats.
type Half = tensor.Half

// Region is an address range used for alias detection.
type Region = tensor.Region

// Coherency tells which copy of a container is authoritative.
type Coherency = tensor.Coherency

// Coherency states.
const (
	HostValid   Coherency = tensor.HostValid
	DeviceValid Coherency = tensor.DeviceValid
	BothValid   Coherency = tensor.BothValid
)

// Option configures a new container.
type Option = tensor.Option

// WithOrder sets the storage order (row-major by default).
func WithOrder(o Order) Option {
	return tensor.WithOrder(o)
}

// New creates a zeroed, padded container.
// It panics if shape has a negative dimension.
func New[T Number](shape Shape, opts ...Option) *Dense[T] {
	return tensor.New[T](shape, opts...)
}

// FromSlice creates a padded container holding a copy of data, read in
// the container's storage order.
func FromSlice[T Number](data []T, shape Shape, opts ...Option) (*Dense[T], error) {
	return tensor.FromSlice(data, shape, opts...)
}

// Full creates a padded container with every element set to v.
func Full[T Number](shape Shape, v T, opts ...Option) *Dense[T] {
	return tensor.Full(shape, v, opts...)
}

// Wrap creates an unpadded container over mem without copying.
func Wrap[T Number](mem []T, shape Shape, opts ...Option) (*Dense[T], error) {
	return tensor.Wrap(mem, shape, opts...)
}

// NewHalf creates a zeroed half-precision container.
func NewHalf(shape Shape) *Half {
	return tensor.NewHalf(shape)
}
