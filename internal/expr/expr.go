// Package expr defines the operand contract of the evaluator and the
// element-wise expression nodes built on it.
package expr

import (
	"context"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/simd"
	"github.com/born-ml/etl/internal/tensor"
	"github.com/born-ml/etl/internal/traits"
)

// Expr is a readable operand.
type Expr[T traits.Number] interface {
	// Traits returns the static capabilities of the node.
	Traits() traits.Traits
	// Size returns the number of elements.
	Size() int
	// Dims returns the shape.
	Dims() tensor.Shape
	// ReadFlat returns element i in the node's storage order.
	ReadFlat(i int) T
	// Alias reports whether any memory read by the node overlaps r.
	Alias(r tensor.Region) bool
	// Visit materializes nested temporaries before evaluation.
	Visit(ctx context.Context)
}

// Result is a writable operand.
type Result[T traits.Number] interface {
	Expr[T]
	Set(i int, v T)
	Region() tensor.Region
}

// Loader reads w lanes starting at element i.
type Loader[T traits.Number] interface {
	Load(i, w int) simd.Vec[T]
}

// Direct exposes the contiguous host memory of an operand.
type Direct[T traits.Number] interface {
	Memory() []T
	Padded() []T
}

// Storer writes whole vectors into a direct destination.
type Storer[T traits.Number] interface {
	Store(v simd.Vec[T], i, w int)
	Stream(v simd.Vec[T], i, w int)
}

// HostSyncer brings an operand's host memory up to date.
type HostSyncer interface {
	EnsureHost()
}

// HostValidator records a host write.
type HostValidator interface {
	ValidateHost()
}

// Coherent is an operand with host and device memory.
type Coherent interface {
	HostSyncer
	HostValidator
	Coherency() tensor.Coherency
	Device() backend.Device
	EnsureDevice(dev backend.Device)
	EnsureDeviceAllocated(dev backend.Device)
	DeviceBuffer() backend.Buffer
	ValidateDevice()
}

// DeviceComputer computes a node on an accelerator.
// When owned is true the caller must release the buffer.
type DeviceComputer interface {
	DeviceCompute(dev backend.Device) (buf backend.Buffer, owned bool)
}

// ScalarValuer is a broadcast constant.
type ScalarValuer[T traits.Number] interface {
	Value() T
}

// Temporary is a node that evaluates itself into a destination.
type Temporary[T traits.Number] interface {
	Expr[T]
	AssignTo(ctx context.Context, dst Result[T])
	AddTo(ctx context.Context, dst Result[T])
	SubTo(ctx context.Context, dst Result[T])
	MulTo(ctx context.Context, dst Result[T])
	DivTo(ctx context.Context, dst Result[T])
	ModTo(ctx context.Context, dst Result[T])
}

// EnsureHost syncs e if it has device memory.
func EnsureHost(e any) {
	if h, ok := e.(HostSyncer); ok {
		h.EnsureHost()
	}
}

// ValidateHost records a host write to e if it tracks coherency.
func ValidateHost(e any) {
	if h, ok := e.(HostValidator); ok {
		h.ValidateHost()
	}
}

// LoaderOf returns the lane reader of e, or nil.
func LoaderOf[T traits.Number](e Expr[T]) Loader[T] {
	if e.Traits().Vector == 0 {
		return nil
	}
	l, _ := e.(Loader[T])
	return l
}

func dimsOf[T traits.Number](a, b Expr[T]) (int, tensor.Shape, traits.Traits) {
	if a.Traits().Generator && !b.Traits().Generator {
		return b.Size(), b.Dims(), b.Traits()
	}
	return a.Size(), a.Dims(), a.Traits()
}
