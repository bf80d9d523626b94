// Package backend defines the accelerator device contract and the
// context-scoped selection of numeric backends.
package backend

import (
	"context"

	"github.com/born-ml/etl/internal/traits"
)

// Buffer is a region of device memory.
type Buffer interface {
	// Len returns the number of elements.
	Len() int
	// Elem returns the element type.
	Elem() traits.Elem
	// Release frees the device memory.
	Release()
}

// Device is an accelerator with its own memory.
//
// All vectors are dense, have the same length and the same element type.
// Scalars are passed as float64 and converted to the buffer element type.
type Device interface {
	// Name identifies the device.
	Name() string
	// Supports reports whether buffers of element type e can be allocated.
	Supports(e traits.Elem) bool
	// Alloc allocates a zeroed buffer of n elements.
	Alloc(e traits.Elem, n int) (Buffer, error)
	// Upload copies host bytes into dst.
	Upload(dst Buffer, src []byte) error
	// Download copies src into host bytes.
	Download(dst []byte, src Buffer) error
	// Copy copies src into dst on the device.
	Copy(dst, src Buffer) error

	// Axpy computes y = alpha*x + y.
	Axpy(alpha float64, x, y Buffer) error
	// Axmy computes y = alpha*x*y element-wise.
	Axmy(alpha float64, x, y Buffer) error
	// Axdy computes y = y / (alpha*x) element-wise.
	Axdy(alpha float64, x, y Buffer) error
	// ScalarAdd computes y = y + v.
	ScalarAdd(y Buffer, v float64) error
	// Scal computes y = alpha*y.
	Scal(alpha float64, y Buffer) error
	// Gemm computes the row-major product c[m,n] = a[m,k] * b[k,n].
	Gemm(a, b, c Buffer, m, k, n int) error

	// Close releases the device.
	Close() error
}

type deviceKey struct{}

// WithDevice returns a context whose operations may offload to dev.
// A nil dev disables offloading.
func WithDevice(ctx context.Context, dev Device) context.Context {
	return context.WithValue(ctx, deviceKey{}, dev)
}

// DeviceFrom returns the accelerator attached to ctx, or nil.
func DeviceFrom(ctx context.Context) Device {
	if ctx == nil {
		return nil
	}
	dev, _ := ctx.Value(deviceKey{}).(Device)
	return dev
}

// Available reports whether ctx carries a device able to hold elements of type e.
func Available(ctx context.Context, e traits.Elem) bool {
	dev := DeviceFrom(ctx)
	return dev != nil && dev.Supports(e)
}
