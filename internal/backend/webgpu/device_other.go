//go:build !windows

package webgpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/traits"
)

// ErrUnsupported is returned by New on platforms without the WebGPU bindings.
var ErrUnsupported = errors.New("webgpu: not supported on this platform")

// Device is a WebGPU accelerator. On this platform it cannot be opened.
type Device struct{}

var _ backend.Device = (*Device)(nil)

// New returns ErrUnsupported.
func New() (*Device, error) {
	return nil, ErrUnsupported
}

// IsAvailable reports false.
func IsAvailable() bool { return false }

func (d *Device) Name() string { return "webgpu" }

func (d *Device) Supports(traits.Elem) bool { return false }

func (d *Device) Alloc(traits.Elem, int) (backend.Buffer, error) { return nil, ErrUnsupported }

func (d *Device) Upload(backend.Buffer, []byte) error { return ErrUnsupported }

func (d *Device) Download([]byte, backend.Buffer) error { return ErrUnsupported }

func (d *Device) Copy(_, _ backend.Buffer) error { return ErrUnsupported }

func (d *Device) Axpy(float64, backend.Buffer, backend.Buffer) error { return ErrUnsupported }

func (d *Device) Axmy(float64, backend.Buffer, backend.Buffer) error { return ErrUnsupported }

func (d *Device) Axdy(float64, backend.Buffer, backend.Buffer) error { return ErrUnsupported }

func (d *Device) ScalarAdd(backend.Buffer, float64) error { return ErrUnsupported }

func (d *Device) Scal(float64, backend.Buffer) error { return ErrUnsupported }

func (d *Device) Gemm(_, _, _ backend.Buffer, _, _, _ int) error { return ErrUnsupported }

func (d *Device) Close() error { return nil }

// Stats returns zero counts.
func (d *Device) Stats() (hits, misses uint64) { return 0, 0 }
