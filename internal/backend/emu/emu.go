// Package emu implements an accelerator device emulated in host memory.
//
// Device buffers live in memory owned by the device, separate from the
// host containers, so host/device coherency is exercised exactly as with a
// real accelerator. Only real floating-point elements are supported.
package emu

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/traits"
)

// Device is an emulated accelerator.
type Device struct {
	mu     sync.Mutex
	live   int
	closed bool
}

var _ backend.Device = (*Device)(nil)

// New creates an emulated device.
func New() *Device {
	return &Device{}
}

type buffer struct {
	dev  *Device
	elem traits.Elem
	f32  []float32
	f64  []float64
}

func (b *buffer) Len() int {
	if b.elem.Size == 4 {
		return len(b.f32)
	}
	return len(b.f64)
}

func (b *buffer) Elem() traits.Elem { return b.elem }

func (b *buffer) Release() {
	if b.f32 == nil && b.f64 == nil {
		return
	}
	b.f32, b.f64 = nil, nil
	b.dev.mu.Lock()
	b.dev.live--
	b.dev.mu.Unlock()
}

func (b *buffer) bytes() []byte {
	if b.elem.Size == 4 {
		if len(b.f32) == 0 {
			return nil
		}
		//nolint:gosec // G103: byte view of the buffer's own storage
		return unsafe.Slice((*byte)(unsafe.Pointer(&b.f32[0])), len(b.f32)*4)
	}
	if len(b.f64) == 0 {
		return nil
	}
	//nolint:gosec // G103: byte view of the buffer's own storage
	return unsafe.Slice((*byte)(unsafe.Pointer(&b.f64[0])), len(b.f64)*8)
}

// Name returns "emu".
func (d *Device) Name() string { return "emu" }

// Supports reports whether e is float32 or float64.
func (d *Device) Supports(e traits.Elem) bool {
	return e.Kind == traits.Float && (e.Size == 4 || e.Size == 8)
}

// Live returns the number of allocated, unreleased buffers.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// Alloc allocates a zeroed buffer.
func (d *Device) Alloc(e traits.Elem, n int) (backend.Buffer, error) {
	if !d.Supports(e) {
		return nil, errors.Errorf("emu: unsupported element type %s", e)
	}
	if n < 0 {
		return nil, errors.Errorf("emu: invalid buffer length %d", n)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errors.New("emu: device closed")
	}
	b := &buffer{dev: d, elem: e}
	if e.Size == 4 {
		b.f32 = make([]float32, n)
	} else {
		b.f64 = make([]float64, n)
	}
	d.live++
	return b, nil
}

func (d *Device) buf(name string, bufs ...backend.Buffer) ([]*buffer, error) {
	out := make([]*buffer, len(bufs))
	for i, bb := range bufs {
		b, ok := bb.(*buffer)
		if !ok || b.dev != d {
			return nil, errors.Errorf("emu: %s: buffer %d does not belong to this device", name, i)
		}
		if i > 0 && (b.elem != out[0].elem || b.Len() != out[0].Len()) && name != "gemm" {
			return nil, errors.Errorf("emu: %s: buffers differ in type or length", name)
		}
		out[i] = b
	}
	return out, nil
}

// Upload copies host bytes into dst.
func (d *Device) Upload(dst backend.Buffer, src []byte) error {
	bs, err := d.buf("upload", dst)
	if err != nil {
		return err
	}
	raw := bs[0].bytes()
	if len(raw) != len(src) {
		return errors.Errorf("emu: upload: %d bytes into a %d byte buffer", len(src), len(raw))
	}
	copy(raw, src)
	return nil
}

// Download copies src into host bytes.
func (d *Device) Download(dst []byte, src backend.Buffer) error {
	bs, err := d.buf("download", src)
	if err != nil {
		return err
	}
	raw := bs[0].bytes()
	if len(raw) != len(dst) {
		return errors.Errorf("emu: download: %d byte buffer into %d bytes", len(raw), len(dst))
	}
	copy(dst, raw)
	return nil
}

// Copy copies src into dst.
func (d *Device) Copy(dst, src backend.Buffer) error {
	bs, err := d.buf("copy", dst, src)
	if err != nil {
		return err
	}
	copy(bs[0].f32, bs[1].f32)
	copy(bs[0].f64, bs[1].f64)
	return nil
}

// Axpy computes y = alpha*x + y.
func (d *Device) Axpy(alpha float64, x, y backend.Buffer) error {
	bs, err := d.buf("axpy", y, x)
	if err != nil {
		return err
	}
	axpy(float32(alpha), bs[1].f32, bs[0].f32)
	axpy(alpha, bs[1].f64, bs[0].f64)
	return nil
}

// Axmy computes y = alpha*x*y.
func (d *Device) Axmy(alpha float64, x, y backend.Buffer) error {
	bs, err := d.buf("axmy", y, x)
	if err != nil {
		return err
	}
	axmy(float32(alpha), bs[1].f32, bs[0].f32)
	axmy(alpha, bs[1].f64, bs[0].f64)
	return nil
}

// Axdy computes y = y / (alpha*x).
func (d *Device) Axdy(alpha float64, x, y backend.Buffer) error {
	bs, err := d.buf("axdy", y, x)
	if err != nil {
		return err
	}
	axdy(float32(alpha), bs[1].f32, bs[0].f32)
	axdy(alpha, bs[1].f64, bs[0].f64)
	return nil
}

// ScalarAdd computes y = y + v.
func (d *Device) ScalarAdd(y backend.Buffer, v float64) error {
	bs, err := d.buf("scalar_add", y)
	if err != nil {
		return err
	}
	scalarAdd(float32(v), bs[0].f32)
	scalarAdd(v, bs[0].f64)
	return nil
}

// Scal computes y = alpha*y.
func (d *Device) Scal(alpha float64, y backend.Buffer) error {
	bs, err := d.buf("scal", y)
	if err != nil {
		return err
	}
	scal(float32(alpha), bs[0].f32)
	scal(alpha, bs[0].f64)
	return nil
}

// Gemm computes c[m,n] = a[m,k] * b[k,n].
func (d *Device) Gemm(a, b, c backend.Buffer, m, k, n int) error {
	bs, err := d.buf("gemm", a, b, c)
	if err != nil {
		return err
	}
	if bs[0].elem != bs[1].elem || bs[0].elem != bs[2].elem {
		return errors.New("emu: gemm: buffers differ in type")
	}
	if bs[0].Len() != m*k || bs[1].Len() != k*n || bs[2].Len() != m*n {
		return errors.Errorf("emu: gemm: buffer lengths do not match [%d,%d] x [%d,%d]", m, k, k, n)
	}
	gemm(bs[0].f32, bs[1].f32, bs[2].f32, m, k, n)
	gemm(bs[0].f64, bs[1].f64, bs[2].f64, m, k, n)
	return nil
}

// Close releases the device. Buffers still alive become unusable.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("emu: device already closed")
	}
	d.closed = true
	return nil
}

func axpy[F constraints.Float](alpha F, x, y []F) {
	for i := range y {
		y[i] += alpha * x[i]
	}
}

func axmy[F constraints.Float](alpha F, x, y []F) {
	for i := range y {
		y[i] *= alpha * x[i]
	}
}

func axdy[F constraints.Float](alpha F, x, y []F) {
	for i := range y {
		y[i] /= alpha * x[i]
	}
}

func scalarAdd[F constraints.Float](v F, y []F) {
	for i := range y {
		y[i] += v
	}
}

func scal[F constraints.Float](alpha F, y []F) {
	for i := range y {
		y[i] *= alpha
	}
}

func gemm[F constraints.Float](a, b, c []F, m, k, n int) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum F
			for l := 0; l < k; l++ {
				sum += a[i*k+l] * b[l*n+j]
			}
			c[i*n+j] = sum
		}
	}
}
