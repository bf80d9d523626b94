//go:build windows

package webgpu

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/traits"
)

func openDevice(t *testing.T) *Device {
	t.Helper()
	if !IsAvailable() {
		t.Skip("WebGPU not available")
	}
	dev, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Close() })
	return dev
}

func bytesOf(s []float32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

func upload(t *testing.T, dev *Device, data []float32) backend.Buffer {
	t.Helper()
	buf, err := dev.Alloc(traits.ElemOf[float32](), len(data))
	require.NoError(t, err)
	require.NoError(t, dev.Upload(buf, bytesOf(data)))
	t.Cleanup(buf.Release)
	return buf
}

func download(t *testing.T, dev *Device, buf backend.Buffer) []float32 {
	t.Helper()
	out := make([]float32, buf.Len())
	require.NoError(t, dev.Download(bytesOf(out), buf))
	return out
}

func TestSupports(t *testing.T) {
	dev := openDevice(t)
	assert.True(t, dev.Supports(traits.ElemOf[float32]()))
	assert.False(t, dev.Supports(traits.ElemOf[float64]()))
	_, err := dev.Alloc(traits.ElemOf[float64](), 4)
	assert.Error(t, err)
}

func TestKernels(t *testing.T) {
	dev := openDevice(t)
	x := []float32{1, 2, 4, 8, 16}
	y := []float32{10, 20, 30, 40, 50}

	tests := []struct {
		name string
		run  func(xb, yb backend.Buffer) error
		want []float32
	}{
		{"copy", func(xb, yb backend.Buffer) error { return dev.Copy(yb, xb) }, []float32{1, 2, 4, 8, 16}},
		{"axpy", func(xb, yb backend.Buffer) error { return dev.Axpy(-1, xb, yb) }, []float32{9, 18, 26, 32, 34}},
		{"axmy", func(xb, yb backend.Buffer) error { return dev.Axmy(2, xb, yb) }, []float32{20, 80, 240, 640, 1600}},
		{"axdy", func(xb, yb backend.Buffer) error { return dev.Axdy(1, xb, yb) }, []float32{10, 10, 7.5, 5, 3.125}},
		{"scal", func(_, yb backend.Buffer) error { return dev.Scal(0.5, yb) }, []float32{5, 10, 15, 20, 25}},
		{"scalar_add", func(_, yb backend.Buffer) error { return dev.ScalarAdd(yb, 1) }, []float32{11, 21, 31, 41, 51}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			xb, yb := upload(t, dev, x), upload(t, dev, y)
			require.NoError(t, tt.run(xb, yb))
			assert.Equal(t, tt.want, download(t, dev, yb))
		})
	}
}

func TestGemm(t *testing.T) {
	dev := openDevice(t)
	a := upload(t, dev, []float32{1, 2, 3, 4, 5, 6})
	b := upload(t, dev, []float32{7, 8, 9, 10, 11, 12})
	c := upload(t, dev, make([]float32, 4))

	require.NoError(t, dev.Gemm(a, b, c, 2, 3, 2))
	got := download(t, dev, c)
	for i, want := range []float32{58, 64, 139, 154} {
		assert.InDelta(t, want, got[i], 1e-4)
	}
	assert.Error(t, dev.Gemm(a, b, c, 3, 2, 2))
}

func TestAllocIsZeroed(t *testing.T) {
	dev := openDevice(t)
	first := upload(t, dev, []float32{1, 2, 3})
	first.Release()

	buf, err := dev.Alloc(traits.ElemOf[float32](), 3)
	require.NoError(t, err)
	defer buf.Release()
	assert.Equal(t, []float32{0, 0, 0}, download(t, dev, buf))

	hits, _ := dev.Stats()
	assert.Positive(t, hits)
}
