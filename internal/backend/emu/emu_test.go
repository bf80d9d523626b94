package emu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/etl/internal/traits"
)

func f32Bytes(vs ...float32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func bytesF32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}

func upload(t *testing.T, d *Device, vs ...float32) *buffer {
	t.Helper()
	b, err := d.Alloc(traits.ElemOf[float32](), len(vs))
	require.NoError(t, err)
	require.NoError(t, d.Upload(b, f32Bytes(vs...)))
	return b.(*buffer)
}

func download(t *testing.T, d *Device, b *buffer) []float32 {
	t.Helper()
	out := make([]byte, 4*b.Len())
	require.NoError(t, d.Download(out, b))
	return bytesF32(out)
}

func TestSupports(t *testing.T) {
	d := New()
	assert.True(t, d.Supports(traits.ElemOf[float32]()))
	assert.True(t, d.Supports(traits.ElemOf[float64]()))
	assert.False(t, d.Supports(traits.ElemOf[int32]()))
	assert.False(t, d.Supports(traits.ElemOf[complex64]()))

	_, err := d.Alloc(traits.ElemOf[int64](), 4)
	assert.Error(t, err)
}

func TestUploadDownload(t *testing.T) {
	d := New()
	b := upload(t, d, 1, 2, 3)
	assert.Equal(t, []float32{1, 2, 3}, download(t, d, b))

	assert.Error(t, d.Upload(b, f32Bytes(1, 2)))
	assert.Error(t, d.Download(make([]byte, 4), b))
}

func TestKernels(t *testing.T) {
	d := New()

	tests := []struct {
		name string
		run  func(x, y *buffer) error
		want []float32
	}{
		{"copy", func(x, y *buffer) error { return d.Copy(y, x) }, []float32{1, 2, 4}},
		{"axpy", func(x, y *buffer) error { return d.Axpy(2, x, y) }, []float32{12, 24, 48}},
		{"axpy_neg", func(x, y *buffer) error { return d.Axpy(-1, x, y) }, []float32{9, 18, 36}},
		{"axmy", func(x, y *buffer) error { return d.Axmy(1, x, y) }, []float32{10, 40, 160}},
		{"axdy", func(x, y *buffer) error { return d.Axdy(1, x, y) }, []float32{10, 10, 10}},
		{"scalar_add", func(_, y *buffer) error { return d.ScalarAdd(y, 0.5) }, []float32{10.5, 20.5, 40.5}},
		{"scal", func(_, y *buffer) error { return d.Scal(0.5, y) }, []float32{5, 10, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := upload(t, d, 1, 2, 4)
			y := upload(t, d, 10, 20, 40)
			require.NoError(t, tt.run(x, y))
			assert.Equal(t, tt.want, download(t, d, y))
			assert.Equal(t, []float32{1, 2, 4}, download(t, d, x))
		})
	}
}

func TestKernelsFloat64(t *testing.T) {
	d := New()
	e := traits.ElemOf[float64]()
	x, err := d.Alloc(e, 2)
	require.NoError(t, err)
	y, err := d.Alloc(e, 2)
	require.NoError(t, err)

	require.NoError(t, d.ScalarAdd(x, 3))
	require.NoError(t, d.Axpy(1, x, y))
	require.NoError(t, d.Scal(2, y))
	assert.Equal(t, []float64{6, 6}, y.(*buffer).f64)
}

func TestMismatchedBuffers(t *testing.T) {
	d := New()
	x := upload(t, d, 1, 2)
	y := upload(t, d, 1, 2, 3)
	assert.Error(t, d.Axpy(1, x, y))
	assert.Error(t, d.Copy(y, x))

	other := New()
	z := upload(t, other, 1, 2)
	assert.Error(t, d.Copy(x, z))
}

func TestGemm(t *testing.T) {
	d := New()
	a := upload(t, d, 1, 2, 3, 4, 5, 6)
	b := upload(t, d, 7, 8, 9, 10, 11, 12)
	c := upload(t, d, 0, 0, 0, 0)

	require.NoError(t, d.Gemm(a, b, c, 2, 3, 2))
	assert.Equal(t, []float32{58, 64, 139, 154}, download(t, d, c))

	assert.Error(t, d.Gemm(a, b, c, 2, 2, 2))
}

func TestLiveAndClose(t *testing.T) {
	d := New()
	b := upload(t, d, 1)
	c := upload(t, d, 2)
	assert.Equal(t, 2, d.Live())

	b.Release()
	b.Release()
	assert.Equal(t, 1, d.Live())
	c.Release()
	assert.Equal(t, 0, d.Live())

	require.NoError(t, d.Close())
	assert.Error(t, d.Close())
	_, err := d.Alloc(traits.ElemOf[float32](), 1)
	assert.Error(t, err)
}
