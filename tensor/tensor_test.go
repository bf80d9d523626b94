// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/etl/tensor"
)

func TestFromSlice(t *testing.T) {
	d, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, d.Dims())
	assert.Equal(t, float32(6), d.At(1, 2))
	assert.Equal(t, tensor.RowMajor, d.Order())

	_, err = tensor.FromSlice([]float32{1, 2}, tensor.Shape{2, 3})
	assert.Error(t, err)
}

func TestColumnMajor(t *testing.T) {
	d, err := tensor.FromSlice([]int32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.WithOrder(tensor.ColumnMajor))
	require.NoError(t, err)
	assert.Equal(t, int32(2), d.At(1, 0))
	assert.Equal(t, int32(3), d.At(0, 1))
}

func TestFullAndWrap(t *testing.T) {
	f := tensor.Full[float64](tensor.Shape{3}, 1.5)
	assert.Equal(t, []float64{1.5, 1.5, 1.5}, f.Data())
	assert.Equal(t, tensor.HostValid, f.Coherency())

	mem := []uint8{1, 2, 3, 4}
	w, err := tensor.Wrap(mem, tensor.Shape{2, 2})
	require.NoError(t, err)
	w.Set(0, 9)
	assert.Equal(t, uint8(9), mem[0])
	assert.False(t, w.Traits().Padded)
}

func TestHalf(t *testing.T) {
	h := tensor.NewHalf(tensor.Shape{2})
	h.Set(0, 1.5)
	assert.Equal(t, float32(1.5), h.At(0))
	assert.Equal(t, uint16(0x3e00), h.Bits(0))
}
