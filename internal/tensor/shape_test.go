package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/etl/internal/traits"
)

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		want  int
	}{
		{"scalar", Shape{}, 1},
		{"vector", Shape{5}, 5},
		{"matrix", Shape{3, 4}, 12},
		{"3d", Shape{2, 3, 4}, 24},
		{"empty", Shape{3, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.shape.NumElements())
		})
	}
}

func TestShapeValidate(t *testing.T) {
	assert.NoError(t, Shape{2, 0, 3}.Validate())
	assert.Error(t, Shape{2, -1}.Validate())
}

func TestShapeEqualClone(t *testing.T) {
	s := Shape{2, 3}
	c := s.Clone()
	assert.True(t, s.Equal(c))
	c[0] = 7
	assert.False(t, s.Equal(c))
	assert.False(t, s.Equal(Shape{2}))
}

func TestShapeStrides(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, []int{12, 4, 1}, s.Strides(traits.RowMajor))
	assert.Equal(t, []int{1, 2, 6}, s.Strides(traits.ColumnMajor))
	assert.Empty(t, Shape{}.Strides(traits.RowMajor))
}

func TestShapeOffsetUnravel(t *testing.T) {
	s := Shape{2, 3, 4}
	for _, order := range []traits.Order{traits.RowMajor, traits.ColumnMajor} {
		idx := make([]int, 3)
		for flat := 0; flat < s.NumElements(); flat++ {
			s.Unravel(order, flat, idx)
			assert.Equal(t, flat, s.Offset(order, idx...), "order %s flat %d", order, flat)
		}
	}

	assert.Equal(t, 1*12+2*4+3, s.Offset(traits.RowMajor, 1, 2, 3))
	assert.Equal(t, 1+2*2+3*6, s.Offset(traits.ColumnMajor, 1, 2, 3))

	assert.Panics(t, func() { s.Offset(traits.RowMajor, 1, 2) })
	assert.Panics(t, func() { s.Offset(traits.RowMajor, 2, 0, 0) })
}

func TestRegionOverlaps(t *testing.T) {
	mem := make([]float64, 16)
	a := RegionOf(mem[:8])
	b := RegionOf(mem[8:])
	c := RegionOf(mem[4:12])

	assert.False(t, a.Overlaps(b))
	assert.True(t, a.Overlaps(c))
	assert.True(t, c.Overlaps(b))
	assert.False(t, Region{}.Overlaps(a))
	assert.True(t, RegionOf[float64](nil).Empty())
}
