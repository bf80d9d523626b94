package expr

import (
	"context"
	"fmt"

	"github.com/born-ml/etl/internal/tensor"
	"github.com/born-ml/etl/internal/traits"
)

// Sub2D is a writable m x n window of a 2-D operand starting at (bi, bj).
// Flat indices of the window follow the base's storage order.
type Sub2D[T traits.Number] struct {
	base         Result[T]
	bi, bj, m, n int
	baseM, baseN int
	order        traits.Order
}

// SubMatrix returns the m x n window of base whose top-left element is (bi, bj).
func SubMatrix[T traits.Number](base Result[T], bi, bj, m, n int) *Sub2D[T] {
	dims := base.Dims()
	if len(dims) != 2 {
		panic(fmt.Sprintf("sub: base must be 2-D, got %d dimensions", len(dims)))
	}
	if bi < 0 || bj < 0 || m < 0 || n < 0 || bi+m > dims[0] || bj+n > dims[1] {
		panic(fmt.Sprintf("sub: window [%d:%d, %d:%d] out of bounds for %v", bi, bi+m, bj, bj+n, []int(dims)))
	}
	return &Sub2D[T]{
		base:  base,
		bi:    bi,
		bj:    bj,
		m:     m,
		n:     n,
		baseM: dims[0],
		baseN: dims[1],
		order: base.Traits().Order,
	}
}

func (s *Sub2D[T]) index(j int) int {
	if s.order == traits.ColumnMajor {
		return (s.bi + j%s.m) + (s.bj+j/s.m)*s.baseM
	}
	return (s.bi+j/s.n)*s.baseN + s.bj + j%s.n
}

func (s *Sub2D[T]) Traits() traits.Traits {
	bt := s.base.Traits()
	return traits.Traits{
		Order:      s.order,
		ThreadSafe: bt.ThreadSafe,
		Dims:       2,
	}
}

func (s *Sub2D[T]) Size() int { return s.m * s.n }

func (s *Sub2D[T]) Dims() tensor.Shape { return tensor.Shape{s.m, s.n} }

func (s *Sub2D[T]) ReadFlat(j int) T { return s.base.ReadFlat(s.index(j)) }

func (s *Sub2D[T]) Set(j int, v T) { s.base.Set(s.index(j), v) }

// Region returns the region of the base; the window is not contiguous.
func (s *Sub2D[T]) Region() tensor.Region { return s.base.Region() }

func (s *Sub2D[T]) Alias(r tensor.Region) bool { return s.base.Alias(r) }

func (s *Sub2D[T]) Visit(ctx context.Context) { s.base.Visit(ctx) }

func (s *Sub2D[T]) EnsureHost() { EnsureHost(s.base) }

func (s *Sub2D[T]) ValidateHost() { ValidateHost(s.base) }

// Transposed is the mathematical transpose of a 2-D operand.
type Transposed[T traits.Number] struct {
	e    Expr[T]
	rows int // rows of the result
	cols int // columns of the result
}

// Transpose returns the transpose of the 2-D operand e.
func Transpose[T traits.Number](e Expr[T]) *Transposed[T] {
	dims := e.Dims()
	if len(dims) != 2 {
		panic(fmt.Sprintf("transpose: operand must be 2-D, got %d dimensions", len(dims)))
	}
	return &Transposed[T]{e: e, rows: dims[1], cols: dims[0]}
}

func (t *Transposed[T]) Traits() traits.Traits {
	et := t.e.Traits()
	return traits.Traits{
		Order:      et.Order,
		ThreadSafe: et.ThreadSafe,
		Dims:       2,
	}
}

func (t *Transposed[T]) Size() int { return t.rows * t.cols }

func (t *Transposed[T]) Dims() tensor.Shape { return tensor.Shape{t.rows, t.cols} }

// ReadFlat reads result element (r, c), which is element (c, r) of the operand.
func (t *Transposed[T]) ReadFlat(i int) T {
	if t.e.Traits().Order == traits.ColumnMajor {
		r, c := i%t.rows, i/t.rows
		return t.e.ReadFlat(c + r*t.cols)
	}
	r, c := i/t.cols, i%t.cols
	return t.e.ReadFlat(c*t.rows + r)
}

func (t *Transposed[T]) Alias(r tensor.Region) bool { return t.e.Alias(r) }

func (t *Transposed[T]) Visit(ctx context.Context) { t.e.Visit(ctx) }

func (t *Transposed[T]) EnsureHost() { EnsureHost(t.e) }

// Relaid presents an operand in another storage order.
// Element values per multi-index are unchanged; only the flat order differs.
type Relaid[T traits.Number] struct {
	e       Expr[T]
	order   traits.Order
	dims    tensor.Shape
	strides []int // operand strides
}

// Relayout returns e read in the given storage order.
func Relayout[T traits.Number](e Expr[T], order traits.Order) *Relaid[T] {
	dims := e.Dims()
	return &Relaid[T]{
		e:       e,
		order:   order,
		dims:    dims,
		strides: dims.Strides(e.Traits().Order),
	}
}

func (v *Relaid[T]) Traits() traits.Traits {
	et := v.e.Traits()
	return traits.Traits{
		Order:      v.order,
		ThreadSafe: et.ThreadSafe,
		Dims:       et.Dims,
	}
}

func (v *Relaid[T]) Size() int { return v.e.Size() }

func (v *Relaid[T]) Dims() tensor.Shape { return v.dims }

func (v *Relaid[T]) ReadFlat(i int) T {
	off := 0
	if v.order == traits.ColumnMajor {
		for d := 0; d < len(v.dims); d++ {
			off += (i % v.dims[d]) * v.strides[d]
			i /= v.dims[d]
		}
	} else {
		for d := len(v.dims) - 1; d >= 0; d-- {
			off += (i % v.dims[d]) * v.strides[d]
			i /= v.dims[d]
		}
	}
	return v.e.ReadFlat(off)
}

func (v *Relaid[T]) Alias(r tensor.Region) bool { return v.e.Alias(r) }

func (v *Relaid[T]) Visit(ctx context.Context) { v.e.Visit(ctx) }

func (v *Relaid[T]) EnsureHost() { EnsureHost(v.e) }
