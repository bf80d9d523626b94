// Package linalg implements the temporary expression nodes: matrix
// multiplication, 2-D convolution and average pooling.
//
// A temporary evaluates itself straight into the destination of an
// assignment. In compound assignments and inside larger expressions it is
// first materialized into its own container by the visit pass, then read
// like any other direct operand.
package linalg

import (
	"context"
	"fmt"

	"github.com/born-ml/etl/internal/config"
	"github.com/born-ml/etl/internal/eval"
	"github.com/born-ml/etl/internal/expr"
	"github.com/born-ml/etl/internal/parallel"
	"github.com/born-ml/etl/internal/simd"
	"github.com/born-ml/etl/internal/tensor"
	"github.com/born-ml/etl/internal/traits"
)

// node holds the state shared by every temporary.
type node[T tensor.Number] struct {
	name     string
	dims     tensor.Shape
	order    traits.Order
	operands []expr.Expr[T]
	result   *tensor.Dense[T]
	assign   func(ctx context.Context, dst expr.Result[T])
}

func (n *node[T]) Traits() traits.Traits {
	t := traits.Traits{
		Direct:     true,
		Order:      n.order,
		ThreadSafe: true,
		Padded:     true,
		Temporary:  true,
		Dims:       len(n.dims),
	}
	if traits.ElemOf[T]().Vectorizable() {
		t.Vector = traits.AllModes
	}
	return t
}

func (n *node[T]) Size() int { return n.dims.NumElements() }

func (n *node[T]) Dims() tensor.Shape { return n.dims }

// Result returns the container filled by the last visit, or nil.
func (n *node[T]) Result() *tensor.Dense[T] { return n.result }

func (n *node[T]) mustResult() *tensor.Dense[T] {
	if n.result == nil {
		panic(fmt.Sprintf("%s: read before evaluation", n.name))
	}
	return n.result
}

func (n *node[T]) ReadFlat(i int) T { return n.mustResult().ReadFlat(i) }

func (n *node[T]) Load(i, w int) simd.Vec[T] { return n.mustResult().Load(i, w) }

func (n *node[T]) Memory() []T { return n.mustResult().Memory() }

func (n *node[T]) Padded() []T { return n.mustResult().Padded() }

func (n *node[T]) Alias(r tensor.Region) bool {
	for _, e := range n.operands {
		if e.Alias(r) {
			return true
		}
	}
	return false
}

// Visit evaluates the node into its own container.
func (n *node[T]) Visit(ctx context.Context) {
	if n.result == nil {
		n.result = tensor.New[T](n.dims, tensor.WithOrder(n.order))
	}
	n.assign(ctx, n.result)
}

func (n *node[T]) EnsureHost() {
	if n.result != nil {
		n.result.EnsureHost()
	}
}

func (n *node[T]) AssignTo(ctx context.Context, dst expr.Result[T]) {
	if !dst.Dims().Equal(n.dims) {
		panic(fmt.Sprintf("%s: destination shape %v, expected %v", n.name, dst.Dims(), n.dims))
	}
	if n.Alias(dst.Region()) {
		tmp := tensor.New[T](n.dims, tensor.WithOrder(dst.Traits().Order))
		n.assign(ctx, tmp)
		eval.Assign[T](ctx, dst, tmp)
		tmp.ReleaseDevice()
		return
	}
	n.assign(ctx, dst)
}

func (n *node[T]) AddTo(ctx context.Context, dst expr.Result[T]) {
	eval.Apply[T](ctx, simd.Add, dst, n)
}

func (n *node[T]) SubTo(ctx context.Context, dst expr.Result[T]) {
	eval.Apply[T](ctx, simd.Sub, dst, n)
}

func (n *node[T]) MulTo(ctx context.Context, dst expr.Result[T]) {
	eval.Apply[T](ctx, simd.Mul, dst, n)
}

func (n *node[T]) DivTo(ctx context.Context, dst expr.Result[T]) {
	eval.Apply[T](ctx, simd.Div, dst, n)
}

func (n *node[T]) ModTo(ctx context.Context, dst expr.Result[T]) {
	eval.Apply[T](ctx, simd.Mod, dst, n)
}

// rowMajor returns e as a row-major host container. Anything else than a
// row-major container is evaluated into a new one, reported as owned.
func rowMajor[T tensor.Number](ctx context.Context, e expr.Expr[T]) (d *tensor.Dense[T], owned bool) {
	if d, ok := e.(*tensor.Dense[T]); ok && d.Order() == traits.RowMajor {
		return d, false
	}
	d = tensor.New[T](e.Dims())
	eval.Assign[T](ctx, d, e)
	return d, true
}

// hostOutput returns row-major host memory for a result of the given shape
// and a function that publishes it to dst.
func hostOutput[T tensor.Number](ctx context.Context, dst expr.Result[T], dims tensor.Shape) ([]T, func()) {
	if d, ok := dst.(*tensor.Dense[T]); ok && d.Order() == traits.RowMajor {
		return d.Memory(), d.ValidateHost
	}
	tmp := tensor.New[T](dims)
	return tmp.Memory(), func() { eval.Assign[T](ctx, dst, tmp) }
}

// workers returns the row-parallel settings of a kernel doing work
// element operations.
func workers(cfg config.Config, work int) parallel.Config {
	return parallel.Config{
		Enabled:      cfg.SelectParallel(work),
		NumWorkers:   cfg.Threads,
		MinChunkSize: 1,
	}
}

// vectorWidth returns the lane count of the widest enabled tier, at least 1.
func vectorWidth[T tensor.Number](cfg config.Config) int {
	return max(cfg.VectorModes().Widest().Lanes(traits.ElemOf[T]()), 1)
}

func check2D[T tensor.Number](name, operand string, e expr.Expr[T]) {
	if len(e.Dims()) != 2 {
		panic(fmt.Sprintf("%s: %s must be 2-D, got shape %v", name, operand, e.Dims()))
	}
}
