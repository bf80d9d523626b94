package linalg

import (
	"context"
	"fmt"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/backend/cpu"
	"github.com/born-ml/etl/internal/config"
	"github.com/born-ml/etl/internal/counters"
	"github.com/born-ml/etl/internal/eval"
	"github.com/born-ml/etl/internal/expr"
	"github.com/born-ml/etl/internal/parallel"
	"github.com/born-ml/etl/internal/tensor"
	"github.com/born-ml/etl/internal/traits"
)

// Gemm is the matrix product a * b.
type Gemm[T tensor.Number] struct {
	node[T]
	a, b    expr.Expr[T]
	m, k, n int
}

// NewGemm returns the product of the 2-D operands a[m,k] and b[k,n].
// The result has the storage order of a.
func NewGemm[T tensor.Number](a, b expr.Expr[T]) *Gemm[T] {
	check2D("gemm", "lhs", a)
	check2D("gemm", "rhs", b)
	ad, bd := a.Dims(), b.Dims()
	if ad[1] != bd[0] {
		panic(fmt.Sprintf("gemm: shape mismatch [%d,%d] @ [%d,%d]", ad[0], ad[1], bd[0], bd[1]))
	}
	g := &Gemm[T]{a: a, b: b, m: ad[0], k: ad[1], n: bd[1]}
	g.node = node[T]{
		name:     "gemm",
		dims:     tensor.Shape{g.m, g.n},
		order:    a.Traits().Order,
		operands: []expr.Expr[T]{a, b},
	}
	g.assign = g.evaluate
	return g
}

// Operands returns a and b.
func (g *Gemm[T]) Operands() (a, b expr.Expr[T]) { return g.a, g.b }

// Impl returns the implementation an evaluation under ctx uses.
func (g *Gemm[T]) Impl(ctx context.Context) backend.GemmImpl {
	e := traits.ElemOf[T]()
	if impl, ok := backend.ForcedGemm(ctx); ok {
		if g.usable(ctx, impl) {
			return impl
		}
		def := g.defaultImpl(ctx)
		config.Logger(ctx).Warn("forced gemm implementation unavailable, using default",
			"forced", impl.String(), "impl", def.String(), "elem", e.String(),
			"m", g.m, "k", g.k, "n", g.n)
		return def
	}
	return g.defaultImpl(ctx)
}

func (g *Gemm[T]) usable(ctx context.Context, impl backend.GemmImpl) bool {
	e := traits.ElemOf[T]()
	switch impl {
	case backend.GemmStd:
		return true
	case backend.GemmVec:
		return e.Vectorizable() && config.From(ctx).VectorModes() != 0
	case backend.GemmBLAS:
		return cpu.HasBLAS(e)
	case backend.GemmAccel:
		return backend.Available(ctx, e)
	case backend.GemmStrassen:
		return g.m == g.k && g.k == g.n && cpu.IsPow2(g.n)
	default:
		return false
	}
}

func (g *Gemm[T]) defaultImpl(ctx context.Context) backend.GemmImpl {
	for _, impl := range []backend.GemmImpl{backend.GemmAccel, backend.GemmBLAS, backend.GemmVec} {
		if g.usable(ctx, impl) {
			return impl
		}
	}
	return backend.GemmStd
}

func (g *Gemm[T]) evaluate(ctx context.Context, dst expr.Result[T]) {
	impl := g.Impl(ctx)
	counters.Inc("gemm:" + impl.String())

	switch impl {
	case backend.GemmStd:
		g.std(ctx, dst)
	case backend.GemmAccel:
		g.accel(ctx, backend.DeviceFrom(ctx), dst)
	default:
		g.host(ctx, impl, dst)
	}
}

// std multiplies through flat reads; no operand is materialized.
func (g *Gemm[T]) std(ctx context.Context, dst expr.Result[T]) {
	cfg := config.From(ctx)
	g.a.Visit(ctx)
	g.b.Visit(ctx)
	expr.EnsureHost(g.a)
	expr.EnsureHost(g.b)
	expr.EnsureHost(dst)

	a, aok := g.a.(*tensor.Dense[T])
	b, bok := g.b.(*tensor.Dense[T])
	c, cok := dst.(*tensor.Dense[T])
	if aok && bok && cok && a.Order() == traits.RowMajor && b.Order() == traits.RowMajor && c.Order() == traits.RowMajor {
		cpu.GemmStd(a.Memory(), b.Memory(), c.Memory(), g.m, g.k, g.n, workers(cfg, g.m*g.k*g.n))
		c.ValidateHost()
		return
	}

	pc := workers(cfg, g.m*g.k*g.n)
	if !g.a.Traits().ThreadSafe || !g.b.Traits().ThreadSafe {
		pc.Enabled = false
	}
	ai := indexer(g.a.Traits().Order, g.m, g.k)
	bi := indexer(g.b.Traits().Order, g.k, g.n)
	ci := indexer(dst.Traits().Order, g.m, g.n)
	parallel.For(g.m, func(i int) {
		for j := 0; j < g.n; j++ {
			var sum T
			for l := 0; l < g.k; l++ {
				sum += g.a.ReadFlat(ai(i, l)) * g.b.ReadFlat(bi(l, j))
			}
			dst.Set(ci(i, j), sum)
		}
	}, pc)
	expr.ValidateHost(dst)
}

func (g *Gemm[T]) host(ctx context.Context, impl backend.GemmImpl, dst expr.Result[T]) {
	cfg := config.From(ctx)
	a, _ := rowMajor(ctx, g.a)
	b, _ := rowMajor(ctx, g.b)
	a.EnsureHost()
	b.EnsureHost()

	c, publish := hostOutput(ctx, dst, g.dims)
	pc := workers(cfg, g.m*g.k*g.n)
	switch impl {
	case backend.GemmVec:
		cpu.GemmVec(a.Memory(), b.Memory(), c, g.m, g.k, g.n, vectorWidth[T](cfg), pc)
	case backend.GemmBLAS:
		if !cpu.GemmBLAS(a.Memory(), b.Memory(), c, g.m, g.k, g.n) {
			panic(fmt.Sprintf("gemm: no BLAS routine for %s", traits.ElemOf[T]()))
		}
	case backend.GemmStrassen:
		cpu.Strassen(a.Memory(), b.Memory(), c, g.n, pc)
	default:
		panic(fmt.Sprintf("gemm: no host kernel for %s", impl))
	}
	publish()
}

func (g *Gemm[T]) accel(ctx context.Context, dev backend.Device, dst expr.Result[T]) {
	a, aOwned := onDevice(ctx, g.a)
	b, bOwned := onDevice(ctx, g.b)
	if aOwned {
		defer a.ReleaseDevice()
	}
	if bOwned {
		defer b.ReleaseDevice()
	}
	a.EnsureDevice(dev)
	b.EnsureDevice(dev)

	out, direct := dst.(*tensor.Dense[T])
	c := out
	if !direct || c.Order() != traits.RowMajor || !c.Traits().Accel {
		c = tensor.New[T](g.dims)
	}
	c.EnsureDeviceAllocated(dev)
	expr.Check(dev.Gemm(a.DeviceBuffer(), b.DeviceBuffer(), c.DeviceBuffer(), g.m, g.k, g.n), "gemm")
	c.ValidateDevice()

	if c != out {
		eval.Assign[T](ctx, dst, c)
		c.ReleaseDevice()
	}
}

// onDevice returns e as a row-major container that can hold a device
// buffer, evaluating it into a new one, reported as owned, when needed.
func onDevice[T tensor.Number](ctx context.Context, e expr.Expr[T]) (*tensor.Dense[T], bool) {
	if d, ok := rowMajor(ctx, e); ok || d.Traits().Accel {
		return d, ok
	}
	d := tensor.New[T](e.Dims())
	eval.Assign[T](ctx, d, e)
	return d, true
}

// indexer maps a (row, col) pair of a rows x cols matrix to its flat index.
func indexer(order traits.Order, rows, cols int) func(i, j int) int {
	if order == traits.ColumnMajor {
		return func(i, j int) int { return i + j*rows }
	}
	return func(i, j int) int { return i*cols + j }
}
