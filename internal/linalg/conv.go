package linalg

import (
	"context"
	"fmt"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/backend/cpu"
	"github.com/born-ml/etl/internal/config"
	"github.com/born-ml/etl/internal/counters"
	"github.com/born-ml/etl/internal/expr"
	"github.com/born-ml/etl/internal/tensor"
	"github.com/born-ml/etl/internal/traits"
)

// Conv2D is a valid 2-D convolution of a single-channel input.
type Conv2D[T tensor.Number] struct {
	node[T]
	in, kernel expr.Expr[T]
	p          cpu.ConvParams
}

// Conv2DValid convolves in with kernel, reversing the kernel as a
// mathematical convolution does. s1 and s2 are the strides, p1 and p2 the
// zero padding of each dimension.
func Conv2DValid[T tensor.Number](in, kernel expr.Expr[T], s1, s2, p1, p2 int) *Conv2D[T] {
	return newConv2D(in, kernel, s1, s2, p1, p2, false)
}

// Conv2DValidFlipped convolves in with a kernel that is already reversed,
// which is a cross-correlation with kernel.
func Conv2DValidFlipped[T tensor.Number](in, kernel expr.Expr[T], s1, s2, p1, p2 int) *Conv2D[T] {
	return newConv2D(in, kernel, s1, s2, p1, p2, true)
}

func newConv2D[T tensor.Number](in, kernel expr.Expr[T], s1, s2, p1, p2 int, flipped bool) *Conv2D[T] {
	check2D("conv2d", "input", in)
	check2D("conv2d", "kernel", kernel)
	id, kd := in.Dims(), kernel.Dims()
	c := &Conv2D[T]{
		in:     in,
		kernel: kernel,
		p: cpu.ConvParams{
			InH: id[0], InW: id[1],
			KH: kd[0], KW: kd[1],
			S1: s1, S2: s2,
			P1: p1, P2: p2,
			Flipped: flipped,
		},
	}
	c.p.Validate()
	oh, ow := c.p.OutDims()
	c.node = node[T]{
		name:     "conv2d",
		dims:     tensor.Shape{oh, ow},
		order:    in.Traits().Order,
		operands: []expr.Expr[T]{in, kernel},
	}
	c.assign = c.evaluate
	return c
}

// Params returns the convolution geometry.
func (c *Conv2D[T]) Params() cpu.ConvParams { return c.p }

// Impl returns the implementation an evaluation under ctx uses.
func (c *Conv2D[T]) Impl(ctx context.Context) backend.ConvImpl {
	if impl, ok := backend.ForcedConv(ctx); ok {
		if c.usable(ctx, impl) {
			return impl
		}
		def := c.defaultImpl(ctx)
		config.Logger(ctx).Warn("forced conv implementation unavailable, using default",
			"forced", impl.String(), "impl", def.String(), "elem", traits.ElemOf[T]().String())
		return def
	}
	return c.defaultImpl(ctx)
}

func (c *Conv2D[T]) usable(ctx context.Context, impl backend.ConvImpl) bool {
	switch impl {
	case backend.ConvStd:
		return true
	case backend.ConvVec:
		return traits.ElemOf[T]().Vectorizable() && config.From(ctx).VectorModes() != 0
	default:
		return false
	}
}

func (c *Conv2D[T]) defaultImpl(ctx context.Context) backend.ConvImpl {
	if c.usable(ctx, backend.ConvVec) {
		return backend.ConvVec
	}
	return backend.ConvStd
}

func (c *Conv2D[T]) evaluate(ctx context.Context, dst expr.Result[T]) {
	impl := c.Impl(ctx)
	counters.Inc("conv:" + impl.String())

	cfg := config.From(ctx)
	in, _ := rowMajor(ctx, c.in)
	kernel, _ := rowMajor(ctx, c.kernel)
	in.EnsureHost()
	kernel.EnsureHost()

	out, publish := hostOutput(ctx, dst, c.dims)
	switch impl {
	case backend.ConvStd:
		cpu.ConvStd(in.Memory(), kernel.Memory(), out, c.p, workers(cfg, c.Size()*c.p.KH*c.p.KW))
	case backend.ConvVec:
		w := vectorWidth[T](cfg)
		pc := workers(cfg, c.Size()*c.p.KH*c.p.KW)
		cpu.ConvIm2col(in.Memory(), kernel.Memory(), out, c.p, func(a, b, r []T, m, k, n int) {
			cpu.GemmVec(a, b, r, m, k, n, w, pc)
		})
	default:
		panic(fmt.Sprintf("conv2d: no kernel for %s", impl))
	}
	publish()
}
