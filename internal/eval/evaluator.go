// Package eval evaluates expressions into destinations.
//
// Each verb picks a strategy from the static traits of its operands, syncs
// host and device memory, runs the corresponding functor over the whole
// range or over parallel slices, and records which memory is now valid.
package eval

import (
	"context"
	"fmt"

	"github.com/born-ml/etl/internal/config"
	"github.com/born-ml/etl/internal/counters"
	"github.com/born-ml/etl/internal/expr"
	"github.com/born-ml/etl/internal/functor"
	"github.com/born-ml/etl/internal/parallel"
	"github.com/born-ml/etl/internal/simd"
	"github.com/born-ml/etl/internal/tensor"
	"github.com/born-ml/etl/internal/traits"
)

// Assign evaluates dst = src.
func Assign[T traits.Number](ctx context.Context, dst expr.Result[T], src expr.Expr[T]) {
	run(ctx, simd.Copy, dst, src)
}

// Add evaluates dst += src.
func Add[T traits.Number](ctx context.Context, dst expr.Result[T], src expr.Expr[T]) {
	run(ctx, simd.Add, dst, src)
}

// Sub evaluates dst -= src.
func Sub[T traits.Number](ctx context.Context, dst expr.Result[T], src expr.Expr[T]) {
	run(ctx, simd.Sub, dst, src)
}

// Mul evaluates dst *= src element-wise.
func Mul[T traits.Number](ctx context.Context, dst expr.Result[T], src expr.Expr[T]) {
	run(ctx, simd.Mul, dst, src)
}

// Div evaluates dst /= src element-wise.
func Div[T traits.Number](ctx context.Context, dst expr.Result[T], src expr.Expr[T]) {
	run(ctx, simd.Div, dst, src)
}

// Mod evaluates dst %= src element-wise.
func Mod[T traits.Number](ctx context.Context, dst expr.Result[T], src expr.Expr[T]) {
	run(ctx, simd.Mod, dst, src)
}

func run[T traits.Number](ctx context.Context, op simd.Op, dst expr.Result[T], src expr.Expr[T]) {
	tmp, ok := src.(expr.Temporary[T])
	if !ok {
		Apply(ctx, op, dst, src)
		return
	}
	switch op {
	case simd.Copy:
		tmp.AssignTo(ctx, dst)
	case simd.Add:
		tmp.AddTo(ctx, dst)
	case simd.Sub:
		tmp.SubTo(ctx, dst)
	case simd.Mul:
		tmp.MulTo(ctx, dst)
	case simd.Div:
		tmp.DivTo(ctx, dst)
	case simd.Mod:
		tmp.ModTo(ctx, dst)
	}
}

// Apply evaluates dst op= src without delegating to temporaries.
// Temporaries use it to evaluate their materialized result.
func Apply[T traits.Number](ctx context.Context, op simd.Op, dst expr.Result[T], src expr.Expr[T]) {
	st, dt := src.Traits(), dst.Traits()
	if !st.Generator && src.Size() != dst.Size() {
		panic(fmt.Sprintf("%s: size mismatch: destination has %d elements, source has %d", op, dst.Size(), src.Size()))
	}
	if !traits.OrderCompatible(st, dt) {
		Apply[T](ctx, op, dst, expr.Relayout(src, dt.Order))
		return
	}

	cfg := config.From(ctx)
	caps := CapsFor(ctx, cfg, traits.ElemOf[T]())
	s := Select(op, st, dt, caps)

	src.Visit(ctx)
	counters.Inc("eval:" + s.String())

	switch s {
	case Accelerator:
		accelerate(ctx, op, dst, src)
		return
	case FastCopy:
		fastCopy(dst, src)
		return
	}

	expr.EnsureHost(src)
	expr.EnsureHost(dst)

	size := dst.Size()
	body := hostBody(s, op, dst, src, cfg, caps, size)
	if st.ThreadSafe && cfg.SelectParallel(size) {
		parallel.Run(size, cfg.Threads, body)
	} else if size > 0 {
		body(0, size)
	}

	expr.ValidateHost(dst)
}

// hostBody returns the functor call of strategy s over [first, last).
func hostBody[T traits.Number](s Strategy, op simd.Op, dst expr.Result[T], src expr.Expr[T], cfg config.Config, caps Caps, size int) func(first, last int) {
	switch s {
	case Vectorized:
		mem := mustDirect[T](op, dst).Padded()
		storer := mustStorer[T](op, dst)
		source, ok := src.(functor.Source[T])
		if !ok {
			panic(fmt.Sprintf("%s: %T has vector traits but no lane reader", op, src))
		}
		st, dt := src.Traits(), dst.Traits()
		p := functor.Params{
			Width:     VectorMode(st, dt, caps).Lanes(caps.Elem),
			Streaming: cfg.Streaming,
			Alias:     src.Alias(dst.Region()),
			CacheSize: cfg.CacheSize,
		}
		padded := cfg.Padding && st.Padded && dt.Padded
		return func(first, last int) {
			pp := p
			pp.Padded = padded && last == size
			if functor.Vectorized[T](op, storer, mem, source, first, last, pp) {
				counters.Inc("eval:stream")
			}
		}

	case Direct:
		mem := mustDirect[T](op, dst).Memory()
		return func(first, last int) {
			functor.Scalar[T](op, mem, src, first, last, cfg.Unroll)
		}

	default:
		return func(first, last int) {
			functor.Standard[T](op, dst, src, first, last)
		}
	}
}

func fastCopy[T traits.Number](dst expr.Result[T], src expr.Expr[T]) {
	sc, sok := src.(expr.Coherent)
	dc, dok := dst.(expr.Coherent)
	if sok && dok && sc.Coherency() == tensor.DeviceValid && src.Traits().Accel && dst.Traits().Accel {
		dev := sc.Device()
		dc.EnsureDeviceAllocated(dev)
		expr.Check(dev.Copy(dc.DeviceBuffer(), sc.DeviceBuffer()), "copy")
		dc.ValidateDevice()
		return
	}

	expr.EnsureHost(src)
	expr.EnsureHost(dst)
	copy(mustDirect[T](simd.Copy, dst).Memory(), mustDirect[T](simd.Copy, src).Memory())
	expr.ValidateHost(dst)
}

func mustDirect[T traits.Number](op simd.Op, e any) expr.Direct[T] {
	d, ok := e.(expr.Direct[T])
	if !ok {
		panic(fmt.Sprintf("%s: %T has direct traits but no memory", op, e))
	}
	return d
}

func mustStorer[T traits.Number](op simd.Op, e any) expr.Storer[T] {
	s, ok := e.(expr.Storer[T])
	if !ok {
		panic(fmt.Sprintf("%s: %T has vector traits but no lane writer", op, e))
	}
	return s
}

// Force runs the visit pass of e, materializing every nested temporary.
func Force[T traits.Number](ctx context.Context, e expr.Expr[T]) {
	e.Visit(ctx)
}

// Materialize evaluates e into a new container with the same shape and order.
func Materialize[T traits.Number](ctx context.Context, e expr.Expr[T]) *tensor.Dense[T] {
	d := tensor.New[T](e.Dims(), tensor.WithOrder(e.Traits().Order))
	Assign[T](ctx, d, e)
	return d
}
