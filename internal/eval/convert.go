package eval

import (
	"context"
	"fmt"

	"github.com/born-ml/etl/internal/config"
	"github.com/born-ml/etl/internal/counters"
	"github.com/born-ml/etl/internal/expr"
	"github.com/born-ml/etl/internal/parallel"
	"github.com/born-ml/etl/internal/tensor"
	"github.com/born-ml/etl/internal/traits"
)

// Convert evaluates dst = src, converting every element from S to D.
func Convert[D, S tensor.Real](ctx context.Context, dst expr.Result[D], src expr.Expr[S]) {
	st, dt := src.Traits(), dst.Traits()
	if !st.Generator && src.Size() != dst.Size() {
		panic(fmt.Sprintf("convert: size mismatch: destination has %d elements, source has %d", dst.Size(), src.Size()))
	}
	if !traits.OrderCompatible(st, dt) {
		Convert[D, S](ctx, dst, expr.Relayout(src, dt.Order))
		return
	}

	src.Visit(ctx)
	expr.EnsureHost(src)
	expr.EnsureHost(dst)
	counters.Inc("eval:convert")

	var body func(first, last int)
	dm, dok := dst.(expr.Direct[D])
	sm, sok := src.(expr.Direct[S])
	switch {
	case dok && sok:
		out, in := dm.Memory(), sm.Memory()
		body = func(first, last int) {
			for i := first; i < last; i++ {
				out[i] = D(in[i])
			}
		}
	default:
		body = func(first, last int) {
			for i := first; i < last; i++ {
				dst.Set(i, D(src.ReadFlat(i)))
			}
		}
	}

	size := dst.Size()
	if cfg := config.From(ctx); st.ThreadSafe && cfg.SelectParallel(size) {
		parallel.Run(size, cfg.Threads, body)
	} else {
		body(0, size)
	}
	expr.ValidateHost(dst)
}

// AssignHalf evaluates dst = src, rounding every element to half precision.
// Elements are written in row-major order.
func AssignHalf[S tensor.Real](ctx context.Context, dst *tensor.Half, src expr.Expr[S]) {
	st := src.Traits()
	if !st.Generator && src.Size() != dst.Size() {
		panic(fmt.Sprintf("convert: size mismatch: destination has %d elements, source has %d", dst.Size(), src.Size()))
	}
	if !st.OrderFree && st.Order != traits.RowMajor && st.Dims > 1 {
		AssignHalf[S](ctx, dst, expr.Relayout(src, traits.RowMajor))
		return
	}

	src.Visit(ctx)
	expr.EnsureHost(src)
	counters.Inc("eval:convert")
	for i := 0; i < dst.Size(); i++ {
		dst.Set(i, float32(src.ReadFlat(i)))
	}
}
