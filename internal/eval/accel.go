package eval

import (
	"context"
	"fmt"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/counters"
	"github.com/born-ml/etl/internal/expr"
	"github.com/born-ml/etl/internal/simd"
	"github.com/born-ml/etl/internal/traits"
)

// accelerate evaluates dst op= src on the device attached to ctx.
// The device copy of dst is authoritative afterwards.
func accelerate[T traits.Number](ctx context.Context, op simd.Op, dst expr.Result[T], src expr.Expr[T]) {
	dev := backend.DeviceFrom(ctx)
	dc, ok := dst.(expr.Coherent)
	if !ok {
		panic(fmt.Sprintf("%s: %T has accelerator traits but no device memory", op, dst))
	}
	counters.Inc("gpu:" + op.String())

	if op == simd.Copy {
		buf, owned := expr.DeviceCompute(dev, src)
		dc.EnsureDeviceAllocated(dev)
		expr.Check(dev.Copy(dc.DeviceBuffer(), buf), "copy")
		if owned {
			buf.Release()
		}
		dc.ValidateDevice()
		return
	}

	if s, ok := src.(expr.ScalarValuer[T]); ok && src.Traits().Scalar {
		dc.EnsureDevice(dev)
		expr.ApplyScalar(dev, op, dc.DeviceBuffer(), expr.Float64(s.Value()))
		dc.ValidateDevice()
		return
	}

	buf, owned := expr.DeviceCompute(dev, src)
	if owned {
		defer buf.Release()
	}
	dc.EnsureDevice(dev)
	y := dc.DeviceBuffer()
	switch op {
	case simd.Add:
		expr.Check(dev.Axpy(1, buf, y), "axpy")
	case simd.Sub:
		expr.Check(dev.Axpy(-1, buf, y), "axpy")
	case simd.Mul:
		expr.Check(dev.Axmy(1, buf, y), "axmy")
	case simd.Div:
		expr.Check(dev.Axdy(1, buf, y), "axdy")
	default:
		panic(fmt.Sprintf("%s: no device kernel", op))
	}
	dc.ValidateDevice()
}
