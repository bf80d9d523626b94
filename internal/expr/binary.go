package expr

import (
	"context"
	"fmt"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/simd"
	"github.com/born-ml/etl/internal/tensor"
	"github.com/born-ml/etl/internal/traits"
)

// Binary is the element-wise combination lhs op rhs.
type Binary[T traits.Number] struct {
	op       simd.Op
	lhs, rhs Expr[T]
	size     int
	dims     tensor.Shape
	traits   traits.Traits
	lanes    simd.LaneFunc[T]
	lload    Loader[T]
	rload    Loader[T]
}

// Add returns lhs + rhs.
func Add[T traits.Number](lhs, rhs Expr[T]) *Binary[T] { return newBinary(simd.Add, lhs, rhs) }

// Sub returns lhs - rhs.
func Sub[T traits.Number](lhs, rhs Expr[T]) *Binary[T] { return newBinary(simd.Sub, lhs, rhs) }

// Mul returns the element-wise product lhs * rhs.
func Mul[T traits.Number](lhs, rhs Expr[T]) *Binary[T] { return newBinary(simd.Mul, lhs, rhs) }

// Div returns the element-wise quotient lhs / rhs.
func Div[T traits.Number](lhs, rhs Expr[T]) *Binary[T] { return newBinary(simd.Div, lhs, rhs) }

// Mod returns the element-wise remainder lhs % rhs.
func Mod[T traits.Number](lhs, rhs Expr[T]) *Binary[T] { return newBinary(simd.Mod, lhs, rhs) }

func newBinary[T traits.Number](op simd.Op, lhs, rhs Expr[T]) *Binary[T] {
	lt, rt := lhs.Traits(), rhs.Traits()
	if !lt.Generator && !rt.Generator && lhs.Size() != rhs.Size() {
		panic(fmt.Sprintf("%s: size mismatch: %d vs %d", op, lhs.Size(), rhs.Size()))
	}

	size, dims, base := dimsOf(lhs, rhs)
	lhs, rhs = inOrder(op, lhs, base, dims), inOrder(op, rhs, base, dims)
	lt, rt = lhs.Traits(), rhs.Traits()
	elem := traits.ElemOf[T]()

	t := traits.Traits{
		Vector:     lt.Vector.And(rt.Vector),
		Order:      base.Order,
		OrderFree:  lt.OrderFree && rt.OrderFree,
		ThreadSafe: lt.ThreadSafe && rt.ThreadSafe,
		Padded:     lt.Padded && rt.Padded,
		Generator:  lt.Generator && rt.Generator,
		Dims:       base.Dims,
	}
	if op == simd.Mod || (op == simd.Div && !elem.IsFloating()) {
		t.Vector = 0
	}
	if op != simd.Mod && !(lt.Scalar && rt.Scalar) {
		t.Accel = (lt.Accel || lt.Scalar) && (rt.Accel || rt.Scalar)
	}

	b := &Binary[T]{
		op:     op,
		lhs:    lhs,
		rhs:    rhs,
		size:   size,
		dims:   dims,
		traits: t,
	}
	if t.Vector != 0 {
		b.lanes = simd.Lanes[T](op)
		b.lload = LoaderOf(lhs)
		b.rload = LoaderOf(rhs)
	}
	return b
}

// inOrder returns e read in the storage order of base. An operand whose
// order differs and that cannot be relaid to the node's shape is a contract
// violation.
func inOrder[T traits.Number](op simd.Op, e Expr[T], base traits.Traits, dims tensor.Shape) Expr[T] {
	et := e.Traits()
	if et.Dims <= 1 || traits.OrderCompatible(et, base) {
		return e
	}
	if !e.Dims().Equal(dims) {
		panic(fmt.Sprintf("%s: %s operand of shape %v cannot be read as %s %v",
			op, et.Order, []int(e.Dims()), base.Order, []int(dims)))
	}
	return Relayout(e, base.Order)
}

// Op returns the operator.
func (b *Binary[T]) Op() simd.Op { return b.op }

// Operands returns the left and right operands.
func (b *Binary[T]) Operands() (lhs, rhs Expr[T]) { return b.lhs, b.rhs }

func (b *Binary[T]) Traits() traits.Traits { return b.traits }

func (b *Binary[T]) Size() int { return b.size }

func (b *Binary[T]) Dims() tensor.Shape { return b.dims }

func (b *Binary[T]) ReadFlat(i int) T {
	return simd.Apply(b.op, b.lhs.ReadFlat(i), b.rhs.ReadFlat(i))
}

func (b *Binary[T]) Load(i, w int) simd.Vec[T] {
	x := b.lload.Load(i, w)
	y := b.rload.Load(i, w)
	b.lanes(&x, &y, w)
	return x
}

func (b *Binary[T]) Alias(r tensor.Region) bool {
	return b.lhs.Alias(r) || b.rhs.Alias(r)
}

func (b *Binary[T]) Visit(ctx context.Context) {
	b.lhs.Visit(ctx)
	b.rhs.Visit(ctx)
}

func (b *Binary[T]) EnsureHost() {
	EnsureHost(b.lhs)
	EnsureHost(b.rhs)
}

// DeviceCompute evaluates the node on dev into a new buffer.
func (b *Binary[T]) DeviceCompute(dev backend.Device) (backend.Buffer, bool) {
	if s, ok := b.rhs.(ScalarValuer[T]); ok && b.rhs.Traits().Scalar {
		out := deviceOwned(dev, b.lhs)
		ApplyScalar(dev, b.op, out, Float64(s.Value()))
		return out, true
	}

	if s, ok := b.lhs.(ScalarValuer[T]); ok && b.lhs.Traits().Scalar {
		v := Float64(s.Value())
		switch b.op {
		case simd.Add, simd.Mul:
			out := deviceOwned(dev, b.rhs)
			ApplyScalar(dev, b.op, out, v)
			return out, true
		case simd.Sub:
			out := deviceOwned(dev, b.rhs)
			Check(dev.Scal(-1, out), "scal")
			Check(dev.ScalarAdd(out, v), "scalar_add")
			return out, true
		case simd.Div:
			out, err := dev.Alloc(traits.ElemOf[T](), b.size)
			Check(err, "alloc")
			Check(dev.ScalarAdd(out, v), "scalar_add")
			y, owned := DeviceCompute(dev, b.rhs)
			if owned {
				defer y.Release()
			}
			Check(dev.Axdy(1, y, out), "axdy")
			return out, true
		}
	}

	out := deviceOwned(dev, b.lhs)
	y, owned := DeviceCompute(dev, b.rhs)
	if owned {
		defer y.Release()
	}
	switch b.op {
	case simd.Add:
		Check(dev.Axpy(1, y, out), "axpy")
	case simd.Sub:
		Check(dev.Axpy(-1, y, out), "axpy")
	case simd.Mul:
		Check(dev.Axmy(1, y, out), "axmy")
	case simd.Div:
		Check(dev.Axdy(1, y, out), "axdy")
	default:
		panic(fmt.Sprintf("accelerator: no device kernel for %s", b.op))
	}
	return out, true
}

// ApplyScalar updates buf with buf op v on dev.
func ApplyScalar(dev backend.Device, op simd.Op, buf backend.Buffer, v float64) {
	switch op {
	case simd.Add:
		Check(dev.ScalarAdd(buf, v), "scalar_add")
	case simd.Sub:
		Check(dev.ScalarAdd(buf, -v), "scalar_add")
	case simd.Mul:
		Check(dev.Scal(v, buf), "scal")
	case simd.Div:
		Check(dev.Scal(1/v, buf), "scal")
	default:
		panic(fmt.Sprintf("accelerator: no device kernel for %s", op))
	}
}
