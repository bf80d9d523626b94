package eval

import (
	"context"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/config"
	"github.com/born-ml/etl/internal/simd"
	"github.com/born-ml/etl/internal/traits"
)

// Strategy is the execution path of one evaluation.
type Strategy uint8

// Strategies.
const (
	Standard Strategy = iota
	Direct
	FastCopy
	Vectorized
	Accelerator
)

var strategyNames = [...]string{"standard", "direct", "fast_copy", "vectorized", "accelerator"}

// String returns the strategy name.
func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return "unknown"
}

// Caps describes what the running environment offers an evaluation.
type Caps struct {
	Vector traits.ModeSet // Enabled vector tiers.
	Accel  bool           // An accelerator supports the element type.
	Elem   traits.Elem
}

// CapsFor returns the capabilities of ctx for element type e under cfg.
func CapsFor(ctx context.Context, cfg config.Config, e traits.Elem) Caps {
	return Caps{
		Vector: cfg.VectorModes(),
		Accel:  backend.Available(ctx, e),
		Elem:   e,
	}
}

// VectorMode returns the tier used to evaluate src into dst, or NoVector.
func VectorMode(src, dst traits.Traits, caps Caps) traits.VectorMode {
	if !caps.Elem.Vectorizable() {
		return traits.NoVector
	}
	if !src.OrderFree && src.Order != dst.Order {
		return traits.NoVector
	}
	return src.Vector.And(dst.Vector).And(caps.Vector).Widest()
}

// Select chooses the strategy of dst op= src. It depends only on the
// static descriptors, never on element values.
func Select(op simd.Op, src, dst traits.Traits, caps Caps) Strategy {
	switch op {
	case simd.Copy:
		switch {
		case src.Direct && dst.Direct:
			return FastCopy
		case caps.Accel && src.Accel && dst.Accel:
			return Accelerator
		case VectorMode(src, dst, caps) != traits.NoVector:
			return Vectorized
		case dst.Direct:
			return Direct
		}
		return Standard

	case simd.Add, simd.Sub, simd.Mul, simd.Div:
		switch {
		case caps.Accel && dst.Accel && (src.Accel || src.Scalar):
			return Accelerator
		case VectorMode(src, dst, caps) != traits.NoVector && (op != simd.Div || caps.Elem.IsFloating()):
			return Vectorized
		case dst.Direct:
			return Direct
		}
		return Standard

	default:
		return Standard
	}
}
