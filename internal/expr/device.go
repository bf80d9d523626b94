package expr

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/traits"
)

// DeviceCompute returns a device buffer holding the values of e.
// Nodes compute themselves; containers upload their host copy if needed.
func DeviceCompute[T traits.Number](dev backend.Device, e Expr[T]) (backend.Buffer, bool) {
	switch n := e.(type) {
	case DeviceComputer:
		return n.DeviceCompute(dev)
	case Coherent:
		n.EnsureDevice(dev)
		return n.DeviceBuffer(), false
	default:
		panic(fmt.Sprintf("accelerator: %T cannot be computed on a device", e))
	}
}

// deviceOwned returns a buffer holding e that the caller may overwrite.
func deviceOwned[T traits.Number](dev backend.Device, e Expr[T]) backend.Buffer {
	buf, owned := DeviceCompute(dev, e)
	if owned {
		return buf
	}
	out, err := dev.Alloc(traits.ElemOf[T](), e.Size())
	if err != nil {
		panic(errors.Wrap(err, "accelerator: alloc"))
	}
	Check(dev.Copy(out, buf), "copy")
	return out
}

// Check panics if a device call failed.
func Check(err error, op string) {
	if err != nil {
		panic(errors.Wrapf(err, "accelerator: %s", op))
	}
}

// Float64 converts a real floating-point element for a device call.
func Float64[T traits.Number](v T) float64 {
	switch x := any(v).(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	default:
		panic(fmt.Sprintf("accelerator: unsupported element type %s", traits.ElemOf[T]()))
	}
}
