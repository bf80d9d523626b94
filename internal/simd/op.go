package simd

import (
	"fmt"
	"math"

	"github.com/born-ml/etl/internal/traits"
)

// Op is an element update operator.
type Op uint8

// Update operators: dst = src, dst += src, and so on.
const (
	Copy Op = iota
	Add
	Sub
	Mul
	Div
	Mod
)

var opNames = [...]string{"assign", "add", "sub", "mul", "div", "mod"}

// String returns the verb name of the operator.
func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// Combiner returns the scalar form of op: it maps (dst, src) to the updated dst.
func Combiner[T traits.Number](op Op) func(a, b T) T {
	switch op {
	case Copy:
		return func(_, b T) T { return b }
	case Add:
		return func(a, b T) T { return a + b }
	case Sub:
		return func(a, b T) T { return a - b }
	case Mul:
		return func(a, b T) T { return a * b }
	case Div:
		return func(a, b T) T { return a / b }
	case Mod:
		return Rem[T]
	default:
		panic(fmt.Sprintf("simd: unknown operator %d", op))
	}
}

// Apply returns op(a, b).
func Apply[T traits.Number](op Op, a, b T) T {
	switch op {
	case Copy:
		return b
	case Add:
		return a + b
	case Sub:
		return a - b
	case Mul:
		return a * b
	case Div:
		return a / b
	case Mod:
		return Rem(a, b)
	default:
		panic(fmt.Sprintf("simd: unknown operator %d", op))
	}
}

// Rem returns the remainder of a/b. Floating-point remainders follow math.Mod.
// Complex elements have no remainder.
func Rem[T traits.Number](a, b T) T {
	var r any
	switch x := any(a).(type) {
	case int8:
		r = x % any(b).(int8)
	case int16:
		r = x % any(b).(int16)
	case int32:
		r = x % any(b).(int32)
	case int64:
		r = x % any(b).(int64)
	case int:
		r = x % any(b).(int)
	case uint8:
		r = x % any(b).(uint8)
	case uint16:
		r = x % any(b).(uint16)
	case uint32:
		r = x % any(b).(uint32)
	case uint64:
		r = x % any(b).(uint64)
	case float32:
		r = float32(math.Mod(float64(x), float64(any(b).(float32))))
	case float64:
		r = math.Mod(x, any(b).(float64))
	default:
		panic("mod: remainder is not defined for complex elements")
	}
	return r.(T)
}
