package simd

import (
	"fmt"

	"github.com/born-ml/etl/internal/traits"
)

// LaneFunc updates the first w lanes of a with op(a, b).
type LaneFunc[T traits.Number] func(a, b *Vec[T], w int)

// Lanes returns the lane kernel of op. Each lane computes exactly what
// Apply computes for the same pair of elements, complex types included.
func Lanes[T traits.Number](op Op) LaneFunc[T] {
	switch op {
	case Copy:
		return copyLanes[T]
	case Add:
		return addLanes[T]
	case Sub:
		return subLanes[T]
	case Mul:
		return mulLanes[T]
	case Div:
		return divLanes[T]
	default:
		panic(fmt.Sprintf("simd: no lane kernel for %s", op))
	}
}

func copyLanes[T traits.Number](a, b *Vec[T], w int) {
	copy(a[:w], b[:w])
}

func addLanes[T traits.Number](a, b *Vec[T], w int) {
	for l := 0; l < w; l++ {
		a[l] += b[l]
	}
}

func subLanes[T traits.Number](a, b *Vec[T], w int) {
	for l := 0; l < w; l++ {
		a[l] -= b[l]
	}
}

func mulLanes[T traits.Number](a, b *Vec[T], w int) {
	for l := 0; l < w; l++ {
		a[l] *= b[l]
	}
}

func divLanes[T traits.Number](a, b *Vec[T], w int) {
	for l := 0; l < w; l++ {
		a[l] /= b[l]
	}
}
