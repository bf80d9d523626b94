// Package simd implements element and lane arithmetic for the execution functors.
//
// A Vec holds up to MaxLanes elements; the active lane count W is chosen by
// the caller from the selected vector tier. Lane kernels are plain Go loops
// over W elements, laid out so that the compiler keeps them in registers.
package simd

import (
	"github.com/born-ml/etl/internal/traits"
)

// MaxLanes is the lane count of the widest tier over the narrowest vectorizable element.
const MaxLanes = traits.MaxVectorBytes / 4

// Vec is a vector register holding up to MaxLanes elements.
type Vec[T traits.Number] [MaxLanes]T

// Width returns the lane count of T under the given tier.
func Width[T traits.Number](m traits.VectorMode) int {
	return m.Lanes(traits.ElemOf[T]())
}

// Load reads w lanes from s starting at i.
func Load[T traits.Number](s []T, i, w int) Vec[T] {
	var v Vec[T]
	copy(v[:w], s[i:i+w])
	return v
}

// Store writes w lanes of v into s starting at i.
func Store[T traits.Number](s []T, i, w int, v *Vec[T]) {
	copy(s[i:i+w], v[:w])
}

// Broadcast returns a vector with every lane set to x.
func Broadcast[T traits.Number](x T, w int) Vec[T] {
	var v Vec[T]
	for l := 0; l < w; l++ {
		v[l] = x
	}
	return v
}

// RoundUp rounds n up to the next multiple of w.
func RoundUp(n, w int) int {
	if w <= 1 {
		return n
	}
	return (n + w - 1) / w * w
}
