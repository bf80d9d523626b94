// Package functor implements the element-wise loops run by the evaluator.
//
// Every functor updates dst[i] = op(dst[i], src[i]) over a half-open range
// [first, last). Functors keep no state; the evaluator may run several of
// them concurrently over disjoint ranges of the same destination.
package functor

import (
	"github.com/born-ml/etl/internal/simd"
	"github.com/born-ml/etl/internal/traits"
)

// Reader reads source elements by flat index.
type Reader[T traits.Number] interface {
	ReadFlat(i int) T
}

// Writer is a non-direct destination.
type Writer[T traits.Number] interface {
	ReadFlat(i int) T
	Set(i int, v T)
}

// Source is a source with a lane reader.
type Source[T traits.Number] interface {
	Reader[T]
	Load(i, w int) simd.Vec[T]
}

// Storer writes whole vectors into a direct destination.
type Storer[T traits.Number] interface {
	Store(v simd.Vec[T], i, w int)
	Stream(v simd.Vec[T], i, w int)
}

// Standard is the generic loop over a destination without direct memory.
func Standard[T traits.Number](op simd.Op, dst Writer[T], src Reader[T], first, last int) {
	if op == simd.Copy {
		for i := first; i < last; i++ {
			dst.Set(i, src.ReadFlat(i))
		}
		return
	}
	for i := first; i < last; i++ {
		dst.Set(i, simd.Apply(op, dst.ReadFlat(i), src.ReadFlat(i)))
	}
}

// Scalar is the loop over direct destination memory.
// With unroll set, the range is processed four elements at a time up to
// the last multiple of four, then element by element.
func Scalar[T traits.Number](op simd.Op, dst []T, src Reader[T], first, last int, unroll bool) {
	f := simd.Combiner[T](op)
	i := first
	if unroll && last > first {
		end := first + ((last - first) &^ 3)
		for ; i < end; i += 4 {
			dst[i] = f(dst[i], src.ReadFlat(i))
			dst[i+1] = f(dst[i+1], src.ReadFlat(i+1))
			dst[i+2] = f(dst[i+2], src.ReadFlat(i+2))
			dst[i+3] = f(dst[i+3], src.ReadFlat(i+3))
		}
	}
	for ; i < last; i++ {
		dst[i] = f(dst[i], src.ReadFlat(i))
	}
}
