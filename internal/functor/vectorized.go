package functor

import (
	"github.com/born-ml/etl/internal/simd"
	"github.com/born-ml/etl/internal/traits"
)

// Params configures a vectorized run.
type Params struct {
	Width     int  // Lanes per vector.
	Padded    bool // The range may be rounded up into the containers' pad.
	Streaming bool // Streaming stores are allowed.
	Alias     bool // Source and destination memory overlap.
	CacheSize int  // Cache budget in bytes.
}

// Vectorized runs the lane loop of op over [first, last).
//
// mem is the destination memory with its pad. When p.Padded is set and the
// pad is large enough, the range is rounded up to a multiple of the vector
// width and no scalar tail remains. Vectorized reports whether the
// streaming-store loop was used.
func Vectorized[T traits.Number](op simd.Op, dst Storer[T], mem []T, src Source[T], first, last int, p Params) bool {
	size := last - first
	if size <= 0 {
		return false
	}
	w := p.Width
	if w < 1 {
		panic("vectorized: width must be positive")
	}

	lastV := first + size - size%w
	if p.Padded && first+simd.RoundUp(size, w) <= len(mem) {
		lastV = first + simd.RoundUp(size, w)
	}

	if op == simd.Copy {
		return assign(dst, mem, src, first, last, lastV, size, p)
	}
	compound(op, dst, mem, src, first, last, lastV, w)
	return false
}

func assign[T traits.Number](dst Storer[T], mem []T, src Source[T], first, last, lastV, size int, p Params) bool {
	w := p.Width
	elemSize := traits.ElemOf[T]().Size
	stream := p.Streaming && !p.Alias && size > p.CacheSize/(3*elemSize)

	i := first
	if stream {
		for ; i < lastV; i += w {
			dst.Stream(src.Load(i, w), i, w)
		}
	} else {
		for ; i+3*w < lastV; i += 4 * w {
			dst.Store(src.Load(i, w), i, w)
			dst.Store(src.Load(i+w, w), i+w, w)
			dst.Store(src.Load(i+2*w, w), i+2*w, w)
			dst.Store(src.Load(i+3*w, w), i+3*w, w)
		}
		for ; i < lastV; i += w {
			dst.Store(src.Load(i, w), i, w)
		}
	}

	for ; i < last; i++ {
		mem[i] = src.ReadFlat(i)
	}
	return stream
}

func compound[T traits.Number](op simd.Op, dst Storer[T], mem []T, src Source[T], first, last, lastV, w int) {
	lanes := simd.Lanes[T](op)
	step := func(i int) {
		a := simd.Load(mem, i, w)
		b := src.Load(i, w)
		lanes(&a, &b, w)
		dst.Store(a, i, w)
	}

	i := first
	for ; i+4*w-1 < lastV; i += 4 * w {
		step(i)
		step(i + w)
		step(i + 2*w)
		step(i + 3*w)
	}
	for ; i+w-1 < lastV; i += w {
		step(i)
	}

	for ; i < last; i++ {
		mem[i] = simd.Apply(op, mem[i], src.ReadFlat(i))
	}
}
