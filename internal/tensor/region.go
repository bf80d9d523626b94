package tensor

import "unsafe"

// Region is the half-open address range [Lo, Hi) of an operand's backing memory.
// The zero Region is empty and overlaps nothing.
type Region struct {
	Lo, Hi uintptr
}

// RegionOf returns the address range covered by s.
func RegionOf[T any](s []T) Region {
	if len(s) == 0 {
		return Region{}
	}
	var zero T
	lo := uintptr(unsafe.Pointer(unsafe.SliceData(s)))
	return Region{Lo: lo, Hi: lo + uintptr(len(s))*unsafe.Sizeof(zero)}
}

// Empty reports whether r covers no memory.
func (r Region) Empty() bool {
	return r.Hi <= r.Lo
}

// Overlaps reports whether r and o share at least one byte.
func (r Region) Overlaps(o Region) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.Lo < o.Hi && o.Lo < r.Hi
}
