package tensor

import (
	"fmt"

	"github.com/x448/float16"
)

// Half is a dense container of IEEE 754 half-precision values.
// It is a converting-copy destination and is never evaluated directly.
type Half struct {
	mem  []float16.Float16
	dims Shape
}

// NewHalf creates a zero-filled half-precision container.
func NewHalf(shape Shape) *Half {
	if err := shape.Validate(); err != nil {
		panic(err)
	}
	return &Half{mem: make([]float16.Float16, shape.NumElements()), dims: shape.Clone()}
}

// Size returns the number of elements.
func (h *Half) Size() int { return len(h.mem) }

// Dims returns the shape.
func (h *Half) Dims() Shape { return h.dims }

// At returns element i widened to float32.
func (h *Half) At(i int) float32 { return h.mem[i].Float32() }

// Set stores v rounded to half precision.
func (h *Half) Set(i int, v float32) { h.mem[i] = float16.Fromfloat32(v) }

// Bits returns the raw binary16 encoding of element i.
func (h *Half) Bits(i int) uint16 { return h.mem[i].Bits() }

// SetBits stores a raw binary16 encoding.
func (h *Half) SetBits(i int, b uint16) { h.mem[i] = float16.Frombits(b) }

// Float32s returns all elements widened to float32.
func (h *Half) Float32s() []float32 {
	out := make([]float32, len(h.mem))
	for i, v := range h.mem {
		out[i] = v.Float32()
	}
	return out
}

// String returns a short description.
func (h *Half) String() string {
	return fmt.Sprintf("Half(%v)", []int(h.dims))
}
