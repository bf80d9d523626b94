package expr

import (
	"context"

	"github.com/born-ml/etl/internal/simd"
	"github.com/born-ml/etl/internal/tensor"
	"github.com/born-ml/etl/internal/traits"
)

// Scalar is a constant broadcast to every position.
type Scalar[T traits.Number] struct {
	v T
}

// NewScalar returns the constant v.
func NewScalar[T traits.Number](v T) *Scalar[T] {
	return &Scalar[T]{v: v}
}

// Value returns the constant.
func (s *Scalar[T]) Value() T { return s.v }

func (s *Scalar[T]) Traits() traits.Traits {
	t := traits.Traits{
		OrderFree:  true,
		ThreadSafe: true,
		Padded:     true,
		Generator:  true,
		Scalar:     true,
	}
	if traits.ElemOf[T]().Vectorizable() {
		t.Vector = traits.AllModes
	}
	return t
}

// Size returns 1; generators adopt the size of the other operand.
func (s *Scalar[T]) Size() int { return 1 }

func (s *Scalar[T]) Dims() tensor.Shape { return tensor.Shape{} }

func (s *Scalar[T]) ReadFlat(int) T { return s.v }

func (s *Scalar[T]) Load(_, w int) simd.Vec[T] { return simd.Broadcast(s.v, w) }

func (s *Scalar[T]) Alias(tensor.Region) bool { return false }

func (s *Scalar[T]) Visit(context.Context) {}

// Sequence generates start, start+step, start+2*step, ... in read order.
// Every ReadFlat call advances the sequence regardless of its index, so a
// Sequence must be read once, sequentially.
type Sequence[T traits.Number] struct {
	cur, step T
}

// NewSequence returns a sequence starting at start.
func NewSequence[T traits.Number](start, step T) *Sequence[T] {
	return &Sequence[T]{cur: start, step: step}
}

func (s *Sequence[T]) Traits() traits.Traits {
	return traits.Traits{OrderFree: true, Generator: true}
}

func (s *Sequence[T]) Size() int { return 1 }

func (s *Sequence[T]) Dims() tensor.Shape { return tensor.Shape{} }

func (s *Sequence[T]) ReadFlat(int) T {
	v := s.cur
	s.cur += s.step
	return v
}

func (s *Sequence[T]) Alias(tensor.Region) bool { return false }

func (s *Sequence[T]) Visit(context.Context) {}
