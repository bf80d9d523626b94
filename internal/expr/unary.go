package expr

import (
	"context"
	"math"

	"github.com/born-ml/etl/internal/tensor"
	"github.com/born-ml/etl/internal/traits"
)

// Unary applies a function to every element of a sub-expression.
type Unary[T traits.Number] struct {
	e    Expr[T]
	f    func(T) T
	safe bool
}

// Map applies f to every element of e. The result is read by one goroutine.
func Map[T traits.Number](e Expr[T], f func(T) T) *Unary[T] {
	return &Unary[T]{e: e, f: f}
}

// MapConcurrent is Map for a function that may be called concurrently.
func MapConcurrent[T traits.Number](e Expr[T], f func(T) T) *Unary[T] {
	return &Unary[T]{e: e, f: f, safe: true}
}

// Sigmoid returns the logistic function of e.
func Sigmoid[T tensor.Float](e Expr[T]) *Unary[T] {
	return MapConcurrent(e, func(x T) T {
		return T(1 / (1 + math.Exp(-float64(x))))
	})
}

// ReLU returns max(e, 0).
func ReLU[T tensor.Real](e Expr[T]) *Unary[T] {
	return MapConcurrent(e, func(x T) T {
		if x < 0 {
			return 0
		}
		return x
	})
}

func (u *Unary[T]) Traits() traits.Traits {
	sub := u.e.Traits()
	return traits.Traits{
		Order:      sub.Order,
		OrderFree:  sub.OrderFree,
		ThreadSafe: u.safe && sub.ThreadSafe,
		Padded:     sub.Padded,
		Generator:  sub.Generator,
		Dims:       sub.Dims,
	}
}

func (u *Unary[T]) Size() int { return u.e.Size() }

func (u *Unary[T]) Dims() tensor.Shape { return u.e.Dims() }

func (u *Unary[T]) ReadFlat(i int) T { return u.f(u.e.ReadFlat(i)) }

func (u *Unary[T]) Alias(r tensor.Region) bool { return u.e.Alias(r) }

func (u *Unary[T]) Visit(ctx context.Context) { u.e.Visit(ctx) }

func (u *Unary[T]) EnsureHost() { EnsureHost(u.e) }
