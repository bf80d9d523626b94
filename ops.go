// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package etl

import (
	"context"

	"github.com/born-ml/etl/internal/eval"
	"github.com/born-ml/etl/internal/expr"
	"github.com/born-ml/etl/internal/linalg"
	"github.com/born-ml/etl/tensor"
)

// Assign evaluates src into dst.
func Assign[T tensor.Number](ctx context.Context, dst Result[T], src Expr[T]) {
	eval.Assign(ctx, dst, src)
}

// AddAssign computes dst += src.
func AddAssign[T tensor.Number](ctx context.Context, dst Result[T], src Expr[T]) {
	eval.Add(ctx, dst, src)
}

// SubAssign computes dst -= src.
func SubAssign[T tensor.Number](ctx context.Context, dst Result[T], src Expr[T]) {
	eval.Sub(ctx, dst, src)
}

// MulAssign computes dst *= src element-wise.
func MulAssign[T tensor.Number](ctx context.Context, dst Result[T], src Expr[T]) {
	eval.Mul(ctx, dst, src)
}

// DivAssign computes dst /= src element-wise.
func DivAssign[T tensor.Number](ctx context.Context, dst Result[T], src Expr[T]) {
	eval.Div(ctx, dst, src)
}

// ModAssign computes dst %= src element-wise.
func ModAssign[T tensor.Number](ctx context.Context, dst Result[T], src Expr[T]) {
	eval.Mod(ctx, dst, src)
}

// Force materializes the temporaries nested in e.
func Force[T tensor.Number](ctx context.Context, e Expr[T]) {
	eval.Force(ctx, e)
}

// Materialize evaluates e into a new container with e's storage order.
func Materialize[T tensor.Number](ctx context.Context, e Expr[T]) *tensor.Dense[T] {
	return eval.Materialize(ctx, e)
}

// Convert evaluates src into dst, converting each element.
func Convert[D, S tensor.Real](ctx context.Context, dst Result[D], src Expr[S]) {
	eval.Convert(ctx, dst, src)
}

// AssignHalf evaluates src into a half-precision container.
func AssignHalf[S tensor.Real](ctx context.Context, dst *tensor.Half, src Expr[S]) {
	eval.AssignHalf(ctx, dst, src)
}

// Add returns lhs + rhs.
func Add[T tensor.Number](lhs, rhs Expr[T]) Expr[T] { return expr.Add(lhs, rhs) }

// Sub returns lhs - rhs.
func Sub[T tensor.Number](lhs, rhs Expr[T]) Expr[T] { return expr.Sub(lhs, rhs) }

// Mul returns the element-wise product of lhs and rhs.
func Mul[T tensor.Number](lhs, rhs Expr[T]) Expr[T] { return expr.Mul(lhs, rhs) }

// Div returns the element-wise quotient of lhs and rhs.
func Div[T tensor.Number](lhs, rhs Expr[T]) Expr[T] { return expr.Div(lhs, rhs) }

// Mod returns the element-wise remainder of lhs and rhs.
func Mod[T tensor.Number](lhs, rhs Expr[T]) Expr[T] { return expr.Mod(lhs, rhs) }

// Scalar returns v broadcast to any shape.
func Scalar[T tensor.Number](v T) Expr[T] { return expr.NewScalar(v) }

// Sequence returns the generator start, start+step, ...
func Sequence[T tensor.Number](start, step T) Expr[T] { return expr.NewSequence(start, step) }

// Map applies f to every element of e. The result is read by one goroutine.
func Map[T tensor.Number](e Expr[T], f func(T) T) Expr[T] { return expr.Map(e, f) }

// MapConcurrent is Map for an f that is safe for concurrent use, so the
// evaluation may be split across workers.
func MapConcurrent[T tensor.Number](e Expr[T], f func(T) T) Expr[T] { return expr.MapConcurrent(e, f) }

// Sigmoid returns 1/(1+exp(-x)) element-wise.
func Sigmoid[T tensor.Float](e Expr[T]) Expr[T] { return expr.Sigmoid(e) }

// ReLU returns max(x, 0) element-wise.
func ReLU[T tensor.Real](e Expr[T]) Expr[T] { return expr.ReLU(e) }

// SubView returns the m×n block of base starting at row bi, column bj.
func SubView[T tensor.Number](base Result[T], bi, bj, m, n int) Result[T] {
	return expr.SubMatrix(base, bi, bj, m, n)
}

// Transpose returns the transpose of a matrix expression.
func Transpose[T tensor.Number](e Expr[T]) Expr[T] { return expr.Transpose(e) }

// MatMul returns the matrix product a[m,k] * b[k,n].
// It panics if the inner dimensions differ.
func MatMul[T tensor.Number](a, b Expr[T]) Expr[T] { return linalg.NewGemm(a, b) }

// Conv2DValid returns the 2D convolution of in by kernel with strides
// s1, s2 and zero padding p1, p2.
func Conv2DValid[T tensor.Number](in, kernel Expr[T], s1, s2, p1, p2 int) Expr[T] {
	return linalg.Conv2DValid(in, kernel, s1, s2, p1, p2)
}

// Conv2DValidFlipped is Conv2DValid with a pre-flipped kernel
// (cross-correlation).
func Conv2DValidFlipped[T tensor.Number](in, kernel Expr[T], s1, s2, p1, p2 int) Expr[T] {
	return linalg.Conv2DValidFlipped(in, kernel, s1, s2, p1, p2)
}

// AvgPool2D returns the average of every c1×c2 block of in.
func AvgPool2D[T tensor.Real](in Expr[T], c1, c2 int) Expr[T] {
	return linalg.AvgPool2D(in, c1, c2)
}
