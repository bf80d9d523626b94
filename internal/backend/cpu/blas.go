package cpu

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/blas/cblas64"

	"github.com/born-ml/etl/internal/traits"
)

// HasBLAS reports whether GemmBLAS supports elements of type e.
func HasBLAS(e traits.Elem) bool {
	return e.IsFloating()
}

// GemmBLAS computes c[m,n] = a[m,k] * b[k,n] through the gonum BLAS
// implementation. It reports false, leaving c untouched, when T has no
// BLAS routine.
func GemmBLAS[T traits.Number](a, b, c []T, m, k, n int) bool {
	if !HasBLAS(traits.ElemOf[T]()) {
		return false
	}
	checkGemm("gemm", len(a), len(b), len(c), m, k, n)
	if m == 0 || n == 0 {
		return true
	}
	if k == 0 {
		clear(c[:m*n])
		return true
	}

	switch cs := any(c).(type) {
	case []float32:
		blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas32.General{Rows: m, Cols: k, Stride: k, Data: any(a).([]float32)},
			blas32.General{Rows: k, Cols: n, Stride: n, Data: any(b).([]float32)},
			0, blas32.General{Rows: m, Cols: n, Stride: n, Data: cs})
	case []float64:
		blas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
			blas64.General{Rows: m, Cols: k, Stride: k, Data: any(a).([]float64)},
			blas64.General{Rows: k, Cols: n, Stride: n, Data: any(b).([]float64)},
			0, blas64.General{Rows: m, Cols: n, Stride: n, Data: cs})
	case []complex64:
		cblas64.Gemm(blas.NoTrans, blas.NoTrans, 1,
			cblas64.General{Rows: m, Cols: k, Stride: k, Data: any(a).([]complex64)},
			cblas64.General{Rows: k, Cols: n, Stride: n, Data: any(b).([]complex64)},
			0, cblas64.General{Rows: m, Cols: n, Stride: n, Data: cs})
	case []complex128:
		cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1,
			cblas128.General{Rows: m, Cols: k, Stride: k, Data: any(a).([]complex128)},
			cblas128.General{Rows: k, Cols: n, Stride: n, Data: any(b).([]complex128)},
			0, cblas128.General{Rows: m, Cols: n, Stride: n, Data: cs})
	default:
		return false
	}
	return true
}
