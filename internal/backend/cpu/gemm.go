// Package cpu implements the host numeric kernels behind the temporary
// expressions: matrix multiplication, 2-D convolution and pooling.
//
// All kernels work on dense row-major slices.
package cpu

import (
	"fmt"

	"github.com/born-ml/etl/internal/parallel"
	"github.com/born-ml/etl/internal/simd"
	"github.com/born-ml/etl/internal/traits"
)

func checkGemm(name string, alen, blen, clen, m, k, n int) {
	if alen < m*k || blen < k*n || clen < m*n {
		panic(fmt.Sprintf("%s: buffers too small for [%d,%d] @ [%d,%d]", name, m, k, k, n))
	}
}

// GemmStd computes c[m,n] = a[m,k] * b[k,n] with the naive triple loop.
// Rows of c are computed in parallel.
//
// C[i,j] = sum_k A[i,k] * B[k,j]
func GemmStd[T traits.Number](a, b, c []T, m, k, n int, cfg parallel.Config) {
	checkGemm("gemm", len(a), len(b), len(c), m, k, n)
	parallel.For(m, func(i int) {
		row := a[i*k : i*k+k]
		for j := 0; j < n; j++ {
			var sum T
			for kIdx := 0; kIdx < k; kIdx++ {
				sum += row[kIdx] * b[kIdx*n+j]
			}
			c[i*n+j] = sum
		}
	}, cfg)
}

// GemmVec computes c[m,n] = a[m,k] * b[k,n] with the i-k-j loop order,
// updating w columns of a row of c per lane operation.
func GemmVec[T traits.Number](a, b, c []T, m, k, n, w int, cfg parallel.Config) {
	checkGemm("gemm", len(a), len(b), len(c), m, k, n)
	if w < 1 {
		panic(fmt.Sprintf("gemm: invalid vector width %d", w))
	}
	mul := simd.Lanes[T](simd.Mul)
	add := simd.Lanes[T](simd.Add)
	last := n - n%w

	parallel.For(m, func(i int) {
		crow := c[i*n : i*n+n]
		for j := range crow {
			crow[j] = 0
		}
		for l := 0; l < k; l++ {
			av := a[i*k+l]
			bcast := simd.Broadcast(av, w)
			brow := b[l*n : l*n+n]

			j := 0
			for ; j < last; j += w {
				x := simd.Load(brow, j, w)
				mul(&x, &bcast, w)
				acc := simd.Load(crow, j, w)
				add(&acc, &x, w)
				simd.Store(crow, j, w, &acc)
			}
			for ; j < n; j++ {
				crow[j] += av * brow[j]
			}
		}
	}, cfg)
}
