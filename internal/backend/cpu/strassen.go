package cpu

import (
	"fmt"

	"github.com/born-ml/etl/internal/parallel"
	"github.com/born-ml/etl/internal/traits"
)

// strassenLeaf is the block size below which the naive kernel takes over.
const strassenLeaf = 64

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Strassen computes the square product c[n,n] = a[n,n] * b[n,n] with the
// Strassen recursion. n must be a power of two.
func Strassen[T traits.Number](a, b, c []T, n int, cfg parallel.Config) {
	if !IsPow2(n) {
		panic(fmt.Sprintf("strassen: size %d is not a power of two", n))
	}
	checkGemm("strassen", len(a), len(b), len(c), n, n, n)
	strassen(a, b, c, n, cfg)
}

func strassen[T traits.Number](a, b, c []T, n int, cfg parallel.Config) {
	if n <= strassenLeaf {
		GemmStd(a, b, c, n, n, n, cfg)
		return
	}

	h := n / 2
	a11, a12, a21, a22 := quadrants(a, n)
	b11, b12, b21, b22 := quadrants(b, n)

	t1 := make([]T, h*h)
	t2 := make([]T, h*h)
	m := make([][]T, 7)
	for i := range m {
		m[i] = make([]T, h*h)
	}

	// M1 = (A11 + A22)(B11 + B22)
	addTo(t1, a11, a22)
	addTo(t2, b11, b22)
	strassen(t1, t2, m[0], h, cfg)
	// M2 = (A21 + A22) B11
	addTo(t1, a21, a22)
	strassen(t1, b11, m[1], h, cfg)
	// M3 = A11 (B12 - B22)
	subTo(t2, b12, b22)
	strassen(a11, t2, m[2], h, cfg)
	// M4 = A22 (B21 - B11)
	subTo(t2, b21, b11)
	strassen(a22, t2, m[3], h, cfg)
	// M5 = (A11 + A12) B22
	addTo(t1, a11, a12)
	strassen(t1, b22, m[4], h, cfg)
	// M6 = (A21 - A11)(B11 + B12)
	subTo(t1, a21, a11)
	addTo(t2, b11, b12)
	strassen(t1, t2, m[5], h, cfg)
	// M7 = (A12 - A22)(B21 + B22)
	subTo(t1, a12, a22)
	addTo(t2, b21, b22)
	strassen(t1, t2, m[6], h, cfg)

	for i := 0; i < h; i++ {
		for j := 0; j < h; j++ {
			k := i*h + j
			c[i*n+j] = m[0][k] + m[3][k] - m[4][k] + m[6][k]
			c[i*n+j+h] = m[2][k] + m[4][k]
			c[(i+h)*n+j] = m[1][k] + m[3][k]
			c[(i+h)*n+j+h] = m[0][k] - m[1][k] + m[2][k] + m[5][k]
		}
	}
}

// quadrants copies the four h*h blocks of the n*n matrix s.
func quadrants[T traits.Number](s []T, n int) (q11, q12, q21, q22 []T) {
	h := n / 2
	q11, q12 = make([]T, h*h), make([]T, h*h)
	q21, q22 = make([]T, h*h), make([]T, h*h)
	for i := 0; i < h; i++ {
		copy(q11[i*h:], s[i*n:i*n+h])
		copy(q12[i*h:], s[i*n+h:i*n+n])
		copy(q21[i*h:], s[(i+h)*n:(i+h)*n+h])
		copy(q22[i*h:], s[(i+h)*n+h:(i+h)*n+n])
	}
	return q11, q12, q21, q22
}

func addTo[T traits.Number](dst, x, y []T) {
	for i := range dst {
		dst[i] = x[i] + y[i]
	}
}

func subTo[T traits.Number](dst, x, y []T) {
	for i := range dst {
		dst[i] = x[i] - y[i]
	}
}
