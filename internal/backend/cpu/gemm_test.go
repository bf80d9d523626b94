package cpu

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/etl/internal/parallel"
)

func seq(n int, scale float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(i+1) * scale
	}
	return s
}

func randSlice(r *rand.Rand, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = r.Float64()*2 - 1
	}
	return s
}

func naive(a, b []float64, m, k, n int) []float64 {
	c := make([]float64, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			for l := 0; l < k; l++ {
				c[i*n+j] += a[i*k+l] * b[l*n+j]
			}
		}
	}
	return c
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestGemmSmall(t *testing.T) {
	// [[1 2 3] [4 5 6]] @ [[7 8] [9 10] [11 12]]
	a := []float64{1, 2, 3, 4, 5, 6}
	b := []float64{7, 8, 9, 10, 11, 12}
	want := []float64{58, 64, 139, 154}

	cfg := parallel.DefaultConfig()
	impls := map[string]func(c []float64){
		"std":  func(c []float64) { GemmStd(a, b, c, 2, 3, 2, cfg) },
		"vec":  func(c []float64) { GemmVec(a, b, c, 2, 3, 2, 4, cfg) },
		"blas": func(c []float64) { require.True(t, GemmBLAS(a, b, c, 2, 3, 2)) },
	}
	for name, fn := range impls {
		t.Run(name, func(t *testing.T) {
			c := make([]float64, 4)
			fn(c)
			assert.Equal(t, want, c)
		})
	}
}

func TestGemmImplementationsAgree(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	cfg := parallel.DefaultConfig()
	shapes := [][3]int{{1, 1, 1}, {3, 5, 7}, {17, 9, 33}, {64, 64, 64}, {5, 0, 4}}

	for _, s := range shapes {
		m, k, n := s[0], s[1], s[2]
		a, b := randSlice(r, m*k), randSlice(r, k*n)
		want := naive(a, b, m, k, n)

		std := make([]float64, m*n)
		GemmStd(a, b, std, m, k, n, cfg)
		assert.Empty(t, cmp.Diff(want, std, approx), "std %v", s)

		for _, w := range []int{1, 2, 4, 8} {
			vec := make([]float64, m*n)
			for i := range vec {
				vec[i] = 99
			}
			GemmVec(a, b, vec, m, k, n, w, cfg)
			assert.Empty(t, cmp.Diff(want, vec, approx), "vec w=%d %v", w, s)
		}

		bl := make([]float64, m*n)
		require.True(t, GemmBLAS(a, b, bl, m, k, n))
		assert.Empty(t, cmp.Diff(want, bl, approx), "blas %v", s)
	}
}

func TestGemmIntegers(t *testing.T) {
	a := []int32{1, 2, 3, 4}
	b := []int32{5, 6, 7, 8}
	c := make([]int32, 4)

	GemmVec(a, b, c, 2, 2, 2, 4, parallel.DefaultConfig())
	assert.Equal(t, []int32{19, 22, 43, 50}, c)

	assert.False(t, GemmBLAS(a, b, c, 2, 2, 2), "no BLAS routine for int32")
}

func TestGemmBLASTypes(t *testing.T) {
	t.Run("float32", func(t *testing.T) {
		c := make([]float32, 1)
		require.True(t, GemmBLAS([]float32{1, 2}, []float32{3, 4}, c, 1, 2, 1))
		assert.Equal(t, []float32{11}, c)
	})
	t.Run("complex64", func(t *testing.T) {
		c := make([]complex64, 1)
		require.True(t, GemmBLAS([]complex64{1i}, []complex64{1i}, c, 1, 1, 1))
		assert.Equal(t, []complex64{-1}, c)
	})
	t.Run("complex128", func(t *testing.T) {
		c := make([]complex128, 1)
		require.True(t, GemmBLAS([]complex128{2 + 1i}, []complex128{3}, c, 1, 1, 1))
		assert.Equal(t, []complex128{6 + 3i}, c)
	})
}

func TestGemmPanics(t *testing.T) {
	cfg := parallel.DefaultConfig()
	assert.PanicsWithValue(t, "gemm: buffers too small for [2,2] @ [2,2]", func() {
		GemmStd(make([]float64, 3), make([]float64, 4), make([]float64, 4), 2, 2, 2, cfg)
	})
	assert.PanicsWithValue(t, "gemm: invalid vector width 0", func() {
		GemmVec(make([]float64, 4), make([]float64, 4), make([]float64, 4), 2, 2, 2, 0, cfg)
	})
}

func TestStrassen(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	cfg := parallel.DefaultConfig()
	for _, n := range []int{1, 2, 64, 128} {
		a, b := randSlice(r, n*n), randSlice(r, n*n)
		c := make([]float64, n*n)
		Strassen(a, b, c, n, cfg)
		assert.Empty(t, cmp.Diff(naive(a, b, n, n, n), c, approx), "n=%d", n)
	}

	assert.PanicsWithValue(t, "strassen: size 6 is not a power of two", func() {
		Strassen(seq(36, 1), seq(36, 1), make([]float64, 36), 6, cfg)
	})
}

func TestIsPow2(t *testing.T) {
	for n, want := range map[int]bool{0: false, 1: true, 2: true, 3: false, 64: true, 96: false, -4: false} {
		assert.Equal(t, want, IsPow2(n), "n=%d", n)
	}
}

func BenchmarkGemm(b *testing.B) {
	const n = 128
	r := rand.New(rand.NewSource(3))
	x, y := randSlice(r, n*n), randSlice(r, n*n)
	c := make([]float64, n*n)
	cfg := parallel.DefaultConfig()

	b.Run("std", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			GemmStd(x, y, c, n, n, n, cfg)
		}
	})
	b.Run("vec", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			GemmVec(x, y, c, n, n, n, 4, cfg)
		}
	})
	b.Run("blas", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			GemmBLAS(x, y, c, n, n, n)
		}
	})
	b.Run("strassen", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			Strassen(x, y, c, n, cfg)
		}
	})
}
