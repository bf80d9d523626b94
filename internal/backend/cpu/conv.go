package cpu

import (
	"fmt"

	"github.com/born-ml/etl/internal/parallel"
	"github.com/born-ml/etl/internal/traits"
)

// ConvParams describes a single-channel 2-D valid convolution.
type ConvParams struct {
	InH, InW int // Input dims.
	KH, KW   int // Kernel dims.
	S1, S2   int // Strides.
	P1, P2   int // Zero padding.
	Flipped  bool
}

// OutDims returns the output dims of the convolution.
func (p ConvParams) OutDims() (int, int) {
	return (p.InH-p.KH+2*p.P1)/p.S1 + 1, (p.InW-p.KW+2*p.P2)/p.S2 + 1
}

// Validate panics if the parameters do not describe a valid convolution.
func (p ConvParams) Validate() {
	if p.KH <= 0 || p.KW <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size %dx%d", p.KH, p.KW))
	}
	if p.S1 <= 0 || p.S2 <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %dx%d", p.S1, p.S2))
	}
	if p.P1 < 0 || p.P2 < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %dx%d", p.P1, p.P2))
	}
	if p.InH+2*p.P1 < p.KH || p.InW+2*p.P2 < p.KW {
		panic(fmt.Sprintf("conv2d: kernel %dx%d larger than padded input %dx%d",
			p.KH, p.KW, p.InH+2*p.P1, p.InW+2*p.P2))
	}
}

// kernelAt returns the weight applied to window offset (a, b).
// A non-flipped convolution reverses the kernel.
func (p ConvParams) kernelAt(a, b int) int {
	if p.Flipped {
		return a*p.KW + b
	}
	return (p.KH-1-a)*p.KW + (p.KW - 1 - b)
}

// ConvStd computes the convolution with nested loops, one output row per task.
//
//	out[i][j] = sum_{a,b} in[i*s1-p1+a][j*s2-p2+b] * k'[a][b]
//
// where k' is the kernel, reversed unless p.Flipped is set.
// Out-of-range input positions read as zero.
func ConvStd[T traits.Number](in, kernel, out []T, p ConvParams, cfg parallel.Config) {
	p.Validate()
	oh, ow := p.OutDims()
	checkConv(len(in), len(kernel), len(out), p, oh, ow)

	parallel.For(oh, func(i int) {
		for j := 0; j < ow; j++ {
			var sum T
			for a := 0; a < p.KH; a++ {
				y := i*p.S1 - p.P1 + a
				if y < 0 || y >= p.InH {
					continue
				}
				for b := 0; b < p.KW; b++ {
					x := j*p.S2 - p.P2 + b
					if x < 0 || x >= p.InW {
						continue
					}
					sum += in[y*p.InW+x] * kernel[p.kernelAt(a, b)]
				}
			}
			out[i*ow+j] = sum
		}
	}, cfg)
}

// GemmFunc multiplies row-major a[m,k] by b[k,n] into c[m,n].
type GemmFunc[T traits.Number] func(a, b, c []T, m, k, n int)

// ConvIm2col lowers the convolution onto a matrix multiply.
//
// Algorithm: Im2col
//  1. Unroll every receptive field into a column of cols[KH*KW, OH*OW].
//  2. Lay the (possibly reversed) kernel out as a row [1, KH*KW].
//  3. out[1, OH*OW] = kernel * cols.
func ConvIm2col[T traits.Number](in, kernel, out []T, p ConvParams, gemm GemmFunc[T]) {
	p.Validate()
	oh, ow := p.OutDims()
	checkConv(len(in), len(kernel), len(out), p, oh, ow)

	kk := p.KH * p.KW
	cols := im2col(in, p, oh, ow)

	row := make([]T, kk)
	for a := 0; a < p.KH; a++ {
		for b := 0; b < p.KW; b++ {
			row[a*p.KW+b] = kernel[p.kernelAt(a, b)]
		}
	}

	gemm(row, cols, out[:oh*ow], 1, kk, oh*ow)
}

func im2col[T traits.Number](in []T, p ConvParams, oh, ow int) []T {
	n := oh * ow
	cols := make([]T, p.KH*p.KW*n)
	for a := 0; a < p.KH; a++ {
		for b := 0; b < p.KW; b++ {
			r := (a*p.KW + b) * n
			for i := 0; i < oh; i++ {
				y := i*p.S1 - p.P1 + a
				if y < 0 || y >= p.InH {
					continue
				}
				for j := 0; j < ow; j++ {
					x := j*p.S2 - p.P2 + b
					if x < 0 || x >= p.InW {
						continue
					}
					cols[r+i*ow+j] = in[y*p.InW+x]
				}
			}
		}
	}
	return cols
}

func checkConv(inLen, kLen, outLen int, p ConvParams, oh, ow int) {
	if inLen < p.InH*p.InW || kLen < p.KH*p.KW || outLen < oh*ow {
		panic(fmt.Sprintf("conv2d: buffers too small for input %dx%d, kernel %dx%d, output %dx%d",
			p.InH, p.InW, p.KH, p.KW, oh, ow))
	}
}
