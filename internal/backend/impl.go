package backend

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// GemmImpl is a matrix-multiply implementation.
type GemmImpl uint8

// Matrix-multiply implementations.
const (
	GemmStd      GemmImpl = iota // Naive triple loop.
	GemmVec                      // Blocked, vectorized kernel.
	GemmBLAS                     // CPU BLAS library.
	GemmAccel                    // Accelerator device.
	GemmStrassen                 // Strassen recursion over the naive kernel.
)

var gemmNames = [...]string{"std", "vec", "blas", "accel", "strassen"}

// String returns the implementation name.
func (g GemmImpl) String() string {
	if int(g) < len(gemmNames) {
		return gemmNames[g]
	}
	return "unknown"
}

// ParseGemm parses a matrix-multiply implementation name.
func ParseGemm(s string) (GemmImpl, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range gemmNames {
		if s == name {
			return GemmImpl(i), nil
		}
	}
	return 0, errors.Errorf("unknown gemm implementation %q", s)
}

// ConvImpl is a convolution implementation.
type ConvImpl uint8

// Convolution implementations.
const (
	ConvStd   ConvImpl = iota // Naive nested loops.
	ConvVec                   // Im2col lowering onto the vectorized gemm.
	ConvAccel                 // Accelerator device.
)

var convNames = [...]string{"std", "vec", "accel"}

// String returns the implementation name.
func (c ConvImpl) String() string {
	if int(c) < len(convNames) {
		return convNames[c]
	}
	return "unknown"
}

// ParseConv parses a convolution implementation name.
func ParseConv(s string) (ConvImpl, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range convNames {
		if s == name {
			return ConvImpl(i), nil
		}
	}
	return 0, errors.Errorf("unknown conv implementation %q", s)
}

type gemmKey struct{}

type convKey struct{}

// WithGemm returns a context that forces impl for matrix multiplications.
// The parent context still uses the default selection.
func WithGemm(ctx context.Context, impl GemmImpl) context.Context {
	return context.WithValue(ctx, gemmKey{}, impl)
}

// ForcedGemm returns the forced matrix-multiply implementation of ctx, if any.
func ForcedGemm(ctx context.Context) (GemmImpl, bool) {
	if ctx == nil {
		return 0, false
	}
	impl, ok := ctx.Value(gemmKey{}).(GemmImpl)
	return impl, ok
}

// WithConv returns a context that forces impl for convolutions.
func WithConv(ctx context.Context, impl ConvImpl) context.Context {
	return context.WithValue(ctx, convKey{}, impl)
}

// ForcedConv returns the forced convolution implementation of ctx, if any.
func ForcedConv(ctx context.Context) (ConvImpl, bool) {
	if ctx == nil {
		return 0, false
	}
	impl, ok := ctx.Value(convKey{}).(ConvImpl)
	return impl, ok
}
