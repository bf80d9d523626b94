package cpu

import (
	"fmt"

	"github.com/born-ml/etl/internal/parallel"
	"github.com/born-ml/etl/internal/tensor"
)

// AvgPool2D averages the non-overlapping c1 x c2 blocks of in[h,w] into
// out[h/c1, w/c2]. Trailing rows and columns that do not fill a block are
// ignored.
func AvgPool2D[T tensor.Real](in, out []T, h, w, c1, c2 int, cfg parallel.Config) {
	if c1 <= 0 || c2 <= 0 {
		panic(fmt.Sprintf("avgpool2d: invalid pool size %dx%d", c1, c2))
	}
	oh, ow := h/c1, w/c2
	if len(in) < h*w || len(out) < oh*ow {
		panic(fmt.Sprintf("avgpool2d: buffers too small for input %dx%d, output %dx%d", h, w, oh, ow))
	}
	div := T(c1 * c2)

	parallel.For(oh, func(i int) {
		for j := 0; j < ow; j++ {
			var sum T
			for a := 0; a < c1; a++ {
				base := (i*c1+a)*w + j*c2
				for b := 0; b < c2; b++ {
					sum += in[base+b]
				}
			}
			out[i*ow+j] = sum / div
		}
	}, cfg)
}
