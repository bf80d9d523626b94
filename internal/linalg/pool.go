package linalg

import (
	"context"
	"fmt"

	"github.com/born-ml/etl/internal/backend/cpu"
	"github.com/born-ml/etl/internal/config"
	"github.com/born-ml/etl/internal/counters"
	"github.com/born-ml/etl/internal/expr"
	"github.com/born-ml/etl/internal/tensor"
)

// AvgPool is a non-overlapping 2-D average pooling.
type AvgPool[T tensor.Real] struct {
	node[T]
	in     expr.Expr[T]
	c1, c2 int
}

// AvgPool2D averages the c1 x c2 blocks of the 2-D input.
func AvgPool2D[T tensor.Real](in expr.Expr[T], c1, c2 int) *AvgPool[T] {
	check2D("avgpool2d", "input", in)
	if c1 <= 0 || c2 <= 0 {
		panic(fmt.Sprintf("avgpool2d: invalid pool size %dx%d", c1, c2))
	}
	d := in.Dims()
	p := &AvgPool[T]{in: in, c1: c1, c2: c2}
	p.node = node[T]{
		name:     "avgpool2d",
		dims:     tensor.Shape{d[0] / c1, d[1] / c2},
		order:    in.Traits().Order,
		operands: []expr.Expr[T]{in},
	}
	p.assign = p.evaluate
	return p
}

func (p *AvgPool[T]) evaluate(ctx context.Context, dst expr.Result[T]) {
	counters.Inc("pool:avg")
	in, _ := rowMajor(ctx, p.in)
	in.EnsureHost()

	d := in.Dims()
	out, publish := hostOutput(ctx, dst, p.dims)
	cpu.AvgPool2D(in.Memory(), out, d[0], d[1], p.c1, p.c2, workers(config.From(ctx), in.Size()))
	publish()
}
