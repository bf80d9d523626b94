// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package etl evaluates tensor expressions.
//
// Expressions are built from containers, scalars and generators with the
// element-wise builders (Add, Mul, Map, ...) and the linear-algebra
// builders (MatMul, Conv2DValid, AvgPool2D). Nothing is computed until an
// expression is assigned to a destination:
//
//	a, _ := tensor.FromSlice([]float64{1, 2, 3}, tensor.Shape{3})
//	b := tensor.Full[float64](tensor.Shape{3}, 2)
//	c := tensor.New[float64](tensor.Shape{3})
//	etl.Assign[float64](ctx, c, etl.Mul[float64](etl.Add[float64](a, b), etl.Scalar(0.5)))
//
// Each assignment picks one of five strategies (standard, direct,
// fast_copy, vectorized, accelerator) from the static traits of the source
// and the destination, the element type and the Config attached to ctx.
// Large operations are split across worker goroutines.
//
// # Configuration
//
// The process configuration is read once from ETL_* environment
// variables. WithConfig overrides it for a call tree; FromEnv re-reads
// the environment and opens the accelerator it names:
//
//	ctx, closeFn, err := etl.FromEnv(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer closeFn()
//
// # Accelerators
//
// A Device attached with WithDevice offloads supported operations. The
// emu device runs in host memory and is always available; the webgpu
// device needs a WebGPU adapter.
package etl
