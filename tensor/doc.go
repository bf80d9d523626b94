// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the containers evaluated by the etl engine.
//
// # Overview
//
// A Dense holds host memory for a fixed shape in row-major or column-major
// order. New containers are padded to a multiple of the widest vector
// register so that vectorized loops can run without a scalar tail; Wrap
// creates an unpadded container over caller memory.
//
// A Dense also carries an optional accelerator buffer. Coherency tells
// which copy is authoritative; the evaluator keeps it up to date.
//
// # Basic Usage
//
//	a, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
//	b := tensor.Full[float32](tensor.Shape{2, 3}, 10)
//	c := tensor.New[float32](tensor.Shape{2, 3})
//	etl.Assign[float32](ctx, c, etl.Add[float32](a, b))
//	fmt.Println(c.Data()) // [11 12 13 14 15 16]
//
// # Element Types
//
// Number lists every supported element type: signed and unsigned
// integers, float32, float64, complex64 and complex128. Half stores
// IEEE 754 half-precision values as the target of converting copies.
package tensor
