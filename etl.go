// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package etl

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/born-ml/etl/backend/emu"
	"github.com/born-ml/etl/backend/webgpu"
	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/config"
	"github.com/born-ml/etl/internal/counters"
	"github.com/born-ml/etl/internal/eval"
	"github.com/born-ml/etl/internal/expr"
	"github.com/born-ml/etl/tensor"
)

// Expr is a readable expression.
type Expr[T tensor.Number] = expr.Expr[T]

// Result is a writable expression.
type Result[T tensor.Number] = expr.Result[T]

// Strategy is the execution path of one assignment.
type Strategy = eval.Strategy

// Strategies.
const (
	Standard    Strategy = eval.Standard
	Direct      Strategy = eval.Direct
	FastCopy    Strategy = eval.FastCopy
	Vectorized  Strategy = eval.Vectorized
	Accelerator Strategy = eval.Accelerator
)

// Config controls strategy selection and dispatch.
type Config = config.Config

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return config.Default()
}

// WithConfig returns a context whose evaluations use cfg.
func WithConfig(ctx context.Context, cfg Config) context.Context {
	return config.With(ctx, cfg)
}

// ConfigFrom returns the configuration in effect for ctx.
func ConfigFrom(ctx context.Context) Config {
	return config.From(ctx)
}

// WithLogger returns a context whose diagnostics go to l.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return config.WithLogger(ctx, l)
}

// Device is an accelerator.
type Device = backend.Device

// WithDevice returns a context whose evaluations may run on dev.
func WithDevice(ctx context.Context, dev Device) context.Context {
	return backend.WithDevice(ctx, dev)
}

// OpenDevice opens the accelerator called name: "none", "emu" or "webgpu".
// It returns a nil Device for "none".
func OpenDevice(name string) (Device, error) {
	switch name {
	case config.DeviceNone, "":
		return nil, nil
	case config.DeviceEmu:
		return emu.New(), nil
	case config.DeviceWebGPU:
		dev, err := webgpu.New()
		if err != nil {
			return nil, errors.Wrap(err, "open webgpu device")
		}
		return dev, nil
	}
	return nil, errors.Errorf("unknown device %q", name)
}

// FromEnv reads the ETL_* environment variables, attaches the resulting
// configuration to ctx and opens the accelerator they name. The returned
// function closes the device.
func FromEnv(ctx context.Context) (context.Context, func() error, error) {
	cfg := config.FromEnv()
	ctx = config.With(ctx, cfg)
	dev, err := OpenDevice(cfg.Device)
	if err != nil {
		return ctx, func() error { return nil }, err
	}
	if dev == nil {
		return ctx, func() error { return nil }, nil
	}
	config.Logger(ctx).Debug("accelerator opened", "device", dev.Name())
	return backend.WithDevice(ctx, dev), dev.Close, nil
}

// GemmImpl is a matrix-product implementation.
type GemmImpl = backend.GemmImpl

// Matrix-product implementations.
const (
	GemmStd      GemmImpl = backend.GemmStd
	GemmVec      GemmImpl = backend.GemmVec
	GemmBLAS     GemmImpl = backend.GemmBLAS
	GemmAccel    GemmImpl = backend.GemmAccel
	GemmStrassen GemmImpl = backend.GemmStrassen
)

// ConvImpl is a convolution implementation.
type ConvImpl = backend.ConvImpl

// Convolution implementations.
const (
	ConvStd   ConvImpl = backend.ConvStd
	ConvVec   ConvImpl = backend.ConvVec
	ConvAccel ConvImpl = backend.ConvAccel
)

// WithGemm forces the matrix-product implementation for the evaluations
// under ctx. An implementation that cannot serve a product falls back to
// the default with a warning.
func WithGemm(ctx context.Context, impl GemmImpl) context.Context {
	return backend.WithGemm(ctx, impl)
}

// WithConv forces the convolution implementation for the evaluations under ctx.
func WithConv(ctx context.Context, impl ConvImpl) context.Context {
	return backend.WithConv(ctx, impl)
}

// Counter is a named event count.
type Counter = counters.Entry

// Counters returns the event counters sorted by name.
func Counters() []Counter {
	return counters.Snapshot()
}

// CounterValue returns the value of one counter.
func CounterValue(name string) int64 {
	return counters.Get(name)
}

// ResetCounters clears every counter.
func ResetCounters() {
	counters.Reset()
}
