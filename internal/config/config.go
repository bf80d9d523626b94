// Package config holds the evaluation settings read at dispatch time.
//
// Settings come from ETL_* environment variables, loaded once per process,
// and can be overridden for a call tree by attaching a Config to a context.
package config

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/born-ml/etl/internal/traits"
)

// Defaults.
const (
	DefaultParallelThreshold = 128 * 1024
	DefaultCacheSize         = 3 * 1024 * 1024
)

// Accelerator device names.
const (
	DeviceNone   = "none"
	DeviceEmu    = "emu"
	DeviceWebGPU = "webgpu"
)

// Config controls strategy selection and dispatch.
type Config struct {
	Parallel          bool              // Allow multi-threaded dispatch.
	Threads           int               // Number of workers.
	ParallelThreshold int               // Minimum size for multi-threaded dispatch.
	Vectorize         bool              // Allow the vectorized strategy.
	MaxVector         traits.VectorMode // Widest tier to use.
	Unroll            bool              // Unroll scalar loops by four.
	Streaming         bool              // Allow streaming stores.
	CacheSize         int               // Cache budget in bytes.
	Padding           bool              // Allow vectorized loops to run into the padding.
	Device            string            // Accelerator device name.
}

// Default returns the built-in configuration.
func Default() Config {
	n := runtime.NumCPU()
	return Config{
		Parallel:          n > 1,
		Threads:           n,
		ParallelThreshold: DefaultParallelThreshold,
		Vectorize:         true,
		MaxVector:         traits.AVX512,
		Unroll:            true,
		Streaming:         true,
		CacheSize:         DefaultCacheSize,
		Padding:           true,
		Device:            DeviceNone,
	}
}

// FromEnv builds a configuration from the ETL_* environment variables.
// Invalid values are logged and replaced by defaults.
func FromEnv() Config {
	cfg := Default()
	cfg.Parallel = Parallel()
	if n := Threads(); n > 0 {
		cfg.Threads = int(n)
	}
	cfg.ParallelThreshold = int(ParallelThreshold())
	cfg.Vectorize = Vectorize()
	if mode, err := ParseMaxVector(VectorMode()); err != nil {
		slog.Warn("invalid environment variable, using default", "key", "ETL_VECTOR_MODE", "error", err)
	} else if mode == traits.NoVector {
		cfg.Vectorize = false
	} else {
		cfg.MaxVector = mode
	}
	cfg.Unroll = Unroll()
	cfg.Streaming = Streaming()
	cfg.CacheSize = int(CacheSize())
	cfg.Padding = Padding()
	cfg.Device = Device()

	if err := cfg.Validate(); err != nil {
		slog.Warn("invalid configuration, using defaults", "error", err)
		return Default()
	}
	return cfg
}

// ParseMaxVector parses a vector tier cap; "auto" means no cap.
func ParseMaxVector(s string) (traits.VectorMode, error) {
	if s == "auto" {
		return traits.AVX512, nil
	}
	m, err := traits.ParseVectorMode(s)
	if err != nil {
		return traits.NoVector, errors.Wrap(err, "ETL_VECTOR_MODE")
	}
	return m, nil
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var err error
	if c.Threads < 1 {
		err = multierr.Append(err, errors.Errorf("threads must be positive, got %d", c.Threads))
	}
	if c.ParallelThreshold < 0 {
		err = multierr.Append(err, errors.Errorf("parallel threshold must not be negative, got %d", c.ParallelThreshold))
	}
	if c.CacheSize <= 0 {
		err = multierr.Append(err, errors.Errorf("cache size must be positive, got %d", c.CacheSize))
	}
	switch c.Device {
	case DeviceNone, DeviceEmu, DeviceWebGPU:
	default:
		err = multierr.Append(err, errors.Errorf("unknown device %q", c.Device))
	}
	return err
}

// SelectParallel reports whether an operation over size elements is split across workers.
func (c Config) SelectParallel(size int) bool {
	return c.Parallel && c.Threads > 1 && size >= c.ParallelThreshold
}

// VectorModes returns the vector tiers usable on this CPU under c.
func (c Config) VectorModes() traits.ModeSet {
	if !c.Vectorize {
		return 0
	}
	return traits.Detect().UpTo(c.MaxVector)
}

var process = sync.OnceValue(FromEnv)

// Process returns the process-wide configuration loaded from the environment.
func Process() Config {
	return process()
}

type configKey struct{}

type loggerKey struct{}

// With returns a context carrying cfg.
func With(ctx context.Context, cfg Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// From returns the configuration attached to ctx, or the process configuration.
func From(ctx context.Context) Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(configKey{}).(Config); ok {
			return cfg
		}
	}
	return Process()
}

// WithLogger returns a context whose diagnostics go to l.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// Logger returns the diagnostic logger of ctx, or slog.Default.
func Logger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}
