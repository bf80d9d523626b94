package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Var returns the trimmed value of an environment variable, without surrounding quotes.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// Bool returns a getter for a boolean variable.
func Bool(key string, defaultValue bool) func() bool {
	return func() bool {
		if s := Var(key); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
				return defaultValue
			}
			return b
		}
		return defaultValue
	}
}

// Uint returns a getter for an unsigned integer variable.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// String returns a getter for a string variable.
func String(key, defaultValue string) func() string {
	return func() string {
		if s := Var(key); s != "" {
			return s
		}
		return defaultValue
	}
}

var (
	// Parallel enables multi-threaded dispatch.
	Parallel = Bool("ETL_PARALLEL", true)
	// Threads is the number of worker goroutines; 0 means one per CPU.
	Threads = Uint("ETL_THREADS", 0)
	// ParallelThreshold is the element count below which operations stay single-threaded.
	ParallelThreshold = Uint("ETL_PARALLEL_THRESHOLD", DefaultParallelThreshold)
	// Vectorize enables the vectorized strategy.
	Vectorize = Bool("ETL_VECTORIZE", true)
	// VectorMode caps the vector tier: auto, none, sse3, neon, avx or avx512.
	VectorMode = String("ETL_VECTOR_MODE", "auto")
	// Unroll enables 4x unrolling of the scalar loops.
	Unroll = Bool("ETL_UNROLL", true)
	// Streaming enables non-temporal stores for large assignments.
	Streaming = Bool("ETL_STREAMING", true)
	// CacheSize is the cache budget in bytes used by the streaming threshold.
	CacheSize = Uint("ETL_CACHE_SIZE", DefaultCacheSize)
	// Padding lets vectorized loops run into the allocation padding.
	Padding = Bool("ETL_PADDING", true)
	// Device selects the accelerator: none, emu or webgpu.
	Device = String("ETL_DEVICE", DeviceNone)
)

// EnvVar is an environment variable with its current value.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns the configuration variables with their current values.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"ETL_PARALLEL":           {"ETL_PARALLEL", Parallel(), "Enable multi-threaded evaluation"},
		"ETL_THREADS":            {"ETL_THREADS", Threads(), "Number of worker goroutines (default: one per CPU)"},
		"ETL_PARALLEL_THRESHOLD": {"ETL_PARALLEL_THRESHOLD", ParallelThreshold(), "Minimum element count for parallel evaluation"},
		"ETL_VECTORIZE":          {"ETL_VECTORIZE", Vectorize(), "Enable vectorized evaluation"},
		"ETL_VECTOR_MODE":        {"ETL_VECTOR_MODE", VectorMode(), "Widest vector tier to use (auto, none, sse3, neon, avx, avx512)"},
		"ETL_UNROLL":             {"ETL_UNROLL", Unroll(), "Unroll scalar loops by four"},
		"ETL_STREAMING":          {"ETL_STREAMING", Streaming(), "Use streaming stores for large assignments"},
		"ETL_CACHE_SIZE":         {"ETL_CACHE_SIZE", CacheSize(), "Cache budget in bytes for the streaming threshold"},
		"ETL_PADDING":            {"ETL_PADDING", Padding(), "Let vectorized loops run into the allocation padding"},
		"ETL_DEVICE":             {"ETL_DEVICE", Device(), "Accelerator device (none, emu, webgpu)"},
	}
}

// Values returns the configuration variables as strings.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprint(v.Value)
	}
	return vals
}
