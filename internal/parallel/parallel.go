// Package parallel splits element ranges across worker goroutines.
package parallel

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64, // Typical cache line aware chunk.
	}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForBatch iterates the batch*channels grid, one call per (b, c) pair.
func ForBatch(batch, channels int, f func(b, c int), cfg Config) {
	n := batch * channels
	For(n, func(k int) {
		f(k/channels, k%channels)
	}, cfg)
}

// Slice is the half-open range [First, Last).
type Slice struct {
	First, Last int
}

// Split divides [0, n) into at most parts contiguous, disjoint slices whose
// sizes differ by at most one. The first n%parts slices hold the extra element.
func Split(n, parts int) []Slice {
	if n <= 0 {
		return nil
	}
	parts = max(1, min(parts, n))
	base, rem := n/parts, n%parts

	out := make([]Slice, parts)
	first := 0
	for p := range out {
		size := base
		if p < rem {
			size++
		}
		out[p] = Slice{First: first, Last: first + size}
		first += size
	}
	return out
}

// workerPanic carries a panic value out of a worker goroutine.
type workerPanic struct {
	value any
}

func (p *workerPanic) Error() string {
	return fmt.Sprintf("parallel: worker panicked: %v", p.value)
}

// Run calls fn once per slice of Split(n, parts), concurrently, and returns
// after every call has finished. A panic in any worker is re-raised on the
// calling goroutine after the join.
func Run(n, parts int, fn func(first, last int)) {
	slices := Split(n, parts)
	if len(slices) == 1 {
		fn(slices[0].First, slices[0].Last)
		return
	}

	var g errgroup.Group
	g.SetLimit(len(slices))
	for _, s := range slices {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &workerPanic{value: r}
				}
			}()
			fn(s.First, s.Last)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var p *workerPanic
		if errors.As(err, &p) {
			panic(p.value)
		}
		panic(err)
	}
}
