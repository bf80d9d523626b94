// Package counters keeps process-wide event counters for diagnostics and tests.
package counters

import (
	"sort"
	"sync"
	"sync/atomic"
)

var registry sync.Map // map[string]*atomic.Int64

func counter(name string) *atomic.Int64 {
	if c, ok := registry.Load(name); ok {
		return c.(*atomic.Int64)
	}
	c, _ := registry.LoadOrStore(name, new(atomic.Int64))
	return c.(*atomic.Int64)
}

// Inc increments the named counter.
func Inc(name string) {
	counter(name).Add(1)
}

// Get returns the value of the named counter.
func Get(name string) int64 {
	if c, ok := registry.Load(name); ok {
		return c.(*atomic.Int64).Load()
	}
	return 0
}

// Reset sets every counter back to zero.
func Reset() {
	registry.Range(func(_, v any) bool {
		v.(*atomic.Int64).Store(0)
		return true
	})
}

// Entry is a counter name and its value.
type Entry struct {
	Name  string
	Value int64
}

// Snapshot returns all non-zero counters sorted by name.
func Snapshot() []Entry {
	var out []Entry
	registry.Range(func(k, v any) bool {
		if n := v.(*atomic.Int64).Load(); n != 0 {
			out = append(out, Entry{Name: k.(string), Value: n})
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
