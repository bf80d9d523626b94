package counters

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncGetReset(t *testing.T) {
	Reset()
	assert.Zero(t, Get("test:missing"))

	Inc("test:a")
	Inc("test:a")
	Inc("test:b")
	assert.Equal(t, int64(2), Get("test:a"))
	assert.Equal(t, int64(1), Get("test:b"))

	snap := Snapshot()
	assert.Equal(t, []Entry{{"test:a", 2}, {"test:b", 1}}, snap)

	Reset()
	assert.Zero(t, Get("test:a"))
	assert.Empty(t, Snapshot())
}

func TestConcurrentInc(t *testing.T) {
	Reset()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				Inc("test:concurrent")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(8000), Get("test:concurrent"))
}
