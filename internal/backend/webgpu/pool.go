//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// maxPooled is the number of idle buffers kept per size class.
const maxPooled = 64

// pool recycles storage buffers by power-of-two size class.
type pool struct {
	device *wgpu.Device

	mu    sync.Mutex
	idle  map[uint64][]*wgpu.Buffer
	hits  uint64
	miss  uint64
	alive int
}

func newPool(device *wgpu.Device) *pool {
	return &pool{device: device, idle: make(map[uint64][]*wgpu.Buffer)}
}

// sizeClass rounds size up to a power of two, at least 16 bytes.
func sizeClass(size uint64) uint64 {
	c := uint64(16)
	for c < size {
		c <<= 1
	}
	return c
}

// acquire returns a storage buffer of at least size bytes.
func (p *pool) acquire(size uint64) *wgpu.Buffer {
	class := sizeClass(size)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.alive++
	if bufs := p.idle[class]; len(bufs) > 0 {
		p.hits++
		buf := bufs[len(bufs)-1]
		p.idle[class] = bufs[:len(bufs)-1]
		return buf
	}
	p.miss++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  class,
	})
}

// release returns buf to its size class, or frees it when the class is full.
func (p *pool) release(buf *wgpu.Buffer, size uint64) {
	class := sizeClass(size)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.alive--
	if len(p.idle[class]) >= maxPooled {
		buf.Release()
		return
	}
	p.idle[class] = append(p.idle[class], buf)
}

// clear frees every idle buffer.
func (p *pool) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for class, bufs := range p.idle {
		for _, buf := range bufs {
			buf.Release()
		}
		delete(p.idle, class)
	}
}
