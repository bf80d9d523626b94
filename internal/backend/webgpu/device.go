//go:build windows

package webgpu

import (
	"encoding/binary"
	"math"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/traits"
)

// Device is a WebGPU accelerator.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu        sync.RWMutex
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	pool      *pool
	closed    bool
}

var _ backend.Device = (*Device)(nil)

// New opens the default high-performance adapter.
// It returns an error if WebGPU is not available.
func New() (dev *Device, err error) {
	// The bindings panic when the native library cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = errors.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, errors.Wrap(err, "webgpu: request adapter")
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, errors.Wrap(err, "webgpu: request device")
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, errors.New("webgpu: no queue")
	}

	return &Device{
		instance:  instance,
		adapter:   adapter,
		device:    device,
		queue:     queue,
		shaders:   make(map[string]*wgpu.ShaderModule),
		pipelines: make(map[string]*wgpu.ComputePipeline),
		pool:      newPool(device),
	}, nil
}

// IsAvailable reports whether a WebGPU device can be opened.
func IsAvailable() bool {
	dev, err := New()
	if err != nil {
		return false
	}
	_ = dev.Close()
	return true
}

type buffer struct {
	dev  *Device
	buf  *wgpu.Buffer
	n    int
	once sync.Once
}

func (b *buffer) Len() int { return b.n }

func (b *buffer) Elem() traits.Elem { return traits.ElemOf[float32]() }

func (b *buffer) Release() {
	b.once.Do(func() { b.dev.pool.release(b.buf, b.bytes()) })
}

func (b *buffer) bytes() uint64 {
	return uint64(b.n) * 4 //nolint:gosec // G115: n is non-negative
}

// Name returns "webgpu".
func (d *Device) Name() string { return "webgpu" }

// Supports reports whether e is float32.
func (d *Device) Supports(e traits.Elem) bool {
	return e == traits.ElemOf[float32]()
}

// Alloc allocates a zeroed buffer.
func (d *Device) Alloc(e traits.Elem, n int) (backend.Buffer, error) {
	if !d.Supports(e) {
		return nil, errors.Errorf("webgpu: unsupported element type %s", e)
	}
	if n < 0 {
		return nil, errors.Errorf("webgpu: invalid buffer length %d", n)
	}
	if d.isClosed() {
		return nil, errors.New("webgpu: device closed")
	}
	b := &buffer{dev: d, n: n}
	b.buf = d.pool.acquire(b.bytes())
	if n > 0 {
		d.fill(b, make([]byte, b.bytes()))
	}
	return b, nil
}

func (d *Device) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

func (d *Device) buf(name string, bufs ...backend.Buffer) ([]*buffer, error) {
	out := make([]*buffer, len(bufs))
	for i, bb := range bufs {
		b, ok := bb.(*buffer)
		if !ok || b.dev != d {
			return nil, errors.Errorf("webgpu: %s: buffer %d does not belong to this device", name, i)
		}
		out[i] = b
	}
	return out, nil
}

func sameLen(name string, bs []*buffer) error {
	for _, b := range bs[1:] {
		if b.n != bs[0].n {
			return errors.Errorf("webgpu: %s: buffers differ in length", name)
		}
	}
	return nil
}

// fill writes data into the start of b through a mapped staging buffer.
func (d *Device) fill(b *buffer, data []byte) {
	size := uint64(len(data))
	staging := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()

	ptr := staging.GetMappedRange(0, size)
	//nolint:gosec // G103: view of the mapped range
	copy(unsafe.Slice((*byte)(ptr), size), data)
	staging.Unmap()

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, b.buf, 0, size)
	d.queue.Submit(encoder.Finish(nil))
}

// Upload copies host bytes into dst.
func (d *Device) Upload(dst backend.Buffer, src []byte) error {
	bs, err := d.buf("upload", dst)
	if err != nil {
		return err
	}
	if uint64(len(src)) != bs[0].bytes() {
		return errors.Errorf("webgpu: upload: %d bytes into a %d byte buffer", len(src), bs[0].bytes())
	}
	if len(src) > 0 {
		d.fill(bs[0], src)
	}
	return nil
}

// Download copies src into host bytes.
func (d *Device) Download(dst []byte, src backend.Buffer) error {
	bs, err := d.buf("download", src)
	if err != nil {
		return err
	}
	size := bs[0].bytes()
	if uint64(len(dst)) != size {
		return errors.Errorf("webgpu: download: %d byte buffer into %d bytes", size, len(dst))
	}
	if size == 0 {
		return nil
	}

	staging := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(bs[0].buf, 0, staging, 0, size)
	d.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(d.device, wgpu.MapModeRead, 0, size); err != nil {
		return errors.Wrap(err, "webgpu: map staging buffer")
	}
	ptr := staging.GetMappedRange(0, size)
	//nolint:gosec // G103: view of the mapped range
	copy(dst, unsafe.Slice((*byte)(ptr), size))
	staging.Unmap()
	return nil
}

// Copy copies src into dst.
func (d *Device) Copy(dst, src backend.Buffer) error {
	return d.pair("copy", copyShader, 0, src, dst)
}

// Axpy computes y = alpha*x + y.
func (d *Device) Axpy(alpha float64, x, y backend.Buffer) error {
	return d.pair("axpy", axpyShader, alpha, x, y)
}

// Axmy computes y = alpha*x*y.
func (d *Device) Axmy(alpha float64, x, y backend.Buffer) error {
	return d.pair("axmy", axmyShader, alpha, x, y)
}

// Axdy computes y = y / (alpha*x).
func (d *Device) Axdy(alpha float64, x, y backend.Buffer) error {
	return d.pair("axdy", axdyShader, alpha, x, y)
}

// ScalarAdd computes y = y + v.
func (d *Device) ScalarAdd(y backend.Buffer, v float64) error {
	return d.self("scalar_add", scalarAddShader, v, y)
}

// Scal computes y = alpha*y.
func (d *Device) Scal(alpha float64, y backend.Buffer) error {
	return d.self("scal", scalShader, alpha, y)
}

func (d *Device) pair(name, code string, alpha float64, x, y backend.Buffer) error {
	bs, err := d.buf(name, x, y)
	if err != nil {
		return err
	}
	if err := sameLen(name, bs); err != nil {
		return err
	}
	return d.dispatchVector(name, code, alpha, bs...)
}

func (d *Device) self(name, code string, alpha float64, y backend.Buffer) error {
	bs, err := d.buf(name, y)
	if err != nil {
		return err
	}
	return d.dispatchVector(name, code, alpha, bs...)
}

func (d *Device) dispatchVector(name, code string, alpha float64, bs ...*buffer) error {
	n := bs[len(bs)-1].n
	if n == 0 {
		return nil
	}
	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(n)) //nolint:gosec // G115: n is non-negative
	binary.LittleEndian.PutUint32(params[4:8], math.Float32bits(float32(alpha)))

	groups := uint32((n + workgroupSize - 1) / workgroupSize) //nolint:gosec // G115: non-negative
	return d.dispatch(name, code, params, [3]uint32{groups, 1, 1}, bs...)
}

// Gemm computes c[m,n] = a[m,k] * b[k,n].
func (d *Device) Gemm(a, b, c backend.Buffer, m, k, n int) error {
	bs, err := d.buf("gemm", a, b, c)
	if err != nil {
		return err
	}
	if bs[0].n != m*k || bs[1].n != k*n || bs[2].n != m*n {
		return errors.Errorf("webgpu: gemm: buffer lengths do not match [%d,%d] x [%d,%d]", m, k, k, n)
	}
	if m == 0 || n == 0 {
		return nil
	}

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:4], uint32(m))  //nolint:gosec // G115: non-negative
	binary.LittleEndian.PutUint32(params[4:8], uint32(k))  //nolint:gosec // G115: non-negative
	binary.LittleEndian.PutUint32(params[8:12], uint32(n)) //nolint:gosec // G115: non-negative
	groups := [3]uint32{uint32((n + 15) / 16), uint32((m + 15) / 16), 1} //nolint:gosec // G115: non-negative
	return d.dispatch("gemm", gemmShader, params, groups, bs...)
}

// dispatch runs one compute pass of the named kernel with bs bound in order,
// followed by the uniform params.
func (d *Device) dispatch(name, code string, params []byte, groups [3]uint32, bs ...*buffer) error {
	if d.isClosed() {
		return errors.New("webgpu: device closed")
	}
	pipeline := d.pipeline(name, code)

	uniform := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             uint64(len(params)),
		MappedAtCreation: wgpu.True,
	})
	defer uniform.Release()
	ptr := uniform.GetMappedRange(0, uint64(len(params)))
	//nolint:gosec // G103: view of the mapped range
	copy(unsafe.Slice((*byte)(ptr), len(params)), params)
	uniform.Unmap()

	entries := make([]wgpu.BindGroupEntry, 0, len(bs)+1)
	for i, b := range bs {
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i), b.buf, 0, b.bytes())) //nolint:gosec // G115: small index
	}
	entries = append(entries, wgpu.BufferBindingEntry(uint32(len(bs)), uniform, 0, uint64(len(params)))) //nolint:gosec // G115: small index

	group := d.device.CreateBindGroupSimple(pipeline.GetBindGroupLayout(0), entries)
	if group == nil {
		return errors.Errorf("webgpu: %s: bind group creation failed", name)
	}
	defer group.Release()

	encoder := d.device.CreateCommandEncoder(nil)
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.DispatchWorkgroups(groups[0], groups[1], groups[2])
	pass.End()
	d.queue.Submit(encoder.Finish(nil))
	return nil
}

// pipeline returns the cached compute pipeline of a kernel, compiling it on first use.
func (d *Device) pipeline(name, code string) *wgpu.ComputePipeline {
	d.mu.RLock()
	p, ok := d.pipelines[name]
	d.mu.RUnlock()
	if ok {
		return p
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.pipelines[name]; ok {
		return p
	}
	shader := d.device.CreateShaderModuleWGSL(code)
	d.shaders[name] = shader
	p = d.device.CreateComputePipelineSimple(nil, shader, "main")
	d.pipelines[name] = p
	return p
}

// Close releases the device. Buffers still alive become unusable.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("webgpu: device already closed")
	}
	d.closed = true

	var err error
	if d.pool.alive > 0 {
		err = multierr.Append(err, errors.Errorf("webgpu: %d buffers still allocated", d.pool.alive))
	}
	d.pool.clear()
	for _, p := range d.pipelines {
		p.Release()
	}
	for _, s := range d.shaders {
		s.Release()
	}
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
	return err
}

// Stats returns the buffer pool hit and miss counts.
func (d *Device) Stats() (hits, misses uint64) {
	d.pool.mu.Lock()
	defer d.pool.mu.Unlock()
	return d.pool.hits, d.pool.miss
}
