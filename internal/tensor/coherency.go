package tensor

import (
	"fmt"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/traits"
)

// Coherency tells which copy of a container's elements is authoritative.
type Coherency uint8

// Coherency states.
const (
	HostValid Coherency = iota
	DeviceValid
	BothValid
)

// String returns the state name.
func (c Coherency) String() string {
	switch c {
	case HostValid:
		return "host"
	case DeviceValid:
		return "device"
	case BothValid:
		return "both"
	default:
		return "unknown"
	}
}

// Coherency returns the current state, shared with every view of the
// same storage.
func (d *Dense[T]) Coherency() Coherency { return d.st.state }

// Device returns the device holding the buffer, or nil.
// Slice views of part of a container always return nil.
func (d *Dense[T]) Device() backend.Device {
	if d.window {
		return nil
	}
	return d.st.dev
}

// DeviceBuffer returns the device buffer, or nil.
// Slice views of part of a container always return nil.
func (d *Dense[T]) DeviceBuffer() backend.Buffer {
	if d.window {
		return nil
	}
	return d.st.buf
}

// EnsureHost downloads the device copy if only the device is up to date.
func (d *Dense[T]) EnsureHost() { d.st.ensureHost() }

// EnsureDevice allocates a buffer on dev if needed and uploads the host copy
// if only the host is up to date.
func (d *Dense[T]) EnsureDevice(dev backend.Device) {
	d.EnsureDeviceAllocated(dev)
	st := d.st
	if st.state != HostValid {
		return
	}
	if err := dev.Upload(st.buf, st.hostBytes()); err != nil {
		panic(errors.Wrap(err, "tensor: upload"))
	}
	st.state = BothValid
}

// EnsureDeviceAllocated makes sure a buffer exists on dev without copying
// any data. A buffer held on another device is released after its contents
// are brought back to the host.
func (d *Dense[T]) EnsureDeviceAllocated(dev backend.Device) {
	d.mustOwnStorage("EnsureDeviceAllocated")
	st := d.st
	if st.buf != nil && st.dev == dev {
		return
	}
	if st.buf != nil {
		st.release()
	}
	buf, err := dev.Alloc(traits.ElemOf[T](), st.n)
	if err != nil {
		panic(errors.Wrap(err, "tensor: alloc"))
	}
	st.dev, st.buf = dev, buf
	st.state = HostValid
}

// ValidateHost records that the host copy was written.
func (d *Dense[T]) ValidateHost() { d.st.state = HostValid }

// ValidateDevice records that the device copy was written.
// It panics if the container has no device buffer.
func (d *Dense[T]) ValidateDevice() {
	d.mustOwnStorage("ValidateDevice")
	if d.st.buf == nil {
		panic("tensor: ValidateDevice without a device buffer")
	}
	d.st.state = DeviceValid
}

// ReleaseDevice brings the host copy up to date and frees the device buffer.
func (d *Dense[T]) ReleaseDevice() { d.st.release() }

func (d *Dense[T]) mustOwnStorage(op string) {
	if d.window {
		panic(fmt.Sprintf("tensor: %s on a slice view", op))
	}
}

func (st *storage[T]) ensureHost() {
	if st.state != DeviceValid {
		return
	}
	if err := st.dev.Download(st.hostBytes(), st.buf); err != nil {
		panic(errors.Wrap(err, "tensor: download"))
	}
	st.state = BothValid
}

func (st *storage[T]) release() {
	if st.buf == nil {
		return
	}
	st.ensureHost()
	st.buf.Release()
	st.dev, st.buf = nil, nil
	st.state = HostValid
}

func (st *storage[T]) hostBytes() []byte {
	if st.n == 0 {
		return nil
	}
	var zero T
	//nolint:gosec // G103: byte view of the container's own storage
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(st.mem))), st.n*int(unsafe.Sizeof(zero)))
}
