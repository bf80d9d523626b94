package tensor

import (
	"context"
	"fmt"

	"github.com/born-ml/etl/internal/backend"
	"github.com/born-ml/etl/internal/simd"
	"github.com/born-ml/etl/internal/traits"
)

// Dense is a materialized, contiguous container.
//
// Containers created by New and FromSlice round their allocation up to a
// multiple of the widest vector register and start with a zeroed pad, so
// vectorized loops may run past the last element. Containers created by
// Wrap use caller memory as is and are not padded.
//
// A Dense may also hold a device buffer; see Coherency. Views created by
// Slice and Reshape share the buffer and the coherency state with the
// container they view.
type Dense[T Number] struct {
	mem    []T // includes the pad
	n      int
	dims   Shape
	order  traits.Order
	padded bool
	window bool // a Slice view of part of st

	st *storage[T]
}

// storage is the host memory and device state shared by a container and
// its views.
type storage[T Number] struct {
	mem   []T
	n     int
	dev   backend.Device
	buf   backend.Buffer
	state Coherency
}

func newStorage[T Number](mem []T, n int) *storage[T] {
	return &storage[T]{mem: mem, n: n}
}

// Option configures a new container.
type Option func(*options)

type options struct {
	order traits.Order
}

// WithOrder sets the storage order. The default is row-major.
func WithOrder(o traits.Order) Option {
	return func(opts *options) {
		opts.order = o
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates a zero-filled padded container.
// It panics if the shape has a negative dimension.
func New[T Number](shape Shape, opts ...Option) *Dense[T] {
	if err := shape.Validate(); err != nil {
		panic(err)
	}
	o := buildOptions(opts)
	n := shape.NumElements()
	mem := make([]T, simd.RoundUp(n, padLanes[T]()))
	return &Dense[T]{
		mem:    mem,
		n:      n,
		dims:   shape.Clone(),
		order:  o.order,
		padded: true,
		st:     newStorage(mem, n),
	}
}

// FromSlice creates a padded container holding a copy of data.
// Data is interpreted in the container's storage order.
func FromSlice[T Number](data []T, shape Shape, opts ...Option) (*Dense[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	d := New[T](shape, opts...)
	copy(d.mem, data)
	return d, nil
}

// Full creates a padded container with every element set to v.
func Full[T Number](shape Shape, v T, opts ...Option) *Dense[T] {
	d := New[T](shape, opts...)
	d.Fill(v)
	return d
}

// Wrap creates a container over caller memory without copying.
// The container is not padded; len(mem) must equal the shape's element count.
func Wrap[T Number](mem []T, shape Shape, opts ...Option) (*Dense[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(mem) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(mem))
	}
	o := buildOptions(opts)
	mem = mem[:len(mem):len(mem)]
	return &Dense[T]{
		mem:   mem,
		n:     len(mem),
		dims:  shape.Clone(),
		order: o.order,
		st:    newStorage(mem, len(mem)),
	}, nil
}

// Traits returns the container's capabilities.
func (d *Dense[T]) Traits() traits.Traits {
	elem := traits.ElemOf[T]()
	t := traits.Traits{
		Direct:     true,
		Order:      d.order,
		Accel:      elem.Kind == traits.Float && !d.window,
		ThreadSafe: true,
		Padded:     d.padded,
		Dims:       len(d.dims),
	}
	if elem.Vectorizable() {
		t.Vector = traits.AllModes
	}
	return t
}

// Size returns the number of elements.
func (d *Dense[T]) Size() int { return d.n }

// Dims returns the shape.
func (d *Dense[T]) Dims() Shape { return d.dims }

// Dim returns the extent of dimension i.
func (d *Dense[T]) Dim(i int) int { return d.dims[i] }

// Order returns the storage order.
func (d *Dense[T]) Order() traits.Order { return d.order }

// ReadFlat returns the element at flat position i.
func (d *Dense[T]) ReadFlat(i int) T { return d.mem[i] }

// Set writes the element at flat position i.
func (d *Dense[T]) Set(i int, v T) { d.mem[i] = v }

// At returns the element at the multi-index idx.
func (d *Dense[T]) At(idx ...int) T {
	d.EnsureHost()
	return d.mem[d.dims.Offset(d.order, idx...)]
}

// SetAt writes v at the multi-index idx and invalidates the device copy.
func (d *Dense[T]) SetAt(v T, idx ...int) {
	d.EnsureHost()
	d.mem[d.dims.Offset(d.order, idx...)] = v
	d.ValidateHost()
}

// Fill sets every element to v and invalidates the device copy.
func (d *Dense[T]) Fill(v T) {
	for i := 0; i < d.n; i++ {
		d.mem[i] = v
	}
	d.ValidateHost()
}

// Memory returns the host elements without the pad.
// It does not synchronize; see Data.
func (d *Dense[T]) Memory() []T { return d.mem[:d.n] }

// Padded returns the host elements including the pad.
func (d *Dense[T]) Padded() []T { return d.mem }

// Data returns the host elements, downloading them from the device first if needed.
func (d *Dense[T]) Data() []T {
	d.EnsureHost()
	return d.mem[:d.n]
}

// Load reads w lanes starting at i.
func (d *Dense[T]) Load(i, w int) simd.Vec[T] { return simd.Load(d.mem, i, w) }

// Store writes w lanes starting at i.
func (d *Dense[T]) Store(v simd.Vec[T], i, w int) { simd.Store(d.mem, i, w, &v) }

// Stream writes w lanes starting at i, bypassing the cache where supported.
func (d *Dense[T]) Stream(v simd.Vec[T], i, w int) { simd.Store(d.mem, i, w, &v) }

// Region returns the address range of the backing memory, pad included.
func (d *Dense[T]) Region() Region { return RegionOf(d.mem) }

// Alias reports whether the backing memory overlaps r.
func (d *Dense[T]) Alias(r Region) bool { return d.Region().Overlaps(r) }

// Visit is a no-op; containers are always materialized.
func (d *Dense[T]) Visit(context.Context) {}

// Slice returns a non-padded container viewing the flat range [first, last).
// The view is one-dimensional and shares host memory and coherency state
// with d. A view of part of d has no device access of its own.
func (d *Dense[T]) Slice(first, last int) *Dense[T] {
	if first < 0 || last > d.n || first > last {
		panic(fmt.Sprintf("slice: range [%d, %d) out of bounds for size %d", first, last, d.n))
	}
	return &Dense[T]{
		mem:    d.mem[first:last:last],
		n:      last - first,
		dims:   Shape{last - first},
		order:  d.order,
		window: d.window || first != 0 || last != d.n,
		st:     d.st,
	}
}

// Reshape returns a container sharing host memory and coherency state with
// d under a new shape.
func (d *Dense[T]) Reshape(shape Shape) *Dense[T] {
	if shape.NumElements() != d.n {
		panic(fmt.Sprintf("reshape: shape %v requires %d elements, but size is %d", shape, shape.NumElements(), d.n))
	}
	return &Dense[T]{
		mem:    d.mem,
		n:      d.n,
		dims:   shape.Clone(),
		order:  d.order,
		padded: d.padded,
		window: d.window,
		st:     d.st,
	}
}

// String returns a short description such as "Dense[float32](2x3, row-major)".
func (d *Dense[T]) String() string {
	dims := ""
	for i, v := range d.dims {
		if i > 0 {
			dims += "x"
		}
		dims += fmt.Sprint(v)
	}
	return fmt.Sprintf("Dense[%s](%s, %s)", traits.ElemOf[T](), dims, d.order)
}
