// Package traits describes the static capabilities of expressions and containers.
//
// A Traits value is a pure descriptor: it is fixed per node type (and the
// node's construction parameters) and never depends on element values. The
// evaluator combines the traits of a source and a destination to pick an
// execution strategy.
package traits

// Order is the storage order of a multi-dimensional operand.
type Order uint8

// Storage orders.
const (
	RowMajor Order = iota
	ColumnMajor
)

// String returns the order name.
func (o Order) String() string {
	if o == ColumnMajor {
		return "column-major"
	}
	return "row-major"
}

// Traits is the capability descriptor of an expression or container.
type Traits struct {
	Direct     bool    // Contiguous, materialized memory is available.
	Vector     ModeSet // Vector tiers supported by the node's lane reader.
	Order      Order   // Storage order of the flat index space.
	OrderFree  bool    // Flat reads do not depend on storage order (generators).
	Accel      bool    // Can be computed on an accelerator device.
	ThreadSafe bool    // Concurrent ReadFlat/Load calls on disjoint ranges are safe.
	Padded     bool    // Backing memory is padded to the lane-width multiple.
	Temporary  bool    // Node materializes itself into its own buffer.
	Generator  bool    // Node produces values without backing memory.
	Scalar     bool    // Node is a single broadcast value.
	Dims       int     // Number of dimensions.
}

// OrderCompatible reports whether src can be written into dst without
// reordering its flat index space.
func OrderCompatible(src, dst Traits) bool {
	return src.OrderFree || src.Order == dst.Order || (src.Dims <= 1 && dst.Dims <= 1)
}
