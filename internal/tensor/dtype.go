// Package tensor provides the containers evaluated by the expression engine.
package tensor

import "github.com/born-ml/etl/internal/traits"

// Number is the set of supported element types.
type Number = traits.Number

// Real is the subset of Number without complex types.
type Real interface {
	int8 | int16 | int32 | int64 | int |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

// Float is the set of real floating-point element types.
type Float interface {
	float32 | float64
}

// padLanes returns the element count of the widest vector register for T.
func padLanes[T Number]() int {
	return traits.MaxVectorBytes / traits.ElemOf[T]().Size
}
