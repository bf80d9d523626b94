package traits

import "strconv"

// Kind classifies element types.
type Kind uint8

// Element kinds.
const (
	Int Kind = iota
	Uint
	Float
	Complex
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float:
		return "float"
	case Complex:
		return "complex"
	default:
		return "unknown"
	}
}

// Elem is the static description of an element type.
type Elem struct {
	Kind Kind
	Size int // Size in bytes.
}

// ElemOf returns the element descriptor of T.
// T must be one of the built-in numeric types.
func ElemOf[T any]() Elem {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Elem{Int, 1}
	case int16:
		return Elem{Int, 2}
	case int32:
		return Elem{Int, 4}
	case int64:
		return Elem{Int, 8}
	case int:
		return Elem{Int, intSize}
	case uint8:
		return Elem{Uint, 1}
	case uint16:
		return Elem{Uint, 2}
	case uint32:
		return Elem{Uint, 4}
	case uint64:
		return Elem{Uint, 8}
	case float32:
		return Elem{Float, 4}
	case float64:
		return Elem{Float, 8}
	case complex64:
		return Elem{Complex, 8}
	case complex128:
		return Elem{Complex, 16}
	default:
		panic("traits: unsupported element type")
	}
}

const intSize = 32 << (^uint(0) >> 63) / 8

// Vectorizable reports whether the element type has a lane representation.
func (e Elem) Vectorizable() bool {
	switch e.Kind {
	case Float:
		return true
	case Complex:
		return true
	case Int:
		return e.Size == 4 || e.Size == 8
	default:
		return false
	}
}

// IsFloating reports whether the element is a real or complex floating-point type.
func (e Elem) IsFloating() bool {
	return e.Kind == Float || e.Kind == Complex
}

// String returns a short type name such as "float32" or "complex128".
func (e Elem) String() string {
	bits := e.Size * 8
	return e.Kind.String() + strconv.Itoa(bits)
}

// Number is the set of element types the engine evaluates.
type Number interface {
	int8 | int16 | int32 | int64 | int |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64 |
		complex64 | complex128
}
