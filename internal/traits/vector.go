package traits

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/cpu"
)

// VectorMode is a SIMD instruction-set tier.
type VectorMode uint8

// Vector tiers, from no vectorization to the widest registers.
const (
	NoVector VectorMode = iota
	SSE3
	NEON
	AVX
	AVX512
)

// MaxVectorBytes is the widest lane width of any tier.
// Padded containers round their allocation up to this many bytes.
const MaxVectorBytes = 64

// preference lists tiers from widest to narrowest.
var preference = [...]VectorMode{AVX512, AVX, SSE3, NEON}

// Bytes returns the register width of the tier in bytes.
func (m VectorMode) Bytes() int {
	switch m {
	case SSE3, NEON:
		return 16
	case AVX:
		return 32
	case AVX512:
		return 64
	default:
		return 0
	}
}

// Lanes returns the number of elements of e processed per vector operation.
// It returns 0 when e has no lane representation or m is NoVector.
func (m VectorMode) Lanes(e Elem) int {
	if !e.Vectorizable() || e.Size == 0 {
		return 0
	}
	return m.Bytes() / e.Size
}

// String returns the tier name.
func (m VectorMode) String() string {
	switch m {
	case SSE3:
		return "sse3"
	case NEON:
		return "neon"
	case AVX:
		return "avx"
	case AVX512:
		return "avx512"
	default:
		return "none"
	}
}

// ParseVectorMode parses a tier name as printed by VectorMode.String.
func ParseVectorMode(s string) (VectorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return NoVector, nil
	case "sse3", "sse":
		return SSE3, nil
	case "neon":
		return NEON, nil
	case "avx", "avx2":
		return AVX, nil
	case "avx512":
		return AVX512, nil
	default:
		return NoVector, errors.Errorf("unknown vector mode %q", s)
	}
}

// ModeSet is a set of vector tiers.
type ModeSet uint8

// AllModes contains every tier.
const AllModes = ModeSet(1<<SSE3 | 1<<NEON | 1<<AVX | 1<<AVX512)

// Modes builds a set from the given tiers.
func Modes(ms ...VectorMode) ModeSet {
	var s ModeSet
	for _, m := range ms {
		if m != NoVector {
			s |= 1 << m
		}
	}
	return s
}

// Has reports whether m is in the set.
func (s ModeSet) Has(m VectorMode) bool {
	return m != NoVector && s&(1<<m) != 0
}

// And returns the intersection of two sets.
func (s ModeSet) And(o ModeSet) ModeSet {
	return s & o
}

// Widest returns the widest tier of the set, or NoVector when empty.
func (s ModeSet) Widest() VectorMode {
	for _, m := range preference {
		if s.Has(m) {
			return m
		}
	}
	return NoVector
}

// UpTo returns the tiers of s whose width does not exceed limit.
func (s ModeSet) UpTo(limit VectorMode) ModeSet {
	var out ModeSet
	for _, m := range preference {
		if s.Has(m) && m.Bytes() <= limit.Bytes() {
			out |= 1 << m
		}
	}
	return out
}

// List returns the tiers of the set from widest to narrowest.
func (s ModeSet) List() []VectorMode {
	var out []VectorMode
	for _, m := range preference {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

// String returns the tiers joined by commas.
func (s ModeSet) String() string {
	list := s.List()
	if len(list) == 0 {
		return "none"
	}
	names := make([]string, len(list))
	for i, m := range list {
		names[i] = m.String()
	}
	return strings.Join(names, ",")
}

var detected = sync.OnceValue(func() ModeSet {
	var s ModeSet
	if cpu.X86.HasSSE3 {
		s |= 1 << SSE3
	}
	if cpu.X86.HasAVX {
		s |= 1 << AVX
	}
	if cpu.X86.HasAVX512F {
		s |= 1 << AVX512
	}
	if cpu.ARM64.HasASIMD {
		s |= 1 << NEON
	}
	return s
})

// Detect returns the tiers supported by the running CPU.
func Detect() ModeSet {
	return detected()
}
