package tensor

import (
	"fmt"
	"strings"
)

// Shape describes the dimensions of a tensor, outermost first.
type Shape []int

// NumElements returns the total number of elements a tensor of this
// shape holds. An empty shape describes a scalar and returns 1.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i, dim := range s {
		if dim != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the shape.
func (s Shape) Clone() Shape {
	out := make(Shape, len(s))
	copy(out, s)
	return out
}

// Valid reports whether every dimension is positive.
func (s Shape) Valid() bool {
	for _, dim := range s {
		if dim <= 0 {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = fmt.Sprintf("%d", dim)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
