package zml

import (
	"fmt"
	"strings"
)

// TypeVector is the type of a fixed or variable length vector column.  Item
// is a primitive or key type.  Dims holds the size of each dimension; a zero
// dimension makes the vector variable length.
type TypeVector struct {
	Item Type
	Dims []int
}

// NewTypeVector returns a vector type.  With no dims, the vector is
// one-dimensional and of variable length.  It panics if item is itself a
// vector or an image or if a dimension is negative.
func NewTypeVector(item Type, dims ...int) *TypeVector {
	switch item.(type) {
	case *TypePrimitive, *TypeKey:
	default:
		panic(fmt.Sprintf("vector item type must be primitive or key: %s", item))
	}
	if len(dims) == 0 {
		dims = []int{0}
	}
	for _, d := range dims {
		if d < 0 {
			panic(fmt.Sprintf("negative vector dimension %d", d))
		}
	}
	return &TypeVector{Item: item, Dims: append([]int(nil), dims...)}
}

func (t *TypeVector) ID() int {
	return IDVector
}

func (t *TypeVector) String() string {
	var b strings.Builder
	b.WriteString("vector<")
	b.WriteString(t.Item.String())
	for _, d := range t.Dims {
		b.WriteByte(',')
		b.WriteString(itoaOrStar(d))
	}
	b.WriteByte('>')
	return b.String()
}

// Size returns the product of the dimensions or 0 if any is unknown.
func (t *TypeVector) Size() int {
	size := 1
	for _, d := range t.Dims {
		size *= d
	}
	return size
}

// IsKnownSize returns true if every dimension is known.
func (t *TypeVector) IsKnownSize() bool {
	return t.Size() > 0
}
