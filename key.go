package zml

import (
	"fmt"
	"math"
)

// TypeKey is the type of a categorical column.  Keys are stored as the
// unsigned integer type named by Base.  The value 0 means missing; when Count
// is known, valid keys are 1..Count and denote the categories Min..Min+Count-1.
// A Count of 0 means the cardinality is unknown.
type TypeKey struct {
	Base       int
	Min        uint64
	Count      int
	Contiguous bool
}

// NewTypeKey returns the contiguous key type over base with zero minimum and
// the given cardinality.  It panics if base is not an unsigned integer ID or
// count does not fit in it.
func NewTypeKey(base, count int) *TypeKey {
	t := &TypeKey{Base: base, Count: count, Contiguous: true}
	if err := t.Validate(); err != nil {
		panic(err)
	}
	return t
}

func (t *TypeKey) ID() int {
	return IDKey
}

func (t *TypeKey) String() string {
	return fmt.Sprintf("key<%s:%s>", primitives[t.Base].name, itoaOrStar(t.Count))
}

// IsKnownCardinality returns true if the number of categories is known.
func (t *TypeKey) IsKnownCardinality() bool {
	return t.Count > 0
}

// Validate checks the base type and cardinality.
func (t *TypeKey) Validate() error {
	max, ok := maxKey(t.Base)
	if !ok {
		return fmt.Errorf("key base type must be an unsigned integer: %d", t.Base)
	}
	if t.Count < 0 || uint64(t.Count) > max {
		return fmt.Errorf("key cardinality %d out of range for %s", t.Count, primitives[t.Base].name)
	}
	return nil
}

func maxKey(base int) (uint64, bool) {
	switch base {
	case IDUint8:
		return math.MaxUint8, true
	case IDUint16:
		return math.MaxUint16, true
	case IDUint32:
		return math.MaxUint32, true
	case IDUint64:
		return math.MaxInt64, true
	}
	return 0, false
}
