package zml

import (
	"github.com/brimdata/zml/zqe"
)

// KindTable maps the raw primitive kind of a column to an implementation
// specialized for that kind.  It replaces per-row reflection: an operation
// instantiates a generic implementation once per kind it supports, registers
// each instantiation here, and looks up the right one when it binds to a
// column.
type KindTable[V any] struct {
	name  string
	impls [NumPrimitives]*V
}

// NewKindTable returns an empty table.  Name identifies the operation in
// errors.
func NewKindTable[V any](name string) *KindTable[V] {
	return &KindTable[V]{name: name}
}

// Add registers impl for the primitive kind id and returns the table.
func (k *KindTable[V]) Add(id int, impl V) *KindTable[V] {
	k.impls[id] = &impl
	return k
}

// Lookup returns the implementation for the raw kind of typ.  Keys dispatch
// on their base type and vectors on their item type.  It returns an
// UnsupportedType error if no implementation is registered.
func (k *KindTable[V]) Lookup(typ Type) (V, error) {
	id := RawID(typ)
	if id >= 0 && id < NumPrimitives {
		if impl := k.impls[id]; impl != nil {
			return *impl, nil
		}
	}
	var zero V
	return zero, zqe.E(zqe.UnsupportedType, "%s does not support type %s", k.name, typ)
}

// Supports returns true if an implementation exists for the raw kind of typ.
func (k *KindTable[V]) Supports(typ Type) bool {
	_, err := k.Lookup(typ)
	return err == nil
}

// Float is the set of Go types that store floating point primitive values.
type Float interface {
	~float32 | ~float64
}

// Unsigned is the set of Go types that store key values.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}
