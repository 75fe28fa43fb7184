package zml

import (
	"fmt"

	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
	"golang.org/x/exp/slices"
)

// A Getter fills dst with the current value of a column or metadata entry.
// Getters of vector values may reuse the storage already in dst.
type Getter[T any] func(dst *T) error

// Well-known metadata kinds.
const (
	// SlotNames is a text vector naming each slot of a known-size vector
	// column.
	SlotNames = "SlotNames"
	// IsNormalized is a bool marking a column as normalized.
	IsNormalized = "IsNormalized"
	// KeyValues is a vector, of the key's cardinality, of the original
	// values a key column's categories denote.
	KeyValues = "KeyValues"
	// CategoricalSlotRanges is an int32 vector of inclusive [min,max] slot
	// pairs, each the one-hot slots of a single categorical input.
	CategoricalSlotRanges = "CategoricalSlotRanges"
)

// MetadataEntry is one typed metadata value attached to a column.  Get holds
// a Getter of the raw type of Type.
type MetadataEntry struct {
	Kind string
	Type Type
	Get  any
}

// Metadata is the ordered set of metadata entries of a column.  Kinds are
// unique within a Metadata.
type Metadata struct {
	entries []MetadataEntry
}

// Kinds returns the metadata kinds in order.
func (m *Metadata) Kinds() []string {
	if m == nil {
		return nil
	}
	kinds := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// Len returns the number of entries.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Entry returns the entry for kind or false.
func (m *Metadata) Entry(kind string) (MetadataEntry, bool) {
	if m != nil {
		for _, e := range m.entries {
			if e.Kind == kind {
				return e, true
			}
		}
	}
	return MetadataEntry{}, false
}

// Entries returns the entries in order.  The slice must not be modified.
func (m *Metadata) Entries() []MetadataEntry {
	if m == nil {
		return nil
	}
	return m.entries
}

// TypeOf returns the type of the metadata kind or nil.
func (m *Metadata) TypeOf(kind string) Type {
	e, ok := m.Entry(kind)
	if !ok {
		return nil
	}
	return e.Type
}

// GetMetadata reads the metadata value of the given kind into dst.  It
// returns a NotFound error if the kind is absent and an UnsupportedType
// error if T is not the raw type of the entry.
func GetMetadata[T any](m *Metadata, kind string, dst *T) error {
	e, ok := m.Entry(kind)
	if !ok {
		return zqe.E(zqe.NotFound, "no %s metadata", kind)
	}
	switch get := e.Get.(type) {
	case Getter[T]:
		return get(dst)
	case func(*T) error:
		return get(dst)
	}
	return zqe.E(zqe.UnsupportedType, "%s metadata of type %s cannot be read as %T", kind, e.Type, *dst)
}

// MetadataBuilder accumulates metadata entries.  A later Add of the same kind
// replaces the earlier entry in place.
type MetadataBuilder struct {
	entries []MetadataEntry
}

// Add adds an entry with a getter of the raw type of typ.
func (b *MetadataBuilder) Add(kind string, typ Type, get any) *MetadataBuilder {
	e := MetadataEntry{Kind: kind, Type: typ, Get: get}
	for k := range b.entries {
		if b.entries[k].Kind == kind {
			b.entries[k] = e
			return b
		}
	}
	b.entries = append(b.entries, e)
	return b
}

// AddSlotNames adds SlotNames metadata for a vector of len(names) slots.
func (b *MetadataBuilder) AddSlotNames(names []string) *MetadataBuilder {
	names = append([]string(nil), names...)
	typ := NewTypeVector(TypeText, len(names))
	return b.Add(SlotNames, typ, Getter[vbuf.VBuffer[string]](func(dst *vbuf.VBuffer[string]) error {
		e := vbuf.Edit(dst, len(names), len(names))
		copy(e.Values, names)
		e.Commit()
		return nil
	}))
}

// AddIsNormalized adds IsNormalized metadata with the value true.
func (b *MetadataBuilder) AddIsNormalized() *MetadataBuilder {
	return b.Add(IsNormalized, TypeBool, Getter[bool](func(dst *bool) error {
		*dst = true
		return nil
	}))
}

// AddKeyValues adds KeyValues metadata from a dense vector of values of the
// item type typ, which must be a primitive type whose raw type is T.
func AddKeyValues[T any](b *MetadataBuilder, typ Type, values []T) *MetadataBuilder {
	values = append([]T(nil), values...)
	vtyp := NewTypeVector(typ, len(values))
	return b.Add(KeyValues, vtyp, Getter[vbuf.VBuffer[T]](func(dst *vbuf.VBuffer[T]) error {
		e := vbuf.Edit(dst, len(values), len(values))
		copy(e.Values, values)
		e.Commit()
		return nil
	}))
}

// AddCategoricalSlotRanges adds CategoricalSlotRanges metadata from a list
// of inclusive slot ranges.
func (b *MetadataBuilder) AddCategoricalSlotRanges(ranges [][2]int32) *MetadataBuilder {
	flat := make([]int32, 0, 2*len(ranges))
	for _, r := range ranges {
		flat = append(flat, r[0], r[1])
	}
	typ := NewTypeVector(TypeInt32, len(flat))
	return b.Add(CategoricalSlotRanges, typ, Getter[vbuf.VBuffer[int32]](func(dst *vbuf.VBuffer[int32]) error {
		e := vbuf.Edit(dst, len(flat), len(flat))
		copy(e.Values, flat)
		e.Commit()
		return nil
	}))
}

// Copy adds the entries of src with the given kinds.  With no kinds, every
// entry is copied.
func (b *MetadataBuilder) Copy(src *Metadata, kinds ...string) *MetadataBuilder {
	for _, e := range src.Entries() {
		if len(kinds) == 0 || slices.Contains(kinds, e.Kind) {
			b.Add(e.Kind, e.Type, e.Get)
		}
	}
	return b
}

// Build returns the accumulated metadata or nil if there is none.
func (b *MetadataBuilder) Build() *Metadata {
	if len(b.entries) == 0 {
		return nil
	}
	return &Metadata{entries: append([]MetadataEntry(nil), b.entries...)}
}

func (m *Metadata) String() string {
	return fmt.Sprint(m.Kinds())
}
