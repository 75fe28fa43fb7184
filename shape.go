package zml

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// VectorKind tells a scalar column from a known-size or variable-size vector
// column.
type VectorKind int

const (
	Scalar VectorKind = iota
	Vector
	VariableVector
)

func (v VectorKind) String() string {
	switch v {
	case Scalar:
		return "scalar"
	case Vector:
		return "vector"
	case VariableVector:
		return "varvector"
	}
	return fmt.Sprintf("VectorKind(%d)", int(v))
}

// ShapeColumn is the data-independent description of a column.  ItemType is
// the primitive item type; for key columns it is the key's base type and
// IsKey is set, since the cardinality of a key produced by an estimator is not
// known until the estimator is fit.  Metadata describes the column's metadata
// entries, sorted by name, with the metadata kind as the name.
type ShapeColumn struct {
	Name     string
	Kind     VectorKind
	ItemType Type
	IsKey    bool
	Metadata []ShapeColumn
}

// Shape is the data-independent description of a schema: its visible
// columns in index order.  Estimators compute output shapes from input
// shapes so that a pipeline can be checked before any data is read.
type Shape struct {
	Columns []ShapeColumn
}

// ShapeOfColumn returns the shape of a schema column.
func ShapeOfColumn(c Column) ShapeColumn {
	sc := ShapeColumn{Name: c.Name}
	sc.Kind, sc.ItemType, sc.IsKey = shapeOfType(c.Type)
	for _, e := range c.Metadata.Entries() {
		m := ShapeColumn{Name: e.Kind}
		m.Kind, m.ItemType, m.IsKey = shapeOfType(e.Type)
		sc.Metadata = append(sc.Metadata, m)
	}
	sortShapeColumns(sc.Metadata)
	return sc
}

func shapeOfType(typ Type) (VectorKind, Type, bool) {
	kind := Scalar
	if v, ok := typ.(*TypeVector); ok {
		kind = VariableVector
		if v.IsKnownSize() {
			kind = Vector
		}
		typ = v.Item
	}
	if k, ok := typ.(*TypeKey); ok {
		return kind, LookupPrimitiveByID(k.Base), true
	}
	return kind, typ, false
}

// ShapeOf returns the shape of the visible columns of s.
func ShapeOf(s *Schema) *Shape {
	shape := &Shape{}
	for k := 0; k < s.Len(); k++ {
		if !s.IsHidden(k) {
			shape.Columns = append(shape.Columns, ShapeOfColumn(s.Column(k)))
		}
	}
	return shape
}

// Find returns the column with the given name.
func (s *Shape) Find(name string) (ShapeColumn, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ShapeColumn{}, false
}

// Names returns the column names in order.
func (s *Shape) Names() []string {
	names := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}
	return names
}

// With returns a copy of s in which cols replace any columns of the same
// names and are appended in order.  This mirrors how AppendColumns hides
// replaced columns so that shape and schema stay in the same order.
func (s *Shape) With(cols ...ShapeColumn) *Shape {
	out := &Shape{Columns: make([]ShapeColumn, 0, len(s.Columns)+len(cols))}
	for _, c := range s.Columns {
		if !containsName(cols, c.Name) {
			out.Columns = append(out.Columns, c)
		}
	}
	for k, c := range cols {
		if !containsName(cols[k+1:], c.Name) {
			out.Columns = append(out.Columns, c)
		}
	}
	return out
}

func containsName(cols []ShapeColumn, name string) bool {
	for _, c := range cols {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Equal compares shapes column by column, including metadata.
func (s *Shape) Equal(other *Shape) bool {
	if len(s.Columns) != len(other.Columns) {
		return false
	}
	for k := range s.Columns {
		if !s.Columns[k].Equal(other.Columns[k]) {
			return false
		}
	}
	return true
}

func (s *Shape) String() string {
	var parts []string
	for _, c := range s.Columns {
		parts = append(parts, c.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Equal compares columns by name, kind, item type and metadata shape.
func (c ShapeColumn) Equal(other ShapeColumn) bool {
	if c.Name != other.Name || !c.SameType(other) || len(c.Metadata) != len(other.Metadata) {
		return false
	}
	for k := range c.Metadata {
		if !c.Metadata[k].Equal(other.Metadata[k]) {
			return false
		}
	}
	return true
}

// SameType compares vector kind, item type and keyness.
func (c ShapeColumn) SameType(other ShapeColumn) bool {
	return c.Kind == other.Kind && c.IsKey == other.IsKey && Equal(c.ItemType, other.ItemType)
}

// IsCompatibleWith returns true if a column of shape c may be supplied where
// a column of shape other is expected: the types agree and c carries at
// least the metadata other does.
func (c ShapeColumn) IsCompatibleWith(other ShapeColumn) bool {
	if !c.SameType(other) {
		return false
	}
	for _, m := range other.Metadata {
		have, ok := c.FindMetadata(m.Name)
		if !ok || !have.SameType(m) {
			return false
		}
	}
	return true
}

// FindMetadata returns the metadata shape of the given kind.
func (c ShapeColumn) FindMetadata(kind string) (ShapeColumn, bool) {
	for _, m := range c.Metadata {
		if m.Name == kind {
			return m, true
		}
	}
	return ShapeColumn{}, false
}

// HasMetadata reports whether the column carries metadata of the given
// kind.
func (c ShapeColumn) HasMetadata(kind string) bool {
	_, ok := c.FindMetadata(kind)
	return ok
}

// TypeString returns the type part of String, e.g., "vector<key<uint32>>".
func (c ShapeColumn) TypeString() string {
	item := "<nil>"
	if c.ItemType != nil {
		item = c.ItemType.String()
	}
	if c.IsKey {
		item = "key<" + item + ">"
	}
	switch c.Kind {
	case Vector:
		return "vector<" + item + ">"
	case VariableVector:
		return "vector<" + item + ",*>"
	}
	return item
}

func (c ShapeColumn) String() string {
	return c.Name + ":" + c.TypeString()
}

// WithMetadata returns a copy of c with the given metadata shapes, which
// replace entries of the same name.
func (c ShapeColumn) WithMetadata(meta ...ShapeColumn) ShapeColumn {
	out := c
	out.Metadata = nil
	for _, m := range c.Metadata {
		if !containsName(meta, m.Name) {
			out.Metadata = append(out.Metadata, m)
		}
	}
	out.Metadata = append(out.Metadata, meta...)
	sortShapeColumns(out.Metadata)
	return out
}

// MetadataShape returns the shape of a metadata entry of the given kind and
// type.
func MetadataShape(kind string, typ Type) ShapeColumn {
	m := ShapeColumn{Name: kind}
	m.Kind, m.ItemType, m.IsKey = shapeOfType(typ)
	return m
}

// Well-known metadata shapes.
var (
	SlotNamesShape             = ShapeColumn{Name: SlotNames, Kind: Vector, ItemType: TypeText}
	IsNormalizedShape          = ShapeColumn{Name: IsNormalized, Kind: Scalar, ItemType: TypeBool}
	CategoricalSlotRangesShape = ShapeColumn{Name: CategoricalSlotRanges, Kind: Vector, ItemType: TypeInt32}
)

func sortShapeColumns(cols []ShapeColumn) {
	slices.SortFunc(cols, func(a, b ShapeColumn) bool {
		return a.Name < b.Name
	})
}
