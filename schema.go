package zml

import (
	"strings"

	"github.com/brimdata/zml/zqe"
)

// Column describes one column of a Schema.
type Column struct {
	Name     string
	Type     Type
	Metadata *Metadata
}

// Schema is the ordered, immutable list of columns of a data view.  Column
// indices are dense.  A name may appear more than once when a transform
// appends a column named like one of its inputs; Lookup then finds the last
// such column and the earlier ones are hidden.
type Schema struct {
	columns []Column
	byName  map[string]int
}

// NewSchema returns a schema of the given columns.  It returns a Duplicate
// error if two columns share a name.
func NewSchema(columns ...Column) (*Schema, error) {
	s := &Schema{
		columns: append([]Column(nil), columns...),
		byName:  make(map[string]int, len(columns)),
	}
	for k, c := range columns {
		if c.Type == nil {
			return nil, zqe.E(zqe.Invalid, "column '%s' has no type", c.Name)
		}
		if _, ok := s.byName[c.Name]; ok {
			return nil, zqe.E(zqe.Duplicate, "column '%s' appears more than once", c.Name)
		}
		s.byName[c.Name] = k
	}
	return s, nil
}

// MustNewSchema is like NewSchema but panics on error.
func MustNewSchema(columns ...Column) *Schema {
	s, err := NewSchema(columns...)
	if err != nil {
		panic(err)
	}
	return s
}

// AppendColumns returns a schema with the columns of base followed by cols.
// Base columns keep their indices.  An appended column whose name is already
// in use hides the earlier column of that name.
func AppendColumns(base *Schema, cols ...Column) *Schema {
	s := &Schema{
		columns: make([]Column, 0, base.Len()+len(cols)),
		byName:  make(map[string]int, base.Len()+len(cols)),
	}
	if base != nil {
		s.columns = append(s.columns, base.columns...)
		for name, k := range base.byName {
			s.byName[name] = k
		}
	}
	for _, c := range cols {
		s.byName[c.Name] = len(s.columns)
		s.columns = append(s.columns, c)
	}
	return s
}

// Len returns the number of columns, including hidden ones.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.columns)
}

// Column returns the column at index i.
func (s *Schema) Column(i int) Column {
	return s.columns[i]
}

// ColumnType returns the type of the column at index i.
func (s *Schema) ColumnType(i int) Type {
	return s.columns[i].Type
}

// Lookup returns the index of the visible column with the given name.
func (s *Schema) Lookup(name string) (int, bool) {
	k, ok := s.byName[name]
	return k, ok
}

// Find is like Lookup but returns a SchemaMismatch error naming the role of
// the column if it does not exist.
func (s *Schema) Find(role, name string) (int, error) {
	if k, ok := s.Lookup(name); ok {
		return k, nil
	}
	return -1, zqe.ErrMissingColumn(role, name, s.Names())
}

// IsHidden returns true if column i is shadowed by a later column of the
// same name.
func (s *Schema) IsHidden(i int) bool {
	return s.byName[s.columns[i].Name] != i
}

// MetadataKinds returns the metadata kinds of column i.
func (s *Schema) MetadataKinds(i int) []string {
	return s.columns[i].Metadata.Kinds()
}

// Names returns the names of the visible columns in index order.
func (s *Schema) Names() []string {
	var names []string
	for k, c := range s.columns {
		if !s.IsHidden(k) {
			names = append(names, c.Name)
		}
	}
	return names
}

func (s *Schema) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for k, c := range s.columns {
		if k > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		b.WriteByte(':')
		b.WriteString(c.Type.String())
		if s.IsHidden(k) {
			b.WriteString(" (hidden)")
		}
	}
	b.WriteByte('}')
	return b.String()
}

// GetColumnMetadata reads metadata of the given kind for column i.
func GetColumnMetadata[T any](s *Schema, i int, kind string, dst *T) error {
	return GetMetadata(s.columns[i].Metadata, kind, dst)
}
