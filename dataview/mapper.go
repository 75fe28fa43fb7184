package dataview

import (
	"github.com/brimdata/zml"
)

// RowMapper computes new columns from the columns of an input row.
type RowMapper interface {
	// OutputColumns returns the columns the mapper appends to its input.
	OutputColumns() []zml.Column
	// Dependencies returns the predicate over input columns that must be
	// active to compute the outputs selected by active, which is indexed
	// by position in OutputColumns.
	Dependencies(active func(out int) bool) func(in int) bool
	// Getter returns the zml.Getter of output column out.  It is called
	// once per cursor, and the returned getter reads from input at its
	// current row.
	Getter(input Row, out int) (any, error)
}

// MapperView is the DataView of an input view with the columns of a
// RowMapper appended.  Creating it reads no data.
type MapperView struct {
	input  DataView
	mapper RowMapper
	schema *zml.Schema
}

var _ DataView = (*MapperView)(nil)

func NewMapperView(input DataView, mapper RowMapper) *MapperView {
	return &MapperView{
		input:  input,
		mapper: mapper,
		schema: zml.AppendColumns(input.Schema(), mapper.OutputColumns()...),
	}
}

func (m *MapperView) Schema() *zml.Schema {
	return m.schema
}

func (m *MapperView) Input() DataView {
	return m.input
}

func (m *MapperView) RowCount() int64 {
	return m.input.RowCount()
}

func (m *MapperView) Cursor(active func(int) bool) (Cursor, error) {
	nin := m.input.Schema().Len()
	outActive := func(out int) bool { return active(nin + out) }
	deps := m.mapper.Dependencies(outActive)
	upstream, err := m.input.Cursor(func(col int) bool {
		return active(col) || deps(col)
	})
	if err != nil {
		return nil, err
	}
	c := &mapperCursor{
		Cursor:  upstream,
		schema:  m.schema,
		nin:     nin,
		active:  active,
		getters: make([]any, m.schema.Len()-nin),
	}
	for k := range c.getters {
		if !outActive(k) {
			continue
		}
		g, err := m.mapper.Getter(upstream, k)
		if err != nil {
			upstream.Close()
			return nil, err
		}
		c.getters[k] = g
	}
	return c, nil
}

// mapperCursor forwards MoveNext to its upstream cursor.  Getters of output
// columns were bound once against the upstream cursor.
type mapperCursor struct {
	Cursor
	schema  *zml.Schema
	nin     int
	active  func(int) bool
	getters []any
}

func (c *mapperCursor) Schema() *zml.Schema {
	return c.schema
}

func (c *mapperCursor) IsColumnActive(col int) bool {
	if col < c.nin {
		return col >= 0 && c.active(col)
	}
	col -= c.nin
	return col < len(c.getters) && c.getters[col] != nil
}

func (c *mapperCursor) Getter(col int) (any, error) {
	if err := checkColumn(c.schema, col, c.IsColumnActive(col)); err != nil {
		return nil, err
	}
	if col < c.nin {
		return c.Cursor.Getter(col)
	}
	return c.getters[col-c.nin], nil
}
