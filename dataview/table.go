package dataview

import (
	"fmt"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
)

// column is the in-memory storage of one column.
type column interface {
	len() int
	// bind returns a zml.Getter reading the row at p.
	bind(p *position) any
}

type scalarColumn[T any] []T

func (s scalarColumn[T]) len() int {
	return len(s)
}

func (s scalarColumn[T]) bind(p *position) any {
	return zml.Getter[T](func(dst *T) error {
		if err := p.check(); err != nil {
			return err
		}
		*dst = s[p.row]
		return nil
	})
}

// vectorColumn copies vectors into the caller's buffer so the caller never
// shares storage with the table.
type vectorColumn[T any] []vbuf.VBuffer[T]

func (v vectorColumn[T]) len() int {
	return len(v)
}

func (v vectorColumn[T]) bind(p *position) any {
	return zml.Getter[vbuf.VBuffer[T]](func(dst *vbuf.VBuffer[T]) error {
		if err := p.check(); err != nil {
			return err
		}
		v[p.row].CopyTo(dst)
		return nil
	})
}

// Table is a DataView over columns held in memory.
type Table struct {
	schema  *zml.Schema
	columns []column
	rows    int64
}

var _ DataView = (*Table)(nil)

func (t *Table) Schema() *zml.Schema {
	return t.schema
}

func (t *Table) RowCount() int64 {
	return t.rows
}

func (t *Table) Cursor(active func(int) bool) (Cursor, error) {
	return newTableCursor(t.schema, t.columns, t.rows, active), nil
}

type tableCursor struct {
	position
	schema  *zml.Schema
	rows    int64
	getters []any
}

// newTableCursor binds the active columns of columns, which may hold nil
// for inactive columns.
func newTableCursor(schema *zml.Schema, columns []column, rows int64, active func(int) bool) *tableCursor {
	c := &tableCursor{
		position: newPosition(),
		schema:   schema,
		rows:     rows,
		getters:  make([]any, len(columns)),
	}
	for k, col := range columns {
		if col != nil && active(k) {
			c.getters[k] = col.bind(&c.position)
		}
	}
	return c
}

func (c *tableCursor) Schema() *zml.Schema {
	return c.schema
}

func (c *tableCursor) IsColumnActive(col int) bool {
	return col >= 0 && col < len(c.getters) && c.getters[col] != nil
}

func (c *tableCursor) Getter(col int) (any, error) {
	if err := checkColumn(c.schema, col, c.IsColumnActive(col)); err != nil {
		return nil, err
	}
	return c.getters[col], nil
}

func (c *tableCursor) MoveNext() (bool, error) {
	if c.state == Done {
		return false, nil
	}
	return c.advance(c.row+1 < c.rows), nil
}

func (c *tableCursor) Close() error {
	c.state = Done
	return nil
}

// Builder accumulates columns for a Table.  The first error encountered is
// reported by Build.
type Builder struct {
	columns []zml.Column
	data    []column
	err     error
}

func NewBuilder() *Builder {
	return &Builder{}
}

// AddColumn adds a scalar column.  T must be the Go type of col.Type.
func AddColumn[T any](b *Builder, col zml.Column, values []T) *Builder {
	if b.err != nil {
		return b
	}
	if zml.IsVector(col.Type) {
		b.err = zqe.E(zqe.Invalid, "column '%s': use AddVectorColumn for vector type %s", col.Name, col.Type)
		return b
	}
	if err := zml.CheckRaw[T](col.Type); err != nil {
		b.err = fmt.Errorf("column '%s': %w", col.Name, err)
		return b
	}
	b.columns = append(b.columns, col)
	b.data = append(b.data, scalarColumn[T](values))
	return b
}

// AddVectorColumn adds a vector column.  Each value must be a valid vector
// whose length matches col.Type when the type has a known size.
func AddVectorColumn[T any](b *Builder, col zml.Column, values []vbuf.VBuffer[T]) *Builder {
	if b.err != nil {
		return b
	}
	if err := zml.CheckRaw[vbuf.VBuffer[T]](col.Type); err != nil {
		b.err = fmt.Errorf("column '%s': %w", col.Name, err)
		return b
	}
	size := zml.VectorSize(col.Type)
	for k := range values {
		if err := values[k].Validate(); err != nil {
			b.err = zqe.E(zqe.Invalid, "column '%s' row %d: %w", col.Name, k, err)
			return b
		}
		if size != 0 && values[k].Length != size {
			b.err = zqe.E(zqe.Invalid, "column '%s' row %d: vector length %d does not match type %s", col.Name, k, values[k].Length, col.Type)
			return b
		}
	}
	b.columns = append(b.columns, col)
	b.data = append(b.data, vectorColumn[T](values))
	return b
}

// Build returns the table.  All columns must have the same number of rows.
func (b *Builder) Build() (*Table, error) {
	if b.err != nil {
		return nil, b.err
	}
	schema, err := zml.NewSchema(b.columns...)
	if err != nil {
		return nil, err
	}
	var rows int64
	for k, c := range b.data {
		n := int64(c.len())
		if k == 0 {
			rows = n
		} else if n != rows {
			return nil, zqe.E(zqe.Invalid, "column '%s' has %d rows, expected %d", b.columns[k].Name, n, rows)
		}
	}
	return &Table{schema: schema, columns: b.data, rows: rows}, nil
}
