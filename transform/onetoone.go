package transform

import (
	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/zqe"
)

// ColumnPair names the input column of a one-to-one transform and the
// output column computed from it.
type ColumnPair struct {
	Output string
	Input  string
}

// Pair returns the pair for output and input.  An empty input names the
// column output itself, which the output then replaces.
func Pair(output, input string) ColumnPair {
	if input == "" {
		input = output
	}
	return ColumnPair{Output: output, Input: input}
}

// SameNames returns pairs that replace each named column.
func SameNames(names ...string) []ColumnPair {
	pairs := make([]ColumnPair, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, Pair(name, name))
	}
	return pairs
}

// CheckPairs checks that there is at least one pair, names are not empty
// and no two pairs share an output.
func CheckPairs(pairs []ColumnPair) error {
	if len(pairs) == 0 {
		return zqe.E(zqe.Invalid, "no columns")
	}
	seen := make(map[string]bool)
	for _, p := range pairs {
		if p.Output == "" || p.Input == "" {
			return zqe.E(zqe.Invalid, "column pair with empty name")
		}
		if seen[p.Output] {
			return zqe.E(zqe.Duplicate, "output column '%s' appears more than once", p.Output)
		}
		seen[p.Output] = true
	}
	return nil
}

// CheckInputColumn finds the input column name in schema and checks its
// type with accept.  The error names the column and expected, a description
// of the accepted types.
func CheckInputColumn(schema *zml.Schema, name, expected string, accept func(zml.Type) bool) (int, error) {
	k, err := schema.Find("input", name)
	if err != nil {
		return -1, err
	}
	if typ := schema.ColumnType(k); !accept(typ) {
		return -1, zqe.ErrSchemaMismatch("input", name, expected, typ.String())
	}
	return k, nil
}

// CheckInputShape is the shape analog of CheckInputColumn.
func CheckInputShape(shape *zml.Shape, name, expected string, accept func(zml.ShapeColumn) bool) (zml.ShapeColumn, error) {
	c, ok := shape.Find(name)
	if !ok {
		return c, zqe.ErrMissingColumn("input", name, shape.Names())
	}
	if !accept(c) {
		return c, zqe.ErrSchemaMismatch("input", name, expected, c.TypeString())
	}
	return c, nil
}

func WritePairs(w *model.Writer, pairs []ColumnPair) {
	w.Begin()
	w.Uint(uint64(len(pairs)))
	for _, p := range pairs {
		w.String(p.Output)
		w.String(p.Input)
	}
	w.End()
}

func ReadPairs(r *model.Reader) ([]ColumnPair, error) {
	r.Begin()
	n := r.Len()
	pairs := make([]ColumnPair, 0, n)
	for k := 0; k < n; k++ {
		pairs = append(pairs, ColumnPair{Output: r.String(), Input: r.String()})
	}
	r.End()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if err := CheckPairs(pairs); err != nil {
		return nil, zqe.E(zqe.Decode, err)
	}
	return pairs, nil
}

// ColumnMapper is a RowMapper whose every output column is computed from
// one input column.
type ColumnMapper struct {
	columns []zml.Column
	inputs  []int
	getters []func(dataview.Row) (any, error)
}

var _ dataview.RowMapper = (*ColumnMapper)(nil)

// Add appends an output column computed from input column in.  Bind is
// called once per cursor with the upstream row and returns the output
// column's getter.
func (m *ColumnMapper) Add(col zml.Column, in int, bind func(dataview.Row) (any, error)) {
	m.columns = append(m.columns, col)
	m.inputs = append(m.inputs, in)
	m.getters = append(m.getters, bind)
}

func (m *ColumnMapper) OutputColumns() []zml.Column {
	return m.columns
}

func (m *ColumnMapper) Dependencies(active func(int) bool) func(int) bool {
	var deps []int
	for k, in := range m.inputs {
		if active(k) {
			deps = append(deps, in)
		}
	}
	return dataview.Only(deps...)
}

func (m *ColumnMapper) Getter(input dataview.Row, out int) (any, error) {
	return m.getters[out](input)
}

// MapperFunc returns the row mapper of a transformer for input of the given
// schema, checking the schema as it does.
type MapperFunc func(input *zml.Schema) (dataview.RowMapper, error)

// MapSchema returns the output schema of the mapper built by fn.
func MapSchema(input *zml.Schema, fn MapperFunc) (*zml.Schema, error) {
	m, err := fn(input)
	if err != nil {
		return nil, err
	}
	return zml.AppendColumns(input, m.OutputColumns()...), nil
}

// MapView returns the view of input with the columns of the mapper built
// by fn appended.
func MapView(input dataview.DataView, fn MapperFunc) (dataview.DataView, error) {
	m, err := fn(input.Schema())
	if err != nil {
		return nil, err
	}
	return dataview.NewMapperView(input, m), nil
}
