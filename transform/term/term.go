// Package term implements the estimator that builds a dictionary of the
// values of a column and the transformer that maps values to their keys in
// that dictionary.
//
// Output columns have type key<uint32:N>, where N is the number of terms, or
// a vector of such keys with the dimensions of the input vector.  Key k
// denotes the k-th term.  NA values and values that are not terms map to the
// missing key 0.  Each output carries KeyValues metadata listing the terms.
package term

import (
	"fmt"
	"math"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/zqe"
	"go.uber.org/zap"
)

// DefaultMaxKeys is the number of terms kept when ColumnOptions.MaxKeys is
// zero.
const DefaultMaxKeys = 1000000

// Sort orders the terms of a dictionary.
type Sort int

const (
	// ByOccurrence numbers terms in the order they are first seen.
	ByOccurrence Sort = iota
	// ByValue numbers terms in increasing value order.
	ByValue
)

func (s Sort) String() string {
	switch s {
	case ByOccurrence:
		return "occurrence"
	case ByValue:
		return "value"
	}
	return fmt.Sprintf("Sort(%d)", int(s))
}

// ParseSort returns the sort named by s.
func ParseSort(s string) (Sort, error) {
	for _, sort := range []Sort{ByOccurrence, ByValue} {
		if s == sort.String() {
			return sort, nil
		}
	}
	return 0, fmt.Errorf("unknown term sort %q", s)
}

// ColumnOptions configures the dictionary of one column.  An empty Input
// names the column Output, which the output then replaces.
type ColumnOptions struct {
	Output string
	Input  string
	// MaxKeys bounds the number of terms.  Values seen after the
	// dictionary is full are not terms.
	MaxKeys int
	Sort    Sort
}

func (c ColumnOptions) maxKeys() int {
	if c.MaxKeys == 0 {
		return DefaultMaxKeys
	}
	return c.MaxKeys
}

func acceptItem(typ zml.Type) bool {
	_, ok := zml.ItemType(typ).(*zml.TypePrimitive)
	return ok
}

func acceptShape(c zml.ShapeColumn) bool {
	_, ok := c.ItemType.(*zml.TypePrimitive)
	return ok && !c.IsKey
}

const expected = "primitive or vector of primitive"

// Estimator fits a Transformer with one dictionary per column.
type Estimator struct {
	columns []ColumnOptions
}

var _ transform.Estimator = (*Estimator)(nil)

func NewEstimator(columns ...ColumnOptions) (*Estimator, error) {
	pairs := make([]transform.ColumnPair, 0, len(columns))
	cols := make([]ColumnOptions, 0, len(columns))
	for _, c := range columns {
		p := transform.Pair(c.Output, c.Input)
		c.Input = p.Input
		if c.MaxKeys < 0 || c.MaxKeys > math.MaxInt32 {
			return nil, zqe.E(zqe.Invalid, "column '%s': max keys %d out of range", c.Output, c.MaxKeys)
		}
		if c.Sort != ByOccurrence && c.Sort != ByValue {
			return nil, zqe.E(zqe.Invalid, "column '%s': unknown sort %s", c.Output, c.Sort)
		}
		pairs = append(pairs, p)
		cols = append(cols, c)
	}
	if err := transform.CheckPairs(pairs); err != nil {
		return nil, err
	}
	return &Estimator{columns: cols}, nil
}

func (e *Estimator) OutputShape(input *zml.Shape) (*zml.Shape, error) {
	var cols []zml.ShapeColumn
	for _, c := range e.columns {
		in, err := transform.CheckInputShape(input, c.Input, expected, acceptShape)
		if err != nil {
			return nil, err
		}
		cols = append(cols, zml.ShapeColumn{
			Name:     c.Output,
			Kind:     in.Kind,
			ItemType: zml.TypeUint32,
			IsKey:    true,
			Metadata: []zml.ShapeColumn{zml.MetadataShape(zml.KeyValues, zml.NewTypeVector(in.ItemType, 1))},
		})
	}
	return input.With(cols...), nil
}

// Fit builds the dictionaries in a single pass over input.  It fails if a
// column has no terms.
func (e *Estimator) Fit(env *transform.Env, input dataview.DataView) (transform.Transformer, error) {
	schema := input.Schema()
	t := &Transformer{}
	var active []int
	for _, c := range e.columns {
		k, err := transform.CheckInputColumn(schema, c.Input, expected, acceptItem)
		if err != nil {
			return nil, err
		}
		d, err := newTerms(zml.ItemType(schema.ColumnType(k)))
		if err != nil {
			return nil, err
		}
		t.columns = append(t.columns, column{pair: transform.Pair(c.Output, c.Input), dict: d})
		active = append(active, k)
	}
	err := env.Pass("term", input, dataview.Only(active...), func(row dataview.Row) (func() error, error) {
		fns := make([]func() error, len(e.columns))
		for k, c := range e.columns {
			var err error
			if fns[k], err = t.columns[k].dict.collector(row, active[k], c.maxKeys()); err != nil {
				return nil, err
			}
		}
		return func() error {
			for _, fn := range fns {
				if err := fn(); err != nil {
					return err
				}
			}
			return nil
		}, nil
	})
	if err != nil {
		return nil, err
	}
	for k, c := range e.columns {
		d := t.columns[k].dict
		if d.len() == 0 {
			return nil, zqe.E(zqe.Invalid, "column '%s' has no terms", c.Input)
		}
		if c.Sort == ByValue {
			d.sortByValue()
		}
		env.Log().Debug("Term dictionary",
			zap.String("column", c.Output),
			zap.Stringer("type", d.itemType()),
			zap.Int("terms", d.len()))
	}
	return t, nil
}

var version = model.VersionInfo{
	Signature: "TERMTRNF",
	Written:   1,
	Readable:  1,
	ReadBack:  1,
	Loader:    "TermTransform",
}

func init() {
	transform.Register(version, load)
}

type column struct {
	pair transform.ColumnPair
	dict terms
}

// Transformer maps the values of each input column to their keys.
type Transformer struct {
	columns []column
}

var _ transform.Transformer = (*Transformer)(nil)

// Terms returns the number of terms of the dictionary of output column
// name or -1 if there is no such column.
func (t *Transformer) Terms(name string) int {
	for _, c := range t.columns {
		if c.pair.Output == name {
			return c.dict.len()
		}
	}
	return -1
}

func (t *Transformer) mapper(input *zml.Schema) (dataview.RowMapper, error) {
	m := &transform.ColumnMapper{}
	for _, c := range t.columns {
		c := c
		item := c.dict.itemType()
		k, err := transform.CheckInputColumn(input, c.pair.Input, item.String(), func(typ zml.Type) bool {
			return zml.Equal(zml.ItemType(typ), item)
		})
		if err != nil {
			return nil, err
		}
		var typ zml.Type = zml.NewTypeKey(zml.IDUint32, c.dict.len())
		if v, ok := input.ColumnType(k).(*zml.TypeVector); ok {
			typ = zml.NewTypeVector(typ, v.Dims...)
		}
		col := zml.Column{
			Name:     c.pair.Output,
			Type:     typ,
			Metadata: c.dict.addKeyValues(&zml.MetadataBuilder{}).Build(),
		}
		m.Add(col, k, func(row dataview.Row) (any, error) {
			return c.dict.getter(row, k)
		})
	}
	return m, nil
}

func (t *Transformer) OutputSchema(input *zml.Schema) (*zml.Schema, error) {
	return transform.MapSchema(input, t.mapper)
}

func (t *Transformer) Transform(input dataview.DataView) (dataview.DataView, error) {
	return transform.MapView(input, t.mapper)
}

// Save writes the column pairs followed, for each column, by the item type
// and the terms in key order.
func (t *Transformer) Save(c *model.SaveContext) error {
	return c.Save(version, func(w *model.Writer) error {
		pairs := make([]transform.ColumnPair, 0, len(t.columns))
		for _, c := range t.columns {
			pairs = append(pairs, c.pair)
		}
		transform.WritePairs(w, pairs)
		for _, c := range t.columns {
			w.Type(c.dict.itemType())
			if err := c.dict.save(w); err != nil {
				return err
			}
		}
		return nil
	})
}

func load(_ *model.LoadContext, r *model.Reader) (transform.Transformer, error) {
	pairs, err := transform.ReadPairs(r)
	if err != nil {
		return nil, err
	}
	t := &Transformer{}
	for _, p := range pairs {
		item := r.Type()
		if err := r.Err(); err != nil {
			return nil, err
		}
		if _, ok := item.(*zml.TypePrimitive); !ok {
			return nil, zqe.E(zqe.Decode, "column '%s': bad term type %s", p.Output, item)
		}
		d, err := newTerms(item)
		if err != nil {
			return nil, zqe.E(zqe.Decode, err)
		}
		if err := d.load(r); err != nil {
			return nil, err
		}
		if d.len() == 0 {
			return nil, zqe.E(zqe.Decode, "column '%s' has no terms", p.Output)
		}
		t.columns = append(t.columns, column{pair: p, dict: d})
	}
	return t, nil
}
