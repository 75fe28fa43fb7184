// Package copycols implements the transformer that copies columns under new
// names.  The copies have the type and metadata of their sources.
package copycols

import (
	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/transform"
)

var version = model.VersionInfo{
	Signature: "COPYCOLT",
	Written:   1,
	Readable:  1,
	ReadBack:  1,
	Loader:    "CopyTransform",
}

func init() {
	transform.Register(version, load)
}

// Transformer copies each pair's input column to its output column.  It
// needs no fitting and is its own Estimator.
type Transformer struct {
	pairs []transform.ColumnPair
}

var (
	_ transform.Transformer = (*Transformer)(nil)
	_ transform.Estimator   = (*Transformer)(nil)
)

func New(pairs ...transform.ColumnPair) (*Transformer, error) {
	if err := transform.CheckPairs(pairs); err != nil {
		return nil, err
	}
	return &Transformer{pairs: append([]transform.ColumnPair(nil), pairs...)}, nil
}

func (t *Transformer) Pairs() []transform.ColumnPair {
	return append([]transform.ColumnPair(nil), t.pairs...)
}

func (t *Transformer) OutputShape(input *zml.Shape) (*zml.Shape, error) {
	var cols []zml.ShapeColumn
	for _, p := range t.pairs {
		c, err := transform.CheckInputShape(input, p.Input, "any type", func(zml.ShapeColumn) bool { return true })
		if err != nil {
			return nil, err
		}
		c.Name = p.Output
		cols = append(cols, c)
	}
	return input.With(cols...), nil
}

func (t *Transformer) Fit(_ *transform.Env, input dataview.DataView) (transform.Transformer, error) {
	if _, err := t.mapper(input.Schema()); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transformer) mapper(input *zml.Schema) (dataview.RowMapper, error) {
	m := &transform.ColumnMapper{}
	for _, p := range t.pairs {
		k, err := transform.CheckInputColumn(input, p.Input, "any type", func(zml.Type) bool { return true })
		if err != nil {
			return nil, err
		}
		col := input.Column(k)
		col.Name = p.Output
		m.Add(col, k, func(row dataview.Row) (any, error) {
			return row.Getter(k)
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

// Save writes the column pairs.
func (t *Transformer) Save(c *model.SaveContext) error {
	return c.Save(version, func(w *model.Writer) error {
		transform.WritePairs(w, t.pairs)
		return nil
	})
}

func load(_ *model.LoadContext, r *model.Reader) (transform.Transformer, error) {
	pairs, err := transform.ReadPairs(r)
	if err != nil {
		return nil, err
	}
	return &Transformer{pairs: pairs}, nil
}
