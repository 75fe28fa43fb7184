package nareplace

import (
	"github.com/brimdata/zml"
	"github.com/brimdata/zml/anymath"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
)

var version = model.VersionInfo{
	Signature: "NAREPTRN",
	Written:   1,
	Readable:  1,
	ReadBack:  1,
	Loader:    "NAReplaceTransform",
}

func init() {
	transform.Register(version, load)
}

type column struct {
	pair transform.ColumnPair
	// typ is the item type when there is one replacement value and the
	// vector type when there is one per slot.
	typ    zml.Type
	values []float64
}

func (c column) accept(typ zml.Type) bool {
	if len(c.values) == 1 {
		return zml.Equal(zml.ItemType(typ), c.typ)
	}
	return zml.Equal(typ, c.typ)
}

// Transformer replaces NA values with the values computed by Estimator.
type Transformer struct {
	columns []column
}

var _ transform.Transformer = (*Transformer)(nil)

// Values returns the replacement values of output column name.
func (t *Transformer) Values(name string) []float64 {
	for _, c := range t.columns {
		if c.pair.Output == name {
			return append([]float64(nil), c.values...)
		}
	}
	return nil
}

func (t *Transformer) mapper(input *zml.Schema) (dataview.RowMapper, error) {
	m := &transform.ColumnMapper{}
	for _, c := range t.columns {
		c := c
		k, err := transform.CheckInputColumn(input, c.pair.Input, c.typ.String(), c.accept)
		if err != nil {
			return nil, err
		}
		r, err := replacers.Lookup(c.typ)
		if err != nil {
			return nil, err
		}
		in := input.Column(k)
		col := zml.Column{Name: c.pair.Output, Type: in.Type}
		if zml.VectorSize(in.Type) != 0 {
			col.Metadata = (&zml.MetadataBuilder{}).Copy(in.Metadata, zml.SlotNames).Build()
		}
		m.Add(col, k, func(row dataview.Row) (any, error) {
			return r.getter(row, k, c.values)
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

// Save writes the column pairs followed, for each column, by its type and
// replacement values.
func (t *Transformer) Save(c *model.SaveContext) error {
	return c.Save(version, func(w *model.Writer) error {
		pairs := make([]transform.ColumnPair, 0, len(t.columns))
		for _, c := range t.columns {
			pairs = append(pairs, c.pair)
		}
		transform.WritePairs(w, pairs)
		for _, c := range t.columns {
			w.Type(c.typ)
			if err := model.WriteValues(w, c.values); err != nil {
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
		typ := r.Type()
		values, err := model.ReadValues[float64](r)
		if err != nil {
			return nil, err
		}
		if !replacers.Supports(typ) {
			return nil, zqe.E(zqe.Decode, "column '%s': bad type %s", p.Output, typ)
		}
		if n := zml.VectorSize(typ); len(values) != 1 && len(values) != n {
			return nil, zqe.E(zqe.Decode, "column '%s': %d replacement values for type %s", p.Output, len(values), typ)
		}
		t.columns = append(t.columns, column{pair: p, typ: typ, values: values})
	}
	return t, nil
}

type replacer interface {
	// collector returns the per-row function adding the values of column
	// col to stats, which has one element per slot or a single element.
	collector(row dataview.Row, col int, stats []anymath.Stats) (func() error, error)
	getter(row dataview.Row, col int, values []float64) (any, error)
}

var replacers = zml.NewKindTable[replacer]("missing value replacement").
	Add(zml.IDFloat32, floats[float32]{}).
	Add(zml.IDFloat64, floats[float64]{})

type floats[T zml.Float] struct{}

func isNA[T zml.Float](v T) bool {
	return v != v
}

func (floats[T]) collector(row dataview.Row, col int, stats []anymath.Stats) (func() error, error) {
	if !zml.IsVector(row.Schema().ColumnType(col)) {
		get, err := dataview.GetGetter[T](row, col)
		if err != nil {
			return nil, err
		}
		var v T
		return func() error {
			if err := get(&v); err != nil {
				return err
			}
			if !isNA(v) {
				stats[0].Add(float64(v))
			}
			return nil
		}, nil
	}
	get, err := dataview.GetGetter[vbuf.VBuffer[T]](row, col)
	if err != nil {
		return nil, err
	}
	var buf vbuf.VBuffer[T]
	if len(stats) > 1 {
		return func() error {
			if err := get(&buf); err != nil {
				return err
			}
			buf.ForEachDense(func(slot int, v T) {
				if !isNA(v) {
					stats[slot].Add(float64(v))
				}
			})
			return nil
		}, nil
	}
	return func() error {
		if err := get(&buf); err != nil {
			return err
		}
		buf.ForEachDefined(func(_ int, v T) {
			if !isNA(v) {
				stats[0].Add(float64(v))
			}
		})
		stats[0].AddN(0, int64(buf.Length-buf.Count()))
		return nil
	}, nil
}

func (floats[T]) getter(row dataview.Row, col int, values []float64) (any, error) {
	reps := make([]T, len(values))
	for k, v := range values {
		reps[k] = T(v)
	}
	if !zml.IsVector(row.Schema().ColumnType(col)) {
		get, err := dataview.GetGetter[T](row, col)
		if err != nil {
			return nil, err
		}
		return zml.Getter[T](func(dst *T) error {
			if err := get(dst); err != nil {
				return err
			}
			if isNA(*dst) {
				*dst = reps[0]
			}
			return nil
		}), nil
	}
	get, err := dataview.GetGetter[vbuf.VBuffer[T]](row, col)
	if err != nil {
		return nil, err
	}
	// The input getter fills dst and NA values are replaced in place.
	// Implicit zeros are not NA, so sparse vectors stay sparse.
	return zml.Getter[vbuf.VBuffer[T]](func(dst *vbuf.VBuffer[T]) error {
		if err := get(dst); err != nil {
			return err
		}
		dense := dst.IsDense()
		for k, v := range dst.Values {
			if !isNA(v) {
				continue
			}
			slot := 0
			if len(reps) > 1 {
				if slot = k; !dense {
					slot = dst.Indices[k]
				}
			}
			dst.Values[k] = reps[slot]
		}
		return nil
	}), nil
}
