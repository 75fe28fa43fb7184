package normalize

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
	Signature: "NORMALZR",
	Written:   1,
	Readable:  1,
	ReadBack:  1,
	Loader:    "NormalizeTransform",
}

func init() {
	transform.Register(version, load)
}

type column struct {
	pair    transform.ColumnPair
	typ     zml.Type
	offsets []float64
	scales  []float64
}

// Transformer applies the affine maps fit by Estimator.
type Transformer struct {
	columns []column
}

var _ transform.Transformer = (*Transformer)(nil)

// Affine returns the offsets and scales of output column name, one per
// slot, or nil if there is no such column.
func (t *Transformer) Affine(name string) ([]float64, []float64) {
	for _, c := range t.columns {
		if c.pair.Output == name {
			return append([]float64(nil), c.offsets...), append([]float64(nil), c.scales...)
		}
	}
	return nil, nil
}

func (t *Transformer) mapper(input *zml.Schema) (dataview.RowMapper, error) {
	m := &transform.ColumnMapper{}
	for _, c := range t.columns {
		c := c
		k, err := transform.CheckInputColumn(input, c.pair.Input, c.typ.String(), func(typ zml.Type) bool {
			return zml.Equal(typ, c.typ)
		})
		if err != nil {
			return nil, err
		}
		s, err := scalers.Lookup(c.typ)
		if err != nil {
			return nil, err
		}
		in := input.Column(k)
		b := &zml.MetadataBuilder{}
		if zml.IsVector(in.Type) {
			b.Copy(in.Metadata, zml.SlotNames)
		}
		col := zml.Column{Name: c.pair.Output, Type: in.Type, Metadata: b.AddIsNormalized().Build()}
		m.Add(col, k, func(row dataview.Row) (any, error) {
			return s.getter(row, k, c.offsets, c.scales)
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

func (t *Transformer) Save(c *model.SaveContext) error {
	return c.Save(version, func(w *model.Writer) error {
		pairs := make([]transform.ColumnPair, 0, len(t.columns))
		for _, c := range t.columns {
			pairs = append(pairs, c.pair)
		}
		transform.WritePairs(w, pairs)
		for _, c := range t.columns {
			w.Type(c.typ)
			if err := model.WriteValues(w, c.offsets); err != nil {
				return err
			}
			if err := model.WriteValues(w, c.scales); err != nil {
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
		offsets, err := model.ReadValues[float64](r)
		if err != nil {
			return nil, err
		}
		scales, err := model.ReadValues[float64](r)
		if err != nil {
			return nil, err
		}
		if !scalers.Supports(typ) {
			return nil, zqe.E(zqe.Decode, "column '%s': bad type %s", p.Output, typ)
		}
		n := 1
		if zml.IsVector(typ) {
			n = zml.VectorSize(typ)
		}
		if n == 0 || len(offsets) != n || len(scales) != n {
			return nil, zqe.E(zqe.Decode, "column '%s': %d offsets and %d scales for type %s", p.Output, len(offsets), len(scales), typ)
		}
		t.columns = append(t.columns, column{pair: p, typ: typ, offsets: offsets, scales: scales})
	}
	return t, nil
}

type scaler interface {
	collector(row dataview.Row, col int, stats []anymath.Stats) (func() error, error)
	getter(row dataview.Row, col int, offsets, scales []float64) (any, error)
}

var scalers = zml.NewKindTable[scaler]("normalization").
	Add(zml.IDFloat32, floats[float32]{}).
	Add(zml.IDFloat64, floats[float64]{})

type floats[T zml.Float] struct{}

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
			if v == v {
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
	return func() error {
		if err := get(&buf); err != nil {
			return err
		}
		buf.ForEachDense(func(slot int, v T) {
			if v == v {
				stats[slot].Add(float64(v))
			}
		})
		return nil
	}, nil
}

func scale[T zml.Float](v T, offset, scale float64) T {
	if v != v {
		return v
	}
	return T((float64(v) - offset) * scale)
}

func (floats[T]) getter(row dataview.Row, col int, offsets, scales []float64) (any, error) {
	if !zml.IsVector(row.Schema().ColumnType(col)) {
		get, err := dataview.GetGetter[T](row, col)
		if err != nil {
			return nil, err
		}
		return zml.Getter[T](func(dst *T) error {
			if err := get(dst); err != nil {
				return err
			}
			*dst = scale(*dst, offsets[0], scales[0])
			return nil
		}), nil
	}
	get, err := dataview.GetGetter[vbuf.VBuffer[T]](row, col)
	if err != nil {
		return nil, err
	}
	var densify bool
	for _, o := range offsets {
		if o != 0 {
			densify = true
		}
	}
	return zml.Getter[vbuf.VBuffer[T]](func(dst *vbuf.VBuffer[T]) error {
		if err := get(dst); err != nil {
			return err
		}
		if densify {
			dst.Densify()
		}
		dense := dst.IsDense()
		for k, v := range dst.Values {
			slot := k
			if !dense {
				slot = dst.Indices[k]
			}
			dst.Values[k] = scale(v, offsets[slot], scales[slot])
		}
		return nil
	}), nil
}
