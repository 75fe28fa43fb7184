// Package convert implements the transformer that changes the item type of
// columns.  Vectors keep their dimensions.  Conversions follow
// zml.NewConverter: a value that cannot be converted, such as unparsable
// text or an integer out of range, fails the row.
package convert

import (
	"time"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
)

var version = model.VersionInfo{
	Signature: "CONVERTF",
	Written:   1,
	Readable:  1,
	ReadBack:  1,
	Loader:    "TypeConvertTransform",
}

func init() {
	transform.Register(version, load)
}

type ColumnOptions struct {
	Output string
	Input  string
	// Type is the primitive or key item type of the output.
	Type zml.Type
}

// Transformer needs no fitting and is its own Estimator.
type Transformer struct {
	columns []ColumnOptions
}

var (
	_ transform.Transformer = (*Transformer)(nil)
	_ transform.Estimator   = (*Transformer)(nil)
)

func New(columns ...ColumnOptions) (*Transformer, error) {
	cols := make([]ColumnOptions, 0, len(columns))
	pairs := make([]transform.ColumnPair, 0, len(columns))
	for _, c := range columns {
		p := transform.Pair(c.Output, c.Input)
		c.Input = p.Input
		if err := checkItem(c.Output, c.Type); err != nil {
			return nil, err
		}
		cols = append(cols, c)
		pairs = append(pairs, p)
	}
	if err := transform.CheckPairs(pairs); err != nil {
		return nil, err
	}
	return &Transformer{columns: cols}, nil
}

func checkItem(name string, typ zml.Type) error {
	switch typ := typ.(type) {
	case *zml.TypePrimitive:
		return nil
	case *zml.TypeKey:
		return typ.Validate()
	}
	return zqe.E(zqe.Invalid, "column '%s': cannot convert to %v", name, typ)
}

func (t *Transformer) OutputShape(input *zml.Shape) (*zml.Shape, error) {
	var cols []zml.ShapeColumn
	for _, c := range t.columns {
		c := c
		in, err := transform.CheckInputShape(input, c.Input, "value convertible to "+c.Type.String(), func(in zml.ShapeColumn) bool {
			return canConvertShape(in, c.Type)
		})
		if err != nil {
			return nil, err
		}
		out := zml.ShapeColumn{Name: c.Output, Kind: in.Kind, ItemType: c.Type, IsKey: zml.IsKey(c.Type)}
		if key := zml.TypeKeyOf(c.Type); key != nil {
			out.ItemType = zml.LookupPrimitiveByID(key.Base)
		}
		if names, ok := in.FindMetadata(zml.SlotNames); ok && in.Kind == zml.Vector {
			out.Metadata = []zml.ShapeColumn{names}
		}
		cols = append(cols, out)
	}
	return input.With(cols...), nil
}

// canConvertShape checks a conversion without the key cardinality a shape
// lacks, which is checked again against the schema.
func canConvertShape(in zml.ShapeColumn, dst zml.Type) bool {
	if in.ItemType == nil {
		return false
	}
	if !in.IsKey {
		return zml.CanConvert(in.ItemType, dst)
	}
	if zml.IsKey(dst) {
		return true
	}
	return zml.CanConvert(zml.NewTypeKey(in.ItemType.ID(), 1), dst)
}

func (t *Transformer) Fit(_ *transform.Env, input dataview.DataView) (transform.Transformer, error) {
	if _, err := t.mapper(input.Schema()); err != nil {
		return nil, err
	}
	return t, nil
}

// outputType returns the type of converting values of type in to item.
func outputType(in, item zml.Type) zml.Type {
	if vec, ok := in.(*zml.TypeVector); ok {
		return zml.NewTypeVector(item, vec.Dims...)
	}
	return item
}

func (t *Transformer) mapper(input *zml.Schema) (dataview.RowMapper, error) {
	m := &transform.ColumnMapper{}
	for _, c := range t.columns {
		c := c
		k, err := transform.CheckInputColumn(input, c.Input, "value convertible to "+c.Type.String(), func(typ zml.Type) bool {
			return zml.CanConvert(typ, outputType(typ, c.Type))
		})
		if err != nil {
			return nil, err
		}
		in := input.Column(k)
		bind, err := lookup(in.Type, c.Type)
		if err != nil {
			return nil, err
		}
		col := zml.Column{Name: c.Output, Type: outputType(in.Type, c.Type)}
		if zml.VectorSize(in.Type) != 0 {
			col.Metadata = (&zml.MetadataBuilder{}).Copy(in.Metadata, zml.SlotNames).Build()
		}
		m.Add(col, k, func(row dataview.Row) (any, error) {
			return bind(row, k, in.Type, c.Type)
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
			pairs = append(pairs, transform.ColumnPair{Output: c.Output, Input: c.Input})
		}
		transform.WritePairs(w, pairs)
		for _, c := range t.columns {
			w.Type(c.Type)
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
		if err := r.Err(); err != nil {
			return nil, err
		}
		if err := checkItem(p.Output, typ); err != nil {
			return nil, zqe.E(zqe.Decode, err)
		}
		t.columns = append(t.columns, ColumnOptions{Output: p.Output, Input: p.Input, Type: typ})
	}
	return t, nil
}

// binder returns the getter of the conversion of column col of type src to
// item type dst.
type binder func(row dataview.Row, col int, src, dst zml.Type) (any, error)

func lookup(src, dst zml.Type) (binder, error) {
	sink, err := sources.Lookup(src)
	if err != nil {
		return nil, err
	}
	return sink().Lookup(dst)
}

var sources = zml.NewKindTable[func() *zml.KindTable[binder]]("conversion source").
	Add(zml.IDUint8, sinks[uint8]).
	Add(zml.IDUint16, sinks[uint16]).
	Add(zml.IDUint32, sinks[uint32]).
	Add(zml.IDUint64, sinks[uint64]).
	Add(zml.IDInt8, sinks[int8]).
	Add(zml.IDInt16, sinks[int16]).
	Add(zml.IDInt32, sinks[int32]).
	Add(zml.IDInt64, sinks[int64]).
	Add(zml.IDTimeSpan, sinks[time.Duration]).
	Add(zml.IDDateTime, sinks[time.Time]).
	Add(zml.IDFloat32, sinks[float32]).
	Add(zml.IDFloat64, sinks[float64]).
	Add(zml.IDBool, sinks[bool]).
	Add(zml.IDText, sinks[string])

func sinks[S comparable]() *zml.KindTable[binder] {
	return zml.NewKindTable[binder]("conversion").
		Add(zml.IDUint8, convert[S, uint8]).
		Add(zml.IDUint16, convert[S, uint16]).
		Add(zml.IDUint32, convert[S, uint32]).
		Add(zml.IDUint64, convert[S, uint64]).
		Add(zml.IDInt8, convert[S, int8]).
		Add(zml.IDInt16, convert[S, int16]).
		Add(zml.IDInt32, convert[S, int32]).
		Add(zml.IDInt64, convert[S, int64]).
		Add(zml.IDTimeSpan, convert[S, time.Duration]).
		Add(zml.IDDateTime, convert[S, time.Time]).
		Add(zml.IDFloat32, convert[S, float32]).
		Add(zml.IDFloat64, convert[S, float64]).
		Add(zml.IDBool, convert[S, bool]).
		Add(zml.IDText, convert[S, string])
}

func convert[S, D comparable](row dataview.Row, col int, src, dst zml.Type) (any, error) {
	conv, err := zml.NewConverter[S, D](zml.ItemType(src), dst)
	if err != nil {
		return nil, err
	}
	if !zml.IsVector(src) {
		get, err := dataview.GetGetter[S](row, col)
		if err != nil {
			return nil, err
		}
		var s S
		return zml.Getter[D](func(d *D) error {
			if err := get(&s); err != nil {
				return err
			}
			return conv(s, d)
		}), nil
	}
	get, err := dataview.GetGetter[vbuf.VBuffer[S]](row, col)
	if err != nil {
		return nil, err
	}
	// Sparse inputs stay sparse only when the zero value converts to zero,
	// as it does between numbers but not from numbers to text.
	var zs S
	var zd, d0 D
	densify := conv(zs, &zd) != nil || zd != d0
	var buf vbuf.VBuffer[S]
	return zml.Getter[vbuf.VBuffer[D]](func(d *vbuf.VBuffer[D]) error {
		if err := get(&buf); err != nil {
			return err
		}
		if densify {
			buf.Densify()
		}
		e := vbuf.Edit(d, buf.Length, buf.Count())
		for k, v := range buf.Values {
			if err := conv(v, &e.Values[k]); err != nil {
				return err
			}
		}
		if !buf.IsDense() {
			copy(e.Indices, buf.Indices)
		}
		e.Commit()
		return nil
	}), nil
}
