// Package keytoval implements the transformer that maps keys back to the
// values they denote, as listed by the KeyValues metadata of the key column.
// The missing key 0 and keys without a value map to NA, which is NaN for
// floating point values and the zero value otherwise.
package keytoval

import (
	"math"
	"time"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
)

var version = model.VersionInfo{
	Signature: "KEY2VALT",
	Written:   1,
	Readable:  1,
	ReadBack:  1,
	Loader:    "KeyToValueTransform",
}

func init() {
	transform.Register(version, load)
}

// Transformer needs no fitting and is its own Estimator.
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

const expected = "key with KeyValues metadata"

func (t *Transformer) OutputShape(input *zml.Shape) (*zml.Shape, error) {
	var cols []zml.ShapeColumn
	for _, p := range t.pairs {
		in, err := transform.CheckInputShape(input, p.Input, expected, func(c zml.ShapeColumn) bool {
			return c.IsKey && c.HasMetadata(zml.KeyValues)
		})
		if err != nil {
			return nil, err
		}
		kv, _ := in.FindMetadata(zml.KeyValues)
		out := zml.ShapeColumn{Name: p.Output, Kind: in.Kind, ItemType: kv.ItemType}
		if in.Kind == zml.Vector {
			if names, ok := in.FindMetadata(zml.SlotNames); ok {
				out.Metadata = []zml.ShapeColumn{names}
			}
		}
		cols = append(cols, out)
	}
	return input.With(cols...), nil
}

func (t *Transformer) Fit(_ *transform.Env, input dataview.DataView) (transform.Transformer, error) {
	if _, err := t.mapper(input.Schema()); err != nil {
		return nil, err
	}
	return t, nil
}

func accept(typ zml.Type) bool {
	return zml.TypeKeyOf(typ) != nil
}

func (t *Transformer) mapper(input *zml.Schema) (dataview.RowMapper, error) {
	m := &transform.ColumnMapper{}
	for _, p := range t.pairs {
		k, err := transform.CheckInputColumn(input, p.Input, expected, accept)
		if err != nil {
			return nil, err
		}
		in := input.Column(k)
		kvType, ok := in.Metadata.TypeOf(zml.KeyValues).(*zml.TypeVector)
		if !ok {
			return nil, zqe.ErrSchemaMismatch("input", p.Input, expected, in.Type.String())
		}
		newLookup, err := lookups.Lookup(kvType)
		if err != nil {
			return nil, err
		}
		lut, err := newLookup(in.Metadata)
		if err != nil {
			return nil, err
		}
		keys, err := keySources.Lookup(in.Type)
		if err != nil {
			return nil, err
		}
		col := zml.Column{Name: p.Output, Type: kvType.Item}
		vec, isVector := in.Type.(*zml.TypeVector)
		if isVector {
			col.Type = zml.NewTypeVector(kvType.Item, vec.Dims...)
			if vec.IsKnownSize() {
				col.Metadata = (&zml.MetadataBuilder{}).Copy(in.Metadata, zml.SlotNames).Build()
			}
		}
		m.Add(col, k, func(row dataview.Row) (any, error) {
			if isVector {
				get, err := keys.vector(row, k)
				if err != nil {
					return nil, err
				}
				return lut.vector(get), nil
			}
			get, err := keys.scalar(row, k)
			if err != nil {
				return nil, err
			}
			return lut.scalar(get), nil
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

// Save writes the column pairs.  The values are read from the input
// metadata when the transformer is applied.
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

// keySource reads keys of any unsigned base as uint64.
type keySource struct {
	scalar func(dataview.Row, int) (func(*uint64) error, error)
	vector func(dataview.Row, int) (func(*vbuf.VBuffer[uint64]) error, error)
}

var keySources = zml.NewKindTable[keySource]("key to value").
	Add(zml.IDUint8, newKeySource[uint8]()).
	Add(zml.IDUint16, newKeySource[uint16]()).
	Add(zml.IDUint32, newKeySource[uint32]()).
	Add(zml.IDUint64, newKeySource[uint64]())

func newKeySource[K zml.Unsigned]() keySource {
	return keySource{
		scalar: func(row dataview.Row, col int) (func(*uint64) error, error) {
			get, err := dataview.GetGetter[K](row, col)
			if err != nil {
				return nil, err
			}
			var key K
			return func(dst *uint64) error {
				if err := get(&key); err != nil {
					return err
				}
				*dst = uint64(key)
				return nil
			}, nil
		},
		vector: func(row dataview.Row, col int) (func(*vbuf.VBuffer[uint64]) error, error) {
			get, err := dataview.GetGetter[vbuf.VBuffer[K]](row, col)
			if err != nil {
				return nil, err
			}
			var src vbuf.VBuffer[K]
			return func(dst *vbuf.VBuffer[uint64]) error {
				if err := get(&src); err != nil {
					return err
				}
				n := src.Count()
				e := vbuf.Edit(dst, src.Length, n)
				for k := 0; k < n; k++ {
					e.Values[k] = uint64(src.Values[k])
				}
				copy(e.Indices, src.Indices)
				e.Commit()
				return nil
			}, nil
		},
	}
}

type lookup interface {
	scalar(keys func(*uint64) error) any
	vector(keys func(*vbuf.VBuffer[uint64]) error) any
}

type values[T any] struct {
	values []T
	na     T
	// zeroNA is set when NA is the zero value, so sparse vectors stay
	// sparse.
	zeroNA bool
}

var lookups = zml.NewKindTable[func(*zml.Metadata) (lookup, error)]("key to value").
	Add(zml.IDUint8, newValues[uint8](0, true)).
	Add(zml.IDUint16, newValues[uint16](0, true)).
	Add(zml.IDUint32, newValues[uint32](0, true)).
	Add(zml.IDUint64, newValues[uint64](0, true)).
	Add(zml.IDInt8, newValues[int8](0, true)).
	Add(zml.IDInt16, newValues[int16](0, true)).
	Add(zml.IDInt32, newValues[int32](0, true)).
	Add(zml.IDInt64, newValues[int64](0, true)).
	Add(zml.IDTimeSpan, newValues[time.Duration](0, true)).
	Add(zml.IDDateTime, newValues(time.Time{}, true)).
	Add(zml.IDFloat32, newValues(float32(math.NaN()), false)).
	Add(zml.IDFloat64, newValues(math.NaN(), false)).
	Add(zml.IDBool, newValues(false, true)).
	Add(zml.IDText, newValues("", true))

func newValues[T any](na T, zeroNA bool) func(*zml.Metadata) (lookup, error) {
	return func(m *zml.Metadata) (lookup, error) {
		var kv vbuf.VBuffer[T]
		if err := zml.GetMetadata(m, zml.KeyValues, &kv); err != nil {
			return nil, err
		}
		return &values[T]{values: kv.DenseValues(nil), na: na, zeroNA: zeroNA}, nil
	}
}

func (v *values[T]) get(key uint64) T {
	if key == 0 || key > uint64(len(v.values)) {
		return v.na
	}
	return v.values[key-1]
}

func (v *values[T]) scalar(keys func(*uint64) error) any {
	var key uint64
	return zml.Getter[T](func(dst *T) error {
		if err := keys(&key); err != nil {
			return err
		}
		*dst = v.get(key)
		return nil
	})
}

func (v *values[T]) vector(keys func(*vbuf.VBuffer[uint64]) error) any {
	var src vbuf.VBuffer[uint64]
	return zml.Getter[vbuf.VBuffer[T]](func(dst *vbuf.VBuffer[T]) error {
		if err := keys(&src); err != nil {
			return err
		}
		if !v.zeroNA && !src.IsDense() {
			src.Densify()
		}
		n := src.Count()
		e := vbuf.Edit(dst, src.Length, n)
		for k := 0; k < n; k++ {
			e.Values[k] = v.get(src.Values[k])
		}
		copy(e.Indices, src.Indices)
		e.Commit()
		return nil
	})
}
