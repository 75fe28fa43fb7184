package term

import (
	"time"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// terms is a dictionary of the values of one column.  Key k denotes the
// k-th term; key 0 denotes NA and values that are not terms.
type terms interface {
	itemType() zml.Type
	len() int
	// collector returns the per-row function adding the values of column
	// col of row, stopping at max terms.
	collector(row dataview.Row, col int, max int) (func() error, error)
	sortByValue()
	addKeyValues(b *zml.MetadataBuilder) *zml.MetadataBuilder
	getter(row dataview.Row, col int) (any, error)
	save(w *model.Writer) error
	load(r *model.Reader) error
}

type ops[T comparable] struct {
	less  func(a, b T) bool
	isNA  func(T) bool
	canon func(T) T
}

type dict[T comparable] struct {
	ops[T]
	typ   zml.Type
	keys  map[T]uint32
	terms []T
}

var dicts = zml.NewKindTable[func(zml.Type) terms]("term dictionary").
	Add(zml.IDUint8, kind(ordered[uint8]())).
	Add(zml.IDUint16, kind(ordered[uint16]())).
	Add(zml.IDUint32, kind(ordered[uint32]())).
	Add(zml.IDUint64, kind(ordered[uint64]())).
	Add(zml.IDInt8, kind(ordered[int8]())).
	Add(zml.IDInt16, kind(ordered[int16]())).
	Add(zml.IDInt32, kind(ordered[int32]())).
	Add(zml.IDInt64, kind(ordered[int64]())).
	Add(zml.IDTimeSpan, kind(ordered[time.Duration]())).
	Add(zml.IDDateTime, kind(ops[time.Time]{
		less:  time.Time.Before,
		canon: func(t time.Time) time.Time { return t.UTC().Round(0) },
	})).
	Add(zml.IDFloat32, kind(float[float32]())).
	Add(zml.IDFloat64, kind(float[float64]())).
	Add(zml.IDBool, kind(ops[bool]{less: func(a, b bool) bool { return !a && b }})).
	Add(zml.IDText, kind(ordered[string]()))

func ordered[T constraints.Ordered]() ops[T] {
	return ops[T]{less: func(a, b T) bool { return a < b }}
}

func float[T zml.Float]() ops[T] {
	o := ordered[T]()
	o.isNA = func(v T) bool { return v != v }
	return o
}

func kind[T comparable](o ops[T]) func(zml.Type) terms {
	return func(typ zml.Type) terms {
		return &dict[T]{ops: o, typ: typ, keys: make(map[T]uint32)}
	}
}

func newTerms(item zml.Type) (terms, error) {
	newDict, err := dicts.Lookup(item)
	if err != nil {
		return nil, err
	}
	return newDict(item), nil
}

func (d *dict[T]) itemType() zml.Type {
	return d.typ
}

func (d *dict[T]) len() int {
	return len(d.terms)
}

func (d *dict[T]) norm(v T) (T, bool) {
	if d.isNA != nil && d.isNA(v) {
		return v, false
	}
	if d.canon != nil {
		v = d.canon(v)
	}
	return v, true
}

func (d *dict[T]) add(v T, max int) {
	v, ok := d.norm(v)
	if !ok || len(d.terms) >= max {
		return
	}
	if _, ok := d.keys[v]; !ok {
		d.terms = append(d.terms, v)
		d.keys[v] = uint32(len(d.terms))
	}
}

func (d *dict[T]) key(v T) uint32 {
	v, ok := d.norm(v)
	if !ok {
		return 0
	}
	return d.keys[v]
}

func (d *dict[T]) collector(row dataview.Row, col int, max int) (func() error, error) {
	if zml.IsVector(row.Schema().ColumnType(col)) {
		get, err := dataview.GetGetter[vbuf.VBuffer[T]](row, col)
		if err != nil {
			return nil, err
		}
		var buf vbuf.VBuffer[T]
		return func() error {
			if err := get(&buf); err != nil {
				return err
			}
			buf.ForEachDense(func(_ int, v T) {
				d.add(v, max)
			})
			return nil
		}, nil
	}
	get, err := dataview.GetGetter[T](row, col)
	if err != nil {
		return nil, err
	}
	var v T
	return func() error {
		if err := get(&v); err != nil {
			return err
		}
		d.add(v, max)
		return nil
	}, nil
}

func (d *dict[T]) sortByValue() {
	slices.SortFunc(d.terms, d.less)
	d.reindex()
}

func (d *dict[T]) reindex() {
	d.keys = make(map[T]uint32, len(d.terms))
	for k, v := range d.terms {
		d.keys[v] = uint32(k + 1)
	}
}

func (d *dict[T]) addKeyValues(b *zml.MetadataBuilder) *zml.MetadataBuilder {
	return zml.AddKeyValues(b, d.typ, d.terms)
}

func (d *dict[T]) getter(row dataview.Row, col int) (any, error) {
	if zml.IsVector(row.Schema().ColumnType(col)) {
		get, err := dataview.GetGetter[vbuf.VBuffer[T]](row, col)
		if err != nil {
			return nil, err
		}
		var zero T
		// A sparse input whose implicit value is a term must be densified
		// since its implicit slots no longer map to key 0.
		densify := d.key(zero) != 0
		var src vbuf.VBuffer[T]
		return zml.Getter[vbuf.VBuffer[uint32]](func(dst *vbuf.VBuffer[uint32]) error {
			if err := get(&src); err != nil {
				return err
			}
			if densify && !src.IsDense() {
				src.Densify()
			}
			n := src.Count()
			e := vbuf.Edit(dst, src.Length, n)
			for k := 0; k < n; k++ {
				e.Values[k] = d.key(src.Values[k])
			}
			copy(e.Indices, src.Indices)
			e.Commit()
			return nil
		}), nil
	}
	get, err := dataview.GetGetter[T](row, col)
	if err != nil {
		return nil, err
	}
	var v T
	return zml.Getter[uint32](func(dst *uint32) error {
		if err := get(&v); err != nil {
			return err
		}
		*dst = d.key(v)
		return nil
	}), nil
}

func (d *dict[T]) save(w *model.Writer) error {
	return model.WriteValues(w, d.terms)
}

func (d *dict[T]) load(r *model.Reader) error {
	values, err := model.ReadValues[T](r)
	if err != nil {
		return err
	}
	d.terms = values
	d.reindex()
	if len(d.keys) != len(d.terms) {
		return zqe.E(zqe.Decode, "duplicate %s terms", d.typ)
	}
	for _, v := range d.terms {
		if _, ok := d.norm(v); !ok {
			return zqe.E(zqe.Decode, "NA %s term", d.typ)
		}
	}
	return nil
}
