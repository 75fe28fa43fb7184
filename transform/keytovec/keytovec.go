// Package keytovec implements the transformer that expands key columns
// into float32 indicator vectors.
//
// A scalar key k of cardinality N becomes a vector of N slots with a 1 in
// slot k-1.  A key vector becomes the concatenation of the indicators of its
// slots or, in bag mode, the vector of N slots counting each key.  The
// missing key 0 and keys beyond N contribute nothing, so a missing scalar
// key yields the all-zero vector.
package keytovec

import (
	"fmt"
	"time"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
)

// ColumnOptions configures one output column.  An empty Input names the
// column Output, which the output then replaces.
type ColumnOptions struct {
	Output string
	Input  string
	// Bag sums the indicators of the slots of a vector input instead of
	// concatenating them.
	Bag bool
}

// Transformer needs no fitting and is its own Estimator.
type Transformer struct {
	columns []ColumnOptions
}

var (
	_ transform.Transformer = (*Transformer)(nil)
	_ transform.Estimator   = (*Transformer)(nil)
)

var version = model.VersionInfo{
	Signature: "KEY2VECT",
	Written:   1,
	Readable:  1,
	ReadBack:  1,
	Loader:    "KeyToVectorTransform",
}

func init() {
	transform.Register(version, load)
}

func New(columns ...ColumnOptions) (*Transformer, error) {
	cols := make([]ColumnOptions, 0, len(columns))
	for _, c := range columns {
		c.Input = transform.Pair(c.Output, c.Input).Input
		cols = append(cols, c)
	}
	if err := transform.CheckPairs(pairs(cols)); err != nil {
		return nil, err
	}
	return &Transformer{columns: cols}, nil
}

func pairs(cols []ColumnOptions) []transform.ColumnPair {
	pairs := make([]transform.ColumnPair, 0, len(cols))
	for _, c := range cols {
		pairs = append(pairs, transform.ColumnPair{Output: c.Output, Input: c.Input})
	}
	return pairs
}

const expected = "key of known cardinality or vector of such keys"

// OutputShape follows the metadata rules of output: SlotNames when the key
// has KeyValues and, for an indicator of a vector, the vector has SlotNames,
// and CategoricalSlotRanges and IsNormalized for indicators.
func (t *Transformer) OutputShape(input *zml.Shape) (*zml.Shape, error) {
	var cols []zml.ShapeColumn
	for _, c := range t.columns {
		in, err := transform.CheckInputShape(input, c.Input, expected, func(c zml.ShapeColumn) bool {
			return c.IsKey
		})
		if err != nil {
			return nil, err
		}
		out := zml.ShapeColumn{Name: c.Output, Kind: zml.Vector, ItemType: zml.TypeFloat32}
		if in.Kind == zml.VariableVector && !c.Bag {
			out.Kind = zml.VariableVector
		}
		var meta []zml.ShapeColumn
		if out.Kind == zml.Vector && in.HasMetadata(zml.KeyValues) && (in.Kind == zml.Scalar || c.Bag || in.HasMetadata(zml.SlotNames)) {
			meta = append(meta, zml.SlotNamesShape)
		}
		if !c.Bag {
			if out.Kind == zml.Vector {
				meta = append(meta, zml.CategoricalSlotRangesShape)
			}
			meta = append(meta, zml.IsNormalizedShape)
		}
		cols = append(cols, out.WithMetadata(meta...))
	}
	return input.With(cols...), nil
}

func (t *Transformer) Fit(_ *transform.Env, input dataview.DataView) (transform.Transformer, error) {
	if _, err := t.mapper(input.Schema()); err != nil {
		return nil, err
	}
	return t, nil
}

func acceptKey(typ zml.Type) bool {
	key := zml.TypeKeyOf(typ)
	return key != nil && key.IsKnownCardinality()
}

func (t *Transformer) mapper(input *zml.Schema) (dataview.RowMapper, error) {
	m := &transform.ColumnMapper{}
	for _, c := range t.columns {
		k, err := transform.CheckInputColumn(input, c.Input, expected, acceptKey)
		if err != nil {
			return nil, err
		}
		col, err := outputColumn(input, k, c)
		if err != nil {
			return nil, err
		}
		bind, err := binders.Lookup(input.ColumnType(k))
		if err != nil {
			return nil, err
		}
		m.Add(col, k, bind(k, c.Bag))
	}
	return m, nil
}

func outputColumn(input *zml.Schema, k int, c ColumnOptions) (zml.Column, error) {
	in := input.Column(k)
	key := zml.TypeKeyOf(in.Type)
	n := key.Count
	size := 0
	vec, isVector := in.Type.(*zml.TypeVector)
	switch {
	case !isVector || c.Bag:
		size = n
	case vec.IsKnownSize():
		size = vec.Size() * n
	}
	b := &zml.MetadataBuilder{}
	if size != 0 {
		names, err := slotNames(in, n, isVector && !c.Bag)
		if err != nil {
			return zml.Column{}, err
		}
		if names != nil {
			b.AddSlotNames(names)
		}
	}
	if !c.Bag {
		if size != 0 {
			slots := size / n
			ranges := make([][2]int32, 0, slots)
			for s := 0; s < slots; s++ {
				ranges = append(ranges, [2]int32{int32(s * n), int32((s+1)*n - 1)})
			}
			b.AddCategoricalSlotRanges(ranges)
		}
		b.AddIsNormalized()
	}
	return zml.Column{
		Name:     c.Output,
		Type:     zml.NewTypeVector(zml.TypeFloat32, size),
		Metadata: b.Build(),
	}, nil
}

// slotNames returns the names of the slots of the indicator of in, or nil
// if in lacks the metadata to name them.  Indicators of vectors name their
// slots "slot.value".
func slotNames(in zml.Column, n int, perSlot bool) ([]string, error) {
	if in.Metadata.TypeOf(zml.KeyValues) == nil {
		return nil, nil
	}
	values, err := keyValueStrings(in.Metadata)
	if err != nil {
		return nil, err
	}
	if len(values) != n {
		return nil, zqe.E(zqe.Invalid, "column '%s' has %d key values for %d keys", in.Name, len(values), n)
	}
	if !perSlot {
		return values, nil
	}
	if in.Metadata.TypeOf(zml.SlotNames) == nil {
		return nil, nil
	}
	var slots vbuf.VBuffer[string]
	if err := zml.GetMetadata(in.Metadata, zml.SlotNames, &slots); err != nil {
		return nil, err
	}
	names := make([]string, 0, slots.Length*n)
	slots.ForEachDense(func(_ int, slot string) {
		for _, v := range values {
			names = append(names, slot+"."+v)
		}
	})
	return names, nil
}

func formatter[T any]() func(*zml.Metadata) ([]string, error) {
	return func(m *zml.Metadata) ([]string, error) {
		var v vbuf.VBuffer[T]
		if err := zml.GetMetadata(m, zml.KeyValues, &v); err != nil {
			return nil, err
		}
		names := make([]string, 0, v.Length)
		v.ForEachDense(func(_ int, val T) {
			names = append(names, fmt.Sprint(val))
		})
		return names, nil
	}
}

var formatters = zml.NewKindTable[func(*zml.Metadata) ([]string, error)]("key value names").
	Add(zml.IDUint8, formatter[uint8]()).
	Add(zml.IDUint16, formatter[uint16]()).
	Add(zml.IDUint32, formatter[uint32]()).
	Add(zml.IDUint64, formatter[uint64]()).
	Add(zml.IDInt8, formatter[int8]()).
	Add(zml.IDInt16, formatter[int16]()).
	Add(zml.IDInt32, formatter[int32]()).
	Add(zml.IDInt64, formatter[int64]()).
	Add(zml.IDTimeSpan, formatter[time.Duration]()).
	Add(zml.IDDateTime, formatter[time.Time]()).
	Add(zml.IDFloat32, formatter[float32]()).
	Add(zml.IDFloat64, formatter[float64]()).
	Add(zml.IDBool, formatter[bool]()).
	Add(zml.IDText, formatter[string]())

func keyValueStrings(m *zml.Metadata) ([]string, error) {
	format, err := formatters.Lookup(m.TypeOf(zml.KeyValues))
	if err != nil {
		return nil, err
	}
	return format(m)
}

func (t *Transformer) OutputSchema(input *zml.Schema) (*zml.Schema, error) {
	return transform.MapSchema(input, t.mapper)
}

func (t *Transformer) Transform(input dataview.DataView) (dataview.DataView, error) {
	return transform.MapView(input, t.mapper)
}

// Save writes the column pairs followed by the bag flag of each column.
func (t *Transformer) Save(c *model.SaveContext) error {
	return c.Save(version, func(w *model.Writer) error {
		transform.WritePairs(w, pairs(t.columns))
		for _, c := range t.columns {
			w.Bool(c.Bag)
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
		t.columns = append(t.columns, ColumnOptions{Output: p.Output, Input: p.Input, Bag: r.Bool()})
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return t, nil
}
