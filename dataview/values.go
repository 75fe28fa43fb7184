package dataview

import (
	"image"
	"time"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/vbuf"
	"go.uber.org/multierr"
)

type valueBinder func(Row, int) (func() (any, error), error)

func scalarValue[T any]() valueBinder {
	return func(row Row, col int) (func() (any, error), error) {
		get, err := GetGetter[T](row, col)
		if err != nil {
			return nil, err
		}
		return func() (any, error) {
			var v T
			err := get(&v)
			return v, err
		}, nil
	}
}

func vectorValue[T any]() valueBinder {
	return func(row Row, col int) (func() (any, error), error) {
		get, err := GetGetter[vbuf.VBuffer[T]](row, col)
		if err != nil {
			return nil, err
		}
		return func() (any, error) {
			var v vbuf.VBuffer[T]
			err := get(&v)
			return v, err
		}, nil
	}
}

type valueBinders struct {
	scalar valueBinder
	vector valueBinder
}

func valueKind[T any]() valueBinders {
	return valueBinders{scalar: scalarValue[T](), vector: vectorValue[T]()}
}

var valueTable = zml.NewKindTable[valueBinders]("value").
	Add(zml.IDUint8, valueKind[uint8]()).
	Add(zml.IDUint16, valueKind[uint16]()).
	Add(zml.IDUint32, valueKind[uint32]()).
	Add(zml.IDUint64, valueKind[uint64]()).
	Add(zml.IDInt8, valueKind[int8]()).
	Add(zml.IDInt16, valueKind[int16]()).
	Add(zml.IDInt32, valueKind[int32]()).
	Add(zml.IDInt64, valueKind[int64]()).
	Add(zml.IDTimeSpan, valueKind[time.Duration]()).
	Add(zml.IDDateTime, valueKind[time.Time]()).
	Add(zml.IDFloat32, valueKind[float32]()).
	Add(zml.IDFloat64, valueKind[float64]()).
	Add(zml.IDBool, valueKind[bool]()).
	Add(zml.IDText, valueKind[string]())

// ValueGetter returns a function that reads the value of column col of row
// boxed in an any.  Scalars are boxed as their Go representation, vectors
// as a vbuf.VBuffer of it and images as an image.Image.  A vector's storage
// is fresh on every call.
func ValueGetter(row Row, col int) (func() (any, error), error) {
	typ := row.Schema().ColumnType(col)
	if _, ok := typ.(*zml.TypeImage); ok {
		return scalarValue[image.Image]()(row, col)
	}
	b, err := valueTable.Lookup(typ)
	if err != nil {
		return nil, err
	}
	if zml.IsVector(typ) {
		return b.vector(row, col)
	}
	return b.scalar(row, col)
}

// Scan calls fn with the values of the visible columns of each of the
// first limit rows of dv, or every row if limit is negative.  The slice
// passed to fn is reused.
func Scan(dv DataView, limit int64, fn func([]any) error) (err error) {
	schema := dv.Schema()
	var cols []int
	for k := 0; k < schema.Len(); k++ {
		if !schema.IsHidden(k) {
			cols = append(cols, k)
		}
	}
	cursor, err := dv.Cursor(Only(cols...))
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(cursor))
	gets := make([]func() (any, error), len(cols))
	for k, col := range cols {
		if gets[k], err = ValueGetter(cursor, col); err != nil {
			return err
		}
	}
	values := make([]any, len(cols))
	for n := int64(0); limit < 0 || n < limit; n++ {
		ok, err := cursor.MoveNext()
		if err != nil || !ok {
			return err
		}
		for k, get := range gets {
			if values[k], err = get(); err != nil {
				return err
			}
		}
		if err := fn(values); err != nil {
			return err
		}
	}
	return nil
}
