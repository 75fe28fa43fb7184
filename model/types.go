package model

import (
	"time"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
)

// Type writes a column type as a container holding the type ID followed by
// the fields of keys, vectors and images.
func (w *Writer) Type(typ zml.Type) {
	w.Begin()
	w.Uint(uint64(typ.ID()))
	switch typ := typ.(type) {
	case *zml.TypeKey:
		w.Uint(uint64(typ.Base))
		w.Uint(typ.Min)
		w.Int(int64(typ.Count))
		w.Bool(typ.Contiguous)
	case *zml.TypeVector:
		w.Type(typ.Item)
		w.Ints(typ.Dims)
	case *zml.TypeImage:
		w.Int(int64(typ.Height))
		w.Int(int64(typ.Width))
	}
	w.End()
}

// Type reads a column type written by Writer.Type.
func (r *Reader) Type() zml.Type {
	r.Begin()
	typ := r.typeBody()
	r.End()
	if r.err != nil {
		return nil
	}
	return typ
}

func (r *Reader) typeBody() zml.Type {
	id := int(r.Uint())
	if r.err != nil {
		return nil
	}
	switch id {
	case zml.IDKey:
		key := &zml.TypeKey{
			Base:       int(r.Uint()),
			Min:        r.Uint(),
			Count:      r.Count(),
			Contiguous: r.Bool(),
		}
		if r.err != nil {
			return nil
		}
		if err := key.Validate(); err != nil {
			r.fail("bad key type: %s", err)
			return nil
		}
		return key
	case zml.IDVector:
		item := r.Type()
		dims := r.Ints()
		if r.err != nil {
			return nil
		}
		switch item.(type) {
		case *zml.TypePrimitive, *zml.TypeKey:
		default:
			r.fail("bad vector item type %s", item)
			return nil
		}
		if len(dims) == 0 {
			r.fail("vector type has no dimensions")
			return nil
		}
		for _, d := range dims {
			if d < 0 {
				r.fail("negative vector dimension %d", d)
				return nil
			}
		}
		return zml.NewTypeVector(item, dims...)
	case zml.IDImage:
		return &zml.TypeImage{Height: r.Count(), Width: r.Count()}
	}
	if typ := zml.LookupPrimitiveByID(id); typ != nil {
		return typ
	}
	r.fail("unknown type ID %d", id)
	return nil
}

// WriteValue writes a raw scalar value of a primitive or key column.
func WriteValue[T any](w *Writer, v T) error {
	switch v := any(v).(type) {
	case uint8:
		w.Uint(uint64(v))
	case uint16:
		w.Uint(uint64(v))
	case uint32:
		w.Uint(uint64(v))
	case uint64:
		w.Uint(v)
	case int8:
		w.Int(int64(v))
	case int16:
		w.Int(int64(v))
	case int32:
		w.Int(int64(v))
	case int64:
		w.Int(v)
	case float32:
		w.Float32(v)
	case float64:
		w.Float64(v)
	case bool:
		w.Bool(v)
	case string:
		w.String(v)
	case time.Duration:
		w.Int(int64(v))
	case time.Time:
		w.Begin()
		w.Int(v.Unix())
		w.Int(int64(v.Nanosecond()))
		w.End()
	default:
		return zqe.E(zqe.UnsupportedType, "cannot save values of Go type %T", v)
	}
	return nil
}

// ReadValue reads a value written by WriteValue.
func ReadValue[T any](r *Reader) (T, error) {
	var v T
	switch p := any(&v).(type) {
	case *uint8:
		*p = uint8(r.Uint())
	case *uint16:
		*p = uint16(r.Uint())
	case *uint32:
		*p = uint32(r.Uint())
	case *uint64:
		*p = r.Uint()
	case *int8:
		*p = int8(r.Int())
	case *int16:
		*p = int16(r.Int())
	case *int32:
		*p = int32(r.Int())
	case *int64:
		*p = r.Int()
	case *float32:
		*p = r.Float32()
	case *float64:
		*p = r.Float64()
	case *bool:
		*p = r.Bool()
	case *string:
		*p = r.String()
	case *time.Duration:
		*p = time.Duration(r.Int())
	case *time.Time:
		r.Begin()
		sec, nsec := r.Int(), r.Int()
		r.End()
		*p = time.Unix(sec, nsec).UTC()
	default:
		return v, zqe.E(zqe.UnsupportedType, "cannot load values of Go type %T", v)
	}
	return v, r.err
}

// WriteValues writes a slice of values as a counted container.
func WriteValues[T any](w *Writer, vals []T) error {
	w.Begin()
	w.Uint(uint64(len(vals)))
	for _, v := range vals {
		if err := WriteValue(w, v); err != nil {
			return err
		}
	}
	w.End()
	return nil
}

func ReadValues[T any](r *Reader) ([]T, error) {
	r.Begin()
	n := r.Len()
	vals := make([]T, 0, n)
	for k := 0; k < n; k++ {
		v, err := ReadValue[T](r)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	r.End()
	return vals, r.err
}

// WriteVBuffer writes the length, values and indices of v, preserving its
// density.
func WriteVBuffer[T any](w *Writer, v vbuf.VBuffer[T]) error {
	w.Begin()
	w.Int(int64(v.Length))
	if err := WriteValues(w, v.Values); err != nil {
		return err
	}
	if v.IsDense() {
		w.Ints(nil)
	} else {
		w.Ints(v.Indices[:len(v.Values)])
	}
	w.End()
	return nil
}

func ReadVBuffer[T any](r *Reader) (vbuf.VBuffer[T], error) {
	var v vbuf.VBuffer[T]
	r.Begin()
	v.Length = r.Count()
	values, err := ReadValues[T](r)
	if err != nil {
		return v, err
	}
	v.Values = values
	if indices := r.Ints(); len(indices) > 0 {
		v.Indices = indices
	}
	r.End()
	if r.err != nil {
		return v, r.err
	}
	if err := v.Validate(); err != nil {
		return v, zqe.E(zqe.Decode, "bad saved vector: %s", err)
	}
	return v, nil
}
