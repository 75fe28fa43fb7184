package zml

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/brimdata/zml/zqe"
)

// CanConvert returns true if values of src can be converted to values of dst
// with the function returned by NewConverter.  Vectors convert item by item
// to vectors of the same dimensions; scalars convert to scalars.
func CanConvert(src, dst Type) bool {
	if sv, ok := src.(*TypeVector); ok {
		dv, ok := dst.(*TypeVector)
		if !ok || len(sv.Dims) != len(dv.Dims) {
			return false
		}
		for k := range sv.Dims {
			if dv.Dims[k] != 0 && sv.Dims[k] != dv.Dims[k] {
				return false
			}
		}
		return canConvertItem(sv.Item, dv.Item)
	}
	if IsVector(dst) {
		return false
	}
	return canConvertItem(src, dst)
}

func canConvertItem(src, dst Type) bool {
	if Equal(src, dst) {
		return true
	}
	switch src := src.(type) {
	case *TypePrimitive:
		switch dst := dst.(type) {
		case *TypePrimitive:
			return canConvertPrimitive(src.id, dst.id)
		case *TypeKey:
			return IsInteger(src.id) && dst.IsKnownCardinality()
		}
	case *TypeKey:
		switch dst := dst.(type) {
		case *TypePrimitive:
			return IsNumber(dst.id) || dst.id == IDText
		case *TypeKey:
			return dst.IsKnownCardinality() && src.IsKnownCardinality() && dst.Count >= src.Count
		}
	}
	return false
}

func canConvertPrimitive(src, dst int) bool {
	switch {
	case src == dst, src == IDText, dst == IDText:
		return true
	case IsNumber(src) || src == IDBool:
		return IsNumber(dst) || dst == IDBool || (dst == IDTimeSpan || dst == IDDateTime) && IsInteger(src)
	case src == IDTimeSpan || src == IDDateTime:
		return IsInteger(dst) || IsFloat(dst)
	}
	return false
}

// wide holds a converted value in its widest form between the read and
// write halves of a conversion.
type wide struct {
	kind int
	i    int64
	u    uint64
	f    float64
	b    bool
	s    string
	t    time.Time
}

const (
	wideInt = iota
	wideUint
	wideFloat
	wideBool
	wideText
	wideSpan
	wideTime
)

// NewConverter returns a function that converts raw values of the item type
// of src, of Go type S, to raw values of the item type of dst, of Go type D.
// It fails with a SchemaMismatch error if the conversion is not legal and with
// an UnsupportedType error if S or D are not the raw types of the items.
// The returned function fails for text that cannot be parsed as an integer,
// bool or time and for integers out of range of the destination; unparsable
// floats become NaN.
func NewConverter[S, D any](src, dst Type) (func(S, *D) error, error) {
	if !CanConvert(src, dst) {
		return nil, zqe.E(zqe.SchemaMismatch, "cannot convert %s to %s", src, dst)
	}
	srcItem, dstItem := ItemType(src), ItemType(dst)
	read, err := wideReader[S](srcItem)
	if err != nil {
		return nil, err
	}
	write, err := wideWriter[D](dstItem)
	if err != nil {
		return nil, err
	}
	return func(s S, d *D) error {
		var w wide
		read(s, &w)
		return write(&w, d)
	}, nil
}

func wideReader[S any](typ Type) (func(S, *wide), error) {
	var fn any
	switch RawID(typ) {
	case IDUint8:
		fn = func(v uint8, w *wide) { w.kind, w.u = wideUint, uint64(v) }
	case IDUint16:
		fn = func(v uint16, w *wide) { w.kind, w.u = wideUint, uint64(v) }
	case IDUint32:
		fn = func(v uint32, w *wide) { w.kind, w.u = wideUint, uint64(v) }
	case IDUint64:
		fn = func(v uint64, w *wide) { w.kind, w.u = wideUint, v }
	case IDInt8:
		fn = func(v int8, w *wide) { w.kind, w.i = wideInt, int64(v) }
	case IDInt16:
		fn = func(v int16, w *wide) { w.kind, w.i = wideInt, int64(v) }
	case IDInt32:
		fn = func(v int32, w *wide) { w.kind, w.i = wideInt, int64(v) }
	case IDInt64:
		fn = func(v int64, w *wide) { w.kind, w.i = wideInt, v }
	case IDFloat32:
		fn = func(v float32, w *wide) { w.kind, w.f = wideFloat, float64(v) }
	case IDFloat64:
		fn = func(v float64, w *wide) { w.kind, w.f = wideFloat, v }
	case IDBool:
		fn = func(v bool, w *wide) { w.kind, w.b = wideBool, v }
	case IDText:
		fn = func(v string, w *wide) { w.kind, w.s = wideText, v }
	case IDTimeSpan:
		fn = func(v time.Duration, w *wide) { w.kind, w.i = wideSpan, int64(v) }
	case IDDateTime:
		fn = func(v time.Time, w *wide) { w.kind, w.t = wideTime, v }
	}
	read, ok := fn.(func(S, *wide))
	if !ok {
		var s S
		return nil, zqe.E(zqe.UnsupportedType, "cannot read %T values as %s", s, typ)
	}
	return read, nil
}

func wideWriter[D any](typ Type) (func(*wide, *D) error, error) {
	var fn any
	if key, ok := typ.(*TypeKey); ok {
		fn = keyWriter(key)
	} else {
		switch typ.ID() {
		case IDUint8:
			fn = func(w *wide, d *uint8) error { return toUint(w, d, math.MaxUint8) }
		case IDUint16:
			fn = func(w *wide, d *uint16) error { return toUint(w, d, math.MaxUint16) }
		case IDUint32:
			fn = func(w *wide, d *uint32) error { return toUint(w, d, math.MaxUint32) }
		case IDUint64:
			fn = func(w *wide, d *uint64) error { return toUint(w, d, math.MaxUint64) }
		case IDInt8:
			fn = func(w *wide, d *int8) error { return toInt(w, d, math.MinInt8, math.MaxInt8) }
		case IDInt16:
			fn = func(w *wide, d *int16) error { return toInt(w, d, math.MinInt16, math.MaxInt16) }
		case IDInt32:
			fn = func(w *wide, d *int32) error { return toInt(w, d, math.MinInt32, math.MaxInt32) }
		case IDInt64:
			fn = func(w *wide, d *int64) error { return toInt(w, d, math.MinInt64, math.MaxInt64) }
		case IDFloat32:
			fn = func(w *wide, d *float32) error {
				*d = float32(w.float())
				return nil
			}
		case IDFloat64:
			fn = func(w *wide, d *float64) error {
				*d = w.float()
				return nil
			}
		case IDBool:
			fn = toBool
		case IDText:
			fn = func(w *wide, d *string) error {
				*d = w.text()
				return nil
			}
		case IDTimeSpan:
			fn = toSpan
		case IDDateTime:
			fn = toTime
		}
	}
	write, ok := fn.(func(*wide, *D) error)
	if !ok {
		var d D
		return nil, zqe.E(zqe.UnsupportedType, "cannot write %s values as %T", typ, d)
	}
	return write, nil
}

type signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

func (w *wide) float() float64 {
	switch w.kind {
	case wideInt, wideSpan:
		return float64(w.i)
	case wideUint:
		return float64(w.u)
	case wideFloat:
		return w.f
	case wideBool:
		if w.b {
			return 1
		}
		return 0
	case wideText:
		f, err := strconv.ParseFloat(strings.TrimSpace(w.s), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case wideTime:
		return float64(w.t.UnixNano())
	}
	return math.NaN()
}

func (w *wide) text() string {
	switch w.kind {
	case wideInt:
		return strconv.FormatInt(w.i, 10)
	case wideUint:
		return strconv.FormatUint(w.u, 10)
	case wideFloat:
		return strconv.FormatFloat(w.f, 'g', -1, 64)
	case wideBool:
		return strconv.FormatBool(w.b)
	case wideText:
		return w.s
	case wideSpan:
		return time.Duration(w.i).String()
	case wideTime:
		return w.t.Format(time.RFC3339Nano)
	}
	return ""
}

// integer returns the value as a signed integer and, for values that do not
// fit in an int64, as an unsigned one.
func (w *wide) integer() (int64, uint64, bool, error) {
	switch w.kind {
	case wideInt, wideSpan:
		return w.i, 0, false, nil
	case wideUint:
		if w.u > math.MaxInt64 {
			return 0, w.u, true, nil
		}
		return int64(w.u), 0, false, nil
	case wideFloat:
		if math.IsNaN(w.f) || w.f < math.MinInt64 || w.f >= math.MaxInt64 {
			return 0, 0, false, fmt.Errorf("value %v out of integer range", w.f)
		}
		return int64(w.f), 0, false, nil
	case wideBool:
		if w.b {
			return 1, 0, false, nil
		}
		return 0, 0, false, nil
	case wideText:
		s := strings.TrimSpace(w.s)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, 0, false, nil
		}
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, 0, false, fmt.Errorf("cannot parse %q as an integer", w.s)
		}
		return 0, u, true, nil
	case wideTime:
		return w.t.UnixNano(), 0, false, nil
	}
	return 0, 0, false, fmt.Errorf("not an integer")
}

func toInt[T signed](w *wide, d *T, min, max int64) error {
	i, _, big, err := w.integer()
	if err != nil {
		return zqe.E(zqe.Invalid, err)
	}
	if big || i < min || i > max {
		return zqe.E(zqe.Invalid, "value %s out of range", w.text())
	}
	*d = T(i)
	return nil
}

func toUint[T Unsigned](w *wide, d *T, max uint64) error {
	i, u, big, err := w.integer()
	if err != nil {
		return zqe.E(zqe.Invalid, err)
	}
	if !big {
		if i < 0 {
			return zqe.E(zqe.Invalid, "value %d out of range", i)
		}
		u = uint64(i)
	}
	if u > max {
		return zqe.E(zqe.Invalid, "value %d out of range", u)
	}
	*d = T(u)
	return nil
}

func toBool(w *wide, d *bool) error {
	switch w.kind {
	case wideText:
		b, err := strconv.ParseBool(strings.TrimSpace(w.s))
		if err != nil {
			return zqe.E(zqe.Invalid, "cannot parse %q as a bool", w.s)
		}
		*d = b
	case wideBool:
		*d = w.b
	default:
		*d = w.float() != 0
	}
	return nil
}

func toSpan(w *wide, d *time.Duration) error {
	if w.kind == wideText {
		span, err := time.ParseDuration(strings.TrimSpace(w.s))
		if err != nil {
			return zqe.E(zqe.Invalid, "cannot parse %q as a time span", w.s)
		}
		*d = span
		return nil
	}
	i, _, big, err := w.integer()
	if err != nil || big {
		return zqe.E(zqe.Invalid, "value %s out of time span range", w.text())
	}
	*d = time.Duration(i)
	return nil
}

func toTime(w *wide, d *time.Time) error {
	if w.kind == wideText {
		t, err := dateparse.ParseAny(strings.TrimSpace(w.s))
		if err != nil {
			return zqe.E(zqe.Invalid, "cannot parse %q as a date-time", w.s)
		}
		*d = t
		return nil
	}
	i, _, big, err := w.integer()
	if err != nil || big {
		return zqe.E(zqe.Invalid, "value %s out of date-time range", w.text())
	}
	*d = time.Unix(0, i).UTC()
	return nil
}

// keyWriter converts integers to keys of a known cardinality.  Values
// outside 1..Count become the missing key 0.
func keyWriter(key *TypeKey) any {
	count := uint64(key.Count)
	clamp := func(w *wide) uint64 {
		i, u, big, err := w.integer()
		switch {
		case err != nil:
			return 0
		case big:
			if u > count {
				return 0
			}
			return u
		case i < 1 || uint64(i) > count:
			return 0
		}
		return uint64(i)
	}
	switch key.Base {
	case IDUint8:
		return func(w *wide, d *uint8) error { *d = uint8(clamp(w)); return nil }
	case IDUint16:
		return func(w *wide, d *uint16) error { *d = uint16(clamp(w)); return nil }
	case IDUint32:
		return func(w *wide, d *uint32) error { *d = uint32(clamp(w)); return nil }
	case IDUint64:
		return func(w *wide, d *uint64) error { *d = clamp(w); return nil }
	}
	return nil
}
