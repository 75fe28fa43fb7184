// Package arrowview implements a DataView over Arrow IPC streams.
//
// Each cursor opens the stream anew and reads it record batch by record
// batch, so a View may be cursored any number of times.  Null values read as
// NaN for floating point columns and as the zero value otherwise.
package arrowview

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v11/arrow"
	"github.com/apache/arrow/go/v11/arrow/array"
	"github.com/apache/arrow/go/v11/arrow/ipc"
	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
)

// View is a DataView over an Arrow IPC stream.
type View struct {
	open   func() (io.ReadCloser, error)
	schema *zml.Schema
	fields []field
}

var _ dataview.DataView = (*View)(nil)

// field maps an Arrow field to a column.
type field struct {
	index int
	bind  binder
}

// Open returns a View of the Arrow IPC stream file at path.
func Open(path string) (*View, error) {
	return New(func() (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// FromBytes returns a View of an Arrow IPC stream held in memory.
func FromBytes(b []byte) (*View, error) {
	return New(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	})
}

// New returns a View of the stream returned by open, which is called once to
// read the Arrow schema and once per cursor.  Fields of unsupported Arrow
// types are not columns of the view.
func New(open func() (io.ReadCloser, error)) (*View, error) {
	rc, err := open()
	if err != nil {
		return nil, err
	}
	r, err := ipc.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	arrowSchema := r.Schema()
	r.Release()
	if err := rc.Close(); err != nil {
		return nil, err
	}
	v := &View{open: open}
	var columns []zml.Column
	names := map[string]int{}
	for k, f := range arrowSchema.Fields() {
		typ, bind, err := columnOf(f.Type)
		if err != nil {
			if zqe.IsUnsupportedType(err) {
				continue
			}
			return nil, err
		}
		name := f.Name
		if n := names[name]; n > 0 {
			name += strconv.Itoa(n)
		}
		names[f.Name]++
		columns = append(columns, zml.Column{Name: name, Type: typ})
		v.fields = append(v.fields, field{index: k, bind: bind})
	}
	v.schema, err = zml.NewSchema(columns...)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (v *View) Schema() *zml.Schema {
	return v.schema
}

func (v *View) RowCount() int64 {
	return -1
}

func (v *View) Cursor(active func(int) bool) (dataview.Cursor, error) {
	rc, err := v.open()
	if err != nil {
		return nil, err
	}
	r, err := ipc.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	c := &cursor{
		schema:   v.schema,
		rc:       rc,
		r:        r,
		row:      -1,
		fields:   v.fields,
		bindings: make([]binding, len(v.fields)),
		getters:  make([]any, len(v.fields)),
	}
	for k, f := range v.fields {
		if active(k) {
			c.bindings[k] = f.bind(c)
			c.getters[k] = c.bindings[k].getter()
		}
	}
	return c, nil
}

type cursor struct {
	schema   *zml.Schema
	rc       io.ReadCloser
	r        *ipc.Reader
	rec      arrow.Record
	i        int
	row      int64
	state    dataview.State
	bindings []binding
	getters  []any
	fields   []field
}

func (c *cursor) Schema() *zml.Schema {
	return c.schema
}

func (c *cursor) Position() int64 {
	return c.row
}

func (c *cursor) State() dataview.State {
	return c.state
}

func (c *cursor) IsColumnActive(col int) bool {
	return col >= 0 && col < len(c.getters) && c.getters[col] != nil
}

func (c *cursor) Getter(col int) (any, error) {
	if col < 0 || col >= len(c.getters) {
		return nil, zqe.E(zqe.Invalid, "column index %d out of range", col)
	}
	if c.getters[col] == nil {
		return nil, zqe.E(zqe.State, "column '%s' is not active", c.schema.Column(col).Name)
	}
	return c.getters[col], nil
}

func (c *cursor) MoveNext() (bool, error) {
	if c.state == dataview.Done {
		return false, nil
	}
	c.i++
	for c.rec == nil || c.i >= int(c.rec.NumRows()) {
		rec, err := c.r.Read()
		if err != nil {
			c.state = dataview.Done
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		c.rec, c.i = rec, 0
		if err := c.reset(); err != nil {
			c.state = dataview.Done
			return false, err
		}
	}
	c.row++
	c.state = dataview.Active
	return true, nil
}

// reset points the bindings at the arrays of a new record batch.
func (c *cursor) reset() error {
	for k, b := range c.bindings {
		if b == nil {
			continue
		}
		if err := b.reset(c.rec.Column(c.fields[k].index)); err != nil {
			return fmt.Errorf("column '%s': %w", c.schema.Column(k).Name, err)
		}
	}
	return nil
}

func (c *cursor) check() error {
	if c.state != dataview.Active {
		return zqe.E(zqe.State, "getter called on a cursor that is %s", c.state)
	}
	return nil
}

func (c *cursor) Close() error {
	c.state = dataview.Done
	if c.r == nil {
		return nil
	}
	c.r.Release()
	c.r = nil
	return c.rc.Close()
}

// A binder creates the binding of a column for a cursor.
type binder func(*cursor) binding

// A binding reads one column of the cursor's current record batch.
type binding interface {
	reset(arrow.Array) error
	getter() any
}

type scalarBinding[T any, A arrow.Array] struct {
	c     *cursor
	arr   A
	value func(A, int) T
}

func (s *scalarBinding[T, A]) reset(arr arrow.Array) error {
	a, ok := arr.(A)
	if !ok {
		return zqe.E(zqe.SchemaMismatch, "unexpected arrow array type %s", arr.DataType())
	}
	s.arr = a
	return nil
}

func (s *scalarBinding[T, A]) getter() any {
	return zml.Getter[T](func(dst *T) error {
		if err := s.c.check(); err != nil {
			return err
		}
		*dst = s.value(s.arr, s.c.i)
		return nil
	})
}

func scalar[T any, A arrow.Array](value func(A, int) T) binder {
	return func(c *cursor) binding {
		return &scalarBinding[T, A]{c: c, value: value}
	}
}

// listBinding reads List and FixedSizeList arrays as vectors.
type listBinding[T any, A arrow.Array] struct {
	c      *cursor
	list   arrow.Array
	values A
	size   int
	value  func(A, int) T
}

func (l *listBinding[T, A]) reset(arr arrow.Array) error {
	var child arrow.Array
	switch arr := arr.(type) {
	case *array.List:
		child = arr.ListValues()
	case *array.FixedSizeList:
		child = arr.ListValues()
	default:
		return zqe.E(zqe.SchemaMismatch, "unexpected arrow array type %s", arr.DataType())
	}
	values, ok := child.(A)
	if !ok {
		return zqe.E(zqe.SchemaMismatch, "unexpected arrow list item type %s", child.DataType())
	}
	l.list, l.values = arr, values
	return nil
}

func (l *listBinding[T, A]) bounds(i int) (int, int) {
	switch arr := l.list.(type) {
	case *array.List:
		start, end := arr.ValueOffsets(i)
		return int(start), int(end)
	case *array.FixedSizeList:
		j := arr.Data().Offset() + i
		return j * l.size, (j + 1) * l.size
	}
	return 0, 0
}

func (l *listBinding[T, A]) getter() any {
	return zml.Getter[vbuf.VBuffer[T]](func(dst *vbuf.VBuffer[T]) error {
		if err := l.c.check(); err != nil {
			return err
		}
		if l.list.IsNull(l.c.i) {
			e := vbuf.Edit(dst, l.size, 0)
			e.Commit()
			return nil
		}
		start, end := l.bounds(l.c.i)
		e := vbuf.Edit(dst, end-start, end-start)
		for k := start; k < end; k++ {
			e.Values[k-start] = l.value(l.values, k)
		}
		e.Commit()
		return nil
	})
}

func list[T any, A arrow.Array](size int, value func(A, int) T) binder {
	return func(c *cursor) binding {
		return &listBinding[T, A]{c: c, size: size, value: value}
	}
}

// item maps an Arrow item type to a primitive type and value functions for
// scalars and list items.
type item struct {
	typ    zml.Type
	scalar binder
	list   func(size int) binder
}

func itemOf(dt arrow.DataType) (item, error) {
	switch dt.ID() {
	case arrow.UINT8:
		return numeric(zml.TypeUint8, (*array.Uint8).Value), nil
	case arrow.UINT16:
		return numeric(zml.TypeUint16, (*array.Uint16).Value), nil
	case arrow.UINT32:
		return numeric(zml.TypeUint32, (*array.Uint32).Value), nil
	case arrow.UINT64:
		return numeric(zml.TypeUint64, (*array.Uint64).Value), nil
	case arrow.INT8:
		return numeric(zml.TypeInt8, (*array.Int8).Value), nil
	case arrow.INT16:
		return numeric(zml.TypeInt16, (*array.Int16).Value), nil
	case arrow.INT32:
		return numeric(zml.TypeInt32, (*array.Int32).Value), nil
	case arrow.INT64:
		return numeric(zml.TypeInt64, (*array.Int64).Value), nil
	case arrow.FLOAT32:
		return numeric(zml.TypeFloat32, nullAsNaN((*array.Float32).Value)), nil
	case arrow.FLOAT64:
		return numeric(zml.TypeFloat64, nullAsNaN((*array.Float64).Value)), nil
	case arrow.BOOL:
		return numeric(zml.TypeBool, (*array.Boolean).Value), nil
	case arrow.STRING:
		return numeric(zml.TypeText, (*array.String).Value), nil
	case arrow.DURATION:
		unit := dt.(*arrow.DurationType).Unit.Multiplier()
		return numeric(zml.TypeTimeSpan, func(a *array.Duration, i int) time.Duration {
			return time.Duration(a.Value(i)) * unit
		}), nil
	case arrow.TIMESTAMP:
		unit := dt.(*arrow.TimestampType).Unit
		return numeric(zml.TypeDateTime, func(a *array.Timestamp, i int) time.Time {
			return a.Value(i).ToTime(unit)
		}), nil
	}
	return item{}, zqe.E(zqe.UnsupportedType, "arrow type %s", dt)
}

func numeric[T any, A arrow.Array](typ zml.Type, value func(A, int) T) item {
	return item{
		typ:    typ,
		scalar: scalar(value),
		list: func(size int) binder {
			return list(size, value)
		},
	}
}

type floatArray[T zml.Float] interface {
	arrow.Array
	Value(int) T
}

func nullAsNaN[T zml.Float, A floatArray[T]](value func(A, int) T) func(A, int) T {
	nan := T(math.NaN())
	return func(a A, i int) T {
		if a.IsNull(i) {
			return nan
		}
		return value(a, i)
	}
}

func columnOf(dt arrow.DataType) (zml.Type, binder, error) {
	switch dt := dt.(type) {
	case *arrow.ListType:
		it, err := itemOf(dt.Elem())
		if err != nil {
			return nil, nil, err
		}
		return zml.NewTypeVector(it.typ), it.list(0), nil
	case *arrow.FixedSizeListType:
		it, err := itemOf(dt.Elem())
		if err != nil {
			return nil, nil, err
		}
		size := int(dt.Len())
		return zml.NewTypeVector(it.typ, size), it.list(size), nil
	}
	it, err := itemOf(dt)
	if err != nil {
		return nil, nil, err
	}
	return it.typ, it.scalar, nil
}
