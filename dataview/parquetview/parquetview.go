// Package parquetview implements a DataView over Parquet files.
//
// A cursor reads only the Parquet columns its activity predicate selects.
// Primitive Parquet columns and LIST groups of primitives are supported;
// other columns are not part of the view's schema.  Null values read as NaN
// for floating point columns and as the zero value otherwise.
package parquetview

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
	goparquet "github.com/fraugster/parquet-go"
	"github.com/fraugster/parquet-go/parquet"
	"github.com/fraugster/parquet-go/parquetschema"
)

type View struct {
	open    func() (io.ReadSeekCloser, error)
	schema  *zml.Schema
	columns []column
	rows    int64
}

var _ dataview.DataView = (*View)(nil)

type column struct {
	name string
	typ  zml.Type
	bind func(*cursor, string) any
}

func Open(path string) (*View, error) {
	return New(func() (io.ReadSeekCloser, error) {
		return os.Open(path)
	})
}

type nopCloser struct {
	io.ReadSeeker
}

func (nopCloser) Close() error { return nil }

func FromBytes(b []byte) (*View, error) {
	return New(func() (io.ReadSeekCloser, error) {
		return nopCloser{bytes.NewReader(b)}, nil
	})
}

// New returns a View of the Parquet file returned by open, which is called
// once to read the file's metadata and once per cursor.
func New(open func() (io.ReadSeekCloser, error)) (*View, error) {
	rs, err := open()
	if err != nil {
		return nil, err
	}
	defer rs.Close()
	fr, err := goparquet.NewFileReader(rs)
	if err != nil {
		return nil, err
	}
	v := &View{open: open, rows: fr.NumRows()}
	var cols []zml.Column
	for _, cd := range fr.GetSchemaDefinition().RootColumn.Children {
		c, err := newColumn(cd)
		if err != nil {
			if zqe.IsUnsupportedType(err) {
				continue
			}
			return nil, fmt.Errorf("%s: %w", cd.SchemaElement.Name, err)
		}
		v.columns = append(v.columns, c)
		cols = append(cols, zml.Column{Name: c.name, Type: c.typ})
	}
	if v.schema, err = zml.NewSchema(cols...); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *View) Schema() *zml.Schema {
	return v.schema
}

func (v *View) RowCount() int64 {
	return v.rows
}

func (v *View) Cursor(active func(int) bool) (dataview.Cursor, error) {
	var names []string
	for k, c := range v.columns {
		if active(k) {
			names = append(names, c.name)
		}
	}
	rs, err := v.open()
	if err != nil {
		return nil, err
	}
	c := &cursor{
		schema:  v.schema,
		rs:      rs,
		rows:    v.rows,
		row:     -1,
		getters: make([]any, len(v.columns)),
	}
	if len(names) > 0 {
		// With no column names, the reader would read every column.
		if c.fr, err = goparquet.NewFileReader(rs, names...); err != nil {
			rs.Close()
			return nil, err
		}
	}
	for k, col := range v.columns {
		if active(k) {
			c.getters[k] = col.bind(c, col.name)
		}
	}
	return c, nil
}

type cursor struct {
	schema  *zml.Schema
	rs      io.ReadSeekCloser
	fr      *goparquet.FileReader
	rows    int64
	row     int64
	state   dataview.State
	data    map[string]interface{}
	getters []any
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
	if c.fr == nil {
		// No columns are active, so only the row count matters.
		if c.row+1 >= c.rows {
			c.state = dataview.Done
			return false, nil
		}
	} else {
		data, err := c.fr.NextRow()
		if err != nil {
			c.state = dataview.Done
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		c.data = data
	}
	c.row++
	c.state = dataview.Active
	return true, nil
}

func (c *cursor) value(name string) (interface{}, error) {
	if c.state != dataview.Active {
		return nil, zqe.E(zqe.State, "getter called on a cursor that is %s", c.state)
	}
	return c.data[name], nil
}

func (c *cursor) Close() error {
	c.state = dataview.Done
	if c.rs == nil {
		return nil
	}
	err := c.rs.Close()
	c.rs = nil
	return err
}

func scalar[T any](conv func(any) T) func(*cursor, string) any {
	return func(c *cursor, name string) any {
		return zml.Getter[T](func(dst *T) error {
			v, err := c.value(name)
			if err != nil {
				return err
			}
			*dst = conv(v)
			return nil
		})
	}
}

func list[T any](conv func(any) T) func(*cursor, string) any {
	return func(c *cursor, name string) any {
		return zml.Getter[vbuf.VBuffer[T]](func(dst *vbuf.VBuffer[T]) error {
			v, err := c.value(name)
			if err != nil {
				return err
			}
			var elems []map[string]interface{}
			if m, ok := v.(map[string]interface{}); ok {
				elems, _ = m["list"].([]map[string]interface{})
			}
			e := vbuf.Edit(dst, len(elems), len(elems))
			for k, elem := range elems {
				e.Values[k] = conv(elem["element"])
			}
			e.Commit()
			return nil
		})
	}
}

// item holds the column type of a primitive Parquet type and binders for
// scalar and list columns of it.
type item struct {
	typ    zml.Type
	scalar func(*cursor, string) any
	list   func(*cursor, string) any
}

func itemOf[T any](typ zml.Type, conv func(any) T) item {
	return item{typ: typ, scalar: scalar(conv), list: list(conv)}
}

func newColumn(cd *parquetschema.ColumnDefinition) (column, error) {
	se := cd.SchemaElement
	if se.Type != nil {
		it, err := primitive(se)
		if err != nil {
			return column{}, err
		}
		return column{name: se.Name, typ: it.typ, bind: it.scalar}, nil
	}
	if se.GetConvertedType() == parquet.ConvertedType_LIST && len(cd.Children) == 1 && len(cd.Children[0].Children) == 1 {
		elem := cd.Children[0].Children[0].SchemaElement
		if elem.Type == nil {
			return column{}, zqe.E(zqe.UnsupportedType, "nested list")
		}
		it, err := primitive(elem)
		if err != nil {
			return column{}, err
		}
		return column{name: se.Name, typ: zml.NewTypeVector(it.typ), bind: it.list}, nil
	}
	return column{}, zqe.E(zqe.UnsupportedType, "group column")
}

func primitive(se *parquet.SchemaElement) (item, error) {
	if se.IsSetLogicalType() && se.LogicalType.IsSetDECIMAL() ||
		se.GetConvertedType() == parquet.ConvertedType_DECIMAL {
		return item{}, zqe.E(zqe.UnsupportedType, "DECIMAL")
	}
	switch *se.Type {
	case parquet.Type_BOOLEAN:
		return itemOf(zml.TypeBool, func(v any) bool {
			b, _ := v.(bool)
			return b
		}), nil
	case parquet.Type_INT32:
		bits, signed := 32, true
		if l := se.LogicalType; l != nil && l.IsSetINTEGER() {
			bits, signed = int(l.INTEGER.BitWidth), l.INTEGER.IsSigned
		} else if se.IsSetConvertedType() {
			switch *se.ConvertedType {
			case parquet.ConvertedType_UINT_8:
				bits, signed = 8, false
			case parquet.ConvertedType_UINT_16:
				bits, signed = 16, false
			case parquet.ConvertedType_UINT_32:
				bits, signed = 32, false
			case parquet.ConvertedType_INT_8:
				bits = 8
			case parquet.ConvertedType_INT_16:
				bits = 16
			}
		}
		return int32Item(bits, signed), nil
	case parquet.Type_INT64:
		if l := se.LogicalType; l != nil && l.IsSetTIMESTAMP() && l.TIMESTAMP.IsSetUnit() {
			unit := time.Nanosecond
			switch {
			case l.TIMESTAMP.Unit.IsSetMILLIS():
				unit = time.Millisecond
			case l.TIMESTAMP.Unit.IsSetMICROS():
				unit = time.Microsecond
			}
			return itemOf(zml.TypeDateTime, func(v any) time.Time {
				i, _ := v.(int64)
				return time.Unix(0, i*int64(unit)).UTC()
			}), nil
		}
		if se.GetConvertedType() == parquet.ConvertedType_UINT_64 ||
			se.IsSetLogicalType() && se.LogicalType.IsSetINTEGER() && !se.LogicalType.INTEGER.IsSigned {
			return itemOf(zml.TypeUint64, func(v any) uint64 {
				i, _ := v.(int64)
				return uint64(i)
			}), nil
		}
		return itemOf(zml.TypeInt64, func(v any) int64 {
			i, _ := v.(int64)
			return i
		}), nil
	case parquet.Type_FLOAT:
		return itemOf(zml.TypeFloat32, func(v any) float32 {
			if f, ok := v.(float32); ok {
				return f
			}
			return float32(math.NaN())
		}), nil
	case parquet.Type_DOUBLE:
		return itemOf(zml.TypeFloat64, func(v any) float64 {
			if f, ok := v.(float64); ok {
				return f
			}
			return math.NaN()
		}), nil
	case parquet.Type_BYTE_ARRAY:
		if se.GetConvertedType() == parquet.ConvertedType_UTF8 ||
			se.IsSetLogicalType() && se.LogicalType.IsSetSTRING() {
			return itemOf(zml.TypeText, func(v any) string {
				b, _ := v.([]byte)
				return string(b)
			}), nil
		}
	}
	return item{}, zqe.E(zqe.UnsupportedType, "parquet type %s", se.Type)
}

func int32Item(bits int, signed bool) item {
	i32 := func(v any) int32 {
		i, _ := v.(int32)
		return i
	}
	switch {
	case bits == 8 && signed:
		return itemOf(zml.TypeInt8, func(v any) int8 { return int8(i32(v)) })
	case bits == 8:
		return itemOf(zml.TypeUint8, func(v any) uint8 { return uint8(i32(v)) })
	case bits == 16 && signed:
		return itemOf(zml.TypeInt16, func(v any) int16 { return int16(i32(v)) })
	case bits == 16:
		return itemOf(zml.TypeUint16, func(v any) uint16 { return uint16(i32(v)) })
	case !signed:
		return itemOf(zml.TypeUint32, func(v any) uint32 { return uint32(i32(v)) })
	}
	return itemOf(zml.TypeInt32, i32)
}
