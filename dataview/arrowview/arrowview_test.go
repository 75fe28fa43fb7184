package arrowview_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/apache/arrow/go/v11/arrow"
	"github.com/apache/arrow/go/v11/arrow/array"
	"github.com/apache/arrow/go/v11/arrow/ipc"
	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/dataview/arrowview"
	"github.com/brimdata/zml/vbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStream(t *testing.T) []byte {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "x", Type: arrow.PrimitiveTypes.Float32, Nullable: true},
		{Name: "s", Type: arrow.BinaryTypes.String},
		{Name: "v", Type: arrow.FixedSizeListOf(2, arrow.PrimitiveTypes.Int32)},
		{Name: "b", Type: arrow.BinaryTypes.Binary},
	}, nil)
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	for batch := 0; batch < 2; batch++ {
		b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
		b.Field(0).(*array.Float32Builder).AppendValues([]float32{1, 2}, []bool{true, batch == 0})
		b.Field(1).(*array.StringBuilder).AppendValues([]string{"a", "b"}, nil)
		lb := b.Field(2).(*array.FixedSizeListBuilder)
		vb := lb.ValueBuilder().(*array.Int32Builder)
		for k := 0; k < 2; k++ {
			lb.Append(true)
			vb.AppendValues([]int32{int32(batch), int32(k)}, nil)
		}
		b.Field(3).(*array.BinaryBuilder).AppendValues([][]byte{{1}, {2}}, nil)
		rec := b.NewRecord()
		require.NoError(t, w.Write(rec))
		rec.Release()
		b.Release()
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestArrowView(t *testing.T) {
	view, err := arrowview.FromBytes(writeStream(t))
	require.NoError(t, err)
	schema := view.Schema()
	// The binary column has no column type.
	assert.Equal(t, []string{"x", "s", "v"}, schema.Names())
	assert.True(t, zml.Equal(zml.NewTypeVector(zml.TypeInt32, 2), schema.ColumnType(2)))

	xs, err := dataview.ReadColumn[float32](view, "x")
	require.NoError(t, err)
	require.Len(t, xs, 4)
	assert.Equal(t, []float32{1, 2, 1}, xs[:3])
	assert.True(t, math.IsNaN(float64(xs[3])))

	vs, err := dataview.ReadColumn[vbuf.VBuffer[int32]](view, "v")
	require.NoError(t, err)
	require.Len(t, vs, 4)
	assert.Equal(t, []int32{0, 1}, vs[1].Values)
	assert.Equal(t, []int32{1, 0}, vs[2].Values)

	// Views are re-iterable.
	ss, err := dataview.ReadColumn[string](view, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a", "b"}, ss)
	n, err := dataview.RowCount(view)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}
