package convert_test

import (
	"testing"
	"time"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/transform/convert"
	"github.com/brimdata/zml/transform/transformtest"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(t *testing.T) *dataview.Table {
	sparse, err := vbuf.NewSparse(3, []int32{5}, []int{1})
	require.NoError(t, err)
	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "i", Type: zml.TypeInt32}, []int32{1, -2, 3})
	dataview.AddColumn(b, zml.Column{Name: "d", Type: zml.TypeText}, []string{"2021-01-02", "2021-01-02T03:04:05Z", "1970-01-01T00:00:00Z"})
	dataview.AddColumn(b, zml.Column{Name: "n", Type: zml.TypeText}, []string{"7", "x", "9"})
	dataview.AddColumn(b, zml.Column{Name: "ok", Type: zml.TypeBool}, []bool{true, false, true})
	meta := (&zml.MetadataBuilder{}).AddSlotNames([]string{"a", "b", "c"}).Build()
	dataview.AddVectorColumn(b, zml.Column{Name: "v", Type: zml.NewTypeVector(zml.TypeInt32, 3), Metadata: meta}, []vbuf.VBuffer[int32]{
		vbuf.NewDense([]int32{1, 2, 3}),
		sparse,
		vbuf.NewDense([]int32{0, 0, 7}),
	})
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

func transform(t *testing.T, data dataview.DataView, cols ...convert.ColumnOptions) dataview.DataView {
	tr, err := convert.New(cols...)
	require.NoError(t, err)
	out, err := tr.Transform(data)
	require.NoError(t, err)
	return out
}

func TestConvertScalars(t *testing.T) {
	key3 := zml.NewTypeKey(zml.IDUint32, 3)
	out := transform(t, input(t),
		convert.ColumnOptions{Output: "f", Input: "i", Type: zml.TypeFloat32},
		convert.ColumnOptions{Output: "k", Input: "i", Type: key3},
		convert.ColumnOptions{Output: "d", Type: zml.TypeDateTime},
		convert.ColumnOptions{Output: "oki", Input: "ok", Type: zml.TypeInt64},
	)
	assert.Equal(t, []float32{1, -2, 3}, transformtest.Column[float32](t, out, "f"))
	// -2 is not a valid key.
	assert.Equal(t, []uint32{1, 0, 3}, transformtest.Column[uint32](t, out, "k"))
	assert.Equal(t, []int64{1, 0, 1}, transformtest.Column[int64](t, out, "oki"))
	times := transformtest.Column[time.Time](t, out, "d")
	require.Len(t, times, 3)
	assert.True(t, time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC).Equal(times[1]), "%s", times[1])
	assert.Zero(t, times[2].Unix())

	k, ok := out.Schema().Lookup("k")
	require.True(t, ok)
	assert.Equal(t, "key<uint32:3>", out.Schema().ColumnType(k).String())

	back := transform(t, out, convert.ColumnOptions{Output: "kf", Input: "k", Type: zml.TypeFloat64})
	assert.Equal(t, []float64{1, 0, 3}, transformtest.Column[float64](t, back, "kf"))
}

func TestConvertVectors(t *testing.T) {
	out := transform(t, input(t),
		convert.ColumnOptions{Output: "vf", Input: "v", Type: zml.TypeFloat64},
		convert.ColumnOptions{Output: "vs", Input: "v", Type: zml.TypeText},
	)
	vf := transformtest.Column[vbuf.VBuffer[float64]](t, out, "vf")
	require.Len(t, vf, 3)
	assert.Equal(t, []float64{1, 2, 3}, vf[0].Values)
	assert.Equal(t, []float64{5}, vf[1].Values)
	assert.Equal(t, []int{1}, vf[1].Indices)

	vs := transformtest.Column[vbuf.VBuffer[string]](t, out, "vs")
	require.Len(t, vs, 3)
	assert.True(t, vs[1].IsDense(), "zero converts to nonzero text")
	assert.Equal(t, []string{"0", "5", "0"}, vs[1].Values)

	k, ok := out.Schema().Lookup("vf")
	require.True(t, ok)
	assert.Equal(t, "vector<float64,3>", out.Schema().ColumnType(k).String())
	assert.Equal(t, []string{zml.SlotNames}, out.Schema().MetadataKinds(k))
}

func TestConvertErrors(t *testing.T) {
	data := input(t)
	_, err := convert.New(convert.ColumnOptions{Output: "x", Type: zml.NewTypeVector(zml.TypeFloat32, 2)})
	assert.Error(t, err)
	_, err = convert.New(convert.ColumnOptions{Output: "x"})
	assert.Error(t, err)

	tr, err := convert.New(convert.ColumnOptions{Output: "ok", Type: zml.TypeDateTime})
	require.NoError(t, err)
	_, err = tr.Transform(data)
	assert.True(t, zqe.IsSchemaMismatch(err), "%v", err)
	_, err = tr.OutputShape(zml.ShapeOf(data.Schema()))
	assert.True(t, zqe.IsSchemaMismatch(err), "%v", err)

	out := transform(t, data, convert.ColumnOptions{Output: "n", Type: zml.TypeInt32})
	_, err = dataview.ReadColumn[int32](out, "n")
	assert.Error(t, err, "x is not an integer")
}

func TestConvertContract(t *testing.T) {
	data := input(t)
	tr, err := convert.New(
		convert.ColumnOptions{Output: "i", Type: zml.TypeFloat64},
		convert.ColumnOptions{Output: "k", Input: "i", Type: zml.NewTypeKey(zml.IDUint8, 3)},
		convert.ColumnOptions{Output: "v", Type: zml.TypeFloat32},
		convert.ColumnOptions{Output: "ok", Type: zml.TypeText},
	)
	require.NoError(t, err)
	transformtest.CheckShape(t, tr, data)
	transformtest.CheckLazy(t, tr, data.Schema())
	transformtest.CheckRoundTrip(t, tr, data)
}
