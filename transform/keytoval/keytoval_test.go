package keytoval_test

import (
	"math"
	"testing"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/transform/keytoval"
	"github.com/brimdata/zml/transform/term"
	"github.com/brimdata/zml/transform/transformtest"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyToValue(t *testing.T) {
	key := zml.NewTypeKey(zml.IDUint16, 3)
	b := dataview.NewBuilder()
	names := zml.AddKeyValues(&zml.MetadataBuilder{}, zml.TypeText, []string{"x", "y", "z"}).Build()
	dataview.AddColumn(b, zml.Column{Name: "k", Type: key, Metadata: names}, []uint16{3, 0, 1})
	weights := zml.AddKeyValues(&zml.MetadataBuilder{}, zml.TypeFloat64, []float64{0.5, 1.5, 2.5}).
		AddSlotNames([]string{"p", "q"}).
		Build()
	sparse, err := vbuf.NewSparse(2, []uint16{2}, []int{0})
	require.NoError(t, err)
	dataview.AddVectorColumn(b, zml.Column{Name: "v", Type: zml.NewTypeVector(key, 2), Metadata: weights}, []vbuf.VBuffer[uint16]{
		vbuf.NewDense([]uint16{1, 3}),
		sparse,
		vbuf.NewDense([]uint16{7, 2}),
	})
	data, err := b.Build()
	require.NoError(t, err)

	tr, err := keytoval.New(transform.Pair("k", ""), transform.Pair("w", "v"))
	require.NoError(t, err)
	out, err := tr.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "", "x"}, transformtest.Column[string](t, out, "k"))

	ws := transformtest.Column[vbuf.VBuffer[float64]](t, out, "w")
	assert.Equal(t, []float64{0.5, 2.5}, ws[0].Values)
	// The implicit missing key is NaN, so the sparse row is densified.
	require.True(t, ws[1].IsDense())
	assert.Equal(t, 1.5, ws[1].Values[0])
	assert.True(t, math.IsNaN(ws[1].Values[1]))
	assert.True(t, math.IsNaN(ws[2].Values[0]))

	k, ok := out.Schema().Lookup("w")
	require.True(t, ok)
	assert.Equal(t, "vector<float64,2>", out.Schema().ColumnType(k).String())
	assert.Equal(t, []string{zml.SlotNames}, out.Schema().MetadataKinds(k))

	transformtest.CheckShape(t, tr, data)
	transformtest.CheckLazy(t, tr, data.Schema())
	transformtest.CheckRoundTrip(t, tr, data)
}

func TestTermRoundTrip(t *testing.T) {
	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "n", Type: zml.TypeInt64}, []int64{40, 10, 40, 30})
	data, err := b.Build()
	require.NoError(t, err)
	est, err := term.NewEstimator(term.ColumnOptions{Output: "key", Input: "n", Sort: term.ByValue})
	require.NoError(t, err)
	k2v, err := keytoval.New(transform.Pair("back", "key"))
	require.NoError(t, err)
	tr := transformtest.CheckShape(t, transform.NewEstimatorChain(est, k2v), data)
	out, err := tr.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []uint32{3, 1, 3, 2}, transformtest.Column[uint32](t, out, "key"))
	assert.Equal(t, []int64{40, 10, 40, 30}, transformtest.Column[int64](t, out, "back"))
}

func TestKeyToValueErrors(t *testing.T) {
	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "k", Type: zml.NewTypeKey(zml.IDUint8, 2)}, []uint8{1})
	data, err := b.Build()
	require.NoError(t, err)
	tr, err := keytoval.New(transform.Pair("k", ""))
	require.NoError(t, err)
	_, err = tr.Transform(data)
	assert.True(t, zqe.IsSchemaMismatch(err))
	_, err = tr.OutputShape(zml.ShapeOf(data.Schema()))
	assert.True(t, zqe.IsSchemaMismatch(err))
}
