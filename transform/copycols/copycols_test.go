package copycols_test

import (
	"testing"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/transform/copycols"
	"github.com/brimdata/zml/transform/transformtest"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(t *testing.T) *dataview.Table {
	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "x", Type: zml.TypeFloat32}, []float32{1, 2, 3})
	dataview.AddColumn(b, zml.Column{Name: "s", Type: zml.TypeText}, []string{"a", "b", "c"})
	meta := (&zml.MetadataBuilder{}).AddSlotNames([]string{"p", "q"}).Build()
	sparse, err := vbuf.NewSparse(2, []float64{4}, []int{1})
	require.NoError(t, err)
	dataview.AddVectorColumn(b, zml.Column{Name: "v", Type: zml.NewTypeVector(zml.TypeFloat64, 2), Metadata: meta}, []vbuf.VBuffer[float64]{
		vbuf.NewDense([]float64{1, 2}),
		sparse,
		vbuf.NewDense([]float64{5, 6}),
	})
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

func TestCopyColumns(t *testing.T) {
	data := input(t)
	tr, err := copycols.New(transform.Pair("x2", "x"), transform.Pair("v2", "v"))
	require.NoError(t, err)
	out, err := tr.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "s", "v", "x2", "v2"}, out.Schema().Names())
	n, err := dataview.RowCount(out)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	assert.Equal(t, transformtest.Column[float32](t, data, "x"), transformtest.Column[float32](t, out, "x2"))
	v := transformtest.Column[vbuf.VBuffer[float64]](t, out, "v2")
	assert.False(t, v[1].IsDense())
	assert.Equal(t, []float64{0, 4}, v[1].DenseValues(nil))

	k, ok := out.Schema().Lookup("v2")
	require.True(t, ok)
	var names vbuf.VBuffer[string]
	require.NoError(t, zml.GetColumnMetadata(out.Schema(), k, zml.SlotNames, &names))
	assert.Equal(t, []string{"p", "q"}, names.Values)

	// The input columns are passed through untouched.
	before := transformtest.Dump(t, data)
	after := transformtest.Dump(t, out)
	for k := range before {
		assert.Contains(t, after[k], before[k])
	}
}

func TestCopyReplaces(t *testing.T) {
	data := input(t)
	tr, err := copycols.New(transform.Pair("x", "s"))
	require.NoError(t, err)
	out, err := tr.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "v", "x"}, out.Schema().Names())
	assert.Equal(t, []string{"a", "b", "c"}, transformtest.Column[string](t, out, "x"))
	transformtest.CheckShape(t, tr, data)
}

func TestCopyErrors(t *testing.T) {
	_, err := copycols.New()
	assert.Error(t, err)
	_, err = copycols.New(transform.Pair("a", "x"), transform.Pair("a", "s"))
	assert.True(t, zqe.IsDuplicate(err))

	tr, err := copycols.New(transform.Pair("y", "xx"))
	require.NoError(t, err)
	_, err = tr.Transform(input(t))
	assert.True(t, zqe.IsSchemaMismatch(err))
	assert.ErrorContains(t, err, "did you mean 'x'")
	_, err = tr.OutputShape(zml.ShapeOf(input(t).Schema()))
	assert.True(t, zqe.IsSchemaMismatch(err))
}

func TestCopyContract(t *testing.T) {
	data := input(t)
	tr, err := copycols.New(transform.Pair("x2", "x"), transform.Pair("v2", "v"))
	require.NoError(t, err)
	transformtest.CheckShape(t, tr, data)
	transformtest.CheckLazy(t, tr, data.Schema())
	loaded := transformtest.CheckRoundTrip(t, tr, data)
	assert.Equal(t, tr.Pairs(), loaded.(*copycols.Transformer).Pairs())
}
