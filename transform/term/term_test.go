package term_test

import (
	"math"
	"testing"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/transform/term"
	"github.com/brimdata/zml/transform/transformtest"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(t *testing.T) *dataview.Table {
	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "c", Type: zml.TypeText}, []string{"b", "a", "b", "c"})
	dataview.AddColumn(b, zml.Column{Name: "f", Type: zml.TypeFloat64}, []float64{2, math.NaN(), 1, 2})
	sparse, err := vbuf.NewSparse(3, []int32{5}, []int{1})
	require.NoError(t, err)
	dataview.AddVectorColumn(b, zml.Column{Name: "v", Type: zml.NewTypeVector(zml.TypeInt32, 3)}, []vbuf.VBuffer[int32]{
		vbuf.NewDense([]int32{0, 5, 7}),
		sparse,
		vbuf.NewDense([]int32{7, 7, 7}),
		vbuf.NewDense([]int32{5, 0, 5}),
	})
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

func fit(t *testing.T, data dataview.DataView, cols ...term.ColumnOptions) *term.Transformer {
	est, err := term.NewEstimator(cols...)
	require.NoError(t, err)
	tr, err := est.Fit(nil, data)
	require.NoError(t, err)
	return tr.(*term.Transformer)
}

func TestTermKeys(t *testing.T) {
	data := input(t)
	tr := fit(t, data,
		term.ColumnOptions{Output: "ck", Input: "c"},
		term.ColumnOptions{Output: "fk", Input: "f", Sort: term.ByValue},
		term.ColumnOptions{Output: "c2", Input: "c", MaxKeys: 2},
	)
	assert.Equal(t, 3, tr.Terms("ck"))
	assert.Equal(t, 2, tr.Terms("fk"))
	assert.Equal(t, -1, tr.Terms("nope"))
	out, err := tr.Transform(data)
	require.NoError(t, err)

	assert.Equal(t, []uint32{1, 2, 1, 3}, transformtest.Column[uint32](t, out, "ck"))
	assert.Equal(t, []uint32{2, 0, 1, 2}, transformtest.Column[uint32](t, out, "fk"))
	assert.Equal(t, []uint32{1, 2, 1, 0}, transformtest.Column[uint32](t, out, "c2"))

	k, ok := out.Schema().Lookup("ck")
	require.True(t, ok)
	assert.Equal(t, "key<uint32:3>", out.Schema().ColumnType(k).String())
	var values vbuf.VBuffer[string]
	require.NoError(t, zml.GetColumnMetadata(out.Schema(), k, zml.KeyValues, &values))
	assert.Equal(t, []string{"b", "a", "c"}, values.DenseValues(nil))
}

func TestTermVector(t *testing.T) {
	data := input(t)
	tr := fit(t, data, term.ColumnOptions{Output: "v"})
	out, err := tr.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "f", "v"}, out.Schema().Names())
	vs := transformtest.Column[vbuf.VBuffer[uint32]](t, out, "v")
	require.Len(t, vs, 4)
	// 0 is the first term, so the sparse row is densified.
	assert.True(t, vs[1].IsDense())
	assert.Equal(t, []uint32{1, 2, 1}, vs[1].Values)
	assert.Equal(t, []uint32{1, 2, 3}, vs[0].Values)
	assert.Equal(t, []uint32{3, 3, 3}, vs[2].Values)
	assert.Equal(t, []uint32{2, 1, 2}, vs[3].Values)
}

func TestTermSparseWithoutZero(t *testing.T) {
	b := dataview.NewBuilder()
	sparse, err := vbuf.NewSparse(4, []string{"x"}, []int{2})
	require.NoError(t, err)
	dataview.AddVectorColumn(b, zml.Column{Name: "s", Type: zml.NewTypeVector(zml.TypeText, 4)}, []vbuf.VBuffer[string]{sparse})
	data, err := b.Build()
	require.NoError(t, err)
	tr := fit(t, data, term.ColumnOptions{Output: "s"})
	// The implicit empty strings are terms too.
	assert.Equal(t, 2, tr.Terms("s"))
	out, err := tr.Transform(data)
	require.NoError(t, err)
	vs := transformtest.Column[vbuf.VBuffer[uint32]](t, out, "s")
	assert.Equal(t, []uint32{1, 1, 2, 1}, vs[0].DenseValues(nil))
}

func TestTermTypeMismatch(t *testing.T) {
	tr := fit(t, input(t), term.ColumnOptions{Output: "ck", Input: "c"})
	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "c", Type: zml.TypeInt32}, []int32{1, 2})
	other, err := b.Build()
	require.NoError(t, err)
	_, err = tr.Transform(other)
	assert.True(t, zqe.IsSchemaMismatch(err), "%v", err)
	assert.ErrorContains(t, err, "expected text, got int32")
	_, err = tr.OutputSchema(other.Schema())
	assert.True(t, zqe.IsSchemaMismatch(err))
}

func TestTermErrors(t *testing.T) {
	_, err := term.NewEstimator(term.ColumnOptions{Output: "x", MaxKeys: -1})
	assert.Error(t, err)
	_, err = term.NewEstimator(term.ColumnOptions{Output: "x"}, term.ColumnOptions{Output: "x", Input: "y"})
	assert.True(t, zqe.IsDuplicate(err))

	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "f", Type: zml.TypeFloat32}, []float32{float32(math.NaN())})
	dataview.AddColumn(b, zml.Column{Name: "k", Type: zml.NewTypeKey(zml.IDUint8, 3)}, []uint8{1})
	data, err := b.Build()
	require.NoError(t, err)
	est, err := term.NewEstimator(term.ColumnOptions{Output: "f"})
	require.NoError(t, err)
	_, err = est.Fit(nil, data)
	assert.ErrorContains(t, err, "no terms")

	est, err = term.NewEstimator(term.ColumnOptions{Output: "k"})
	require.NoError(t, err)
	_, err = est.Fit(nil, data)
	assert.True(t, zqe.IsSchemaMismatch(err))
	_, err = est.OutputShape(zml.ShapeOf(data.Schema()))
	assert.True(t, zqe.IsSchemaMismatch(err))
}

func TestTermContract(t *testing.T) {
	data := input(t)
	est, err := term.NewEstimator(
		term.ColumnOptions{Output: "ck", Input: "c", Sort: term.ByValue},
		term.ColumnOptions{Output: "f"},
		term.ColumnOptions{Output: "vk", Input: "v"},
	)
	require.NoError(t, err)
	tr := transformtest.CheckShape(t, est, data)
	transformtest.CheckLazy(t, tr, data.Schema())
	loaded := transformtest.CheckRoundTrip(t, tr, data)
	assert.Equal(t, 3, loaded.(*term.Transformer).Terms("ck"))

	chain, err := transform.NewEstimatorChain(est).Fit(transform.NewEnv(nil, nil), data)
	require.NoError(t, err)
	transformtest.CheckRoundTrip(t, chain, data)
}
