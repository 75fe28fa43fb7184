package nareplace_test

import (
	"math"
	"testing"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/transform/nareplace"
	"github.com/brimdata/zml/transform/transformtest"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan32 = float32(math.NaN())

func vectors(t *testing.T) []vbuf.VBuffer[float32] {
	sparse, err := vbuf.NewSparse(3, []float32{nan32}, []int{0})
	require.NoError(t, err)
	return []vbuf.VBuffer[float32]{
		vbuf.NewDense([]float32{1, nan32, 3}),
		sparse,
		vbuf.NewDense([]float32{5, 2, nan32}),
	}
}

func input(t *testing.T, vs []vbuf.VBuffer[float32]) *dataview.Table {
	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "x", Type: zml.TypeFloat64}, []float64{1, math.NaN(), 3})
	dataview.AddColumn(b, zml.Column{Name: "s", Type: zml.TypeText}, []string{"a", "b", "c"})
	meta := (&zml.MetadataBuilder{}).AddSlotNames([]string{"p", "q", "r"}).AddIsNormalized().Build()
	dataview.AddVectorColumn(b, zml.Column{Name: "v", Type: zml.NewTypeVector(zml.TypeFloat32, 3), Metadata: meta}, vs)
	dataview.AddVectorColumn(b, zml.Column{Name: "var", Type: zml.NewTypeVector(zml.TypeFloat32)}, []vbuf.VBuffer[float32]{
		vbuf.NewDense([]float32{nan32}),
		vbuf.NewDense([]float32{}),
		vbuf.NewDense([]float32{4, nan32}),
	})
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

func fit(t *testing.T, data dataview.DataView, cols ...nareplace.ColumnOptions) *nareplace.Transformer {
	est, err := nareplace.NewEstimator(cols...)
	require.NoError(t, err)
	tr, err := est.Fit(nil, data)
	require.NoError(t, err)
	return tr.(*nareplace.Transformer)
}

func dense(vs []vbuf.VBuffer[float32]) [][]float32 {
	var out [][]float32
	for k := range vs {
		out = append(out, vs[k].DenseValues(nil))
	}
	return out
}

func TestDefaultValue(t *testing.T) {
	data := input(t, vectors(t))
	tr := fit(t, data, nareplace.ColumnOptions{Output: "x"})
	out, err := tr.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 3}, transformtest.Column[float64](t, out, "x"))

	tr = fit(t, data, nareplace.ColumnOptions{Output: "x2", Input: "x", Value: -1})
	out, err = tr.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -1, 3}, transformtest.Column[float64](t, out, "x2"))
}

func TestStatistics(t *testing.T) {
	data := input(t, vectors(t))
	tr := fit(t, data,
		nareplace.ColumnOptions{Output: "mean", Input: "x", Mode: nareplace.Mean},
		nareplace.ColumnOptions{Output: "min", Input: "x", Mode: nareplace.Minimum},
		nareplace.ColumnOptions{Output: "vmean", Input: "v", Mode: nareplace.Mean},
		nareplace.ColumnOptions{Output: "vmax", Input: "v", Mode: nareplace.Maximum, BySlot: true},
		nareplace.ColumnOptions{Output: "var", Mode: nareplace.Maximum},
	)
	assert.Equal(t, []float64{2}, tr.Values("mean"))
	assert.Equal(t, []float64{1}, tr.Values("min"))
	// The implicit zeros of the sparse row count.
	require.Len(t, tr.Values("vmean"), 1)
	assert.InDelta(t, 11.0/6, tr.Values("vmean")[0], 1e-9)
	assert.Equal(t, []float64{5, 2, 3}, tr.Values("vmax"))
	assert.Equal(t, []float64{4}, tr.Values("var"))
	assert.Nil(t, tr.Values("nope"))

	out, err := tr.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, transformtest.Column[float64](t, out, "mean"))
	assert.Equal(t, []float64{1, 1, 3}, transformtest.Column[float64](t, out, "min"))

	vmax := transformtest.Column[vbuf.VBuffer[float32]](t, out, "vmax")
	assert.Equal(t, [][]float32{{1, 2, 3}, {5, 0, 0}, {5, 2, 3}}, dense(vmax))
	assert.False(t, vmax[1].IsDense())

	vars := transformtest.Column[vbuf.VBuffer[float32]](t, out, "var")
	assert.Equal(t, [][]float32{{4}, nil, {4, 4}}, dense(vars))

	k, ok := out.Schema().Lookup("vmax")
	require.True(t, ok)
	assert.Equal(t, []string{zml.SlotNames}, out.Schema().MetadataKinds(k))
}

func TestSparseDenseEquivalence(t *testing.T) {
	sparse := vectors(t)
	densified := make([]vbuf.VBuffer[float32], len(sparse))
	for k := range sparse {
		densified[k] = sparse[k].Clone()
		densified[k].Densify()
	}
	for _, bySlot := range []bool{false, true} {
		col := nareplace.ColumnOptions{Output: "v", Mode: nareplace.Mean, BySlot: bySlot}
		a := input(t, sparse)
		b := input(t, densified)
		ta := fit(t, a, col)
		tb := fit(t, b, col)
		assert.Equal(t, ta.Values("v"), tb.Values("v"))
		outA, err := ta.Transform(a)
		require.NoError(t, err)
		outB, err := tb.Transform(b)
		require.NoError(t, err)
		assert.Equal(t,
			dense(transformtest.Column[vbuf.VBuffer[float32]](t, outB, "v")),
			dense(transformtest.Column[vbuf.VBuffer[float32]](t, outA, "v")))
	}
}

func TestReplaceErrors(t *testing.T) {
	data := input(t, vectors(t))
	_, err := nareplace.NewEstimator(nareplace.ColumnOptions{Output: "x", Mode: nareplace.Mode(9)})
	assert.Error(t, err)

	est, err := nareplace.NewEstimator(nareplace.ColumnOptions{Output: "s", Mode: nareplace.Mean})
	require.NoError(t, err)
	_, err = est.Fit(nil, data)
	assert.True(t, zqe.IsUnsupportedType(err), "%v", err)
	_, err = est.OutputShape(zml.ShapeOf(data.Schema()))
	assert.True(t, zqe.IsSchemaMismatch(err))

	est, err = nareplace.NewEstimator(nareplace.ColumnOptions{Output: "var", Mode: nareplace.Mean, BySlot: true})
	require.NoError(t, err)
	_, err = est.Fit(nil, data)
	assert.True(t, zqe.IsSchemaMismatch(err))
	_, err = est.OutputShape(zml.ShapeOf(data.Schema()))
	assert.True(t, zqe.IsSchemaMismatch(err), "%v", err)

	est, err = nareplace.NewEstimator(nareplace.ColumnOptions{Output: "x", Mode: nareplace.Mean, BySlot: true})
	require.NoError(t, err)
	_, err = est.OutputShape(zml.ShapeOf(data.Schema()))
	assert.True(t, zqe.IsSchemaMismatch(err), "%v", err)
	_, err = est.Fit(nil, data)
	assert.True(t, zqe.IsSchemaMismatch(err), "%v", err)

	tr := fit(t, data, nareplace.ColumnOptions{Output: "v", Mode: nareplace.Mean, BySlot: true})
	b := dataview.NewBuilder()
	dataview.AddVectorColumn(b, zml.Column{Name: "v", Type: zml.NewTypeVector(zml.TypeFloat32, 2)}, []vbuf.VBuffer[float32]{
		vbuf.NewDense([]float32{1, 2}),
	})
	other, err := b.Build()
	require.NoError(t, err)
	_, err = tr.Transform(other)
	assert.True(t, zqe.IsSchemaMismatch(err))
}

func TestParseMode(t *testing.T) {
	for _, m := range []nareplace.Mode{nareplace.DefaultValue, nareplace.Mean, nareplace.Minimum, nareplace.Maximum} {
		parsed, err := nareplace.ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := nareplace.ParseMode("median")
	assert.Error(t, err)
}

func TestReplaceContract(t *testing.T) {
	data := input(t, vectors(t))
	est, err := nareplace.NewEstimator(
		nareplace.ColumnOptions{Output: "x", Mode: nareplace.Mean},
		nareplace.ColumnOptions{Output: "v", Mode: nareplace.Minimum, BySlot: true},
		nareplace.ColumnOptions{Output: "var2", Input: "var", Value: 7},
	)
	require.NoError(t, err)
	tr := transformtest.CheckShape(t, est, data)
	transformtest.CheckLazy(t, tr, data.Schema())
	transformtest.CheckRoundTrip(t, tr, data)
}
