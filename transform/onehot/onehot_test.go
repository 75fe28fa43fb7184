package onehot_test

import (
	"testing"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/transform/onehot"
	"github.com/brimdata/zml/transform/transformtest"
	"github.com/brimdata/zml/vbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dense(vs []vbuf.VBuffer[float32]) [][]float32 {
	var out [][]float32
	for k := range vs {
		out = append(out, vs[k].DenseValues(nil))
	}
	return out
}

func TestOneHot(t *testing.T) {
	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "c", Type: zml.TypeText}, []string{"a", "b", "a"})
	dataview.AddVectorColumn(b, zml.Column{Name: "tags", Type: zml.NewTypeVector(zml.TypeText)}, []vbuf.VBuffer[string]{
		vbuf.NewDense([]string{"x", "y"}),
		vbuf.NewDense([]string{"y"}),
		vbuf.NewDense([]string{}),
	})
	data, err := b.Build()
	require.NoError(t, err)

	est, err := onehot.NewEstimator(
		onehot.ColumnOptions{Output: "c"},
		onehot.ColumnOptions{Output: "tags", Kind: onehot.Bag},
		onehot.ColumnOptions{Output: "ck", Input: "c", Kind: onehot.Key},
	)
	require.NoError(t, err)
	tr := transformtest.CheckShape(t, est, data)
	out, err := tr.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"ck", "c", "tags"}, out.Schema().Names())
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}, {1, 0}}, dense(transformtest.Column[vbuf.VBuffer[float32]](t, out, "c")))
	assert.Equal(t, [][]float32{{1, 1}, {0, 1}, {0, 0}}, dense(transformtest.Column[vbuf.VBuffer[float32]](t, out, "tags")))
	assert.Equal(t, []uint32{1, 2, 1}, transformtest.Column[uint32](t, out, "ck"))

	transformtest.CheckLazy(t, tr, data.Schema())
	transformtest.CheckRoundTrip(t, tr, data)
}

func TestParseOutputKind(t *testing.T) {
	for _, k := range []onehot.OutputKind{onehot.Indicator, onehot.Bag, onehot.Key} {
		parsed, err := onehot.ParseOutputKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := onehot.ParseOutputKind("binary")
	assert.Error(t, err)
	_, err = onehot.NewEstimator(onehot.ColumnOptions{Output: "c", Kind: onehot.OutputKind(7)})
	assert.Error(t, err)
}
