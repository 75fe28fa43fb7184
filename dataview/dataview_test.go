package dataview_test

import (
	"testing"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func buildTable(t *testing.T) *dataview.Table {
	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "x", Type: zml.TypeFloat32}, []float32{1, 2, 3, 4})
	dataview.AddColumn(b, zml.Column{Name: "s", Type: zml.TypeText}, []string{"a", "b", "a", "c"})
	sparse, err := vbuf.NewSparse(3, []float64{5}, []int{1})
	require.NoError(t, err)
	dataview.AddVectorColumn(b, zml.Column{Name: "v", Type: zml.NewTypeVector(zml.TypeFloat64, 3)}, []vbuf.VBuffer[float64]{
		vbuf.NewDense([]float64{1, 2, 3}),
		sparse,
		vbuf.NewDense([]float64{0, 0, 0}),
		vbuf.NewDense([]float64{7, 8, 9}),
	})
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

func TestTableCursor(t *testing.T) {
	table := buildTable(t)
	assert.EqualValues(t, 4, table.RowCount())

	cursor, err := table.Cursor(dataview.Only(0, 2))
	require.NoError(t, err)
	assert.Equal(t, dataview.NotStarted, cursor.State())
	assert.EqualValues(t, -1, cursor.Position())
	assert.True(t, cursor.IsColumnActive(0))
	assert.False(t, cursor.IsColumnActive(1))

	getX, err := dataview.GetGetter[float32](cursor, 0)
	require.NoError(t, err)
	getV, err := dataview.GetGetter[vbuf.VBuffer[float64]](cursor, 2)
	require.NoError(t, err)

	var x float32
	err = getX(&x)
	assert.True(t, zqe.IsState(err))

	var xs []float32
	var v vbuf.VBuffer[float64]
	ok, err := cursor.MoveNext()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, getX(&x))
	xs = append(xs, x)
	ok, err = cursor.MoveNext()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, getV(&v))
	assert.False(t, v.IsDense())
	assert.Equal(t, []float64{0, 5, 0}, v.DenseValues(nil))
	assert.EqualValues(t, 1, cursor.Position())

	for {
		ok, err := cursor.MoveNext()
		require.NoError(t, err)
		if !ok {
			break
		}
		require.NoError(t, getX(&x))
		xs = append(xs, x)
	}
	assert.Equal(t, []float32{1, 3, 4}, xs)
	assert.Equal(t, dataview.Done, cursor.State())
	ok, err = cursor.MoveNext()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, zqe.IsState(getX(&x)))
	require.NoError(t, cursor.Close())
}

func TestGetterBindErrors(t *testing.T) {
	table := buildTable(t)
	cursor, err := table.Cursor(dataview.Only(0))
	require.NoError(t, err)
	_, err = dataview.GetGetter[string](cursor, 1)
	assert.True(t, zqe.IsState(err))
	_, err = dataview.GetGetter[float64](cursor, 0)
	assert.True(t, zqe.IsUnsupportedType(err))
	_, err = dataview.GetGetter[float32](cursor, 9)
	assert.Error(t, err)
	_, err = dataview.GetNamedGetter[float32](cursor, "y")
	assert.True(t, zqe.IsSchemaMismatch(err))
}

func TestBuilderErrors(t *testing.T) {
	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "x", Type: zml.TypeFloat32}, []float64{1})
	_, err := b.Build()
	assert.True(t, zqe.IsUnsupportedType(err))

	b = dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "x", Type: zml.TypeFloat32}, []float32{1})
	dataview.AddColumn(b, zml.Column{Name: "y", Type: zml.TypeFloat32}, []float32{1, 2})
	_, err = b.Build()
	assert.Error(t, err)

	b = dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "x", Type: zml.TypeFloat32}, []float32{1})
	dataview.AddColumn(b, zml.Column{Name: "x", Type: zml.TypeFloat32}, []float32{1})
	_, err = b.Build()
	assert.True(t, zqe.IsDuplicate(err))

	b = dataview.NewBuilder()
	dataview.AddVectorColumn(b, zml.Column{Name: "v", Type: zml.NewTypeVector(zml.TypeFloat32, 2)}, []vbuf.VBuffer[float32]{vbuf.NewDense([]float32{1})})
	_, err = b.Build()
	assert.Error(t, err)
}

func TestGetterDoesNotAliasTable(t *testing.T) {
	table := buildTable(t)
	before, err := dataview.ReadColumn[vbuf.VBuffer[float64]](table, "v")
	require.NoError(t, err)
	before[0].Values[0] = 100
	after, err := dataview.ReadColumn[vbuf.VBuffer[float64]](table, "v")
	require.NoError(t, err)
	assert.Equal(t, 1.0, after[0].Values[0])
}

func TestIndependentCursors(t *testing.T) {
	table := buildTable(t)
	read := func() ([]string, error) {
		return dataview.ReadColumn[string](table, "s")
	}
	var group errgroup.Group
	results := make([][]string, 8)
	for k := range results {
		k := k
		group.Go(func() error {
			var err error
			results[k], err = read()
			return err
		})
	}
	require.NoError(t, group.Wait())
	for _, r := range results {
		assert.Equal(t, []string{"a", "b", "a", "c"}, r)
	}
}

// doubler appends 2*x for a float32 column x.
type doubler struct {
	input int
}

func (d *doubler) OutputColumns() []zml.Column {
	return []zml.Column{{Name: "x", Type: zml.TypeFloat32}}
}

func (d *doubler) Dependencies(active func(int) bool) func(int) bool {
	if active(0) {
		return dataview.Only(d.input)
	}
	return dataview.None
}

func (d *doubler) Getter(input dataview.Row, out int) (any, error) {
	get, err := dataview.GetGetter[float32](input, d.input)
	if err != nil {
		return nil, err
	}
	return zml.Getter[float32](func(dst *float32) error {
		if err := get(dst); err != nil {
			return err
		}
		*dst *= 2
		return nil
	}), nil
}

func TestMapperView(t *testing.T) {
	table := buildTable(t)
	view := dataview.NewMapperView(table, &doubler{input: 0})
	schema := view.Schema()
	assert.Equal(t, 4, schema.Len())
	assert.True(t, schema.IsHidden(0))

	xs, err := dataview.ReadColumn[float32](view, "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6, 8}, xs)

	// The hidden input column is still readable by index.
	cursor, err := view.Cursor(dataview.Only(0))
	require.NoError(t, err)
	assert.False(t, cursor.IsColumnActive(3))
	get, err := dataview.GetGetter[float32](cursor, 0)
	require.NoError(t, err)
	ok, err := cursor.MoveNext()
	require.NoError(t, err)
	require.True(t, ok)
	var x float32
	require.NoError(t, get(&x))
	assert.Equal(t, float32(1), x)
	require.NoError(t, cursor.Close())

	n, err := dataview.RowCount(view)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestCacheView(t *testing.T) {
	reg := prometheus.NewRegistry()
	cache, err := dataview.NewCacheView(buildTable(t), 2, reg)
	require.NoError(t, err)

	xs, err := dataview.ReadColumn[float32](cache, "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, xs)
	xs, err = dataview.ReadColumn[float32](cache, "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, xs)

	vs, err := dataview.ReadColumn[vbuf.VBuffer[float64]](cache, "v")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5, 0}, vs[1].DenseValues(nil))

	assert.Equal(t, 1.0, counterValue(t, reg, "dataview_cache_hits_total"))
	assert.Equal(t, 2.0, counterValue(t, reg, "dataview_cache_misses_total"))
	assert.EqualValues(t, 4, cache.RowCount())
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	var families []*dto.MetricFamily
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestScan(t *testing.T) {
	table := buildTable(t)
	var rows [][]any
	require.NoError(t, dataview.Scan(table, 2, func(values []any) error {
		rows = append(rows, append([]any(nil), values...))
		return nil
	}))
	require.Len(t, rows, 2)
	assert.Equal(t, []any{float32(1), "a", vbuf.NewDense([]float64{1, 2, 3})}, rows[0])
	sparse := rows[1][2].(vbuf.VBuffer[float64])
	assert.Equal(t, []float64{0, 5, 0}, sparse.DenseValues(nil))

	var n int
	require.NoError(t, dataview.Scan(table, -1, func([]any) error {
		n++
		return nil
	}))
	assert.Equal(t, 4, n)
}
