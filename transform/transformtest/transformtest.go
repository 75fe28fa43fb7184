// Package transformtest provides checks shared by the tests of transformers
// and estimators.
package transformtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/dataview/mock"
	"github.com/brimdata/zml/transform"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Dump returns one line per row of dv formatting the values of its visible
// columns.  Vectors are formatted with their representation, so two dumps
// are equal only when the vectors have the same density.
func Dump(t testing.TB, dv dataview.DataView) []string {
	t.Helper()
	schema := dv.Schema()
	var cols []int
	for k := 0; k < schema.Len(); k++ {
		if !schema.IsHidden(k) {
			cols = append(cols, k)
		}
	}
	var rows []string
	require.NoError(t, dataview.Scan(dv, -1, func(values []any) error {
		fields := make([]string, 0, len(values))
		for k, v := range values {
			fields = append(fields, fmt.Sprintf("%s=%v", schema.Column(cols[k]).Name, v))
		}
		rows = append(rows, strings.Join(fields, " "))
		return nil
	}))
	return rows
}

// CheckRoundTrip saves tr, loads it back and checks that both produce the
// same data from input.
func CheckRoundTrip(t testing.TB, tr transform.Transformer, input dataview.DataView) transform.Transformer {
	t.Helper()
	b, err := transform.SaveBytes(tr)
	require.NoError(t, err)
	loaded, err := transform.LoadBytes(nil, b)
	require.NoError(t, err)
	want, err := tr.Transform(input)
	require.NoError(t, err)
	got, err := loaded.Transform(input)
	require.NoError(t, err)
	assert.Equal(t, Dump(t, want), Dump(t, got))
	return loaded
}

// CheckShape fits est to input and checks that the estimator's output shape
// matches the shape of the fitted transformer's output and that the
// transformer's output schema matches the schema of its output data.
func CheckShape(t testing.TB, est transform.Estimator, input dataview.DataView) transform.Transformer {
	t.Helper()
	shape, err := est.OutputShape(zml.ShapeOf(input.Schema()))
	require.NoError(t, err)
	tr, err := est.Fit(nil, input)
	require.NoError(t, err)
	out, err := tr.Transform(input)
	require.NoError(t, err)
	got := zml.ShapeOf(out.Schema())
	assert.True(t, shape.Equal(got), "estimator shape %s, data shape %s", shape, got)
	schema, err := tr.OutputSchema(input.Schema())
	require.NoError(t, err)
	assert.Equal(t, out.Schema().String(), schema.String())
	return tr
}

// CheckLazy checks that Transform reads nothing from a view with the given
// schema.
func CheckLazy(t *testing.T, tr transform.Transformer, schema *zml.Schema) {
	t.Helper()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	input := mock.NewMockDataView(ctrl)
	input.EXPECT().Schema().Return(schema).AnyTimes()
	input.EXPECT().Cursor(gomock.Any()).Times(0)
	_, err := tr.Transform(input)
	require.NoError(t, err)
}

// Column returns every value of the named column of dv.
func Column[T any](t testing.TB, dv dataview.DataView, name string) []T {
	t.Helper()
	values, err := dataview.ReadColumn[T](dv, name)
	require.NoError(t, err)
	return values
}
