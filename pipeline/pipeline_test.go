package pipeline_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/pipeline"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/transform/transformtest"
	"github.com/brimdata/zml/vbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definition = `
stages:
  - op: nareplace
    columns:
      - {output: age, mode: mean}
  - op: normalize
    columns:
      - {output: age, mode: minmax}
  - op: onehot
    columns:
      - {output: city, sort: value}
  - op: convert
    columns:
      - {output: age32, input: age, type: float32}
`

func input(t *testing.T) *dataview.Table {
	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "age", Type: zml.TypeFloat64}, []float64{20, math.NaN(), 40})
	dataview.AddColumn(b, zml.Column{Name: "city", Type: zml.TypeText}, []string{"b", "a", "b"})
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

func TestPipeline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(definition), 0644))
	config, err := pipeline.Load(path)
	require.NoError(t, err)
	require.Len(t, config.Stages, 4)
	chain, err := config.Build()
	require.NoError(t, err)
	assert.Equal(t, 4, chain.Len())

	data := input(t)
	tr := transformtest.CheckShape(t, chain, data)
	out, err := tr.Transform(data)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, transformtest.Column[float64](t, out, "age"))
	assert.Equal(t, []float32{0, 0.5, 1}, transformtest.Column[float32](t, out, "age32"))
	var city [][]float32
	for _, v := range transformtest.Column[vbuf.VBuffer[float32]](t, out, "city") {
		city = append(city, v.DenseValues(nil))
	}
	assert.Equal(t, [][]float32{{0, 1}, {1, 0}, {0, 1}}, city)
	loaded := transformtest.CheckRoundTrip(t, tr, data)
	require.IsType(t, &transform.TransformerChain{}, loaded)
	assert.Len(t, loaded.(*transform.TransformerChain).Stages(), 4)
}

func TestPipelineErrors(t *testing.T) {
	cases := []struct {
		name, yaml string
	}{
		{"empty", ""},
		{"no stages", "stages: []"},
		{"unknown op", "stages: [{op: median, columns: [{output: x}]}]"},
		{"unknown field", "stages: [{op: copy, columns: [{output: x, inptu: y}]}]"},
		{"bad mode", "stages: [{op: nareplace, columns: [{output: x, mode: median}]}]"},
		{"bad sort", "stages: [{op: term, columns: [{output: x, sort: random}]}]"},
		{"bad type", "stages: [{op: convert, columns: [{output: x, type: float16}]}]"},
		{"no type", "stages: [{op: convert, columns: [{output: x}]}]"},
		{"bad colors", "stages: [{op: pixels, columns: [{output: x, colors: rgbz}]}]"},
		{"bad size", "stages: [{op: resize, columns: [{output: x}]}]"},
		{"no columns", "stages: [{op: copy}]"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			config, err := pipeline.ParseBytes([]byte(c.yaml))
			if err == nil {
				_, err = config.Build()
			}
			assert.Error(t, err)
		})
	}
}

func TestOps(t *testing.T) {
	assert.Equal(t, []string{
		"convert", "copy", "keytoval", "keytovec", "nareplace",
		"normalize", "onehot", "pixels", "resize", "term",
	}, pipeline.Ops())
}
