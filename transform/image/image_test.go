package image_test

import (
	stdimage "image"
	"image/color"
	"testing"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/transform/image"
	"github.com/brimdata/zml/transform/transformtest"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// picture returns a 4x2 image whose red channel is 10 times the column
// and green channel 100 times the row.
func picture() stdimage.Image {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(10 * x), G: uint8(100 * y), B: 7, A: 255})
		}
	}
	return img
}

func input(t *testing.T) *dataview.Table {
	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "img", Type: &zml.TypeImage{}}, []stdimage.Image{picture(), nil})
	dataview.AddColumn(b, zml.Column{Name: "s", Type: zml.TypeText}, []string{"a", "b"})
	table, err := b.Build()
	require.NoError(t, err)
	return table
}

func rgba(img stdimage.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestResize(t *testing.T) {
	r, err := image.NewResizer(
		image.ResizeOptions{Output: "fill", Input: "img", Width: 2, Height: 2, Interpolation: image.NearestNeighbor},
		image.ResizeOptions{Output: "pad", Input: "img", Width: 2, Height: 2, Mode: image.IsoPad, Interpolation: image.NearestNeighbor},
		image.ResizeOptions{Output: "crop", Input: "img", Width: 2, Height: 2, Mode: image.IsoCrop, Interpolation: image.NearestNeighbor},
		image.ResizeOptions{Output: "smooth", Input: "img", Width: 8, Height: 4},
	)
	require.NoError(t, err)
	out, err := r.Transform(input(t))
	require.NoError(t, err)

	k, ok := out.Schema().Lookup("fill")
	require.True(t, ok)
	assert.Equal(t, "image<2x2>", out.Schema().ColumnType(k).String())

	fill := transformtest.Column[stdimage.Image](t, out, "fill")
	require.Len(t, fill, 2)
	assert.Nil(t, fill[1])
	assert.Equal(t, stdimage.Rect(0, 0, 2, 2), fill[0].Bounds())
	assert.Equal(t, color.RGBA{R: 10, G: 0, B: 7, A: 255}, rgba(fill[0], 0, 0))
	assert.Equal(t, color.RGBA{R: 30, G: 100, B: 7, A: 255}, rgba(fill[0], 1, 1))

	// The 4x2 image scales to 2x1 and is centered on the top row.
	pad := transformtest.Column[stdimage.Image](t, out, "pad")
	assert.Equal(t, uint8(255), rgba(pad[0], 0, 0).A)
	assert.Equal(t, color.RGBA{}, rgba(pad[0], 0, 1))

	// The center two columns of the 4x2 image are kept.
	crop := transformtest.Column[stdimage.Image](t, out, "crop")
	assert.Equal(t, uint8(10), rgba(crop[0], 0, 0).R)
	assert.Equal(t, uint8(20), rgba(crop[0], 1, 0).R)
	assert.Equal(t, uint8(100), rgba(crop[0], 1, 1).G)

	smooth := transformtest.Column[stdimage.Image](t, out, "smooth")
	assert.Equal(t, stdimage.Rect(0, 0, 8, 4), smooth[0].Bounds())
	assert.Equal(t, uint8(7), rgba(smooth[0], 3, 2).B)
}

func pipeline(t *testing.T, opts ...image.ExtractOptions) (transform.Estimator, dataview.DataView) {
	r, err := image.NewResizer(image.ResizeOptions{Output: "small", Input: "img", Width: 2, Height: 2, Interpolation: image.NearestNeighbor})
	require.NoError(t, err)
	p, err := image.NewPixelExtractor(opts...)
	require.NoError(t, err)
	est := transform.NewEstimatorChain(r, p)
	tr, err := est.Fit(nil, input(t))
	require.NoError(t, err)
	out, err := tr.Transform(input(t))
	require.NoError(t, err)
	return est, out
}

func TestPixelExtractor(t *testing.T) {
	_, out := pipeline(t,
		image.ExtractOptions{Output: "planar", Input: "small"},
		image.ExtractOptions{Output: "scaled", Input: "small", Colors: image.Red, Offset: -10, Scale: 0.5},
		image.ExtractOptions{Output: "inter", Input: "small", Colors: image.ARGB, Interleave: true},
	)
	schema := out.Schema()
	k, ok := schema.Lookup("planar")
	require.True(t, ok)
	assert.Equal(t, "vector<float32,3,2,2>", schema.ColumnType(k).String())
	k, ok = schema.Lookup("inter")
	require.True(t, ok)
	assert.Equal(t, "vector<float32,2,2,4>", schema.ColumnType(k).String())

	planar := transformtest.Column[vbuf.VBuffer[float32]](t, out, "planar")
	require.Len(t, planar, 2)
	assert.Equal(t, []float32{10, 30, 10, 30, 0, 0, 100, 100, 7, 7, 7, 7}, planar[0].Values)
	assert.Equal(t, make([]float32, 12), planar[1].DenseValues(nil), "missing image")

	scaled := transformtest.Column[vbuf.VBuffer[float32]](t, out, "scaled")
	assert.Equal(t, []float32{0, 10, 0, 10}, scaled[0].Values)

	inter := transformtest.Column[vbuf.VBuffer[float32]](t, out, "inter")
	assert.Equal(t, []float32{
		255, 10, 0, 7, 255, 30, 0, 7,
		255, 10, 100, 7, 255, 30, 100, 7,
	}, inter[0].Values)
}

func TestImageErrors(t *testing.T) {
	data := input(t)
	_, err := image.NewResizer(image.ResizeOptions{Output: "x", Input: "img"})
	assert.Error(t, err)
	_, err = image.NewPixelExtractor(image.ExtractOptions{Output: "x", Input: "img", Colors: 32})
	assert.Error(t, err)

	r, err := image.NewResizer(image.ResizeOptions{Output: "x", Input: "s", Width: 1, Height: 1})
	require.NoError(t, err)
	_, err = r.Transform(data)
	assert.True(t, zqe.IsSchemaMismatch(err), "%v", err)

	// Extraction needs images of known size.
	p, err := image.NewPixelExtractor(image.ExtractOptions{Output: "x", Input: "img"})
	require.NoError(t, err)
	_, err = p.Transform(data)
	assert.True(t, zqe.IsSchemaMismatch(err), "%v", err)
	_, err = p.OutputShape(zml.ShapeOf(data.Schema()))
	assert.True(t, zqe.IsSchemaMismatch(err), "%v", err)

	b := dataview.NewBuilder()
	dataview.AddColumn(b, zml.Column{Name: "img", Type: &zml.TypeImage{Height: 1, Width: 1}}, []stdimage.Image{picture()})
	wrong, err := b.Build()
	require.NoError(t, err)
	out, err := p.Transform(wrong)
	require.NoError(t, err)
	_, err = dataview.ReadColumn[vbuf.VBuffer[float32]](out, "x")
	assert.Error(t, err)
}

func TestImageContract(t *testing.T) {
	est, _ := pipeline(t,
		image.ExtractOptions{Output: "small", Colors: image.Green | image.Blue},
		image.ExtractOptions{Output: "inter", Input: "small", Interleave: true, Scale: 2},
	)
	data := input(t)
	tr := transformtest.CheckShape(t, est, data)
	transformtest.CheckLazy(t, tr, data.Schema())
	transformtest.CheckRoundTrip(t, tr, data)
}
