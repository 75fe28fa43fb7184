package image

import (
	"errors"
	"fmt"
	stdimage "image"
	"image/color"
	"strings"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/vbuf"
	"github.com/brimdata/zml/zqe"
)

// Colors selects the channels a PixelExtractor extracts, in the order
// alpha, red, green, blue.
type Colors uint8

const (
	Alpha Colors = 1 << iota
	Red
	Green
	Blue

	RGB  = Red | Green | Blue
	ARGB = Alpha | RGB
)

func (c Colors) count() int {
	n := 0
	for b := Alpha; b <= Blue; b <<= 1 {
		if c&b != 0 {
			n++
		}
	}
	return n
}

// ParseColors returns the channels named by the letters of s, which are
// drawn from "argb".
func ParseColors(s string) (Colors, error) {
	var c Colors
	for _, r := range s {
		k := strings.IndexRune("argb", r)
		if k < 0 {
			return 0, fmt.Errorf("unknown color channel %q", r)
		}
		c |= 1 << k
	}
	if c == 0 {
		return 0, errors.New("no color channels")
	}
	return c, nil
}

func (c Colors) String() string {
	var s strings.Builder
	for k, name := range "argb" {
		if c&(1<<k) != 0 {
			s.WriteRune(name)
		}
	}
	return s.String()
}

type ExtractOptions struct {
	Output string
	Input  string
	// Colors defaults to RGB.
	Colors Colors
	// Interleave orders the output [height, width, channel] instead of
	// [channel, height, width].
	Interleave bool
	// Each 8-bit channel value v becomes (v + Offset) * Scale.  Scale
	// defaults to 1.
	Offset float32
	Scale  float32
}

var extractorVersion = model.VersionInfo{
	Signature: "IMGPXEXT",
	Written:   1,
	Readable:  1,
	ReadBack:  1,
	Loader:    "ImagePixelExtractorTransform",
}

// PixelExtractor needs no fitting and is its own Estimator.  Its inputs
// must be images of known size, as from a Resizer.
type PixelExtractor struct {
	columns []ExtractOptions
}

var (
	_ transform.Transformer = (*PixelExtractor)(nil)
	_ transform.Estimator   = (*PixelExtractor)(nil)
)

func NewPixelExtractor(columns ...ExtractOptions) (*PixelExtractor, error) {
	cols := make([]ExtractOptions, 0, len(columns))
	pairs := make([]transform.ColumnPair, 0, len(columns))
	for _, c := range columns {
		p := transform.Pair(c.Output, c.Input)
		c.Input = p.Input
		if c.Colors == 0 {
			c.Colors = RGB
		}
		if c.Scale == 0 {
			c.Scale = 1
		}
		if err := checkExtract(c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
		pairs = append(pairs, p)
	}
	if err := transform.CheckPairs(pairs); err != nil {
		return nil, err
	}
	return &PixelExtractor{columns: cols}, nil
}

func checkExtract(c ExtractOptions) error {
	if c.Colors == 0 || c.Colors > ARGB {
		return zqe.E(zqe.Invalid, "column '%s': bad colors %d", c.Output, int(c.Colors))
	}
	return nil
}

const expectedSized = "image of known size"

func isSizedImage(typ zml.Type) bool {
	img, ok := typ.(*zml.TypeImage)
	return ok && img.Height > 0 && img.Width > 0
}

func (c ExtractOptions) outputType(img *zml.TypeImage) zml.Type {
	if c.Interleave {
		return zml.NewTypeVector(zml.TypeFloat32, img.Height, img.Width, c.Colors.count())
	}
	return zml.NewTypeVector(zml.TypeFloat32, c.Colors.count(), img.Height, img.Width)
}

func (p *PixelExtractor) OutputShape(input *zml.Shape) (*zml.Shape, error) {
	var cols []zml.ShapeColumn
	for _, c := range p.columns {
		_, err := transform.CheckInputShape(input, c.Input, expectedSized, func(in zml.ShapeColumn) bool {
			return in.Kind == zml.Scalar && isSizedImage(in.ItemType)
		})
		if err != nil {
			return nil, err
		}
		cols = append(cols, zml.ShapeColumn{Name: c.Output, Kind: zml.Vector, ItemType: zml.TypeFloat32})
	}
	return input.With(cols...), nil
}

func (p *PixelExtractor) Fit(_ *transform.Env, input dataview.DataView) (transform.Transformer, error) {
	if _, err := p.mapper(input.Schema()); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PixelExtractor) mapper(input *zml.Schema) (dataview.RowMapper, error) {
	m := &transform.ColumnMapper{}
	for _, c := range p.columns {
		c := c
		k, err := transform.CheckInputColumn(input, c.Input, expectedSized, isSizedImage)
		if err != nil {
			return nil, err
		}
		img := input.ColumnType(k).(*zml.TypeImage)
		col := zml.Column{Name: c.Output, Type: c.outputType(img)}
		m.Add(col, k, func(row dataview.Row) (any, error) {
			get, err := dataview.GetGetter[stdimage.Image](row, k)
			if err != nil {
				return nil, err
			}
			var src stdimage.Image
			return zml.Getter[vbuf.VBuffer[float32]](func(dst *vbuf.VBuffer[float32]) error {
				if err := get(&src); err != nil {
					return err
				}
				return c.extract(src, img.Height, img.Width, dst)
			}), nil
		})
	}
	return m, nil
}

// extract writes the pixels of src to dst.  A missing image yields the
// all-zero vector.
func (c ExtractOptions) extract(src stdimage.Image, height, width int, dst *vbuf.VBuffer[float32]) error {
	planes := c.Colors.count()
	size := planes * height * width
	if src == nil {
		dst.Reset(size)
		return nil
	}
	b := src.Bounds()
	if b.Dy() != height || b.Dx() != width {
		return zqe.E(zqe.Invalid, "column '%s': image is %dx%d, expected %dx%d", c.Input, b.Dy(), b.Dx(), height, width)
	}
	e := vbuf.Edit(dst, size, size)
	channels := make([]float32, 0, 4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			channels = channels[:0]
			for k, v := range [4]uint8{px.A, px.R, px.G, px.B} {
				if c.Colors&(1<<k) != 0 {
					channels = append(channels, (float32(v)+c.Offset)*c.Scale)
				}
			}
			for plane, v := range channels {
				var i int
				if c.Interleave {
					i = (y*width+x)*planes + plane
				} else {
					i = (plane*height+y)*width + x
				}
				e.Values[i] = v
			}
		}
	}
	e.Commit()
	return nil
}

func (p *PixelExtractor) OutputSchema(input *zml.Schema) (*zml.Schema, error) {
	return transform.MapSchema(input, p.mapper)
}

func (p *PixelExtractor) Transform(input dataview.DataView) (dataview.DataView, error) {
	return transform.MapView(input, p.mapper)
}

func (p *PixelExtractor) Save(c *model.SaveContext) error {
	return c.Save(extractorVersion, func(w *model.Writer) error {
		pairs := make([]transform.ColumnPair, 0, len(p.columns))
		for _, c := range p.columns {
			pairs = append(pairs, transform.ColumnPair{Output: c.Output, Input: c.Input})
		}
		transform.WritePairs(w, pairs)
		for _, c := range p.columns {
			w.Uint(uint64(c.Colors))
			w.Bool(c.Interleave)
			w.Float32(c.Offset)
			w.Float32(c.Scale)
		}
		return nil
	})
}

func loadExtractor(_ *model.LoadContext, r *model.Reader) (transform.Transformer, error) {
	pairs, err := transform.ReadPairs(r)
	if err != nil {
		return nil, err
	}
	t := &PixelExtractor{}
	for _, p := range pairs {
		c := ExtractOptions{
			Output:     p.Output,
			Input:      p.Input,
			Colors:     Colors(r.Uint()),
			Interleave: r.Bool(),
			Offset:     r.Float32(),
			Scale:      r.Float32(),
		}
		if err := r.Err(); err != nil {
			return nil, err
		}
		if err := checkExtract(c); err != nil {
			return nil, zqe.E(zqe.Decode, err)
		}
		t.columns = append(t.columns, c)
	}
	return t, nil
}
