// Package image implements the transformers of image columns: a resizer
// that scales images to fixed dimensions and a pixel extractor that turns
// fixed-size images into float32 vectors.
package image

import (
	"fmt"
	stdimage "image"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/zqe"
	"golang.org/x/image/draw"
)

// ResizeMode selects how an image of a different aspect ratio fills the
// output.
type ResizeMode int

const (
	// Fill stretches the image to the output dimensions.
	Fill ResizeMode = iota
	// IsoPad scales the image to fit inside the output and centers it on
	// a transparent background.
	IsoPad
	// IsoCrop scales the image to cover the output and crops the center.
	IsoCrop
)

func (m ResizeMode) String() string {
	switch m {
	case Fill:
		return "fill"
	case IsoPad:
		return "isopad"
	case IsoCrop:
		return "isocrop"
	}
	return fmt.Sprintf("ResizeMode(%d)", int(m))
}

func ParseResizeMode(s string) (ResizeMode, error) {
	for _, m := range []ResizeMode{Fill, IsoPad, IsoCrop} {
		if s == m.String() {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown resize mode %q", s)
}

type Interpolation int

const (
	BiLinear Interpolation = iota
	NearestNeighbor
	ApproxBiLinear
	CatmullRom
)

func (i Interpolation) String() string {
	switch i {
	case BiLinear:
		return "bilinear"
	case NearestNeighbor:
		return "nearest"
	case ApproxBiLinear:
		return "approxbilinear"
	case CatmullRom:
		return "catmullrom"
	}
	return fmt.Sprintf("Interpolation(%d)", int(i))
}

func ParseInterpolation(s string) (Interpolation, error) {
	for _, i := range []Interpolation{BiLinear, NearestNeighbor, ApproxBiLinear, CatmullRom} {
		if s == i.String() {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown interpolation %q", s)
}

func (i Interpolation) scaler() draw.Scaler {
	switch i {
	case NearestNeighbor:
		return draw.NearestNeighbor
	case ApproxBiLinear:
		return draw.ApproxBiLinear
	case CatmullRom:
		return draw.CatmullRom
	}
	return draw.BiLinear
}

type ResizeOptions struct {
	Output        string
	Input         string
	Width         int
	Height        int
	Mode          ResizeMode
	Interpolation Interpolation
}

var resizerVersion = model.VersionInfo{
	Signature: "IMGSCALF",
	Written:   1,
	Readable:  1,
	ReadBack:  1,
	Loader:    "ImageScalerTransform",
}

func init() {
	transform.Register(resizerVersion, loadResizer)
	transform.Register(extractorVersion, loadExtractor)
}

// Resizer needs no fitting and is its own Estimator.
type Resizer struct {
	columns []ResizeOptions
}

var (
	_ transform.Transformer = (*Resizer)(nil)
	_ transform.Estimator   = (*Resizer)(nil)
)

func NewResizer(columns ...ResizeOptions) (*Resizer, error) {
	cols := make([]ResizeOptions, 0, len(columns))
	pairs := make([]transform.ColumnPair, 0, len(columns))
	for _, c := range columns {
		p := transform.Pair(c.Output, c.Input)
		c.Input = p.Input
		if err := checkResize(c); err != nil {
			return nil, err
		}
		cols = append(cols, c)
		pairs = append(pairs, p)
	}
	if err := transform.CheckPairs(pairs); err != nil {
		return nil, err
	}
	return &Resizer{columns: cols}, nil
}

func checkResize(c ResizeOptions) error {
	if c.Width <= 0 || c.Height <= 0 {
		return zqe.E(zqe.Invalid, "column '%s': bad image size %dx%d", c.Output, c.Height, c.Width)
	}
	if c.Mode < Fill || c.Mode > IsoCrop {
		return zqe.E(zqe.Invalid, "column '%s': unknown resize mode %s", c.Output, c.Mode)
	}
	if c.Interpolation < BiLinear || c.Interpolation > CatmullRom {
		return zqe.E(zqe.Invalid, "column '%s': unknown interpolation %s", c.Output, c.Interpolation)
	}
	return nil
}

func isImage(typ zml.Type) bool {
	_, ok := typ.(*zml.TypeImage)
	return ok
}

func (r *Resizer) OutputShape(input *zml.Shape) (*zml.Shape, error) {
	var cols []zml.ShapeColumn
	for _, c := range r.columns {
		_, err := transform.CheckInputShape(input, c.Input, "image", func(in zml.ShapeColumn) bool {
			return in.Kind == zml.Scalar && isImage(in.ItemType)
		})
		if err != nil {
			return nil, err
		}
		cols = append(cols, zml.ShapeColumn{
			Name:     c.Output,
			ItemType: &zml.TypeImage{Height: c.Height, Width: c.Width},
		})
	}
	return input.With(cols...), nil
}

func (r *Resizer) Fit(_ *transform.Env, input dataview.DataView) (transform.Transformer, error) {
	if _, err := r.mapper(input.Schema()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resizer) mapper(input *zml.Schema) (dataview.RowMapper, error) {
	m := &transform.ColumnMapper{}
	for _, c := range r.columns {
		c := c
		k, err := transform.CheckInputColumn(input, c.Input, "image", isImage)
		if err != nil {
			return nil, err
		}
		col := zml.Column{Name: c.Output, Type: &zml.TypeImage{Height: c.Height, Width: c.Width}}
		m.Add(col, k, func(row dataview.Row) (any, error) {
			get, err := dataview.GetGetter[stdimage.Image](row, k)
			if err != nil {
				return nil, err
			}
			var src stdimage.Image
			return zml.Getter[stdimage.Image](func(dst *stdimage.Image) error {
				if err := get(&src); err != nil {
					return err
				}
				*dst = resize(src, c)
				return nil
			}), nil
		})
	}
	return m, nil
}

// resize returns a new image, so values handed out earlier stay valid.  A
// missing image stays missing.
func resize(src stdimage.Image, c ResizeOptions) stdimage.Image {
	if src == nil {
		return nil
	}
	out := stdimage.NewRGBA(stdimage.Rect(0, 0, c.Width, c.Height))
	sr := src.Bounds()
	if sr.Empty() {
		return out
	}
	dr := out.Bounds()
	w, h := float64(sr.Dx()), float64(sr.Dy())
	sx, sy := float64(c.Width)/w, float64(c.Height)/h
	switch c.Mode {
	case IsoPad:
		s := sx
		if sy < s {
			s = sy
		}
		dw, dh := int(w*s+0.5), int(h*s+0.5)
		x0, y0 := (c.Width-dw)/2, (c.Height-dh)/2
		dr = stdimage.Rect(x0, y0, x0+dw, y0+dh)
	case IsoCrop:
		s := sx
		if sy > s {
			s = sy
		}
		cw, ch := int(float64(c.Width)/s+0.5), int(float64(c.Height)/s+0.5)
		x0, y0 := sr.Min.X+(sr.Dx()-cw)/2, sr.Min.Y+(sr.Dy()-ch)/2
		sr = stdimage.Rect(x0, y0, x0+cw, y0+ch).Intersect(src.Bounds())
	}
	c.Interpolation.scaler().Scale(out, dr, src, sr, draw.Src, nil)
	return out
}

func (r *Resizer) OutputSchema(input *zml.Schema) (*zml.Schema, error) {
	return transform.MapSchema(input, r.mapper)
}

func (r *Resizer) Transform(input dataview.DataView) (dataview.DataView, error) {
	return transform.MapView(input, r.mapper)
}

func (r *Resizer) Save(c *model.SaveContext) error {
	return c.Save(resizerVersion, func(w *model.Writer) error {
		pairs := make([]transform.ColumnPair, 0, len(r.columns))
		for _, c := range r.columns {
			pairs = append(pairs, transform.ColumnPair{Output: c.Output, Input: c.Input})
		}
		transform.WritePairs(w, pairs)
		for _, c := range r.columns {
			w.Ints([]int{c.Width, c.Height, int(c.Mode), int(c.Interpolation)})
		}
		return nil
	})
}

func loadResizer(_ *model.LoadContext, r *model.Reader) (transform.Transformer, error) {
	pairs, err := transform.ReadPairs(r)
	if err != nil {
		return nil, err
	}
	t := &Resizer{}
	for _, p := range pairs {
		vals := r.Ints()
		if err := r.Err(); err != nil {
			return nil, err
		}
		if len(vals) != 4 {
			return nil, zqe.E(zqe.Decode, "column '%s': bad resize options", p.Output)
		}
		c := ResizeOptions{
			Output:        p.Output,
			Input:         p.Input,
			Width:         vals[0],
			Height:        vals[1],
			Mode:          ResizeMode(vals[2]),
			Interpolation: Interpolation(vals[3]),
		}
		if err := checkResize(c); err != nil {
			return nil, zqe.E(zqe.Decode, err)
		}
		t.columns = append(t.columns, c)
	}
	return t, nil
}
