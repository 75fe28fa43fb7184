// Package pipeline builds estimator chains from YAML definitions such as
//
//	stages:
//	  - op: nareplace
//	    columns:
//	      - {output: age, mode: mean}
//	  - op: onehot
//	    columns:
//	      - {output: city, kind: bag, max_keys: 100}
//
// Each stage names an op and its columns.  A column's fields are the options
// of the op's ColumnOptions; an op ignores the fields it does not use.
package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/transform/convert"
	"github.com/brimdata/zml/transform/copycols"
	"github.com/brimdata/zml/transform/image"
	"github.com/brimdata/zml/transform/keytoval"
	"github.com/brimdata/zml/transform/keytovec"
	"github.com/brimdata/zml/transform/nareplace"
	"github.com/brimdata/zml/transform/normalize"
	"github.com/brimdata/zml/transform/onehot"
	"github.com/brimdata/zml/transform/term"
	"github.com/brimdata/zml/zqe"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Stages []Stage `yaml:"stages"`
}

type Stage struct {
	Op      string   `yaml:"op"`
	Columns []Column `yaml:"columns"`
}

// Column is the union of the column options of every op.
type Column struct {
	Output string `yaml:"output"`
	Input  string `yaml:"input,omitempty"`

	// term and onehot
	MaxKeys int    `yaml:"max_keys,omitempty"`
	Sort    string `yaml:"sort,omitempty"`
	// onehot
	Kind string `yaml:"kind,omitempty"`
	// keytovec
	Bag bool `yaml:"bag,omitempty"`
	// nareplace, normalize and resize
	Mode string `yaml:"mode,omitempty"`
	// nareplace
	Value  float64 `yaml:"value,omitempty"`
	BySlot bool    `yaml:"by_slot,omitempty"`
	// normalize
	FixZero bool `yaml:"fix_zero,omitempty"`
	// convert
	Type string `yaml:"type,omitempty"`
	// resize
	Width         int    `yaml:"width,omitempty"`
	Height        int    `yaml:"height,omitempty"`
	Interpolation string `yaml:"interpolation,omitempty"`
	// pixels
	Colors     string  `yaml:"colors,omitempty"`
	Interleave bool    `yaml:"interleave,omitempty"`
	Offset     float32 `yaml:"offset,omitempty"`
	Scale      float32 `yaml:"scale,omitempty"`
}

// Parse decodes a pipeline definition.  Unknown fields are errors.
func Parse(r io.Reader) (*Config, error) {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	var c Config
	if err := d.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, zqe.E(zqe.Invalid, "empty pipeline")
		}
		return nil, zqe.E(zqe.Invalid, err)
	}
	return &c, nil
}

func ParseBytes(b []byte) (*Config, error) {
	return Parse(bytes.NewReader(b))
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Build returns the chain of the stages' estimators.
func (c *Config) Build() (*transform.EstimatorChain, error) {
	if len(c.Stages) == 0 {
		return nil, zqe.E(zqe.Invalid, "pipeline has no stages")
	}
	chain := transform.NewEstimatorChain()
	for k, s := range c.Stages {
		build, ok := ops[s.Op]
		if !ok {
			return nil, zqe.E(zqe.Invalid, "stage %d: unknown op %q (ops are %v)", k, s.Op, Ops())
		}
		est, err := build(s.Columns)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", k, s.Op, err)
		}
		chain = chain.Append(est)
	}
	return chain, nil
}

// Ops returns the names of the ops in sorted order.
func Ops() []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type builder func([]Column) (transform.Estimator, error)

var ops = map[string]builder{
	"convert":   buildConvert,
	"copy":      buildCopy,
	"keytoval":  buildKeyToValue,
	"keytovec":  buildKeyToVector,
	"nareplace": buildReplace,
	"normalize": buildNormalize,
	"onehot":    buildOneHot,
	"pixels":    buildPixels,
	"resize":    buildResize,
	"term":      buildTerm,
}

func pairs(cols []Column) []transform.ColumnPair {
	out := make([]transform.ColumnPair, 0, len(cols))
	for _, c := range cols {
		out = append(out, transform.Pair(c.Output, c.Input))
	}
	return out
}

// parse applies fn to s unless s is empty, leaving the zero option.
func parse[T any](s string, fn func(string) (T, error)) (T, error) {
	var zero T
	if s == "" {
		return zero, nil
	}
	v, err := fn(s)
	if err != nil {
		return zero, zqe.E(zqe.Invalid, err)
	}
	return v, nil
}

func buildCopy(cols []Column) (transform.Estimator, error) {
	return copycols.New(pairs(cols)...)
}

func buildKeyToValue(cols []Column) (transform.Estimator, error) {
	return keytoval.New(pairs(cols)...)
}

func buildKeyToVector(cols []Column) (transform.Estimator, error) {
	opts := make([]keytovec.ColumnOptions, 0, len(cols))
	for _, c := range cols {
		opts = append(opts, keytovec.ColumnOptions{Output: c.Output, Input: c.Input, Bag: c.Bag})
	}
	return keytovec.New(opts...)
}

func buildTerm(cols []Column) (transform.Estimator, error) {
	opts := make([]term.ColumnOptions, 0, len(cols))
	for _, c := range cols {
		order, err := parse(c.Sort, term.ParseSort)
		if err != nil {
			return nil, err
		}
		opts = append(opts, term.ColumnOptions{Output: c.Output, Input: c.Input, MaxKeys: c.MaxKeys, Sort: order})
	}
	return term.NewEstimator(opts...)
}

func buildOneHot(cols []Column) (transform.Estimator, error) {
	opts := make([]onehot.ColumnOptions, 0, len(cols))
	for _, c := range cols {
		order, err := parse(c.Sort, term.ParseSort)
		if err != nil {
			return nil, err
		}
		kind, err := parse(c.Kind, onehot.ParseOutputKind)
		if err != nil {
			return nil, err
		}
		opts = append(opts, onehot.ColumnOptions{Output: c.Output, Input: c.Input, Kind: kind, MaxKeys: c.MaxKeys, Sort: order})
	}
	return onehot.NewEstimator(opts...)
}

func buildReplace(cols []Column) (transform.Estimator, error) {
	opts := make([]nareplace.ColumnOptions, 0, len(cols))
	for _, c := range cols {
		mode, err := parse(c.Mode, nareplace.ParseMode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, nareplace.ColumnOptions{Output: c.Output, Input: c.Input, Mode: mode, Value: c.Value, BySlot: c.BySlot})
	}
	return nareplace.NewEstimator(opts...)
}

func buildNormalize(cols []Column) (transform.Estimator, error) {
	opts := make([]normalize.ColumnOptions, 0, len(cols))
	for _, c := range cols {
		mode, err := parse(c.Mode, normalize.ParseMode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, normalize.ColumnOptions{Output: c.Output, Input: c.Input, Mode: mode, FixZero: c.FixZero})
	}
	return normalize.NewEstimator(opts...)
}

func buildConvert(cols []Column) (transform.Estimator, error) {
	opts := make([]convert.ColumnOptions, 0, len(cols))
	for _, c := range cols {
		if c.Type == "" {
			return nil, zqe.E(zqe.Invalid, "column '%s' has no type", c.Output)
		}
		typ, err := zml.ParseType(c.Type)
		if err != nil {
			return nil, err
		}
		opts = append(opts, convert.ColumnOptions{Output: c.Output, Input: c.Input, Type: typ})
	}
	return convert.New(opts...)
}

func buildResize(cols []Column) (transform.Estimator, error) {
	opts := make([]image.ResizeOptions, 0, len(cols))
	for _, c := range cols {
		mode, err := parse(c.Mode, image.ParseResizeMode)
		if err != nil {
			return nil, err
		}
		interp, err := parse(c.Interpolation, image.ParseInterpolation)
		if err != nil {
			return nil, err
		}
		opts = append(opts, image.ResizeOptions{
			Output:        c.Output,
			Input:         c.Input,
			Width:         c.Width,
			Height:        c.Height,
			Mode:          mode,
			Interpolation: interp,
		})
	}
	return image.NewResizer(opts...)
}

func buildPixels(cols []Column) (transform.Estimator, error) {
	opts := make([]image.ExtractOptions, 0, len(cols))
	for _, c := range cols {
		colors, err := parse(c.Colors, image.ParseColors)
		if err != nil {
			return nil, err
		}
		opts = append(opts, image.ExtractOptions{
			Output:     c.Output,
			Input:      c.Input,
			Colors:     colors,
			Interleave: c.Interleave,
			Offset:     c.Offset,
			Scale:      c.Scale,
		})
	}
	return image.NewPixelExtractor(opts...)
}
