// Package normalize implements the estimator that rescales floating point
// columns to a common range.
//
// Each value x becomes (x - offset) * scale with an offset and scale fit
// per column, or per slot for known-size vectors.  NaN stays NaN.  When the
// offset is zero the implicit zeros of sparse vectors stay zero and the
// output stays sparse.
package normalize

import (
	"fmt"
	"math"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/anymath"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/zqe"
	"go.uber.org/zap"
)

type Mode int

const (
	// MinMax maps [min, max] to [0, 1].
	MinMax Mode = iota
	// MeanVariance maps values to zero mean and unit variance.
	MeanVariance
)

func (m Mode) String() string {
	switch m {
	case MinMax:
		return "minmax"
	case MeanVariance:
		return "meanvar"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "minmax":
		return MinMax, nil
	case "meanvar":
		return MeanVariance, nil
	}
	return 0, fmt.Errorf("unknown normalization mode %q", s)
}

type ColumnOptions struct {
	Output string
	Input  string
	Mode   Mode
	// FixZero keeps the offset at zero so that zero maps to zero.  MinMax
	// then divides by the largest magnitude and MeanVariance by the root
	// mean square.
	FixZero bool
}

type Estimator struct {
	columns []ColumnOptions
}

var _ transform.Estimator = (*Estimator)(nil)

func NewEstimator(columns ...ColumnOptions) (*Estimator, error) {
	cols := make([]ColumnOptions, 0, len(columns))
	pairs := make([]transform.ColumnPair, 0, len(columns))
	for _, c := range columns {
		p := transform.Pair(c.Output, c.Input)
		c.Input = p.Input
		if c.Mode != MinMax && c.Mode != MeanVariance {
			return nil, zqe.E(zqe.Invalid, "column '%s': unknown mode %s", c.Output, c.Mode)
		}
		cols = append(cols, c)
		pairs = append(pairs, p)
	}
	if err := transform.CheckPairs(pairs); err != nil {
		return nil, err
	}
	return &Estimator{columns: cols}, nil
}

const expected = "float or known-size vector of float"

func (e *Estimator) OutputShape(input *zml.Shape) (*zml.Shape, error) {
	var cols []zml.ShapeColumn
	for _, c := range e.columns {
		in, err := transform.CheckInputShape(input, c.Input, expected, func(c zml.ShapeColumn) bool {
			return !c.IsKey && c.Kind != zml.VariableVector && c.ItemType != nil && zml.IsFloat(c.ItemType.ID())
		})
		if err != nil {
			return nil, err
		}
		out := zml.ShapeColumn{Name: c.Output, Kind: in.Kind, ItemType: in.ItemType}
		meta := []zml.ShapeColumn{zml.IsNormalizedShape}
		if names, ok := in.FindMetadata(zml.SlotNames); ok && in.Kind == zml.Vector {
			meta = append(meta, names)
		}
		cols = append(cols, out.WithMetadata(meta...))
	}
	return input.With(cols...), nil
}

func checkInput(schema *zml.Schema, name string) (int, scaler, error) {
	k, err := transform.CheckInputColumn(schema, name, expected, func(typ zml.Type) bool {
		_, ok := zml.ItemType(typ).(*zml.TypePrimitive)
		return ok
	})
	if err != nil {
		return -1, nil, err
	}
	typ := schema.ColumnType(k)
	s, err := scalers.Lookup(typ)
	if err != nil {
		return -1, nil, err
	}
	if zml.IsVector(typ) && zml.VectorSize(typ) == 0 {
		return -1, nil, zqe.ErrSchemaMismatch("input", name, expected, typ.String())
	}
	return k, s, nil
}

func (e *Estimator) Fit(env *transform.Env, input dataview.DataView) (transform.Transformer, error) {
	schema := input.Schema()
	cols := make([]int, len(e.columns))
	scls := make([]scaler, len(e.columns))
	stats := make([][]anymath.Stats, len(e.columns))
	for k, c := range e.columns {
		col, s, err := checkInput(schema, c.Input)
		if err != nil {
			return nil, err
		}
		n := 1
		if size := zml.VectorSize(schema.ColumnType(col)); size != 0 {
			n = size
		}
		cols[k], scls[k], stats[k] = col, s, make([]anymath.Stats, n)
	}
	err := env.Pass("normalize", input, dataview.Only(cols...), func(row dataview.Row) (func() error, error) {
		fns := make([]func() error, 0, len(cols))
		for k := range cols {
			fn, err := scls[k].collector(row, cols[k], stats[k])
			if err != nil {
				return nil, err
			}
			fns = append(fns, fn)
		}
		return func() error {
			for _, fn := range fns {
				if err := fn(); err != nil {
					return err
				}
			}
			return nil
		}, nil
	})
	if err != nil {
		return nil, err
	}
	t := &Transformer{}
	for k, c := range e.columns {
		offsets := make([]float64, len(stats[k]))
		scales := make([]float64, len(stats[k]))
		for slot := range stats[k] {
			offsets[slot], scales[slot] = affine(&stats[k][slot], c.Mode, c.FixZero)
		}
		env.Log().Debug("Normalization",
			zap.String("column", c.Output),
			zap.Stringer("mode", c.Mode),
			zap.Float64s("offsets", offsets),
			zap.Float64s("scales", scales))
		t.columns = append(t.columns, column{
			pair:    transform.Pair(c.Output, c.Input),
			typ:     schema.ColumnType(cols[k]),
			offsets: offsets,
			scales:  scales,
		})
	}
	return t, nil
}

// affine returns the offset and scale of a slot.  A slot with no spread
// has scale 0.
func affine(s *anymath.Stats, mode Mode, fixZero bool) (float64, float64) {
	var offset, denom float64
	switch {
	case mode == MinMax && fixZero:
		denom = math.Max(math.Abs(s.Min()), math.Abs(s.Max()))
	case mode == MinMax:
		offset, denom = s.Min(), s.Max()-s.Min()
	case fixZero:
		denom = math.Sqrt(s.Variance() + s.Mean()*s.Mean())
	default:
		offset, denom = s.Mean(), s.StdDev()
	}
	if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return offset, 0
	}
	return offset, 1 / denom
}
