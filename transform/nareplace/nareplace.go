// Package nareplace implements the estimator that replaces the NA values
// (NaN) of floating point columns with a fixed value or a statistic of the
// column's other values.
//
// Statistics are computed over every non-NA value, including the implicit
// zeros of sparse vectors.  For known-size vectors they may be computed per
// slot.  A column or slot with no values is replaced with 0.
package nareplace

import (
	"fmt"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/anymath"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/zqe"
	"go.uber.org/zap"
)

// Mode selects the replacement value.
type Mode int

const (
	// DefaultValue replaces NA with ColumnOptions.Value.
	DefaultValue Mode = iota
	Mean
	Minimum
	Maximum
)

func (m Mode) String() string {
	switch m {
	case DefaultValue:
		return "default"
	case Mean:
		return "mean"
	case Minimum:
		return "min"
	case Maximum:
		return "max"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode returns the mode named by s.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{DefaultValue, Mean, Minimum, Maximum} {
		if s == m.String() {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown replacement mode %q", s)
}

type ColumnOptions struct {
	Output string
	Input  string
	Mode   Mode
	// Value is the replacement of DefaultValue mode.
	Value float64
	// BySlot computes a statistic for each slot of a known-size vector.
	BySlot bool
}

// Estimator computes the replacement values of its columns in a single
// pass, which is skipped when every column uses DefaultValue.
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
		if c.Mode < DefaultValue || c.Mode > Maximum {
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

const expected = "float or vector of float"

func acceptShape(c zml.ShapeColumn) bool {
	return !c.IsKey && c.ItemType != nil && zml.IsFloat(c.ItemType.ID())
}

func (e *Estimator) OutputShape(input *zml.Shape) (*zml.Shape, error) {
	var cols []zml.ShapeColumn
	for _, c := range e.columns {
		in, err := transform.CheckInputShape(input, c.Input, expected, acceptShape)
		if err != nil {
			return nil, err
		}
		if c.BySlot && in.Kind != zml.Vector {
			return nil, zqe.ErrSchemaMismatch("input", c.Input, "known-size vector for per-slot replacement", in.TypeString())
		}
		cols = append(cols, outputShape(c.Output, in))
	}
	return input.With(cols...), nil
}

func outputShape(name string, in zml.ShapeColumn) zml.ShapeColumn {
	out := zml.ShapeColumn{Name: name, Kind: in.Kind, ItemType: in.ItemType}
	if in.Kind == zml.Vector {
		if names, ok := in.FindMetadata(zml.SlotNames); ok {
			out.Metadata = []zml.ShapeColumn{names}
		}
	}
	return out
}

// checkInput finds the input column of c, whose type must be supported by a
// replacer.  Per-slot statistics require a known-size vector.
func checkInput(schema *zml.Schema, name string, bySlot bool) (int, replacer, error) {
	k, err := transform.CheckInputColumn(schema, name, expected, func(typ zml.Type) bool {
		_, ok := zml.ItemType(typ).(*zml.TypePrimitive)
		return ok
	})
	if err != nil {
		return -1, nil, err
	}
	typ := schema.ColumnType(k)
	r, err := replacers.Lookup(typ)
	if err != nil {
		return -1, nil, err
	}
	if bySlot && zml.VectorSize(typ) == 0 {
		return -1, nil, zqe.ErrSchemaMismatch("input", name, "known-size vector for per-slot replacement", typ.String())
	}
	return k, r, nil
}

func (e *Estimator) Fit(env *transform.Env, input dataview.DataView) (transform.Transformer, error) {
	schema := input.Schema()
	t := &Transformer{}
	// One aggregator set per column needing statistics, indexed like
	// e.columns.
	aggs := make([][]anymath.Stats, len(e.columns))
	var active []int
	cols := make([]int, len(e.columns))
	reps := make([]replacer, len(e.columns))
	for k, c := range e.columns {
		col, r, err := checkInput(schema, c.Input, c.BySlot)
		if err != nil {
			return nil, err
		}
		cols[k], reps[k] = col, r
		if c.Mode != DefaultValue {
			n := 1
			if c.BySlot {
				n = zml.VectorSize(schema.ColumnType(col))
			}
			aggs[k] = make([]anymath.Stats, n)
			active = append(active, col)
		}
	}
	if len(active) > 0 {
		err := env.Pass("nareplace", input, dataview.Only(active...), func(row dataview.Row) (func() error, error) {
			var fns []func() error
			for k := range e.columns {
				if aggs[k] == nil {
					continue
				}
				fn, err := reps[k].collector(row, cols[k], aggs[k])
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
	}
	for k, c := range e.columns {
		values := []float64{c.Value}
		if aggs[k] != nil {
			values = make([]float64, len(aggs[k]))
			for slot := range aggs[k] {
				values[slot] = statistic(&aggs[k][slot], c.Mode)
			}
		}
		typ := schema.ColumnType(cols[k])
		if len(values) == 1 {
			typ = zml.ItemType(typ)
		}
		env.Log().Debug("Replacement values",
			zap.String("column", c.Output),
			zap.Stringer("mode", c.Mode),
			zap.Float64s("values", values))
		t.columns = append(t.columns, column{
			pair:   transform.Pair(c.Output, c.Input),
			typ:    typ,
			values: values,
		})
	}
	return t, nil
}

func statistic(s *anymath.Stats, mode Mode) float64 {
	switch mode {
	case Mean:
		return s.Mean()
	case Minimum:
		return s.Min()
	case Maximum:
		return s.Max()
	}
	return 0
}
