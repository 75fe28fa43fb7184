package transform

import (
	"fmt"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/zqe"
	"go.uber.org/zap"
)

// TransformerChain applies its stages in order, each to the output of the
// one before.
type TransformerChain struct {
	stages []Transformer
}

var _ Transformer = (*TransformerChain)(nil)

func NewTransformerChain(stages ...Transformer) *TransformerChain {
	return &TransformerChain{stages: append([]Transformer(nil), stages...)}
}

func (c *TransformerChain) Stages() []Transformer {
	return append([]Transformer(nil), c.stages...)
}

// Append returns a new chain with t added to the receiver's stages.
func (c *TransformerChain) Append(t Transformer) *TransformerChain {
	return NewTransformerChain(append(c.Stages(), t)...)
}

func (c *TransformerChain) OutputSchema(input *zml.Schema) (*zml.Schema, error) {
	schema := input
	for k, t := range c.stages {
		var err error
		if schema, err = t.OutputSchema(schema); err != nil {
			return nil, fmt.Errorf("stage %d: %w", k, err)
		}
	}
	return schema, nil
}

func (c *TransformerChain) Transform(input dataview.DataView) (dataview.DataView, error) {
	dv := input
	for k, t := range c.stages {
		var err error
		if dv, err = t.Transform(dv); err != nil {
			return nil, fmt.Errorf("stage %d: %w", k, err)
		}
	}
	return dv, nil
}

var chainVersion = model.VersionInfo{
	Signature: "TRANCHAN",
	Written:   1,
	Readable:  1,
	ReadBack:  1,
	Loader:    "TransformerChain",
}

func init() {
	Register(chainVersion, loadChain)
}

func stageDir(k int) string {
	return fmt.Sprintf("Transform_%03d", k)
}

// Save writes the number of stages followed by the directory names of the
// stages, each of which holds a saved transformer.
func (c *TransformerChain) Save(sc *model.SaveContext) error {
	names := make([]string, 0, len(c.stages))
	for k, t := range c.stages {
		name := stageDir(k)
		if err := t.Save(sc.Sub(name)); err != nil {
			return fmt.Errorf("stage %d: %w", k, err)
		}
		names = append(names, name)
	}
	return sc.Save(chainVersion, func(w *model.Writer) error {
		w.Strings(names)
		return nil
	})
}

func loadChain(lc *model.LoadContext, r *model.Reader) (Transformer, error) {
	names := r.Strings()
	if err := r.Err(); err != nil {
		return nil, err
	}
	c := &TransformerChain{}
	for k, name := range names {
		t, err := LoadFrom(lc.Sub(name))
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", k, err)
		}
		c.stages = append(c.stages, t)
	}
	return c, nil
}

// EstimatorChain fits its stages in order.  Each stage is fit to the output
// of the transformers fit before it.
type EstimatorChain struct {
	stages []Estimator
}

var _ Estimator = (*EstimatorChain)(nil)

func NewEstimatorChain(stages ...Estimator) *EstimatorChain {
	return &EstimatorChain{stages: append([]Estimator(nil), stages...)}
}

// Append returns a new chain with e added to the receiver's stages.
func (c *EstimatorChain) Append(e Estimator) *EstimatorChain {
	return NewEstimatorChain(append(append([]Estimator(nil), c.stages...), e)...)
}

func (c *EstimatorChain) Len() int {
	return len(c.stages)
}

func (c *EstimatorChain) OutputShape(input *zml.Shape) (*zml.Shape, error) {
	shape := input
	for k, e := range c.stages {
		var err error
		if shape, err = e.OutputShape(shape); err != nil {
			return nil, fmt.Errorf("stage %d: %w", k, err)
		}
	}
	return shape, nil
}

// Fit checks the whole chain against the shape of input before fitting any
// stage and returns a TransformerChain.
func (c *EstimatorChain) Fit(env *Env, input dataview.DataView) (Transformer, error) {
	if len(c.stages) == 0 {
		return nil, zqe.E(zqe.Invalid, "empty estimator chain")
	}
	if _, err := c.OutputShape(zml.ShapeOf(input.Schema())); err != nil {
		return nil, err
	}
	dv := input
	transformers := make([]Transformer, 0, len(c.stages))
	for k, e := range c.stages {
		t, err := e.Fit(env, dv)
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", k, err)
		}
		if dv, err = t.Transform(dv); err != nil {
			return nil, fmt.Errorf("stage %d: %w", k, err)
		}
		env.Log().Debug("Fit stage", zap.Int("stage", k), zap.Stringer("schema", dv.Schema()))
		transformers = append(transformers, t)
	}
	return NewTransformerChain(transformers...), nil
}
