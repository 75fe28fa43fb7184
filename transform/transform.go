// Package transform defines transformers and estimators and the machinery
// they share.
//
// An Estimator is fit to a training DataView and returns a Transformer.  A
// Transformer maps a DataView to a new, lazily computed DataView: Transform
// reads no data, and output values are computed row by row as the result is
// cursored.  Both can report the schema they would produce without seeing
// data, estimators from a Shape and transformers from a Schema.
package transform

import (
	"time"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Transformer interface {
	// OutputSchema returns the schema of Transform's result for an input
	// of the given schema.
	OutputSchema(input *zml.Schema) (*zml.Schema, error)
	// Transform returns the view of input with the transformer's columns
	// appended.  It checks the input schema but reads no rows.
	Transform(input dataview.DataView) (dataview.DataView, error)
	// Save writes the transformer's fitted state to c.
	Save(c *model.SaveContext) error
}

type Estimator interface {
	// OutputShape returns the shape of the data a transformer fit by the
	// estimator would produce from input of the given shape.
	OutputShape(input *zml.Shape) (*zml.Shape, error)
	// Fit reads input and returns the fitted transformer.  A failed fit
	// returns no transformer.
	Fit(env *Env, input dataview.DataView) (Transformer, error)
}

// Env carries the logger and metrics of estimators.  A nil *Env is valid
// and discards both.
type Env struct {
	Logger *zap.Logger
	passes *prometheus.CounterVec
	rows   *prometheus.CounterVec
}

// NewEnv returns an Env.  A nil logger discards log output and a nil
// registerer keeps the metrics in a private registry.
func NewEnv(logger *zap.Logger, registerer prometheus.Registerer) *Env {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)
	return &Env{
		Logger: logger,
		passes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transform_fit_passes_total",
				Help: "Number of passes over training data made by estimators.",
			},
			[]string{"estimator"},
		),
		rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transform_fit_rows_total",
				Help: "Number of training rows read by estimators.",
			},
			[]string{"estimator"},
		),
	}
}

// Log returns the logger of e.
func (e *Env) Log() *zap.Logger {
	if e == nil || e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Pass makes one pass over the rows of input with the columns selected by
// active.  Bind is called once with the cursor and returns the function
// called for each row.
func (e *Env) Pass(estimator string, input dataview.DataView, active func(int) bool, bind func(dataview.Row) (func() error, error)) (err error) {
	start := time.Now()
	cursor, err := input.Cursor(active)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(cursor))
	row, err := bind(cursor)
	if err != nil {
		return err
	}
	var n int64
	for {
		ok, err := cursor.MoveNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := row(); err != nil {
			return err
		}
		n++
	}
	if e != nil && e.passes != nil {
		e.passes.WithLabelValues(estimator).Inc()
		e.rows.WithLabelValues(estimator).Add(float64(n))
	}
	e.Log().Info("Fit pass",
		zap.String("estimator", estimator),
		zap.Int64("rows", n),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
