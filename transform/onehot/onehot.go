// Package onehot implements categorical encoding: a term dictionary
// followed by the expansion of its keys into indicator or bag vectors.
package onehot

import (
	"fmt"

	"github.com/brimdata/zml"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/transform"
	"github.com/brimdata/zml/transform/keytovec"
	"github.com/brimdata/zml/transform/term"
)

// OutputKind selects the encoding of a column.
type OutputKind int

const (
	// Indicator encodes each value as a vector with a single 1, or a
	// vector value as the concatenation of such vectors.
	Indicator OutputKind = iota
	// Bag encodes a vector value as the count of each term.
	Bag
	// Key encodes each value as its key in the term dictionary.
	Key
)

func (k OutputKind) String() string {
	switch k {
	case Indicator:
		return "indicator"
	case Bag:
		return "bag"
	case Key:
		return "key"
	}
	return fmt.Sprintf("OutputKind(%d)", int(k))
}

// ParseOutputKind returns the kind named by s.
func ParseOutputKind(s string) (OutputKind, error) {
	for _, k := range []OutputKind{Indicator, Bag, Key} {
		if s == k.String() {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown one-hot output kind %q", s)
}

type ColumnOptions struct {
	Output  string
	Input   string
	Kind    OutputKind
	MaxKeys int
	Sort    term.Sort
}

// Estimator fits a TransformerChain of a term transformer and, unless every
// column is encoded as a key, a key-to-vector transformer.
type Estimator struct {
	chain *transform.EstimatorChain
}

var _ transform.Estimator = (*Estimator)(nil)

func NewEstimator(columns ...ColumnOptions) (*Estimator, error) {
	var terms []term.ColumnOptions
	var vectors []keytovec.ColumnOptions
	for _, c := range columns {
		switch c.Kind {
		case Indicator, Bag, Key:
		default:
			return nil, fmt.Errorf("column '%s': unknown output kind %s", c.Output, c.Kind)
		}
		terms = append(terms, term.ColumnOptions{
			Output:  c.Output,
			Input:   c.Input,
			MaxKeys: c.MaxKeys,
			Sort:    c.Sort,
		})
		if c.Kind != Key {
			vectors = append(vectors, keytovec.ColumnOptions{Output: c.Output, Bag: c.Kind == Bag})
		}
	}
	est, err := term.NewEstimator(terms...)
	if err != nil {
		return nil, err
	}
	chain := transform.NewEstimatorChain(est)
	if len(vectors) > 0 {
		k2v, err := keytovec.New(vectors...)
		if err != nil {
			return nil, err
		}
		chain = chain.Append(k2v)
	}
	return &Estimator{chain: chain}, nil
}

func (e *Estimator) OutputShape(input *zml.Shape) (*zml.Shape, error) {
	return e.chain.OutputShape(input)
}

func (e *Estimator) Fit(env *transform.Env, input dataview.DataView) (transform.Transformer, error) {
	return e.chain.Fit(env, input)
}
