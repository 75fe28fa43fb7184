package root

import (
	"fmt"
	"image"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/brimdata/zml"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
)

type ColumnReport struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Hidden   bool     `json:"hidden,omitempty"`
	Metadata []string `json:"metadata,omitempty"`
}

type SchemaReport struct {
	Columns []ColumnReport `json:"columns"`
}

func NewSchemaReport(s *zml.Schema) *SchemaReport {
	r := &SchemaReport{Columns: []ColumnReport{}}
	for k := 0; k < s.Len(); k++ {
		c := s.Column(k)
		r.Columns = append(r.Columns, ColumnReport{
			Name:     c.Name,
			Type:     c.Type.String(),
			Hidden:   s.IsHidden(k),
			Metadata: s.MetadataKinds(k),
		})
	}
	return r
}

func (s *SchemaReport) WriteText(w io.Writer) error {
	for _, c := range s.Columns {
		line := c.Name + ": " + c.Type
		if len(c.Metadata) > 0 {
			line += " [" + strings.Join(c.Metadata, ",") + "]"
		}
		if c.Hidden {
			line += " (hidden)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RowsReport holds rows of values as read by dataview.Scan.
type RowsReport struct {
	Names []string
	Rows  [][]any
}

// Add appends a copy of values after converting images and times to
// printable values.
func (r *RowsReport) Add(values []any) {
	row := make([]any, len(values))
	for k, v := range values {
		row[k] = printable(v)
	}
	r.Rows = append(r.Rows, row)
}

func printable(v any) any {
	switch v := v.(type) {
	case image.Image:
		b := v.Bounds()
		return fmt.Sprintf("image<%dx%d>", b.Dy(), b.Dx())
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case time.Duration:
		return v.String()
	}
	return v
}

func (r *RowsReport) WriteText(w io.Writer) error {
	for _, row := range r.Rows {
		fields := make([]string, len(row))
		for k, v := range row {
			fields[k] = fmt.Sprintf("%s=%v", r.Names[k], v)
		}
		if _, err := fmt.Fprintln(w, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return nil
}

func (r *RowsReport) MarshalJSON() ([]byte, error) {
	objs := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		obj := make(map[string]any, len(row))
		for k, v := range row {
			obj[r.Names[k]] = v
		}
		objs = append(objs, obj)
	}
	return json.Marshal(objs)
}

// Counters returns the value of every counter gathered from g keyed by
// metric name and labels, e.g., "transform_fit_passes_total{estimator=term}".
func Counters(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	out := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			sort.Strings(labels)
			name := f.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			out[name] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}
