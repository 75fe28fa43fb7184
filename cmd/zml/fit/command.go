package fit

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/brimdata/zml/cli"
	"github.com/brimdata/zml/cli/inputflags"
	"github.com/brimdata/zml/cli/outputflags"
	"github.com/brimdata/zml/cmd/zml/root"
	"github.com/brimdata/zml/pipeline"
	"github.com/brimdata/zml/pkg/charm"
	"github.com/brimdata/zml/transform"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var Cmd = &charm.Spec{
	Name:  "fit",
	Usage: "fit -p pipeline.yaml -m model.zml [options] data",
	Short: "fit a pipeline to training data and save the model",
	Long: `
The fit command reads a pipeline definition, fits its stages in order to the
training data and writes the fitted transforms to a model file.  It prints the
schema of the data the model produces.

The pipeline is a YAML document listing stages, each naming an op and its
columns.  The ops are: ` + fmt.Sprint(pipeline.Ops()) + `.`,
	New: New,
}

type Command struct {
	*root.Command
	inputFlags  inputflags.Flags
	outputFlags outputflags.Flags
	pipeline    string
	model       string
}

func New(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &Command{Command: parent.(*root.Command)}
	c.inputFlags.SetFlags(f)
	c.outputFlags.SetFlags(f)
	f.StringVar(&c.pipeline, "p", "", "pipeline definition file")
	f.StringVar(&c.model, "m", "", "model file to write")
	return c, nil
}

type report struct {
	Model    string             `json:"model"`
	Schema   *root.SchemaReport `json:"schema"`
	Counters map[string]float64 `json:"counters"`
}

func (r *report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "wrote %s\n", r.Model); err != nil {
		return err
	}
	return r.Schema.WriteText(w)
}

func (c *Command) Run(args []string) error {
	env, err := c.Init(&c.inputFlags, &c.outputFlags)
	if err != nil {
		return err
	}
	defer env.Cleanup()
	if len(args) != 1 {
		return errors.New("fit takes one data file")
	}
	if c.pipeline == "" || c.model == "" {
		return errors.New("both -p and -m must be given")
	}
	config, err := pipeline.Load(c.pipeline)
	if err != nil {
		return fmt.Errorf("%s: %w", c.pipeline, err)
	}
	est, err := config.Build()
	if err != nil {
		return fmt.Errorf("%s: %w", c.pipeline, err)
	}
	registry := prometheus.NewRegistry()
	data, err := c.inputFlags.Open(args[0], registry)
	if err != nil {
		return err
	}
	tenv := transform.NewEnv(env.Logger, registry)
	t, err := est.Fit(tenv, data)
	if err != nil {
		return err
	}
	if err := env.Context.Err(); err != nil {
		return err
	}
	if err := root.SaveModel(t, c.model, "zml "+cli.Version()); err != nil {
		return err
	}
	schema, err := t.OutputSchema(data.Schema())
	if err != nil {
		return err
	}
	counters, err := root.Counters(registry)
	if err != nil {
		return err
	}
	env.Logger.Info("Fit pipeline",
		zap.String("pipeline", c.pipeline),
		zap.String("model", c.model),
		zap.Int("stages", est.Len()),
		zap.Any("counters", counters))
	return c.outputFlags.Write(&report{
		Model:    c.model,
		Schema:   root.NewSchemaReport(schema),
		Counters: counters,
	})
}
