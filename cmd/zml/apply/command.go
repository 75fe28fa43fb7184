package apply

import (
	"errors"
	"flag"

	"github.com/brimdata/zml/cli/inputflags"
	"github.com/brimdata/zml/cli/outputflags"
	"github.com/brimdata/zml/cmd/zml/root"
	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/pkg/charm"
	"github.com/brimdata/zml/transform"
)

var Cmd = &charm.Spec{
	Name:  "apply",
	Usage: "apply -m model.zml [options] data",
	Short: "apply a saved model to data",
	Long: `
The apply command loads a model written by fit, applies it to the data and
prints the resulting rows.  Columns hidden by a transform that reuses their
name are not printed.`,
	New: New,
}

type Command struct {
	*root.Command
	inputFlags  inputflags.Flags
	outputFlags outputflags.Flags
	model       string
	limit       int64
}

func New(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &Command{Command: parent.(*root.Command)}
	c.inputFlags.SetFlags(f)
	c.outputFlags.SetFlags(f)
	f.StringVar(&c.model, "m", "", "model file to apply")
	f.Int64Var(&c.limit, "n", 10, "number of rows to print (-1 for all)")
	return c, nil
}

func (c *Command) Run(args []string) error {
	env, err := c.Init(&c.inputFlags, &c.outputFlags)
	if err != nil {
		return err
	}
	defer env.Cleanup()
	if len(args) != 1 {
		return errors.New("apply takes one data file")
	}
	if c.model == "" {
		return errors.New("no model file given with -m")
	}
	t, err := root.LoadModel(transform.NewEnv(env.Logger, nil), c.model)
	if err != nil {
		return err
	}
	data, err := c.inputFlags.Open(args[0], nil)
	if err != nil {
		return err
	}
	out, err := t.Transform(data)
	if err != nil {
		return err
	}
	r := &root.RowsReport{Names: out.Schema().Names()}
	err = dataview.Scan(out, c.limit, func(values []any) error {
		if err := env.Context.Err(); err != nil {
			return err
		}
		r.Add(values)
		return nil
	})
	if err != nil {
		return err
	}
	return c.outputFlags.Write(r)
}
