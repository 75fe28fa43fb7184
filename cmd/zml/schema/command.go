package schema

import (
	"errors"
	"flag"

	"github.com/brimdata/zml/cli/inputflags"
	"github.com/brimdata/zml/cli/outputflags"
	"github.com/brimdata/zml/cmd/zml/root"
	"github.com/brimdata/zml/pkg/charm"
	"github.com/brimdata/zml/transform"
)

var Cmd = &charm.Spec{
	Name:  "schema",
	Usage: "schema [-m model.zml] [options] data",
	Short: "print the schema of data",
	Long: `
The schema command prints the columns of the data with their types and
metadata kinds.  With -m, it prints the schema the model would produce from
the data without reading any rows.`,
	New: New,
}

type Command struct {
	*root.Command
	inputFlags  inputflags.Flags
	outputFlags outputflags.Flags
	model       string
}

func New(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &Command{Command: parent.(*root.Command)}
	c.inputFlags.SetFlags(f)
	c.outputFlags.SetFlags(f)
	f.StringVar(&c.model, "m", "", "model file whose output schema to print")
	return c, nil
}

func (c *Command) Run(args []string) error {
	env, err := c.Init(&c.inputFlags, &c.outputFlags)
	if err != nil {
		return err
	}
	defer env.Cleanup()
	if len(args) != 1 {
		return errors.New("schema takes one data file")
	}
	c.inputFlags.CacheColumns = 0
	data, err := c.inputFlags.Open(args[0], nil)
	if err != nil {
		return err
	}
	schema := data.Schema()
	if c.model != "" {
		t, err := root.LoadModel(transform.NewEnv(env.Logger, nil), c.model)
		if err != nil {
			return err
		}
		if schema, err = t.OutputSchema(schema); err != nil {
			return err
		}
	}
	return c.outputFlags.Write(root.NewSchemaReport(schema))
}
