package root

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brimdata/zml/cli"
	"github.com/brimdata/zml/pkg/charm"
	"github.com/brimdata/zml/transform"
	"go.uber.org/multierr"
)

var Zml = &charm.Spec{
	Name:  "zml",
	Usage: "zml <command> [options] [arguments...]",
	Short: "fit and apply data transformation pipelines",
	Long: `
zml is a command-line tool for fitting pipelines of data transforms to
training data in Arrow or Parquet files, saving the fitted transforms as
model files and applying saved models to new data.`,
	New: New,
}

type Command struct {
	charm.Command
	cli.Flags
}

func New(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &Command{}
	c.SetFlags(f)
	return c, nil
}

func (c *Command) Run(args []string) error {
	env, err := c.Init()
	if err != nil {
		return err
	}
	defer env.Cleanup()
	if len(args) == 0 {
		return charm.NeedHelp
	}
	return charm.ErrNoRun
}

// LoadModel reads the model file at path.
func LoadModel(env *transform.Env, path string) (transform.Transformer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	t, err := transform.Load(env, f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// SaveModel writes t to the model file at path.  The file is written under
// a temporary name and renamed, so an existing model is replaced only by a
// complete one.
func SaveModel(t transform.Transformer, path, producer string) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()
	if err := transform.Save(f, t, producer); err != nil {
		return multierr.Append(err, f.Close())
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
