package inspect

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/brimdata/zml/cli/outputflags"
	"github.com/brimdata/zml/cmd/zml/root"
	"github.com/brimdata/zml/model"
	"github.com/brimdata/zml/pkg/charm"
)

var Cmd = &charm.Spec{
	Name:  "inspect",
	Usage: "inspect [options] model.zml",
	Short: "describe the entries of a model file",
	Long: `
The inspect command prints the manifest of a model file followed by one line
per entry giving its name, the signature and versions of the object saved
in it, its loader signature and its stored and uncompressed sizes.`,
	New: New,
}

type Command struct {
	*root.Command
	outputFlags outputflags.Flags
}

func New(parent charm.Command, f *flag.FlagSet) (charm.Command, error) {
	c := &Command{Command: parent.(*root.Command)}
	c.outputFlags.SetFlags(f)
	return c, nil
}

type entry struct {
	Name      string `json:"name"`
	Signature string `json:"signature,omitempty"`
	Loader    string `json:"loader,omitempty"`
	Written   uint32 `json:"written,omitempty"`
	Readable  uint32 `json:"readable,omitempty"`
	ReadBack  uint32 `json:"read_back,omitempty"`
	Stored    int    `json:"stored"`
	Raw       int    `json:"raw"`
}

type report struct {
	ID       string    `json:"id"`
	Producer string    `json:"producer"`
	Created  time.Time `json:"created"`
	Entries  []entry   `json:"entries"`
}

func (r *report) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "id %s\nproducer %q\ncreated %s\n", r.ID, r.Producer, r.Created.Format(time.RFC3339))
	if err != nil {
		return err
	}
	for _, e := range r.Entries {
		if e.Signature == "" {
			_, err = fmt.Fprintf(w, "%s %d/%d\n", e.Name, e.Stored, e.Raw)
		} else {
			_, err = fmt.Fprintf(w, "%s %s v%d (readable %d, reads %d) %s %d/%d\n",
				e.Name, e.Signature, e.Written, e.Readable, e.ReadBack, e.Loader, e.Stored, e.Raw)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Command) Run(args []string) error {
	env, err := c.Init(&c.outputFlags)
	if err != nil {
		return err
	}
	defer env.Cleanup()
	if len(args) != 1 {
		return errors.New("inspect takes one model file")
	}
	r, err := inspect(args[0])
	if err != nil {
		return err
	}
	return c.outputFlags.Write(r)
}

func inspect(path string) (*report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	a, err := model.OpenArchive(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m := a.Manifest()
	r := &report{ID: m.ID.String(), Producer: m.Producer, Created: m.Created}
	for _, de := range a.Entries() {
		e := entry{Name: de.Name, Stored: de.StoredLen, Raw: de.RawLen}
		if de.Name != model.ManifestName {
			b, err := a.Read(de.Name)
			if err != nil {
				return nil, err
			}
			v, _, err := model.DecodeEntry(b)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", de.Name, err)
			}
			e.Signature, e.Loader = v.Signature, v.Loader
			e.Written, e.Readable, e.ReadBack = v.Written, v.Readable, v.ReadBack
		}
		r.Entries = append(r.Entries, e)
	}
	return r, nil
}
