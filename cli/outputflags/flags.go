package outputflags

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

type Flags struct {
	Format     string
	outputFile string
}

func (f *Flags) SetFlags(fs *flag.FlagSet) {
	fs.StringVar(&f.Format, "f", "text", "format for output data [text,json]")
	fs.StringVar(&f.outputFile, "o", "", "write data to output file")
}

func (f *Flags) Init() error {
	if f.Format != "text" && f.Format != "json" {
		return fmt.Errorf("unknown output format %q", f.Format)
	}
	return nil
}

// Report is output that has both a text and a JSON rendering.
type Report interface {
	WriteText(io.Writer) error
}

// Write writes r to the output in the chosen format.  The JSON format
// encodes r itself.
func (f *Flags) Write(r Report) (err error) {
	w := io.WriteCloser(nopCloser{os.Stdout})
	if f.outputFile != "" {
		file, err := os.Create(f.outputFile)
		if err != nil {
			return err
		}
		w = file
	}
	defer func() {
		if closeErr := w.Close(); err == nil {
			err = closeErr
		}
	}()
	if f.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return r.WriteText(w)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
