package inputflags

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/brimdata/zml/dataview"
	"github.com/brimdata/zml/dataview/arrowview"
	"github.com/brimdata/zml/dataview/parquetview"
	"github.com/prometheus/client_golang/prometheus"
)

var parquetMagic = []byte("PAR1")

type Flags struct {
	Format string
	// CacheColumns is the number of columns a CacheView over the input
	// keeps in memory.  Zero means no cache.
	CacheColumns int
}

func (f *Flags) SetFlags(fs *flag.FlagSet) {
	fs.StringVar(&f.Format, "i", "auto", "format of input data [auto,arrow,parquet]")
	fs.IntVar(&f.CacheColumns, "cache", 64, "number of input columns to cache in memory (0 for none)")
}

// Init is called after flags have been parsed.
func (f *Flags) Init() error {
	switch f.Format {
	case "auto", "arrow", "parquet":
	default:
		return fmt.Errorf("unknown input format %q", f.Format)
	}
	if f.CacheColumns < 0 {
		return fmt.Errorf("bad cache size %d", f.CacheColumns)
	}
	return nil
}

// Open returns a view of the data at path.  When registerer is not nil, the
// cache's metrics are registered with it.
func (f *Flags) Open(path string, registerer prometheus.Registerer) (dataview.DataView, error) {
	format := f.Format
	if format == "auto" {
		var err error
		if format, err = Detect(path); err != nil {
			return nil, err
		}
	}
	var dv dataview.DataView
	var err error
	switch format {
	case "arrow":
		dv, err = arrowview.Open(path)
	case "parquet":
		dv, err = parquetview.Open(path)
	default:
		err = fmt.Errorf("unknown input format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if f.CacheColumns == 0 {
		return dv, nil
	}
	return dataview.NewCacheView(dv, f.CacheColumns, registerer)
}

// Detect returns the format of the file at path from its extension or, when
// that is not known, its leading bytes.
func Detect(path string) (string, error) {
	switch filepath.Ext(path) {
	case ".parquet":
		return "parquet", nil
	case ".arrow", ".arrows":
		return "arrow", nil
	}
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	head := make([]byte, len(parquetMagic))
	if _, err := io.ReadFull(file, head); err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if bytes.Equal(head, parquetMagic) {
		return "parquet", nil
	}
	return "arrow", nil
}
