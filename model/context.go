package model

import (
	"path"

	"github.com/brimdata/zml/zqe"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// ModelName is the name of the entry holding an object's own fields within
// its directory.
const ModelName = "Model"

// SaveContext is the directory of an archive that an object saves itself to.
type SaveContext struct {
	archive *ArchiveWriter
	dir     string
}

func NewSaveContext(a *ArchiveWriter) *SaveContext {
	return &SaveContext{archive: a}
}

// Sub returns the context of the sub-directory name.
func (c *SaveContext) Sub(name string) *SaveContext {
	return &SaveContext{archive: c.archive, dir: path.Join(c.dir, name)}
}

func (c *SaveContext) Dir() string {
	return c.dir
}

// Save writes the Model entry of the receiver's directory with the header
// described by v and the body written by fn.
func (c *SaveContext) Save(v VersionInfo, fn func(*Writer) error) error {
	w := NewWriter()
	if err := fn(w); err != nil {
		return err
	}
	entry, err := EncodeEntry(v, w.Bytes())
	if err != nil {
		return err
	}
	return c.archive.Add(path.Join(c.dir, ModelName), entry)
}

// LoadContext is the directory of an archive that an object loads itself
// from.
type LoadContext struct {
	archive *Archive
	dir     string
	logger  *zap.Logger
}

// NewLoadContext returns the root context of a.  A nil logger discards log
// output.
func NewLoadContext(a *Archive, logger *zap.Logger) *LoadContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoadContext{archive: a, logger: logger}
}

func (c *LoadContext) Sub(name string) *LoadContext {
	return &LoadContext{archive: c.archive, dir: path.Join(c.dir, name), logger: c.logger}
}

func (c *LoadContext) Dir() string {
	return c.dir
}

func (c *LoadContext) Logger() *zap.Logger {
	return c.logger
}

// Header decodes the Model entry of the receiver's directory.
func (c *LoadContext) Header() (VersionInfo, []byte, error) {
	name := path.Join(c.dir, ModelName)
	b, err := c.archive.Read(name)
	if err != nil {
		return VersionInfo{}, nil, err
	}
	h, body, err := DecodeEntry(b)
	if err != nil {
		return VersionInfo{}, nil, err
	}
	c.logger.Debug("Model entry",
		zap.String("entry", name),
		zap.String("signature", h.Signature),
		zap.String("loader", h.Loader),
		zap.Uint32("written", h.Written),
		zap.Uint32("readable", h.Readable))
	return h, body, nil
}

// Open checks the header of the receiver's Model entry against v and
// returns a Reader for its body.
func (c *LoadContext) Open(v VersionInfo) (*Reader, error) {
	h, body, err := c.Header()
	if err != nil {
		return nil, err
	}
	if err := v.Check(h); err != nil {
		return nil, err
	}
	return NewReader(body), nil
}

// LoadFunc loads an object from its Model entry.  The header has been
// checked and r reads the body.
type LoadFunc[T any] func(c *LoadContext, r *Reader) (T, error)

type registration[T any] struct {
	info VersionInfo
	load LoadFunc[T]
}

// Registry maps signatures to the loaders of objects of type T.  Its
// version table is consulted before any field of an entry is parsed.
type Registry[T any] struct {
	name    string
	loaders map[string]registration[T]
}

func NewRegistry[T any](name string) *Registry[T] {
	return &Registry[T]{name: name, loaders: make(map[string]registration[T])}
}

// Register adds the loader for entries with signature v.Signature.  It is
// meant to be called from init functions and panics if v is invalid or the
// signature is already registered.
func (r *Registry[T]) Register(v VersionInfo, load LoadFunc[T]) {
	if err := v.Validate(); err != nil {
		panic(err)
	}
	if _, ok := r.loaders[v.Signature]; ok {
		panic("model: " + r.name + " signature registered twice: " + v.Signature)
	}
	r.loaders[v.Signature] = registration[T]{info: v, load: load}
}

// Versions returns the version table sorted by signature.
func (r *Registry[T]) Versions() []VersionInfo {
	var table []VersionInfo
	for _, reg := range r.loaders {
		table = append(table, reg.info)
	}
	slices.SortFunc(table, func(a, b VersionInfo) bool {
		return a.Signature < b.Signature
	})
	return table
}

// Lookup returns the version info registered for signature.
func (r *Registry[T]) Lookup(signature string) (VersionInfo, bool) {
	reg, ok := r.loaders[signature]
	return reg.info, ok
}

// Load loads the object saved in the directory of c with the loader
// registered for its signature.
func (r *Registry[T]) Load(c *LoadContext) (T, error) {
	var zero T
	h, body, err := c.Header()
	if err != nil {
		return zero, err
	}
	reg, ok := r.loaders[h.Signature]
	if !ok {
		return zero, zqe.E(zqe.Decode, "no %s loader for model signature %q", r.name, h.Signature)
	}
	if err := reg.info.Check(h); err != nil {
		return zero, err
	}
	rd := NewReader(body)
	v, err := reg.load(c, rd)
	if err != nil {
		return zero, err
	}
	// Fields past what the loader reads were added by a newer writer
	// and are ignored.
	if err := rd.Err(); err != nil {
		return zero, err
	}
	return v, nil
}
