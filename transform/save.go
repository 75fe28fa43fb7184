package transform

import (
	"bytes"
	"io"

	"github.com/brimdata/zml/model"
	"go.uber.org/zap"
)

var registry = model.NewRegistry[Transformer]("transformer")

// Register adds the loader of transformers saved with the signature of v.
// Packages implementing transformers call it from init.
func Register(v model.VersionInfo, load model.LoadFunc[Transformer]) {
	registry.Register(v, load)
}

// Versions returns the version table of the registered transformers.
func Versions() []model.VersionInfo {
	return registry.Versions()
}

// LoadFrom loads the transformer saved in the directory of c.
func LoadFrom(c *model.LoadContext) (Transformer, error) {
	return registry.Load(c)
}

// Save writes t to w as a model archive.
func Save(w io.Writer, t Transformer, producer string) error {
	aw := model.NewArchiveWriter(w, producer)
	if err := t.Save(model.NewSaveContext(aw)); err != nil {
		return err
	}
	return aw.Close()
}

func SaveBytes(t Transformer) ([]byte, error) {
	var buf bytes.Buffer
	if err := Save(&buf, t, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads a transformer from a model archive of the given size.
func Load(env *Env, r io.ReaderAt, size int64) (Transformer, error) {
	a, err := model.OpenArchive(r, size)
	if err != nil {
		return nil, err
	}
	m := a.Manifest()
	env.Log().Debug("Loading model",
		zap.Stringer("id", m.ID),
		zap.String("producer", m.Producer),
		zap.Time("created", m.Created))
	return LoadFrom(model.NewLoadContext(a, env.Log()))
}

func LoadBytes(env *Env, b []byte) (Transformer, error) {
	return Load(env, bytes.NewReader(b), int64(len(b)))
}
