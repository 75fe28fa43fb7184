package logflags

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/brimdata/zml/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func parse(t *testing.T, args ...string) *Flags {
	var f Flags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	f.SetFlags(fs)
	require.NoError(t, fs.Parse(args))
	return &f
}

func TestDefaults(t *testing.T) {
	f := parse(t)
	assert.Equal(t, zap.WarnLevel, f.Config.Level)
	assert.Equal(t, "stderr", f.Config.Path)
	assert.Equal(t, logger.FileModeTruncate, f.Config.Mode)
	assert.False(t, f.Config.DevMode)
	assert.NoError(t, f.Init())
}

func TestRotate(t *testing.T) {
	f := parse(t, "-log.filemode", "rotate")
	assert.Error(t, f.Init())

	path := filepath.Join(t.TempDir(), "zml.log")
	f = parse(t, "-log.filemode", "rotate", "-log.path", path, "-log.level", "debug", "-log.devmode")
	require.NoError(t, f.Init())
	assert.Equal(t, zap.DebugLevel, f.Config.Level)
	assert.True(t, f.Config.DevMode)
	l, err := f.Open()
	require.NoError(t, err)
	l.Debug("opened")
	assert.NoError(t, l.Sync())
}
