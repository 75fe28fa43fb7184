// Package logflags binds the zap logger configuration of a command to
// -log.* flags.
package logflags

import (
	"flag"
	"fmt"

	"github.com/brimdata/zml/pkg/logger"
	"go.uber.org/zap"
)

type Flags struct {
	Config logger.Config
}

func (f *Flags) SetFlags(fs *flag.FlagSet) {
	f.Config.Level = zap.WarnLevel
	f.Config.Mode = logger.FileModeTruncate
	fs.BoolVar(&f.Config.DevMode, "log.devmode", false, "log in development mode, where DPanic entries panic")
	fs.Var(&f.Config.Level, "log.level", "minimum level of logged entries (debug, info, warn, error)")
	fs.StringVar(&f.Config.Path, "log.path", "stderr", "log destination: stderr, stdout, /dev/null or a file path")
	fs.Var(&f.Config.Mode, "log.filemode", "how a log file is opened: append, truncate or rotate")
}

// Init rejects rotation of a destination that is not a file.
func (f *Flags) Init() error {
	if f.Config.Mode == logger.FileModeRotate && !isFile(f.Config.Path) {
		return fmt.Errorf("-log.filemode rotate requires a file for -log.path, not %q", f.Config.Path)
	}
	return nil
}

func isFile(path string) bool {
	switch path {
	case "", "stderr", "stdout", "/dev/null":
		return false
	}
	return true
}

func (f *Flags) Open() (*zap.Logger, error) {
	return logger.New(f.Config)
}
