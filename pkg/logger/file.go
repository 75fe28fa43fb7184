package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type FileMode string

const (
	// FileModeAppend appends to an existing log file.
	FileModeAppend FileMode = "append"
	// FileModeTruncate truncates an existing log file.  This is the
	// default.
	FileModeTruncate FileMode = "truncate"
	// FileModeRotate rotates the log file as it grows.
	FileModeRotate FileMode = "rotate"
)

func (m *FileMode) Set(s string) error {
	switch FileMode(s) {
	case FileModeAppend, FileModeTruncate, FileModeRotate:
		*m = FileMode(s)
	case "":
		*m = FileModeTruncate
	default:
		return fmt.Errorf("invalid file mode: %s", s)
	}
	return nil
}

func (m FileMode) String() string {
	return string(m)
}

// OpenFile opens the log destination at path.  The names stdout, stderr and
// /dev/null are special.
func OpenFile(path string, mode FileMode) (zapcore.WriteSyncer, error) {
	switch path {
	case "", "stderr":
		return zapcore.Lock(os.Stderr), nil
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "/dev/null":
		return zapcore.AddSync(io.Discard), nil
	}
	flags := os.O_WRONLY | os.O_CREATE
	switch mode {
	case FileModeRotate:
		return logrotate(path)
	case FileModeAppend:
		flags |= os.O_APPEND
	default:
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, err
	}
	return zapcore.Lock(f), nil
}

func logrotate(path string) (zapcore.WriteSyncer, error) {
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return nil, err
	}
	// lumberjack.Logger is safe for concurrent use.
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}), nil
}
