// Package logger builds the zap loggers of the zml command and the
// services that fit and apply models.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Path string `yaml:"path"`
	// If Path is a file, Mode determines how the file is managed.
	Mode  FileMode      `yaml:"mode,omitempty"`
	Level zapcore.Level `yaml:"level"`
	// DevMode makes DPanic level logs panic.
	DevMode bool `yaml:"devmode,omitempty"`
}

func NewCore(conf Config) (zapcore.Core, error) {
	w, err := OpenFile(conf.Path, conf.Mode)
	if err != nil {
		return nil, err
	}
	return zapcore.NewCore(jsonEncoder(), w, conf.Level), nil
}

func New(conf Config) (*zap.Logger, error) {
	core, err := NewCore(conf)
	if err != nil {
		return nil, err
	}
	var opts []zap.Option
	if conf.DevMode {
		opts = append(opts, zap.Development())
	}
	return zap.New(core, opts...), nil
}

func jsonEncoder() zapcore.Encoder {
	conf := zap.NewProductionEncoderConfig()
	conf.CallerKey = ""
	conf.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(conf)
}
