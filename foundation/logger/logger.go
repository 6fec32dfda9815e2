// Package logger provides a convenience function to constructing a logger
// for use. This is required not just for applications but for testing.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New constructs a Sugared Logger that writes to stdout and
// provides human readable timestamps.
func New(service string, outputPaths ...string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()

	config.OutputPaths = []string{"stdout"}
	if outputPaths != nil {
		config.OutputPaths = outputPaths
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]any{
		"service": service,
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}

// NewWithFile constructs a Sugared Logger that writes to stdout and also into
// a rotating log file. When fileName is empty it behaves like New.
func NewWithFile(service string, fileName string) (*zap.SugaredLogger, error) {
	log, err := New(service)
	if err != nil {
		return nil, err
	}

	if fileName == "" {
		return log, nil
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	rotate := zapcore.AddSync(&lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		Compress:   true,
	})

	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), rotate, zap.InfoLevel)

	tee := log.Desugar().WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore.With([]zapcore.Field{zap.String("service", service)}))
	}))

	return tee.Sugar(), nil
}
