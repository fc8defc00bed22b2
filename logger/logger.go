package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON sugared logger writing to stdout at the given level
// ("debug", "info", "warn", "error").
func New(level string) (*zap.SugaredLogger, error) {
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	config := zap.Config{
		Encoding:         "json",
		Level:            atomic,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
	}
	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return zapLogger.Sugar(), nil
}
