package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	Stdout = "stdout"
	Stderr = "stderr"
)

// New builds the server logger writing to stdout. Stack traces are attached
// only in debug mode.
func New(json bool, debug bool) (*zap.Logger, error) {
	return NewWithOutput(json, debug, Stdout)
}

// NewWithOutput builds a logger writing to output. Commands printing results
// to stdout log to Stderr so the two streams do not mix.
func NewWithOutput(json bool, debug bool, output string) (*zap.Logger, error) {
	return config(json, debug, output).Build()
}

func config(json bool, debug bool, output string) zap.Config {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	return zap.Config{
		Encoding:          encoding,
		Level:             zap.NewAtomicLevelAt(level),
		DisableStacktrace: !debug,
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{Stderr},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "step",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,

			StacktraceKey:  "stacktrace",
			EncodeDuration: zapcore.StringDurationEncoder,
		},
	}
}
