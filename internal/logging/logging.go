// Package logging builds the zap logger used by bk.
package logging

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures [New].
type Options struct {
	// Level is a zap level name ("debug", "info", "warn", "error").
	Level string

	// Console receives human-readable entries at Level. Nil disables it.
	Console io.Writer

	// File, when set, receives JSON entries at info and above through a
	// rotating writer.
	File string

	// FatalHook replaces the default os.Exit on Fatal entries.
	FatalHook zapcore.CheckWriteHook
}

// New returns a logger teeing a console core and an optional rotating
// JSON file core. The returned close func flushes and closes the file.
func New(opts Options) (*zap.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	var (
		cores   []zapcore.Core
		rotator *lumberjack.Logger
	)

	if opts.Console != nil {
		consoleConfig := zap.NewDevelopmentEncoderConfig()
		consoleConfig.TimeKey = ""
		consoleConfig.CallerKey = ""

		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleConfig),
			zapcore.Lock(zapcore.AddSync(opts.Console)),
			level,
		))
	}

	if opts.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // Megabytes
			MaxBackups: 5,
			MaxAge:     30, // Days
			Compress:   true,
		}

		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.MessageKey = "message"
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(rotator),
			zapcore.InfoLevel,
		))
	}

	zapOpts := []zap.Option{zap.AddCaller()}
	if opts.FatalHook != nil {
		zapOpts = append(zapOpts, zap.WithFatalHook(opts.FatalHook))
	}

	logger := zap.New(zapcore.NewTee(cores...), zapOpts...)

	closeFn := func() error {
		_ = logger.Sync()

		if rotator != nil {
			return rotator.Close()
		}

		return nil
	}

	return logger, closeFn, nil
}
