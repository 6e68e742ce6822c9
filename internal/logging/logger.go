package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ncecere/model_pricing_extractor/internal/config"
)

const (
	// MaxLogRetentionDays is how long rotated files are kept.
	MaxLogRetentionDays = 15

	DefaultMaxSizeMB = 100
)

// Options selects the sinks of the process logger.
type Options struct {
	Level     string
	Format    string
	FilePath  string
	MaxSizeMB int
	// Console is where the console core writes; nil means stderr.
	Console io.Writer
}

// OptionsFromConfig maps the log config section onto Options.
func OptionsFromConfig(cfg config.LogConfig) Options {
	return Options{
		Level:     cfg.Level,
		Format:    cfg.Format,
		FilePath:  cfg.File,
		MaxSizeMB: cfg.MaxSizeMB,
	}
}

// New builds a zap logger writing to the console and, when a file path is
// set, to a rotating JSON file.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(defaultString(opts.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = DefaultMaxSizeMB
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var consoleEncoder zapcore.Encoder
	switch opts.Format {
	case "json":
		consoleEncoder = zapcore.NewJSONEncoder(encoderConfig)
	case "", "console":
		consoleEncoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unsupported log format %q", opts.Format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(console), level),
	}

	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename: opts.FilePath,
			MaxSize:  opts.MaxSizeMB,
			MaxAge:   MaxLogRetentionDays,
			Compress: true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
