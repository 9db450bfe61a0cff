// Package logger builds the process-wide zerolog logger from configuration.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/axonhq/axon/internal/config"
)

// New returns a logger writing to stdout in the configured format, and also to
// a rotating file when logging.file is set. The returned closer releases the
// file.
func New(cfg *config.ObservabilityConfig) (zerolog.Logger, io.Closer) {
	return build(cfg, os.Stdout)
}

func build(cfg *config.ObservabilityConfig, stdout io.Writer) (zerolog.Logger, io.Closer) {
	if cfg == nil {
		cfg = config.DefaultObservabilityConfig()
	}

	var console io.Writer = stdout
	if cfg.Logging.Format == "console" {
		console = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
	}

	var closer io.Closer = nopCloser{}
	out := console
	if cfg.Logging.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAge:     cfg.Logging.MaxAgeDays,
			Compress:   true,
		}
		// the file always gets JSON
		out = zerolog.MultiLevelWriter(console, rotator)
		closer = rotator
	}

	return zerolog.New(out).
		Level(ParseLevel(cfg.Logging.Level)).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("env", cfg.Environment).
		Logger(), closer
}

// ParseLevel maps a config level to zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return l
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
