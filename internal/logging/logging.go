// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rickgao/meshlink/internal/config"
)

// EnvLogLevel overrides the configured level when set.
const EnvLogLevel = "MESHLINK_LOG_LEVEL"

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg. Output goes to cfg.File through a rotating
// writer, or to fallback (stderr when nil) if no file is configured. The
// returned closer releases the log file.
func New(cfg config.LoggingConfig, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	level, ok := ParseLevel(cfg.Level)
	if !ok && cfg.Level != "" {
		return nil, nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}
	if envLevel, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		level = envLevel
	}

	var (
		w      io.Writer = fallback
		closer io.Closer = nopCloser{}
	)
	if w == nil {
		w = os.Stderr
	}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		w, closer = lj, lj
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return slog.New(handler), closer, nil
}

// ParseLevel maps a level name to a slog level. The second result is false
// for empty or unknown names, in which case the level is Info.
func ParseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
