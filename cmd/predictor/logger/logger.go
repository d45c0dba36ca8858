// Package logger builds the predictor's slog.Logger from its configuration.
package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/HatiCode/autompg/cmd/predictor/config"
)

// New creates a logger writing to stdout, or to a size-rotated file when
// cfg.LogFile is set. The returned closer releases the file.
func New(cfg *config.Config) (*slog.Logger, io.Closer) {
	var out io.WriteCloser = nopCloser{os.Stdout}
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   true,
		}
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}

	return slog.New(newHandler(out, cfg.LogFormat, level)), out
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
