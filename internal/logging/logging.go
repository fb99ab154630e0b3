// Package logging sets up hoover's process-wide slog sink: JSON records
// to a rotating file, human-readable text to stdout.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	once    sync.Once
	root    *slog.Logger
	logFile *lumberjack.Logger
)

// Config controls where and how verbosely hoover logs.
type Config struct {
	FilePath   string
	Level      slog.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func DefaultConfig(dataDir string) Config {
	return Config{
		FilePath:   dataDir + "/hoover.log",
		Level:      slog.LevelInfo,
		MaxSizeMB:  20,
		MaxBackups: 5,
		MaxAgeDays: 30,
	}
}

// Init wires up the root logger. Safe to call more than once; only the
// first call takes effect.
func Init(cfg Config) *slog.Logger {
	once.Do(func() {
		logFile = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}

		fileHandler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: cfg.Level})
		textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level})

		root = slog.New(&fanoutHandler{handlers: []slog.Handler{fileHandler, textHandler}}).
			With("run_id", uuid.NewString())
		slog.SetDefault(root)
	})
	return root
}

// Close flushes and closes the rotating log file.
func Close() error {
	if logFile == nil {
		return nil
	}
	return logFile.Close()
}

// For named per-component loggers, e.g. logging.For("chunker").
func For(component string) *slog.Logger {
	if root == nil {
		root = slog.Default()
	}
	return root.With("component", component)
}

// fanoutHandler writes every record to each of its handlers. Used so a
// single slog call produces both the JSON file record and the stdout
// text line without duplicating call sites.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

var _ io.Writer = (*lumberjack.Logger)(nil)
