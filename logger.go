package zspatial

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with zspatial-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithObject adds an object id field to the logger.
func (l *Logger) WithObject(id int64) *Logger {
	return &Logger{
		Logger: l.Logger.With("object", id),
	}
}

// LogAdd logs the insertion of an object.
func (l *Logger) LogAdd(ctx context.Context, id int64, cells int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"object", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"object", id,
			"cells", cells,
		)
	}
}

// LogRemove logs the removal of an object.
func (l *Logger) LogRemove(ctx context.Context, id int64, removed bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed",
			"object", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "remove completed",
			"object", id,
			"removed", removed,
		)
	}
}

// LogJoin logs a finished join.
func (l *Logger) LogJoin(ctx context.Context, kind string, pairs int, stats CounterSnapshot, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "join failed",
			"kind", kind,
			"pairs", pairs,
			"elapsed", elapsed,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "join completed",
		"kind", kind,
		"pairs", pairs,
		"elapsed", elapsed,
		"seeks", stats.Seek,
		"nexts", stats.Next,
		"ancestor_finds", stats.AncestorFind,
		"ancestor_hits", stats.AncestorCacheHit,
		"filter_calls", stats.FilterCall,
		"duplicates", stats.DuplicateSuppressed,
	)
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op string, records int, bytes int64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"op", op,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "snapshot completed",
		"op", op,
		"records", records,
		"bytes", bytes,
		"elapsed", elapsed,
	)
}

// LogQueryAll logs a batch of single-object queries.
func (l *Logger) LogQueryAll(ctx context.Context, queries, pairs int, err error) {
	if err != nil {
		l.WarnContext(ctx, "query batch failed",
			"queries", queries,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "query batch completed",
			"queries", queries,
			"pairs", pairs,
		)
	}
}
