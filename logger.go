package watergo

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with watergo-specific context.
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
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogWatershed logs a completed watershed phase.
func (l *Logger) LogWatershed(ctx context.Context, voxels, fragments uint64) {
	l.DebugContext(ctx, "watershed completed",
		"voxels", voxels,
		"fragments", fragments,
	)
}

// LogRegionGraph logs a completed region graph build.
func (l *Logger) LogRegionGraph(ctx context.Context, regions uint64, edges int) {
	l.DebugContext(ctx, "region graph built",
		"regions", regions,
		"edges", edges,
	)
}

// LogAgglomeration logs a completed agglomeration run.
func (l *Logger) LogAgglomeration(ctx context.Context, merges uint64, thresholds int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "agglomeration failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "agglomeration completed",
			"merges", merges,
			"thresholds", thresholds,
		)
	}
}

// LogSnapshot logs one materialized segmentation.
func (l *Logger) LogSnapshot(ctx context.Context, threshold float64, regions uint64) {
	l.DebugContext(ctx, "segmentation materialized",
		"threshold", threshold,
		"regions", regions,
	)
}
