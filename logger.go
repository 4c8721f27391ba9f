package seqstore

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with seqstore-specific context.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithStore adds the store location to the logger.
func (l *Logger) WithStore(path string) *Logger {
	if path == "" {
		path = "."
	}
	return &Logger{
		Logger: l.Logger.With("store", path),
	}
}

// WithArm adds the arm designation to the logger.
func (l *Logger) WithArm(arm Arm) *Logger {
	return &Logger{
		Logger: l.Logger.With("arm", arm.String()),
	}
}

// WithChunk adds a chunk ordinal to the logger.
func (l *Logger) WithChunk(chunk int) *Logger {
	return &Logger{
		Logger: l.Logger.With("chunk", chunk),
	}
}

// LogChunk logs a closed chunk.
func (l *Logger) LogChunk(ctx context.Context, chunk int, elements uint64, starts int64) {
	l.DebugContext(ctx, "chunk closed",
		"chunk", chunk,
		"elements", elements,
		"starts", starts,
	)
}

// LogWrite logs the outcome of a write pass.
func (l *Logger) LogWrite(ctx context.Context, s *Summary, err error) {
	if err != nil {
		l.ErrorContext(ctx, "write failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "store written",
		"id", s.StoreID.String(),
		"sequences", s.Count,
		"residues", s.TotalLength,
		"chunks", s.Chunks,
		"duration", s.Duration,
	)
}

// LogVerify logs the outcome of a verification.
func (l *Logger) LogVerify(ctx context.Context, r *VerifyReport, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "verify failed",
			"error", err,
		)
	case !r.Valid:
		for _, m := range r.Mismatches {
			l.WarnContext(ctx, "verify mismatch",
				"path", m.Path,
				"reason", m.Reason,
			)
		}
		l.ErrorContext(ctx, "store corrupt",
			"mismatches", len(r.Mismatches),
		)
	default:
		l.InfoContext(ctx, "store verified",
			"sequences", r.Count,
			"chunks", r.Chunks,
		)
	}
}
