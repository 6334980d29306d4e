package wirepatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/RoaringBitmap/roaring/v2"
)

func tokenString(token uint64) string {
	return fmt.Sprintf("%016x", token)
}

// Logger wraps slog.Logger with wirepatch-specific helpers so store
// and negotiation events log with consistent field names.
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

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogAdd logs a new version entering the store.
func (l *Logger) LogAdd(ctx context.Context, token uint64, size, retained int) {
	l.DebugContext(ctx, "version added",
		"token", tokenString(token),
		"size", size,
		"retained", retained,
	)
}

// LogEvict logs a version leaving the store, and whether it was
// spilled to the blobstore.
func (l *Logger) LogEvict(ctx context.Context, token uint64, spilled bool, err error) {
	if err != nil {
		l.WarnContext(ctx, "version evicted, spill failed",
			"token", tokenString(token),
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "version evicted",
		"token", tokenString(token),
		"spilled", spilled,
	)
}

// LogNegotiate logs a negotiation outcome. blocks is the changed-block
// set for patch outcomes and nil otherwise; patch lines carry the
// cardinality and the span of dirty blocks.
func (l *Logger) LogNegotiate(ctx context.Context, outcome string, current uint64, blocks *roaring.Bitmap) {
	if blocks == nil || blocks.IsEmpty() {
		l.DebugContext(ctx, "negotiated",
			"outcome", outcome,
			"current", tokenString(current),
		)
		return
	}
	l.DebugContext(ctx, "negotiated",
		"outcome", outcome,
		"current", tokenString(current),
		"changed_blocks", blocks.GetCardinality(),
		"block_span", fmt.Sprintf("%d-%d", blocks.Minimum(), blocks.Maximum()),
	)
}
