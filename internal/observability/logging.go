// Package observability provides structured logging and run metrics for the
// maintenance commands.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Logger is the process-wide structured logger. Init replaces it once the
// configuration is known.
var Logger = NewLogger(os.Stderr, false, "info")

type contextKey string

// RunIDKey carries the identifier of the current command invocation.
const RunIDKey contextKey = "run_id"

// ctxHandler is a slog.Handler that adds context values to the log record.
type ctxHandler struct {
	slog.Handler
}

// Handle adds context values to the record before passing it to the underlying handler.
func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if rid, ok := ctx.Value(RunIDKey).(string); ok {
		r.AddAttrs(slog.String("run_id", rid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// NewLogger builds a logger writing JSON when asJSON is set and text
// otherwise. Unknown levels fall back to info.
func NewLogger(w io.Writer, asJSON bool, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if asJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(&ctxHandler{handler})
}

// Init replaces the global Logger with one writing to w.
func Init(w io.Writer, asJSON bool, level string) {
	Logger = NewLogger(w, asJSON, level)
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NewRunID returns a fresh identifier for a command invocation.
func NewRunID() string {
	return uuid.NewString()
}

// WithRunID returns a context whose log records carry the given run id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}
