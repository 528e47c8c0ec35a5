// Package logging configures the process-wide slog logger.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// LogLevel represents the severity level of a log entry.
type LogLevel int

const (
	// LevelDebug is for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is for general informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Slog maps the level onto slog.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel accepts debug/info/warn/error in any case. Unknown input is info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// NewHandler builds a text handler for dev and a JSON handler for prod,
// wrapped so records carry the cycle id found in their context.
func NewHandler(w io.Writer, mode string, level LogLevel) slog.Handler {
	opts := &slog.HandlerOptions{Level: level.Slog()}
	var h slog.Handler
	if mode == "prod" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return &contextHandler{Handler: h}
}

// Setup installs the handler as the slog default and returns the logger.
func Setup(w io.Writer, mode string, level LogLevel) *slog.Logger {
	logger := slog.New(NewHandler(w, mode, level))
	slog.SetDefault(logger)
	return logger
}

type cycleKey struct{}

// WithCycle tags ctx with the id of the running wake cycle.
func WithCycle(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, cycleKey{}, id)
}

// CycleID returns the cycle id stored by WithCycle, or "".
func CycleID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(cycleKey{}).(string)
	return id
}

// FromContext returns the default logger, tagged with the cycle id when ctx
// carries one. Handlers built by NewHandler already add the tag to
// *Context calls, so this is for code that logs without a context.
func FromContext(ctx context.Context) *slog.Logger {
	if id := CycleID(ctx); id != "" {
		return slog.Default().With("cycle", id)
	}
	return slog.Default()
}

type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := CycleID(ctx); id != "" {
		r.AddAttrs(slog.String("cycle", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
