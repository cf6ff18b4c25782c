package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

// sensitiveKeys lists attribute keys whose values are never written in cleartext.
var sensitiveKeys = map[string]struct{}{
	"access_token":  {},
	"token":         {},
	"client_secret": {},
	"authorization": {},
	"query":         {},
}

type callerHandler struct {
	slog.Handler
}

// trimPathDepth keeps only the last n segments of the given path.
// Example: trimPathDepth("a/b/c/d.go", 3) => "b/c/d.go"
func trimPathDepth(path string, depth int) string {
	parts := strings.Split(path, string(os.PathSeparator))
	if len(parts) <= depth {
		return path
	}
	return strings.Join(parts[len(parts)-depth:], string(os.PathSeparator))
}

func (h *callerHandler) Handle(ctx context.Context, r slog.Record) error {
	// Skip 3 stack frames to get the actual caller of the log function
	_, file, line, ok := runtime.Caller(3)
	caller := "unknown"
	if ok {
		caller = fmt.Sprintf("%s:%d", trimPathDepth(file, 3), line)
	}
	r.AddAttrs(slog.String("caller", caller))
	return h.Handler.Handle(ctx, r)
}

func (h *callerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &callerHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *callerHandler) WithGroup(name string) slog.Handler {
	return &callerHandler{Handler: h.Handler.WithGroup(name)}
}

// Mask hides the middle of a secret: the first 6 and last 2 characters are kept
// for values longer than 8, anything shorter becomes "****".
func Mask(secret string) string {
	if len(secret) > 8 {
		return secret[:6] + "****" + secret[len(secret)-2:]
	}
	if len(secret) > 0 {
		return "****"
	}
	return ""
}

// Redact is a slog ReplaceAttr function that masks sensitive attribute values.
func Redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; !ok {
		return a
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, Mask(a.Value.String()))
	}
	return slog.String(a.Key, "****")
}

// ParseLevel converts DEBUG, INFO, WARN or ERROR (any case) into a slog.Level.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// NewHandler builds the application handler writing to w.
// Production handlers emit JSON at INFO, development handlers emit text at DEBUG,
// unless level names an explicit level.
func NewHandler(w io.Writer, level string, production bool) slog.Handler {
	lvl := slog.LevelDebug
	if production {
		lvl = slog.LevelInfo
	}
	if parsed, ok := ParseLevel(level); ok {
		lvl = parsed
	}
	opts := &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: Redact,
	}
	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if production {
		handler = slog.NewJSONHandler(w, opts)
	}
	return &callerHandler{Handler: handler}
}

// New initializes the default logger for the application.
// It uses text format and DEBUG level for development, JSON and INFO for production.
func New() *slog.Logger {
	return NewWithLevel("")
}

// NewWithLevel initializes the default logger with an explicit level.
// An empty or unknown level falls back to the environment default.
func NewWithLevel(level string) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

// NewWithWriter initializes the default logger writing to w.
func NewWithWriter(w io.Writer, level string) *slog.Logger {
	handler := NewHandler(w, level, os.Getenv("ENV") == "production")
	slog.SetDefault(slog.New(handler))
	return slog.Default()
}
