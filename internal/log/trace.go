package log

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// FieldTraceID tags every record logged while handling one command,
// message or batch.
const FieldTraceID = "trace_id"

type contextKey string

const traceIDKey contextKey = "trace_id"

// NewTraceID returns a random id such as "sync_3f9a0c1b2d4e5f60".
func NewTraceID(kind string) string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s_%d", kind, time.Now().UnixNano())
	}
	return kind + "_" + hex.EncodeToString(b)
}

// WithTraceID returns a context carrying id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// StartTrace attaches a new trace id unless ctx already carries one.
func StartTrace(ctx context.Context, kind string) context.Context {
	if TraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, NewTraceID(kind))
}

// TraceID extracts the trace id from ctx, or "".
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextHandler adds the trace id found in the record's context.
type ContextHandler struct {
	slog.Handler
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := TraceID(ctx); id != "" {
		r.AddAttrs(slog.String(FieldTraceID, id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{h.Handler.WithGroup(name)}
}
