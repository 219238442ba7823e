package log

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ErlanBelekov/xblt/internal/authctx"
	"github.com/ErlanBelekov/xblt/internal/requestid"
)

const redacted = "[REDACTED]"

// sensitiveKeys never reach the output with their value: session tokens,
// raw Authorization headers and OAuth codes all grant access on their own.
var sensitiveKeys = map[string]struct{}{
	"token":         {},
	"authorization": {},
	"cookie":        {},
	"code":          {},
	"id_token":      {},
}

// queryKey is the attribute access logs use for the raw query string.
// On the OAuth callback it carries the authorization code and state.
const queryKey = "query"

var sensitiveParams = map[string]struct{}{
	"code":     {},
	"state":    {},
	"token":    {},
	"id_token": {},
}

// ContextHandler wraps an slog.Handler. It copies request-scoped values
// (request_id, user_id) from the context onto every record and masks
// attributes whose key is sensitive.
type ContextHandler struct {
	inner slog.Handler
}

func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redact(a))
		return true
	})

	if id := requestid.FromContext(ctx); id != "" {
		out.AddAttrs(slog.String("request_id", id))
	}
	if userID := authctx.UserID(ctx); userID != "" {
		out.AddAttrs(slog.String("user_id", userID))
	}
	return h.inner.Handle(ctx, out)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = redact(a)
	}
	return &ContextHandler{inner: h.inner.WithAttrs(masked)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}

func redact(a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]any, len(group))
		for i, ga := range group {
			masked[i] = redact(ga)
		}
		return slog.Group(a.Key, masked...)
	}
	if strings.EqualFold(a.Key, queryKey) && a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, redactQuery(a.Value.String()))
	}
	return a
}

// redactQuery masks sensitive parameter values in a raw query string.
// An unparsable query is dropped whole.
func redactQuery(raw string) string {
	if raw == "" {
		return raw
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return redacted
	}
	masked := false
	for key := range values {
		if _, ok := sensitiveParams[strings.ToLower(key)]; ok {
			values[key] = []string{redacted}
			masked = true
		}
	}
	if !masked {
		return raw
	}
	return values.Encode()
}
