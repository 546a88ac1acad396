package logging

import (
	"context"
	"log/slog"
	"regexp"
)

// redactedValue replaces sensitive attribute values in every sink.
const redactedValue = "[REDACTED]"

// RedactionConfig controls which attributes are masked.
type RedactionConfig struct {
	// KeyPatterns match attribute keys whose values must be masked.
	KeyPatterns []*regexp.Regexp
}

// DefaultRedactionConfig masks credentials and raw command arguments. The
// argument payloads of denied requests routinely contain the very injection
// strings the sanitizer rejected; they belong in the audit trail, not in the
// operational log.
func DefaultRedactionConfig() *RedactionConfig {
	return &RedactionConfig{
		KeyPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(password|token|secret|credential|api_?key)`),
			regexp.MustCompile(`(?i)^(args|arguments|payload)$`),
			regexp.MustCompile(`(?i)^user_agent$`),
		},
	}
}

// RedactingHandler masks sensitive attribute values before forwarding to the
// wrapped handler.
type RedactingHandler struct {
	handler slog.Handler
	config  *RedactionConfig
}

// NewRedactingHandler wraps handler. A nil config selects the defaults.
func NewRedactingHandler(handler slog.Handler, config *RedactionConfig) *RedactingHandler {
	if config == nil {
		config = DefaultRedactionConfig()
	}
	return &RedactingHandler{handler: handler, config: config}
}

// Enabled defers to the wrapped handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle rewrites the record with sensitive values masked.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(attr slog.Attr) bool {
		masked.AddAttrs(h.redactAttr(attr))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

func (h *RedactingHandler) redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, inner := range group {
			masked[i] = h.redactAttr(inner)
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(masked...)}
	}
	for _, re := range h.config.KeyPatterns {
		if re.MatchString(attr.Key) {
			return slog.String(attr.Key, redactedValue)
		}
	}
	return attr
}

// WithAttrs masks the attributes before attaching them.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		masked[i] = h.redactAttr(attr)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(masked), config: h.config}
}

// WithGroup defers to the wrapped handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name), config: h.config}
}
