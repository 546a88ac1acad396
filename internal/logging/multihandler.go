// Package logging wires log/slog for the gateway: a fan-out handler that
// feeds a human-readable terminal stream and a machine-readable JSON file at
// the same time, a redacting decorator that masks sensitive attribute values
// before they reach any sink, and setup helpers that stamp every process run
// with a unique ID.
package logging

import (
	"context"
	"errors"
	"log/slog"
)

// FanoutHandler dispatches each record to every underlying handler that is
// enabled for its level.
type FanoutHandler struct {
	handlers []slog.Handler
}

// NewFanoutHandler wraps the given handlers.
func NewFanoutHandler(handlers ...slog.Handler) *FanoutHandler {
	return &FanoutHandler{handlers: handlers}
}

// Enabled reports whether at least one underlying handler accepts the level.
func (h *FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes the record to every enabled handler. Errors are joined so
// one failing sink never hides another's.
func (h *FanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				errs = errors.Join(errs, err)
			}
		}
	}
	return errs
}

// WithAttrs returns a FanoutHandler whose handlers carry the attributes.
func (h *FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &FanoutHandler{handlers: next}
}

// WithGroup returns a FanoutHandler whose handlers carry the group.
func (h *FanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &FanoutHandler{handlers: next}
}
