// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package logging provides structured logging with OpenTelemetry trace context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// serviceHandler wraps a slog.Handler to stamp every record with the
// active trace context. Service identity attrs are attached to the base
// handler in Setup, before any group can be opened, so they are always
// top-level; the trace IDs get the same treatment here by attaching to
// the pre-group handler chain instead of the record.
type serviceHandler struct {
	handler slog.Handler

	// pre is the handler chain before the first WithGroup; trace attrs
	// attach here so they never nest inside an open group.
	pre slog.Handler

	// post replays the WithAttrs/WithGroup calls made since the first
	// group was opened.
	post []func(slog.Handler) slog.Handler
}

// Handle adds trace context to the log record.
func (h *serviceHandler) Handle(ctx context.Context, r slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)

	var attrs []slog.Attr
	if spanCtx.HasTraceID() {
		attrs = append(attrs, slog.String("trace_id", spanCtx.TraceID().String()))
	}
	if spanCtx.HasSpanID() {
		attrs = append(attrs, slog.String("span_id", spanCtx.SpanID().String()))
	}

	if len(attrs) == 0 {
		//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
		return h.handler.Handle(ctx, r)
	}
	if len(h.post) == 0 {
		// No group open; record attrs land top-level.
		r.AddAttrs(attrs...)
		//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
		return h.handler.Handle(ctx, r)
	}

	// A group is open. Attach the trace IDs before it and replay the
	// rest of the chain so they stay top-level.
	target := h.pre.WithAttrs(attrs)
	for _, op := range h.post {
		target = op(target)
	}
	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return target.Handle(ctx, r)
}

// Enabled returns true if the level is enabled.
func (h *serviceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs returns a new handler with the given attributes.
func (h *serviceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(h.post) == 0 {
		pre := h.pre.WithAttrs(attrs)
		return &serviceHandler{handler: pre, pre: pre}
	}

	post := make([]func(slog.Handler) slog.Handler, len(h.post)+1)
	copy(post, h.post)
	post[len(h.post)] = func(hh slog.Handler) slog.Handler { return hh.WithAttrs(attrs) }

	return &serviceHandler{
		handler: h.handler.WithAttrs(attrs),
		pre:     h.pre,
		post:    post,
	}
}

// WithGroup returns a new handler with the given group.
func (h *serviceHandler) WithGroup(name string) slog.Handler {
	post := make([]func(slog.Handler) slog.Handler, len(h.post)+1)
	copy(post, h.post)
	post[len(h.post)] = func(hh slog.Handler) slog.Handler { return hh.WithGroup(name) }

	return &serviceHandler{
		handler: h.handler.WithGroup(name),
		pre:     h.pre,
		post:    post,
	}
}

// Setup creates a configured slog.Logger.
// format: "json" or "text" (defaults to "json" if empty)
// If w is nil, writes to os.Stderr.
func Setup(service, version, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	var base slog.Handler
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}

	if format == "text" {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	// Identity attrs go on the base handler, ahead of any group a caller
	// may open later, so they always render top-level.
	base = base.WithAttrs([]slog.Attr{
		slog.String("service", service),
		slog.String("version", version),
	})

	return slog.New(&serviceHandler{handler: base, pre: base})
}

// SetDefault sets up and installs the process-wide default logger.
func SetDefault(service, version, format string) {
	slog.SetDefault(Setup(service, version, format, nil))
}
