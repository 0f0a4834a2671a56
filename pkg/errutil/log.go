// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package errutil bridges oops errors and structured logging.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error through the given logger. For oops errors the
// code and attached context are pulled out into their own attributes;
// plain errors log as a single error string.
func LogError(logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != "" {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Error(msg, attrs...)
}

// HasCode reports whether err is an oops error carrying the code.
func HasCode(err error, code string) bool {
	oopsErr, ok := oops.AsOops(err)
	return ok && oopsErr.Code() == code
}
