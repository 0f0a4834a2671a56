// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import "errors"

// Sentinel errors shared between the core and store implementations.
// Store implementations wrap these so callers can match with errors.Is.
var (
	// ErrNotFound is returned when a requested user record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when registering an email that already
	// has a user record.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidField is returned by the store when a lookup or patch names
	// an attribute it does not recognize.
	ErrInvalidField = errors.New("invalid field")

	// ErrUnknownEmail is returned by IssueResetToken for an unregistered
	// email. Unlike the session paths, reset issuance surfaces the miss.
	ErrUnknownEmail = errors.New("unknown email")

	// ErrResetTokenInvalid is returned when consuming a reset token that is
	// empty, already used, or was never issued.
	ErrResetTokenInvalid = errors.New("invalid reset token")
)
