// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// emailRegex is deliberately loose: one @ with non-empty, space-free
// sides. Deliverability is not this service's problem.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

// User is the sole persisted entity. Email is immutable after
// registration; HashedPassword is replaced wholesale and never holds
// plaintext; SessionToken and ResetToken are nil when not live and are
// unique among all non-nil values store-wide.
type User struct {
	ID             ulid.ULID
	Email          string
	HashedPassword string
	SessionToken   *string
	ResetToken     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Field names a User attribute for lookups and patches.
type Field string

// Store-recognized fields. FindBy accepts ID, Email, SessionToken, and
// ResetToken; Update accepts HashedPassword, SessionToken, and ResetToken.
const (
	FieldID             Field = "id"
	FieldEmail          Field = "email"
	FieldHashedPassword Field = "hashed_password"
	FieldSessionToken   Field = "session_token"
	FieldResetToken     Field = "reset_token"
)

// Patch is a set of field changes applied atomically by Update.
// A nil value clears the field.
type Patch map[Field]*string

// ValidateEmail checks basic email shape.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return oops.Code("AUTH_INVALID_EMAIL").With("email", email).Errorf("malformed email address")
	}
	return nil
}

// UserStore is the persistence contract the core consumes.
type UserStore interface {
	// Create inserts a new user record. The uniqueness check and insert
	// are a single logical unit; a concurrent duplicate insert fails with
	// ErrDuplicateEmail even if a caller's pre-check passed.
	Create(ctx context.Context, email, hashedPassword string) (*User, error)

	// FindBy retrieves the user whose field equals value. Returns
	// ErrNotFound on a miss and ErrInvalidField for a non-queryable field.
	FindBy(ctx context.Context, field Field, value string) (*User, error)

	// Update applies the patch to the identified user in one atomic
	// write; a patch that both replaces the password digest and clears
	// the reset token is never observable half-applied. Returns
	// ErrNotFound for an unknown id and ErrInvalidField if the patch
	// names an attribute the store does not mutate.
	Update(ctx context.Context, id ulid.ULID, patch Patch) error
}
