// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package postgres implements the auth store contract on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
)

// DBPool is the subset of pgxpool.Pool the repository uses. pgxmock
// satisfies it, which keeps the unit tests off a live database.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// findColumns maps queryable fields to their columns.
var findColumns = map[auth.Field]string{
	auth.FieldID:           "id",
	auth.FieldEmail:        "email",
	auth.FieldSessionToken: "session_token",
	auth.FieldResetToken:   "reset_token",
}

// patchColumns lists the mutable fields in a fixed order so generated
// UPDATE statements are deterministic. Email and id are immutable.
var patchColumns = []struct {
	field  auth.Field
	column string
}{
	{auth.FieldHashedPassword, "hashed_password"},
	{auth.FieldSessionToken, "session_token"},
	{auth.FieldResetToken, "reset_token"},
}

// UserRepository implements auth.UserStore using PostgreSQL.
type UserRepository struct {
	pool DBPool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool DBPool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a new user. The unique index on the email column makes
// the duplicate check and the insert a single logical unit; a concurrent
// duplicate insert fails here even when the caller's pre-check passed.
func (r *UserRepository) Create(ctx context.Context, email, hashedPassword string) (*auth.User, error) {
	now := time.Now()
	user := &auth.User{
		ID:             ulid.Make(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		user.ID.String(),
		user.Email,
		user.HashedPassword,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, oops.Code("USER_DUPLICATE_EMAIL").
				With("email", email).
				Wrap(auth.ErrDuplicateEmail)
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// FindBy retrieves the user whose field equals value.
func (r *UserRepository) FindBy(ctx context.Context, field auth.Field, value string) (*auth.User, error) {
	column, ok := findColumns[field]
	if !ok {
		return nil, oops.Code("USER_INVALID_FIELD").
			With("field", string(field)).
			Wrap(auth.ErrInvalidField)
	}

	predicate := column + " = $1"
	if field == auth.FieldEmail {
		predicate = "LOWER(email) = LOWER($1)"
	}

	row := r.pool.QueryRow(ctx, `
		SELECT id, email, hashed_password, session_token, reset_token, created_at, updated_at
		FROM users
		WHERE `+predicate, value)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("field", string(field)).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user").
			With("field", string(field)).
			Wrap(err)
	}
	return user, nil
}

// Update applies the patch in a single UPDATE statement, so multi-field
// patches commit atomically. A nil patch value writes NULL.
func (r *UserRepository) Update(ctx context.Context, id ulid.ULID, patch auth.Patch) error {
	for field := range patch {
		known := false
		for _, pc := range patchColumns {
			if pc.field == field {
				known = true
				break
			}
		}
		if !known {
			return oops.Code("USER_INVALID_FIELD").
				With("field", string(field)).
				Wrap(auth.ErrInvalidField)
		}
	}

	args := []any{id.String()}
	var sets []string
	for _, pc := range patchColumns {
		value, ok := patch[pc.field]
		if !ok {
			continue
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", pc.column, len(args)))
	}
	args = append(args, time.Now())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	result, err := r.pool.Exec(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = $1",
		args...,
	)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr          string
		email          string
		hashedPassword string
		sessionToken   *string
		resetToken     *string
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := row.Scan(&idStr, &email, &hashedPassword, &sessionToken, &resetToken, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:             id,
		Email:          email,
		HashedPassword: hashedPassword,
		SessionToken:   sessionToken,
		ResetToken:     resetToken,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.UserStore = (*UserRepository)(nil)
