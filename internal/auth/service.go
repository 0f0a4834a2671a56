// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// dummyPasswordHash is verified against when a login names an unknown
// email, so the response time does not reveal whether the email exists.
// This is NOT a real credential - it never matches any password.
//
//nolint:gosec // G101: intentionally fake digest for timing-attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service orchestrates registration, login verification, session
// issuance and teardown, and the reset-token issue/consume cycle.
type Service struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenGenerator
	logger *slog.Logger
}

// NewService creates a Service with the default logger.
func NewService(users UserStore, hasher PasswordHasher, tokens TokenGenerator) (*Service, error) {
	return NewServiceWithLogger(users, hasher, tokens, slog.Default())
}

// NewServiceWithLogger creates a Service that logs through the given logger.
func NewServiceWithLogger(users UserStore, hasher PasswordHasher, tokens TokenGenerator, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("user store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token generator is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger is required")
	}
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger.With("component", "auth"),
	}, nil
}

// Register creates a user for the email with a salted digest of password.
// Returns ErrDuplicateEmail (wrapped) if the email is already registered.
// The pre-check closes the common case; the store's own uniqueness guard
// closes the race window when two callers pass the pre-check concurrently.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	_, err := s.users.FindBy(ctx, FieldEmail, email)
	if err == nil {
		return nil, oops.Code("AUTH_DUPLICATE_EMAIL").
			With("email", email).
			Wrap(ErrDuplicateEmail)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, email, digest)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			// Lost the race against a concurrent registration.
			return nil, oops.Code("AUTH_DUPLICATE_EMAIL").
				With("email", email).
				Wrap(ErrDuplicateEmail)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// Login reports whether the credentials are valid. An unknown email
// yields (false, nil), never an error: existence is not revealed through
// this path. Login does not touch session state.
func (s *Service) Login(ctx context.Context, email, password string) (bool, error) {
	user, err := s.users.FindBy(ctx, FieldEmail, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn the same verification cost as the found path.
			s.hasher.Verify(password, dummyPasswordHash)
			return false, nil
		}
		return false, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	return s.hasher.Verify(password, user.HashedPassword), nil
}

// CreateSession issues a fresh session token for the email and persists
// it, replacing any previous token. An unknown email yields ("", nil);
// callers must treat the empty token like a failed login. CreateSession
// does not verify credentials - that is Login's job, beforehand.
func (s *Service) CreateSession(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindBy(ctx, FieldEmail, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	token, err := s.tokens.Generate()
	if err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	if err := s.users.Update(ctx, user.ID, Patch{FieldSessionToken: &token}); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "session created", "user_id", user.ID.String())
	return token, nil
}

// UserFromSession resolves a session token to its user. An empty token
// or a store miss yields (nil, nil).
func (s *Service) UserFromSession(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}

	user, err := s.users.FindBy(ctx, FieldSessionToken, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, oops.Code("SESSION_LOOKUP_FAILED").
			With("operation", "find user by session token").
			Wrap(err)
	}

	return user, nil
}

// DestroySession clears the user's session token. A zero id is a no-op,
// and an unknown id is swallowed: the user is already logged out either way.
func (s *Service) DestroySession(ctx context.Context, userID ulid.ULID) error {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil
	}

	err := s.users.Update(ctx, userID, Patch{FieldSessionToken: nil})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.DebugContext(ctx, "destroy session for unknown user", "user_id", userID.String())
			return nil
		}
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "clear session token").
			With("user_id", userID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "session destroyed", "user_id", userID.String())
	return nil
}

// IssueResetToken issues a single-use password reset token for the
// email, replacing any pending one (which becomes permanently unusable).
// Unlike CreateSession, an unknown email surfaces as ErrUnknownEmail.
func (s *Service) IssueResetToken(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindBy(ctx, FieldEmail, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code("RESET_UNKNOWN_EMAIL").
				With("email", email).
				Wrap(ErrUnknownEmail)
		}
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	token, err := s.tokens.Generate()
	if err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	if err := s.users.Update(ctx, user.ID, Patch{FieldResetToken: &token}); err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "persist reset token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "reset token issued", "user_id", user.ID.String())
	return token, nil
}

// ConsumeResetToken replaces the password of the user holding the token
// and clears the token in the same store write, so the token can never
// be used twice. Empty inputs and token misses fail typed.
func (s *Service) ConsumeResetToken(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
	}
	if newPassword == "" {
		return oops.With("operation", "consume reset token").Wrap(ErrEmptyPassword)
	}

	user, err := s.users.FindBy(ctx, FieldResetToken, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrResetTokenInvalid)
		}
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "find user by reset token").
			Wrap(err)
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	// One patch: the digest swap and the token clear commit together.
	err = s.users.Update(ctx, user.ID, Patch{
		FieldHashedPassword: &digest,
		FieldResetToken:     nil,
	})
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").
			With("operation", "update password and clear reset token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset", "user_id", user.ID.String())
	return nil
}
