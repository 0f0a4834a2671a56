// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/passgate/passgate/internal/auth"
)

// fakeUserStore is an in-memory auth.UserStore honoring the contract:
// case-insensitive unique emails, four queryable fields, atomic
// whitelisted patches.
type fakeUserStore struct {
	mu    sync.Mutex
	users []*auth.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{}
}

func (s *fakeUserStore) Create(_ context.Context, email, hashedPassword string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return nil, auth.ErrDuplicateEmail
		}
	}

	now := time.Now()
	user := &auth.User{
		ID:             ulid.Make(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.users = append(s.users, user)

	clone := *user
	return &clone, nil
}

func (s *fakeUserStore) FindBy(_ context.Context, field auth.Field, value string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		var match bool
		switch field {
		case auth.FieldID:
			match = u.ID.String() == value
		case auth.FieldEmail:
			// Matches the store's LOWER(email) identity.
			match = strings.EqualFold(u.Email, value)
		case auth.FieldSessionToken:
			match = u.SessionToken != nil && *u.SessionToken == value
		case auth.FieldResetToken:
			match = u.ResetToken != nil && *u.ResetToken == value
		default:
			return nil, auth.ErrInvalidField
		}
		if match {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *fakeUserStore) Update(_ context.Context, id ulid.ULID, patch auth.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Reject unknown fields before touching anything.
	for field := range patch {
		switch field {
		case auth.FieldHashedPassword, auth.FieldSessionToken, auth.FieldResetToken:
		default:
			return auth.ErrInvalidField
		}
	}

	for _, u := range s.users {
		if u.ID == id {
			for field, value := range patch {
				switch field {
				case auth.FieldHashedPassword:
					if value != nil {
						u.HashedPassword = *value
					}
				case auth.FieldSessionToken:
					u.SessionToken = value
				case auth.FieldResetToken:
					u.ResetToken = value
				}
			}
			u.UpdatedAt = time.Now()
			return nil
		}
	}
	return auth.ErrNotFound
}

// count returns the number of records holding the email.
func (s *fakeUserStore) count(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			n++
		}
	}
	return n
}

// fakeHasher is a cheap deterministic PasswordHasher for service tests.
// Digests carry a per-call counter so repeated hashes differ, like a salt.
type fakeHasher struct {
	mu    sync.Mutex
	calls int
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	h.mu.Lock()
	h.calls++
	n := h.calls
	h.mu.Unlock()
	return fmt.Sprintf("fake$%s$%d", password, n), nil
}

func (h *fakeHasher) Verify(password, digest string) bool {
	parts := strings.Split(digest, "$")
	return len(parts) == 3 && parts[0] == "fake" && parts[1] == password
}

// seqTokens hands out predictable tokens.
type seqTokens struct {
	mu sync.Mutex
	n  int
}

func (g *seqTokens) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("token-%04d", g.n), nil
}
