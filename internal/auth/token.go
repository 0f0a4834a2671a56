// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/samber/oops"
)

// TokenBytes is the entropy of a generated token. 32 bytes comfortably
// clears the 128-bit floor for collision resistance; no de-duplication
// against the store is performed.
const TokenBytes = 32

// TokenGenerator produces opaque identifiers used as session and reset
// tokens. The two value spaces are interchangeable opaque strings; no
// consumer may parse them.
type TokenGenerator interface {
	Generate() (string, error)
}

// RandomTokenGenerator implements TokenGenerator with crypto/rand.
type RandomTokenGenerator struct{}

// NewRandomTokenGenerator creates a new RandomTokenGenerator.
func NewRandomTokenGenerator() *RandomTokenGenerator {
	return &RandomTokenGenerator{}
}

// Generate returns a hex-encoded random token of TokenBytes entropy.
func (g *RandomTokenGenerator) Generate() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("AUTH_TOKEN_GENERATE_FAILED").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}
