// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passgate/passgate/internal/auth"
)

func TestRandomTokenGenerator(t *testing.T) {
	gen := auth.NewRandomTokenGenerator()

	t.Run("generates hex token of expected length", func(t *testing.T) {
		token, err := gen.Generate()
		require.NoError(t, err)
		assert.Len(t, token, auth.TokenBytes*2)

		_, err = hex.DecodeString(token)
		assert.NoError(t, err)
	})

	t.Run("tokens do not repeat", func(t *testing.T) {
		seen := make(map[string]struct{})
		for range 100 {
			token, err := gen.Generate()
			require.NoError(t, err)
			_, dup := seen[token]
			require.False(t, dup, "token %s generated twice", token)
			seen[token] = struct{}{}
		}
	})
}
