// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

package auth_test

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopnest/userd/internal/auth"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already normalized", "alice@example.com", "alice@example.com"},
		{"uppercase", "ALICE@EXAMPLE.COM", "alice@example.com"},
		{"mixed case", "Alice@Example.Com", "alice@example.com"},
		{"leading whitespace", "  alice@example.com", "alice@example.com"},
		{"trailing whitespace", "alice@example.com\t", "alice@example.com"},
		{"both", " ALICE@example.com ", "alice@example.com"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.NormalizeEmail(tt.input))
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"valid", "alice@example.com", false},
		{"valid short", "a@b", false},
		{"empty", "", true},
		{"no at sign", "alice.example.com", true},
		{"missing local part", "@example.com", true},
		{"missing domain", "alice@", true},
		{"only at sign", "@", true},
		{"interior whitespace", "alice smith@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateEmail(tt.email)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, auth.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewIdentity(t *testing.T) {
	t.Run("creates identity with normalized email", func(t *testing.T) {
		identity, err := auth.NewIdentity("  ALICE@Example.com ", "$argon2id$hash")
		require.NoError(t, err)

		assert.Equal(t, "alice@example.com", identity.Email)
		assert.Equal(t, "$argon2id$hash", identity.PasswordHash)
		assert.NotEqual(t, ulid.ULID{}, identity.ID)
		assert.False(t, identity.CreatedAt.IsZero())
	})

	t.Run("assigns unique ids", func(t *testing.T) {
		first, err := auth.NewIdentity("first@example.com", "hash")
		require.NoError(t, err)
		second, err := auth.NewIdentity("second@example.com", "hash")
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		_, err := auth.NewIdentity("not-an-email", "hash")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrValidation)
	})

	t.Run("rejects empty password hash", func(t *testing.T) {
		_, err := auth.NewIdentity("alice@example.com", "")
		assert.Error(t, err)
	})
}
