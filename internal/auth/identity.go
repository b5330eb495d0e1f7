// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Identity represents a registered user account, keyed by normalized email.
type Identity struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// NewIdentity creates a validated Identity instance. The email is normalized
// before validation; the password hash must already be computed by a
// PasswordHasher - this constructor never sees a raw password.
func NewIdentity(email, passwordHash string) (*Identity, error) {
	normalized := NormalizeEmail(email)
	if err := ValidateEmail(normalized); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_EMPTY_HASH").Errorf("password hash cannot be empty")
	}
	return &Identity{
		ID:           ulid.Make(),
		Email:        normalized,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}, nil
}

// NormalizeEmail returns the canonical form of an email address used for
// uniqueness and lookup: whitespace-trimmed and lowercased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail validates a normalized email address. The shape check is
// deliberately minimal: non-empty, exactly structured around a single "@"
// with at least one character on each side, and no interior whitespace.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").
			Wrapf(ErrValidation, "email cannot be empty")
	}
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 {
		return oops.Code("AUTH_INVALID_EMAIL").
			Wrapf(ErrValidation, "email must contain a local part and a domain")
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return oops.Code("AUTH_INVALID_EMAIL").
			Wrapf(ErrValidation, "email cannot contain whitespace")
	}
	return nil
}

// CredentialStore manages durable Identity persistence and owns the
// uniqueness invariant: exactly one Identity per normalized email.
type CredentialStore interface {
	// Create atomically checks-and-inserts a new identity. Two concurrent
	// creates for the same normalized email must not both succeed; the
	// loser receives an error matching ErrDuplicateEmail. Implementations
	// enforce this with a storage-level unique constraint, never with a
	// check followed by a separate write.
	Create(ctx context.Context, identity *Identity) error

	// GetByEmail retrieves an identity by normalized email.
	// Returns an error matching ErrNotFound if no identity exists.
	GetByEmail(ctx context.Context, email string) (*Identity, error)

	// Exists reports whether an identity exists for the normalized email.
	// This is an advisory check for early validation; Create remains the
	// authority on uniqueness.
	Exists(ctx context.Context, email string) (bool, error)
}
