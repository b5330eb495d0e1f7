// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

// Package postgres implements auth storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/shopnest/userd/internal/auth"
)

// querier is the subset of pgxpool.Pool used by the repository. Declared so
// tests can substitute pgxmock.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IdentityRepository implements auth.CredentialStore using PostgreSQL.
// The identities table carries a unique index on email, which is what makes
// Create an atomic check-and-insert under concurrency.
type IdentityRepository struct {
	db querier
}

// NewIdentityRepository creates a new IdentityRepository.
func NewIdentityRepository(db querier) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Create stores a new identity. A unique-index violation on email maps to
// auth.ErrDuplicateEmail; any other failure maps to auth.ErrStoreUnavailable.
func (r *IdentityRepository) Create(ctx context.Context, identity *auth.Identity) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO identities (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		identity.ID.String(),
		identity.Email,
		identity.PasswordHash,
		identity.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("IDENTITY_DUPLICATE_EMAIL").
				Wrapf(auth.ErrDuplicateEmail, "email %q is already registered", identity.Email)
		}
		return oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "insert identity").
			Wrapf(auth.ErrStoreUnavailable, "insert identity: %v", err)
	}
	return nil
}

// GetByEmail retrieves an identity by normalized email. Emails are stored
// normalized; the LOWER() on the lookup side is defensive.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, email, password_hash, created_at
		FROM identities
		WHERE email = LOWER($1)
	`, email)

	identity, err := r.scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			Wrapf(auth.ErrNotFound, "no identity for email")
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_BY_EMAIL_FAILED").
			With("operation", "get identity by email").
			Wrapf(auth.ErrStoreUnavailable, "get identity by email: %v", err)
	}
	return identity, nil
}

// Exists reports whether an identity exists for the normalized email.
func (r *IdentityRepository) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM identities WHERE email = LOWER($1))
	`, email).Scan(&exists)
	if err != nil {
		return false, oops.Code("IDENTITY_EXISTS_FAILED").
			With("operation", "check identity exists").
			Wrapf(auth.ErrStoreUnavailable, "check identity exists: %v", err)
	}
	return exists, nil
}

// scanIdentity scans a single row into an Identity.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *IdentityRepository) scanIdentity(row pgx.Row) (*auth.Identity, error) {
	var (
		idStr        string
		email        string
		passwordHash string
		createdAt    time.Time
	)

	if err := row.Scan(&idStr, &email, &passwordHash, &createdAt); err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("IDENTITY_SCAN_FAILED").
			With("operation", "scan identity").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("IDENTITY_INVALID_ID").
			With("operation", "parse identity id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.Identity{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}, nil
}

// Compile-time interface check.
var _ auth.CredentialStore = (*IdentityRepository)(nil)
