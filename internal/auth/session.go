// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	SessionTokenBytes = 32             // 32 bytes = 64 hex chars
	DefaultSessionTTL = 24 * time.Hour // default session lifetime
)

// Session is evidence that an identity has successfully authenticated.
// The plaintext token is returned to the client once at login; only its
// SHA-256 hash is kept, as the cache key and inside the payload.
type Session struct {
	TokenHash  string    `json:"token_hash"`
	IdentityID ulid.ULID `json:"identity_id"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// NewSession creates a validated Session for an identity, expiring after ttl.
func NewSession(identityID ulid.ULID, tokenHash string, ttl time.Duration) (*Session, error) {
	if identityID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_IDENTITY").Errorf("identity ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.Code("SESSION_INVALID_TTL").Errorf("session TTL must be positive, got %s", ttl)
	}

	now := time.Now()
	return &Session{
		TokenHash:  tokenHash,
		IdentityID: identityID,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// IsExpiredAt returns true if the session would be expired at the given time.
// A session is valid strictly before ExpiresAt and invalid at or after it.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// GenerateSessionToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is sent to the client; the hash is used as the cache key.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashSessionToken(token)

	return token, hash, nil
}

// HashSessionToken computes the SHA-256 hash of a session token.
// Storing only the hash keeps a compromised cache from yielding usable tokens.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifySessionToken checks if the plaintext token matches the stored hash.
// Uses constant-time comparison to prevent timing attacks.
func VerifySessionToken(token, hash string) (bool, error) {
	if token == "" {
		return false, oops.Code("SESSION_TOKEN_EMPTY").Errorf("session token cannot be empty")
	}
	if hash == "" {
		return false, oops.Code("SESSION_HASH_EMPTY").Errorf("stored hash cannot be empty")
	}
	computed := HashSessionToken(token)
	// Both are hex-encoded SHA-256 hashes (64 chars), use constant-time compare
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1, nil
}

// SessionCache is fast, expiring storage for live sessions. Durability is
// not required: losing all sessions on restart only forces re-login.
type SessionCache interface {
	// Put stores a session under its token hash with the given TTL.
	// Overwriting an existing key is allowed and treated as a refresh.
	Put(ctx context.Context, session *Session, ttl time.Duration) error

	// Get retrieves a live session by token hash. Returns an error matching
	// ErrNotFound for both absent and expired entries; callers cannot
	// distinguish the two cases.
	Get(ctx context.Context, tokenHash string) (*Session, error)

	// Delete removes a session by token hash. Idempotent: deleting an
	// absent key succeeds.
	Delete(ctx context.Context, tokenHash string) error
}
