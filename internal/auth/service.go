// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultPasswordMinLen is the minimum accepted password length when the
// configuration does not override it.
const DefaultPasswordMinLen = 8

// Config carries the business policy knobs for the Service.
// Zero values select the defaults.
type Config struct {
	// SessionTTL is the fixed lifetime of issued sessions.
	SessionTTL time.Duration

	// PasswordMinLen is the minimum raw password length accepted at
	// registration.
	PasswordMinLen int
}

// Service orchestrates registration, login, and session validation. It is
// stateless between calls; all coordination lives in the store and cache.
type Service struct {
	store   CredentialStore
	cache   SessionCache
	hasher  PasswordHasher
	metrics *Metrics

	// dummyHash is verified on email lookup miss so an unknown email costs
	// the same as a wrong password. A miss never authenticates regardless
	// of the verify result.
	dummyHash string

	sessionTTL     time.Duration
	passwordMinLen int
}

// NewService creates a Service with the given dependencies and policy.
func NewService(store CredentialStore, cache SessionCache, hasher PasswordHasher, cfg Config) (*Service, error) {
	return NewServiceWithMetrics(store, cache, hasher, cfg, nil)
}

// NewServiceWithMetrics creates a Service that records operation metrics.
// A nil metrics value disables instrumentation.
func NewServiceWithMetrics(store CredentialStore, cache SessionCache, hasher PasswordHasher, cfg Config, metrics *Metrics) (*Service, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("credential store is required")
	}
	if cache == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("session cache is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	minLen := cfg.PasswordMinLen
	if minLen <= 0 {
		minLen = DefaultPasswordMinLen
	}

	// Derive the dummy hash with the injected hasher so it carries the
	// configured cost parameters, not a fixed default.
	dummyHash, err := hasher.Hash(dummyHashSeed)
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").
			With("operation", "derive dummy password hash").
			Wrap(err)
	}

	return &Service{
		store:          store,
		cache:          cache,
		hasher:         hasher,
		metrics:        metrics,
		dummyHash:      dummyHash,
		sessionTTL:     ttl,
		passwordMinLen: minLen,
	}, nil
}

// SessionTTL returns the configured session lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// dummyHashSeed is the input hashed to produce Service.dummyHash. It is not a
// credential: a lookup miss is rejected before the verify result is consulted,
// so submitting the seed as a password never authenticates.
//
//nolint:gosec // G101: seed for the timing-equalizing dummy hash, not a credential.
const dummyHashSeed = "userd-dummy-verification-input"

// Register creates a new identity from an email and raw password.
// The email is normalized before validation; the raw password never leaves
// this call unhashed. Returns an error matching ErrValidation,
// ErrDuplicateEmail, or ErrStoreUnavailable.
func (s *Service) Register(ctx context.Context, email, rawPassword string) (*Identity, error) {
	normalized := NormalizeEmail(email)
	if err := ValidateEmail(normalized); err != nil {
		s.metrics.RecordRegistration(OutcomeValidationError)
		return nil, err
	}
	if len(rawPassword) < s.passwordMinLen {
		s.metrics.RecordRegistration(OutcomeValidationError)
		return nil, oops.Code("AUTH_PASSWORD_TOO_SHORT").
			With("min_length", s.passwordMinLen).
			Wrapf(ErrValidation, "password must be at least %d characters", s.passwordMinLen)
	}

	// Advisory fast-fail before paying for the hash. The unique index
	// behind Create remains the authority under concurrency.
	exists, err := s.store.Exists(ctx, normalized)
	if err != nil {
		s.metrics.RecordRegistration(OutcomeStoreError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "check email exists").
			Wrap(err)
	}
	if exists {
		s.metrics.RecordRegistration(OutcomeDuplicateEmail)
		return nil, oops.Code("AUTH_EMAIL_TAKEN").
			Wrapf(ErrDuplicateEmail, "email %q is already registered", normalized)
	}

	hashStart := time.Now()
	passwordHash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		s.metrics.RecordRegistration(OutcomeStoreError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}
	s.metrics.ObserveHashDuration(time.Since(hashStart))

	identity, err := NewIdentity(normalized, passwordHash)
	if err != nil {
		s.metrics.RecordRegistration(OutcomeValidationError)
		return nil, err
	}

	if err := s.store.Create(ctx, identity); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			// Lost a race with a concurrent registration for the same email.
			s.metrics.RecordRegistration(OutcomeDuplicateEmail)
			return nil, err
		}
		s.metrics.RecordRegistration(OutcomeStoreError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create identity").
			Wrap(err)
	}

	s.metrics.RecordRegistration(OutcomeSuccess)
	return identity, nil
}

// Login authenticates an identity and issues a session.
// Returns the session and the plaintext token; only the token's hash is
// retained server-side. Uses constant-time operations so an unknown email
// and a wrong password are indistinguishable in both error kind and timing.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*Session, string, error) {
	normalized := NormalizeEmail(email)
	if err := ValidateEmail(normalized); err != nil {
		s.metrics.RecordLogin(OutcomeValidationError)
		return nil, "", err
	}

	identity, lookupErr := s.store.GetByEmail(ctx, normalized)

	// Determine which hash to verify against (real or dummy for timing attack prevention)
	var targetHash string
	var identityExists bool

	if lookupErr != nil {
		if errors.Is(lookupErr, ErrNotFound) {
			// Use dummy hash - still perform verification to maintain constant time
			targetHash = s.dummyHash
			identityExists = false
		} else {
			s.metrics.RecordLogin(OutcomeStoreError)
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get identity by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = identity.PasswordHash
		identityExists = true
	}

	// Always verify the password (constant-time operation for timing attack prevention)
	valid, verifyErr := s.hasher.Verify(rawPassword, targetHash)
	if verifyErr != nil {
		// For dummy hash verification errors, just treat as invalid
		if !identityExists {
			s.metrics.RecordLogin(OutcomeInvalidCredentials)
			return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
		}
		s.metrics.RecordLogin(OutcomeStoreError)
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	// If the identity doesn't exist OR the password is wrong, return the same error
	if !identityExists || !valid {
		s.metrics.RecordLogin(OutcomeInvalidCredentials)
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		s.metrics.RecordLogin(OutcomeStoreError)
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(identity.ID, tokenHash, s.sessionTTL)
	if err != nil {
		s.metrics.RecordLogin(OutcomeStoreError)
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.cache.Put(ctx, session, s.sessionTTL); err != nil {
		s.metrics.RecordLogin(OutcomeStoreError)
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "store session").
			Wrap(err)
	}

	s.metrics.RecordLogin(OutcomeSuccess)
	return session, token, nil
}

// Validate checks a session token and returns the owning identity's ID.
// Unknown and expired tokens both map to ErrInvalidSession; callers cannot
// tell a forged token from an expired one.
func (s *Service) Validate(ctx context.Context, token string) (ulid.ULID, error) {
	if token == "" {
		s.metrics.RecordValidation(OutcomeInvalidSession)
		return ulid.ULID{}, oops.Code("SESSION_INVALID").Wrap(ErrInvalidSession)
	}

	tokenHash := HashSessionToken(token)

	session, err := s.cache.Get(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.RecordValidation(OutcomeInvalidSession)
			return ulid.ULID{}, oops.Code("SESSION_INVALID").Wrap(ErrInvalidSession)
		}
		s.metrics.RecordValidation(OutcomeStoreError)
		return ulid.ULID{}, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	// The cache contract already hides expired entries; re-check here so a
	// lagging eviction can never validate a stale session.
	if session.IsExpired() {
		s.metrics.RecordValidation(OutcomeInvalidSession)
		return ulid.ULID{}, oops.Code("SESSION_INVALID").Wrap(ErrInvalidSession)
	}

	s.metrics.RecordValidation(OutcomeSuccess)
	return session.IdentityID, nil
}
