// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

// Package redis implements the session cache on Redis. Key expiry is
// delegated to Redis TTLs, so eviction needs no reaper process.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/shopnest/userd/internal/auth"
)

// keyPrefix namespaces session keys so the cache can share a Redis database
// with other services.
const keyPrefix = "userd:session:"

// SessionCache implements auth.SessionCache using Redis.
type SessionCache struct {
	client *redis.Client
}

// NewSessionCache creates a SessionCache on an existing Redis client.
func NewSessionCache(client *redis.Client) *SessionCache {
	return &SessionCache{client: client}
}

// sessionKey returns the Redis key for a token hash.
func sessionKey(tokenHash string) string {
	return keyPrefix + tokenHash
}

// Put stores a session under its token hash with the given TTL.
// SET with EX overwrites any existing entry, which the contract treats as a
// refresh.
func (c *SessionCache) Put(ctx context.Context, session *auth.Session, ttl time.Duration) error {
	if session == nil || session.TokenHash == "" {
		return oops.Code("CACHE_INVALID_SESSION").Errorf("session with token hash is required")
	}
	if ttl <= 0 {
		return oops.Code("CACHE_INVALID_TTL").Errorf("ttl must be positive, got %s", ttl)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return oops.Code("CACHE_MARSHAL_FAILED").
			With("operation", "marshal session").
			Wrap(err)
	}

	if err := c.client.Set(ctx, sessionKey(session.TokenHash), payload, ttl).Err(); err != nil {
		return oops.Code("CACHE_PUT_FAILED").
			With("operation", "redis SET").
			Wrapf(auth.ErrStoreUnavailable, "store session: %v", err)
	}
	return nil
}

// Get retrieves a live session by token hash. Redis evicts expired keys, and
// the session's own expiry is re-checked so a lagging eviction never
// surfaces a stale entry. Absent and expired both map to auth.ErrNotFound.
func (c *SessionCache) Get(ctx context.Context, tokenHash string) (*auth.Session, error) {
	payload, err := c.client.Get(ctx, sessionKey(tokenHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, oops.Code("CACHE_MISS").Wrap(auth.ErrNotFound)
		}
		return nil, oops.Code("CACHE_GET_FAILED").
			With("operation", "redis GET").
			Wrapf(auth.ErrStoreUnavailable, "get session: %v", err)
	}

	var session auth.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, oops.Code("CACHE_UNMARSHAL_FAILED").
			With("operation", "unmarshal session").
			Wrap(err)
	}

	if session.IsExpired() {
		return nil, oops.Code("CACHE_MISS").Wrap(auth.ErrNotFound)
	}

	return &session, nil
}

// Delete removes a session by token hash. DEL on an absent key is a no-op,
// which satisfies the idempotency requirement.
func (c *SessionCache) Delete(ctx context.Context, tokenHash string) error {
	if err := c.client.Del(ctx, sessionKey(tokenHash)).Err(); err != nil {
		return oops.Code("CACHE_DELETE_FAILED").
			With("operation", "redis DEL").
			Wrapf(auth.ErrStoreUnavailable, "delete session: %v", err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.SessionCache = (*SessionCache)(nil)
