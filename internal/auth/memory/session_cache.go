// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

// Package memory provides the in-memory reference implementation of the
// session cache. It is used in tests and single-process dev deployments;
// production runs the Redis implementation.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/shopnest/userd/internal/auth"
)

// entry pairs a stored session with its cache-level deadline.
// The deadline comes from the Put TTL, independently of the session's own
// ExpiresAt, mirroring how Redis key expiry works.
type entry struct {
	session  auth.Session
	deadline time.Time
}

// Cache is a mutex-guarded, expiring session store. Expired entries are
// dropped lazily on Get and actively by the optional janitor.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time

	janitorOnce sync.Once
	done        chan struct{}
	wg          sync.WaitGroup
}

// New creates an empty Cache using the wall clock.
func New() *Cache {
	return NewWithClock(time.Now)
}

// NewWithClock creates a Cache with an injected clock, for deterministic
// expiry tests.
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     now,
		done:    make(chan struct{}),
	}
}

// Put stores a session under its token hash with the given TTL.
// Overwriting an existing key replaces both payload and deadline.
func (c *Cache) Put(ctx context.Context, session *auth.Session, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("CACHE_PUT_CANCELLED").Wrap(err)
	}
	if session == nil || session.TokenHash == "" {
		return oops.Code("CACHE_INVALID_SESSION").Errorf("session with token hash is required")
	}
	if ttl <= 0 {
		return oops.Code("CACHE_INVALID_TTL").Errorf("ttl must be positive, got %s", ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[session.TokenHash] = entry{
		session:  *session,
		deadline: c.now().Add(ttl),
	}
	return nil
}

// Get retrieves a live session by token hash. Absent and expired entries are
// indistinguishable: both return an error matching auth.ErrNotFound.
// Expired entries are reaped on the way out.
func (c *Cache) Get(ctx context.Context, tokenHash string) (*auth.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("CACHE_GET_CANCELLED").Wrap(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[tokenHash]
	if !ok {
		return nil, oops.Code("CACHE_MISS").Wrap(auth.ErrNotFound)
	}
	if !c.now().Before(e.deadline) {
		delete(c.entries, tokenHash)
		return nil, oops.Code("CACHE_MISS").Wrap(auth.ErrNotFound)
	}

	session := e.session
	return &session, nil
}

// Delete removes a session by token hash. Idempotent.
func (c *Cache) Delete(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("CACHE_DELETE_CANCELLED").Wrap(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tokenHash)
	return nil
}

// PurgeExpired removes all expired entries and returns the count removed.
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.deadline) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// StartJanitor begins periodic active eviction. Safe to call once; further
// calls are no-ops. Stop with Close.
func (c *Cache) StartJanitor(interval time.Duration) {
	c.janitorOnce.Do(func() {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-c.done:
					return
				case <-ticker.C:
					c.PurgeExpired()
				}
			}
		}()
	})
}

// Close stops the janitor goroutine if one was started.
func (c *Cache) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	c.wg.Wait()
}

// Compile-time interface check.
var _ auth.SessionCache = (*Cache)(nil)
