package mockapi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers which create request each Idempotency-Key was first
// used for, so a replay is not applied twice and a key reused for a
// different request is caught.
type Deduper interface {
	// Claim binds key to request. When the key is already bound it returns
	// false and the request it is bound to.
	Claim(ctx context.Context, userID, key, request string) (prior string, claimed bool, err error)
	// Release forgets a key so a failed request may be retried.
	Release(ctx context.Context, userID, key string) error
}

type claim struct {
	request string
	expires time.Time
}

// MemoryDeduper keeps claims in process memory.
type MemoryDeduper struct {
	mu     sync.Mutex
	ttl    time.Duration
	claims map[string]claim
	now    func() time.Time
}

// NewMemoryDeduper creates a deduper whose claims expire after ttl. A zero
// ttl keeps them until released.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{ttl: ttl, claims: make(map[string]claim), now: time.Now}
}

func (m *MemoryDeduper) Claim(_ context.Context, userID, key, request string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	k := dedupeKey(userID, key)
	if c, ok := m.claims[k]; ok && (c.expires.IsZero() || now.Before(c.expires)) {
		return c.request, false, nil
	}
	c := claim{request: request}
	if m.ttl > 0 {
		c.expires = now.Add(m.ttl)
	}
	m.claims[k] = c
	return "", true, nil
}

func (m *MemoryDeduper) Release(_ context.Context, userID, key string) error {
	m.mu.Lock()
	delete(m.claims, dedupeKey(userID, key))
	m.mu.Unlock()
	return nil
}

// RedisDeduper stores claims in Redis so several dev servers share them. The
// value of each key is the request it was claimed for.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper on client. A zero ttl keeps claims until
// released.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) Claim(ctx context.Context, userID, key, request string) (string, bool, error) {
	k := dedupeKey(userID, key)
	// A claim can expire between SETNX and GET; the second pass then wins it.
	for range 2 {
		claimed, err := r.client.SetNX(ctx, k, request, r.ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("claim idempotency key: %w", err)
		}
		if claimed {
			return "", true, nil
		}
		prior, err := r.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("read idempotency key: %w", err)
		}
		return prior, false, nil
	}
	return "", false, fmt.Errorf("claim idempotency key %q: lost to concurrent expiry", key)
}

func (r *RedisDeduper) Release(ctx context.Context, userID, key string) error {
	return r.client.Del(ctx, dedupeKey(userID, key)).Err()
}

func dedupeKey(userID, key string) string {
	return fmt.Sprintf("teamlink:idem:%s:%s", userID, key)
}
