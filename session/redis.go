package session

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the session in Redis so several CLI invocations or hosts
// can share one sign-in.
type RedisStore struct {
	client  *redis.Client
	profile string
	ttl     time.Duration
}

// NewRedisStore creates a provider storing the session of profile. A zero ttl
// keeps the session until logout.
func NewRedisStore(client *redis.Client, profile string, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session.NewRedisStore: redis client is nil")
	}
	if profile == "" {
		profile = "default"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{client: client, profile: profile, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context) (Session, error) {
	data, err := r.client.Get(ctx, sessionKey(r.profile)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, nil
		}
		return Session{}, err
	}
	var s Session
	if err := sonic.Unmarshal(data, &s); err != nil {
		// Corrupt entries are dropped so the next login starts clean.
		_ = r.client.Del(ctx, sessionKey(r.profile)).Err()
		return Session{}, nil
	}
	return s, nil
}

func (r *RedisStore) Set(ctx context.Context, s Session) error {
	data, err := sonic.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(r.profile), data, r.ttl).Err()
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, sessionKey(r.profile)).Err()
}

func sessionKey(profile string) string {
	return "teamlink:session:" + profile
}
