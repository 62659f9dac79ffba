package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "ratelimit:captcha:"

// RedisStore implements Store on a shared Redis so every service instance
// sees the same attempt budget. INCR plus a first-writer EXPIRE gives an
// atomic fixed window without scripting.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	rkey := attemptKeyPrefix + key

	count, err := s.client.Incr(ctx, rkey).Result()
	if err != nil {
		return nil, fmt.Errorf("increment attempt counter: %w", err)
	}
	if count == 1 {
		// First attempt opens the window.
		if err := s.client.Expire(ctx, rkey, window).Err(); err != nil {
			return nil, fmt.Errorf("set attempt window: %w", err)
		}
	}

	if int(count) > limit {
		// Denied attempts do not extend or consume the budget; undo the INCR
		// so the counter reflects counted issuances only.
		if err := s.client.Decr(ctx, rkey).Err(); err != nil {
			return nil, fmt.Errorf("rollback denied attempt: %w", err)
		}
		ttl, err := s.client.TTL(ctx, rkey).Result()
		if err != nil {
			return nil, fmt.Errorf("read window ttl: %w", err)
		}
		if ttl < 0 {
			ttl = 0
		}
		return &Result{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}

	return &Result{Allowed: true, Remaining: limit - int(count)}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, attemptKeyPrefix+key).Err()
}
