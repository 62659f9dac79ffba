package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "captcha:sess:"
	gstinKeyPrefix   = "captcha:gstin:"
)

// RedisSessionStore shares sessions across instances. Redis TTL enforces
// expiry; GETDEL makes consumption a single atomic step so the one-shot rule
// holds across instances too.
type RedisSessionStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

func (s *RedisSessionStore) Put(ctx context.Context, session Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	// Supersede any unconsumed session for this GSTIN.
	gstinKey := gstinKeyPrefix + session.GSTIN
	if prior, err := s.client.Get(ctx, gstinKey).Result(); err == nil && prior != "" {
		if err := s.client.Del(ctx, sessionKeyPrefix+prior).Err(); err != nil {
			return fmt.Errorf("supersede prior session: %w", err)
		}
	} else if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("lookup prior session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, sessionKeyPrefix+session.ID, payload, ttl)
	pipe.Set(ctx, gstinKey, session.ID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Consume(ctx context.Context, sessionID string) (Session, bool, error) {
	payload, err := s.client.GetDel(ctx, sessionKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("consume session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return Session{}, false, fmt.Errorf("unmarshal session: %w", err)
	}
	_ = s.client.Del(ctx, gstinKeyPrefix+session.GSTIN).Err()
	return session, true, nil
}
