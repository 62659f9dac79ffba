//go:build integration

package challenge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"nileasy/pkg/testutil/containers"
)

type RedisSessionStoreIntegrationSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisSessionStore
}

func TestRedisSessionStoreIntegrationSuite(t *testing.T) {
	suite.Run(t, &RedisSessionStoreIntegrationSuite{redis: containers.NewRedisContainer(t)})
}

func (s *RedisSessionStoreIntegrationSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.store = NewRedisSessionStore(s.redis.Client)
}

func (s *RedisSessionStoreIntegrationSuite) session(id, gstinKey string, ttl time.Duration) Session {
	now := time.Now()
	return Session{
		ID:            id,
		GSTIN:         gstinKey,
		ProviderToken: "tok-" + id,
		ImageRef:      "https://portal/captcha/" + id + ".png",
		IssuedAt:      now,
		ExpiresAt:     now.Add(ttl),
	}
}

func (s *RedisSessionStoreIntegrationSuite) TestPutAndConsume() {
	ctx := context.Background()

	s.Run("a stored session is consumed exactly once", func() {
		s.Require().NoError(s.store.Put(ctx, s.session("sess-1", "29AABCU9603R1ZX", time.Minute)))

		got, ok, err := s.store.Consume(ctx, "sess-1")
		s.Require().NoError(err)
		s.Require().True(ok)
		s.Equal("29AABCU9603R1ZX", got.GSTIN)
		s.Equal("tok-sess-1", got.ProviderToken)

		_, ok, err = s.store.Consume(ctx, "sess-1")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("an unknown session is a miss", func() {
		_, ok, err := s.store.Consume(ctx, "no-such-session")
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *RedisSessionStoreIntegrationSuite) TestSupersede() {
	ctx := context.Background()

	s.Require().NoError(s.store.Put(ctx, s.session("sess-1", "29AABCU9603R1ZX", time.Minute)))
	s.Require().NoError(s.store.Put(ctx, s.session("sess-2", "29AABCU9603R1ZX", time.Minute)))

	_, ok, err := s.store.Consume(ctx, "sess-1")
	s.Require().NoError(err)
	s.False(ok, "a superseded session must not be consumable")

	got, ok, err := s.store.Consume(ctx, "sess-2")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("29AABCU9603R1ZX", got.GSTIN)
}

func (s *RedisSessionStoreIntegrationSuite) TestTTLReaping() {
	ctx := context.Background()

	s.Require().NoError(s.store.Put(ctx, s.session("sess-1", "29AABCU9603R1ZX", time.Second)))
	time.Sleep(1100 * time.Millisecond)

	_, ok, err := s.store.Consume(ctx, "sess-1")
	s.Require().NoError(err)
	s.False(ok, "expired sessions are reaped by redis")
}

func (s *RedisSessionStoreIntegrationSuite) TestConcurrentConsume() {
	ctx := context.Background()
	s.Require().NoError(s.store.Put(ctx, s.session("sess-1", "29AABCU9603R1ZX", time.Minute)))

	var wg sync.WaitGroup
	wins := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.store.Consume(ctx, "sess-1")
			if err == nil && ok {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	s.Equal(1, count, "exactly one consumer receives the session")
}
