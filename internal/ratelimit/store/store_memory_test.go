package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.now = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	s.store.SetNow(func() time.Time { return s.now })
}

func (s *InMemoryStoreSuite) allow(key string) *Result {
	res, err := s.store.Allow(context.Background(), key, 3, time.Hour)
	s.Require().NoError(err)
	return res
}

func (s *InMemoryStoreSuite) TestAllow() {
	s.Run("counts attempts down to zero remaining", func() {
		s.Equal(2, s.allow("29AABCU9603R1ZX").Remaining)
		s.Equal(1, s.allow("29AABCU9603R1ZX").Remaining)
		s.Equal(0, s.allow("29AABCU9603R1ZX").Remaining)
	})

	s.Run("denies the attempt past the limit", func() {
		res := s.allow("29AABCU9603R1ZX")
		s.False(res.Allowed)
		s.Equal(time.Hour, res.RetryAfter)
	})

	s.Run("denied attempts do not consume budget", func() {
		s.False(s.allow("29AABCU9603R1ZX").Allowed)
		s.False(s.allow("29AABCU9603R1ZX").Allowed)

		s.now = s.now.Add(time.Hour)
		res := s.allow("29AABCU9603R1ZX")
		s.True(res.Allowed)
		s.Equal(2, res.Remaining)
	})
}

func (s *InMemoryStoreSuite) TestWindowExpiry() {
	s.Run("retry-after shrinks as the window ages", func() {
		for i := 0; i < 3; i++ {
			s.allow("27AAPFU0939F1Z5")
		}
		s.now = s.now.Add(40 * time.Minute)
		res := s.allow("27AAPFU0939F1Z5")
		s.False(res.Allowed)
		s.Equal(20*time.Minute, res.RetryAfter)
	})

	s.Run("a fresh window opens after expiry", func() {
		s.now = s.now.Add(21 * time.Minute)
		res := s.allow("27AAPFU0939F1Z5")
		s.True(res.Allowed)
		s.Equal(2, res.Remaining)
	})
}

func (s *InMemoryStoreSuite) TestKeysAreIndependent() {
	for i := 0; i < 3; i++ {
		s.allow("29AABCU9603R1ZX")
	}
	s.False(s.allow("29AABCU9603R1ZX").Allowed)

	res := s.allow("27AAPFU0939F1Z5")
	s.True(res.Allowed)
	s.Equal(2, res.Remaining)
}

func (s *InMemoryStoreSuite) TestReset() {
	for i := 0; i < 3; i++ {
		s.allow("29AABCU9603R1ZX")
	}
	s.False(s.allow("29AABCU9603R1ZX").Allowed)

	s.Require().NoError(s.store.Reset(context.Background(), "29AABCU9603R1ZX"))

	res := s.allow("29AABCU9603R1ZX")
	s.True(res.Allowed)
	s.Equal(2, res.Remaining)
}
