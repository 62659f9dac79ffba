package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"nileasy/internal/ratelimit/store"
	dErrors "nileasy/pkg/domain-errors"
)

type LimiterSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	limiter *Limiter
	now     time.Time
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.store = store.NewInMemoryStore()
	s.now = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	s.store.SetNow(func() time.Time { return s.now })
	s.limiter = New(s.store, 3, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *LimiterSuite) TestCheckAndIncrement() {
	ctx := context.Background()

	s.Run("allows up to the limit", func() {
		for i := 0; i < 3; i++ {
			s.NoError(s.limiter.CheckAndIncrement(ctx, "29AABCU9603R1ZX"))
		}
	})

	s.Run("denies with a rate limited error past the limit", func() {
		err := s.limiter.CheckAndIncrement(ctx, "29AABCU9603R1ZX")
		s.Error(err)
		s.True(dErrors.Is(err, dErrors.CodeRateLimited))
	})

	s.Run("denial carries a whole-minute retry hint", func() {
		s.now = s.now.Add(30*time.Minute + 30*time.Second)
		err := s.limiter.CheckAndIncrement(ctx, "29AABCU9603R1ZX")

		var dErr *dErrors.Error
		s.Require().True(errors.As(err, &dErr))
		s.Equal(29, dErrors.RetryAfterMinutes(dErr.RetryAfter))
	})

	s.Run("retry hint never drops below one minute", func() {
		s.now = s.now.Add(29 * time.Minute)
		err := s.limiter.CheckAndIncrement(ctx, "29AABCU9603R1ZX")

		var dErr *dErrors.Error
		s.Require().True(errors.As(err, &dErr))
		s.Equal(1, dErrors.RetryAfterMinutes(dErr.RetryAfter))
	})
}

func (s *LimiterSuite) TestReset() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.limiter.CheckAndIncrement(ctx, "29AABCU9603R1ZX"))
	}
	s.Error(s.limiter.CheckAndIncrement(ctx, "29AABCU9603R1ZX"))

	s.Require().NoError(s.limiter.Reset(ctx, "29AABCU9603R1ZX"))
	s.NoError(s.limiter.CheckAndIncrement(ctx, "29AABCU9603R1ZX"))
}
