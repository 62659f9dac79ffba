// Package ratelimit guards the GST portal from captcha hammering. The budget
// is keyed by GSTIN, not by caller: three issuances per hour per identity, no
// matter how many phones or sessions ask.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nileasy/internal/ratelimit/store"
	dErrors "nileasy/pkg/domain-errors"
)

var denialsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "nileasy_ratelimit_denials_total",
	Help: "Total captcha issuance attempts denied by the per-GSTIN rate limit",
})

// Limiter applies the per-GSTIN attempt budget.
type Limiter struct {
	store  store.Store
	limit  int
	window time.Duration
	logger *slog.Logger
}

func New(s store.Store, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{store: s, limit: limit, window: window, logger: logger}
}

// CheckAndIncrement counts a challenge issuance attempt for the GSTIN.
// Returns a CodeRateLimited error carrying the retry-after when the budget
// is exhausted. Issuance itself is the rate-limited action; whether the
// later verification succeeds does not matter.
func (l *Limiter) CheckAndIncrement(ctx context.Context, gstin string) error {
	res, err := l.store.Allow(ctx, gstin, l.limit, l.window)
	if err != nil {
		return dErrors.Newf(dErrors.CodePersistence, "rate limit check: %v", err)
	}
	if !res.Allowed {
		denialsTotal.Inc()
		l.logger.WarnContext(ctx, "captcha rate limit exceeded",
			"gstin", gstin,
			"retry_after_minutes", dErrors.RetryAfterMinutes(res.RetryAfter),
		)
		return dErrors.RateLimited(res.RetryAfter)
	}
	return nil
}

// Reset clears the budget for a GSTIN. Support tooling only.
func (l *Limiter) Reset(ctx context.Context, gstin string) error {
	if err := l.store.Reset(ctx, gstin); err != nil {
		return dErrors.Newf(dErrors.CodePersistence, "rate limit reset: %v", err)
	}
	return nil
}
