package challenge

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nileasy/internal/profile"
	dErrors "nileasy/pkg/domain-errors"
)

var (
	issuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nileasy_captcha_sessions_issued_total",
		Help: "Total captcha sessions issued",
	})
	verifyOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nileasy_captcha_verify_outcomes_total",
		Help: "Captcha verification attempts by outcome",
	}, []string{"outcome"})
	providerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nileasy_gst_provider_latency_seconds",
		Help:    "Latency of GST portal provider round trips",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)

// Service issues and verifies captcha sessions. All provider round trips are
// bounded by the configured timeout; a timeout surfaces as provider
// unavailability, never as a rejection, because it must not count as an
// abuse signal.
type Service struct {
	provider Provider
	sessions SessionStore
	profiles profile.Store
	logger   *slog.Logger

	ttl             time.Duration
	providerTimeout time.Duration
	now             func() time.Time
}

func NewService(
	provider Provider,
	sessions SessionStore,
	profiles profile.Store,
	logger *slog.Logger,
	ttl time.Duration,
	providerTimeout time.Duration,
) *Service {
	return &Service{
		provider:        provider,
		sessions:        sessions,
		profiles:        profiles,
		logger:          logger,
		ttl:             ttl,
		providerTimeout: providerTimeout,
		now:             time.Now,
	}
}

// Issue fetches a fresh captcha for the GSTIN and opens a session for it.
// Any prior unconsumed session for the GSTIN is superseded. On provider
// failure no session is created.
func (s *Service) Issue(ctx context.Context, gstinKey string) (*Issued, error) {
	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	start := s.now()
	captcha, err := s.provider.FetchChallenge(pctx, gstinKey)
	providerLatency.Observe(s.now().Sub(start).Seconds())
	if err != nil {
		s.logger.WarnContext(ctx, "captcha fetch failed",
			"gstin", gstinKey,
			"error", err,
		)
		return nil, dErrors.New(dErrors.CodeProviderUnavailable, "could not fetch captcha from GST portal")
	}

	session := Session{
		ID:            uuid.NewString(),
		GSTIN:         gstinKey,
		ProviderToken: captcha.ProviderToken,
		ImageRef:      captcha.ImageRef,
		IssuedAt:      s.now(),
		ExpiresAt:     s.now().Add(s.ttl),
	}
	if err := s.sessions.Put(ctx, session); err != nil {
		return nil, dErrors.Newf(dErrors.CodePersistence, "save captcha session: %v", err)
	}

	issuedTotal.Inc()
	s.logger.InfoContext(ctx, "captcha session issued",
		"gstin", gstinKey,
		"session_id", session.ID,
		"expires_at", session.ExpiresAt,
	)
	return &Issued{
		SessionID:    session.ID,
		ChallengeRef: session.ImageRef,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// Verify submits a captcha answer for the session. The session is consumed
// up front, so every call is one-shot whatever the outcome: a retry must go
// back through Issue and therefore through the rate limiter. On a match the
// profile is cached before Verified is returned, so no reader ever observes
// a verified GSTIN without a cached profile.
func (s *Service) Verify(ctx context.Context, sessionID, gstinKey, response string) (*profile.Profile, error) {
	session, ok, err := s.sessions.Consume(ctx, sessionID)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodePersistence, "consume captcha session: %v", err)
	}
	if !ok || session.GSTIN != gstinKey {
		verifyOutcomes.WithLabelValues("not_found").Inc()
		return nil, dErrors.New(dErrors.CodeSessionNotFound, "no active captcha session, request a new one")
	}
	if session.Expired(s.now()) {
		verifyOutcomes.WithLabelValues("expired").Inc()
		return nil, dErrors.New(dErrors.CodeSessionExpired, "captcha expired, request a new one")
	}

	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	start := s.now()
	result, err := s.provider.SubmitResponse(pctx, session.ProviderToken, response)
	providerLatency.Observe(s.now().Sub(start).Seconds())
	if err != nil {
		verifyOutcomes.WithLabelValues("provider_unavailable").Inc()
		s.logger.WarnContext(ctx, "captcha verification call failed",
			"gstin", gstinKey,
			"session_id", sessionID,
			"error", err,
		)
		return nil, dErrors.New(dErrors.CodeProviderUnavailable, "could not verify captcha with GST portal")
	}

	if !result.Matched {
		verifyOutcomes.WithLabelValues("rejected").Inc()
		return nil, dErrors.New(dErrors.CodeChallengeRejected, "captcha did not match")
	}

	p := result.Profile
	if p == nil {
		verifyOutcomes.WithLabelValues("provider_unavailable").Inc()
		return nil, dErrors.New(dErrors.CodeProviderUnavailable, "portal returned no business details")
	}
	p.GSTIN = gstinKey
	p.VerifiedAt = s.now()

	if err := s.profiles.Save(ctx, p); err != nil {
		// Soft failure: verification stands, the next presentation just
		// re-challenges.
		s.logger.ErrorContext(ctx, "failed to cache verified profile",
			"gstin", gstinKey,
			"error", err,
		)
	}

	verifyOutcomes.WithLabelValues("verified").Inc()
	s.logger.InfoContext(ctx, "captcha verified",
		"gstin", gstinKey,
		"session_id", sessionID,
		"trade_name", p.TradeName,
	)
	return p, nil
}

// SetNow overrides the clock for tests.
func (s *Service) SetNow(now func() time.Time) {
	s.now = now
}
