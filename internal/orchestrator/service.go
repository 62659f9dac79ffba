package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nileasy/internal/audit"
	"nileasy/internal/challenge"
	"nileasy/internal/filing"
	"nileasy/internal/gstin"
	"nileasy/internal/platform/middleware"
	"nileasy/internal/profile"
	"nileasy/internal/ratelimit"
	"nileasy/internal/workflow"
	dErrors "nileasy/pkg/domain-errors"
)

var cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nileasy_profile_cache_lookups_total",
	Help: "Verification cache lookups by result",
}, []string{"result"})

// Service wires the core components into the four exposed operations.
// The workflow machine is optional: the stateless webhook API runs without
// it, the conversational mode advances it alongside each operation.
type Service struct {
	limiter    *ratelimit.Limiter
	challenges *challenge.Service
	profiles   profile.Store
	users      profile.UserStore
	encoder    *filing.Encoder
	tracker    *filing.Tracker
	machine    *workflow.Machine
	publisher  *audit.Publisher
	logger     *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

// WithWorkflow enables stateful conversation tracking.
func WithWorkflow(machine *workflow.Machine) Option {
	return func(s *Service) {
		s.machine = machine
	}
}

func New(
	limiter *ratelimit.Limiter,
	challenges *challenge.Service,
	profiles profile.Store,
	users profile.UserStore,
	encoder *filing.Encoder,
	tracker *filing.Tracker,
	publisher *audit.Publisher,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		limiter:    limiter,
		challenges: challenges,
		profiles:   profiles,
		users:      users,
		encoder:    encoder,
		tracker:    tracker,
		publisher:  publisher,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateIdentity validates the GSTIN, consults the verification cache, and
// on a miss issues a captcha behind the rate limiter. Validation failures
// never reach the limiter or the portal.
func (s *Service) ValidateIdentity(ctx context.Context, rawGSTIN, phone string) (ValidationOutcome, error) {
	key := gstin.Normalize(rawGSTIN)
	if err := gstin.Validate(key); err != nil {
		return nil, err
	}

	if phone != "" {
		if err := gstin.ValidatePhone(phone); err != nil {
			return nil, err
		}
		// Link the phone to the GSTIN as early as possible so support can
		// find abandoned flows.
		if err := s.users.Upsert(ctx, profile.User{
			GSTIN:       key,
			Phone:       gstin.NormalizePhone(phone),
			LastOutcome: string(filing.OutcomeInitiated),
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to upsert user on validate",
				"gstin", key,
				"error", err,
			)
		}
	}

	cached, err := s.profiles.Find(ctx, key)
	switch {
	case err == nil:
		cacheLookups.WithLabelValues("hit").Inc()
		s.advance(ctx, key, workflow.EventStart, workflow.EventIdentityValid, workflow.EventVerified)
		s.logger.InfoContext(ctx, "verification cache hit, skipping captcha",
			"gstin", key,
			"request_id", middleware.GetRequestID(ctx),
		)
		return Cached{Profile: cached}, nil
	case errors.Is(err, profile.ErrNotFound):
		cacheLookups.WithLabelValues("miss").Inc()
	default:
		// A broken cache must not block filing; fall through to the
		// challenge path.
		cacheLookups.WithLabelValues("error").Inc()
		s.logger.ErrorContext(ctx, "verification cache lookup failed",
			"gstin", key,
			"error", err,
		)
	}

	if err := s.limiter.CheckAndIncrement(ctx, key); err != nil {
		if dErrors.Is(err, dErrors.CodeRateLimited) {
			s.emit(ctx, key, audit.ActionRateLimited, "")
		}
		return nil, err
	}

	issued, err := s.challenges.Issue(ctx, key)
	if err != nil {
		return nil, err
	}

	s.advance(ctx, key, workflow.EventStart, workflow.EventIdentityValid)
	s.emit(ctx, key, audit.ActionChallengeIssued, issued.SessionID)
	return NeedsChallenge{
		SessionID:    issued.SessionID,
		ChallengeRef: issued.ChallengeRef,
		ExpiresAt:    issued.ExpiresAt,
	}, nil
}

// VerifyChallenge submits a captcha answer. The session is consumed whatever
// the outcome; on success the profile is already cached by the time this
// returns.
func (s *Service) VerifyChallenge(ctx context.Context, sessionID, rawGSTIN, response string) (*profile.Profile, error) {
	key := gstin.Normalize(rawGSTIN)
	if err := gstin.Validate(key); err != nil {
		return nil, err
	}
	if sessionID == "" || response == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "session_id and captcha are required")
	}

	p, err := s.challenges.Verify(ctx, sessionID, key, response)
	if err != nil {
		switch dErrors.CodeOf(err) {
		case dErrors.CodeChallengeRejected:
			s.advance(ctx, key, workflow.EventRejected)
			s.emit(ctx, key, audit.ActionChallengeRejected, sessionID)
		case dErrors.CodeSessionExpired:
			s.advance(ctx, key, workflow.EventExpired)
		}
		return nil, err
	}

	s.advance(ctx, key, workflow.EventVerified)
	s.emit(ctx, key, audit.ActionChallengeVerified, sessionID)
	return p, nil
}

// GenerateSubmission encodes the filing SMS once verification is satisfied.
// Short-link failure is absorbed by the encoder; tracking failure is logged
// but never blocks the encoding result.
func (s *Service) GenerateSubmission(ctx context.Context, rawGSTIN, rawType, period string) (*filing.Encoded, error) {
	key := gstin.Normalize(rawGSTIN)
	if err := gstin.Validate(key); err != nil {
		return nil, err
	}
	returnType, err := gstin.ParseReturnType(rawType)
	if err != nil {
		return nil, err
	}
	if err := gstin.ValidatePeriod(period); err != nil {
		return nil, err
	}

	encoded := s.encoder.Encode(ctx, returnType, key, period)

	if err := s.tracker.Initiate(ctx, key, returnType, period); err != nil {
		s.logger.WarnContext(ctx, "failed to record submission initiation",
			"gstin", key,
			"error", err,
		)
	}

	s.advance(ctx, key,
		workflow.EventTypeChosen,
		workflow.EventPeriodChosen,
		workflow.EventLinkGenerated,
	)
	s.emit(ctx, key, audit.ActionSubmissionEncoded, encoded.Text)
	return encoded, nil
}

// RecordCompletion finalizes the filing outcome. A persistence failure is
// returned as a soft error so the transport can report tracked=false without
// failing the user's already-finished filing.
func (s *Service) RecordCompletion(ctx context.Context, rawGSTIN, rawType, period, rawOutcome, phone string) (bool, error) {
	key := gstin.Normalize(rawGSTIN)
	if err := gstin.Validate(key); err != nil {
		return false, err
	}
	returnType, err := gstin.ParseReturnType(rawType)
	if err != nil {
		return false, err
	}
	if err := gstin.ValidatePeriod(period); err != nil {
		return false, err
	}
	outcome, ok := filing.ParseOutcome(rawOutcome)
	if !ok {
		return false, dErrors.Newf(dErrors.CodeInvalidFormat, "unsupported outcome %q", rawOutcome)
	}

	if err := s.tracker.Record(ctx, key, returnType, period, outcome, phone); err != nil {
		return false, err
	}

	s.advance(ctx, key, workflow.EventUserConfirmedSent, workflow.EventOutcomeReported)
	s.emit(ctx, key, audit.ActionFilingTracked, string(outcome))
	return true, nil
}

// advance drives the optional workflow machine. Edges the conversation has
// already crossed are skipped: webhook callers replay operations out of band
// and must not be failed for it. The strict rejection contract lives in the
// Machine itself for the conversational dispatcher.
func (s *Service) advance(ctx context.Context, key string, events ...workflow.Event) {
	if s.machine == nil {
		return
	}
	for _, ev := range events {
		if _, err := s.machine.Apply(ctx, key, ev); err != nil {
			if dErrors.Is(err, dErrors.CodeInvalidTransition) {
				continue
			}
			s.logger.WarnContext(ctx, "workflow advance failed",
				"gstin", key,
				"event", ev,
				"error", err,
			)
		}
	}
}

func (s *Service) emit(ctx context.Context, key string, action audit.Action, detail string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Emit(ctx, audit.Event{
		GSTIN:     key,
		Action:    action,
		Detail:    detail,
		RequestID: middleware.GetRequestID(ctx),
	})
}
