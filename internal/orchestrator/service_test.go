package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"nileasy/internal/audit"
	"nileasy/internal/challenge"
	"nileasy/internal/filing"
	"nileasy/internal/gstin"
	"nileasy/internal/profile"
	"nileasy/internal/ratelimit"
	ratelimitstore "nileasy/internal/ratelimit/store"
	"nileasy/internal/workflow"
	dErrors "nileasy/pkg/domain-errors"
)

const testGSTIN = "29AABCU9603R1ZX"

// fakePortal scripts the GST portal for end-to-end core tests.
type fakePortal struct {
	fetchErr  error
	matched   bool
	submitErr error
}

func (f *fakePortal) FetchChallenge(_ context.Context, gstinKey string) (*challenge.Captcha, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &challenge.Captcha{ImageRef: "https://portal/captcha/img.png", ProviderToken: "tok"}, nil
}

func (f *fakePortal) SubmitResponse(_ context.Context, providerToken, response string) (*challenge.SubmitResult, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if !f.matched {
		return &challenge.SubmitResult{Matched: false}, nil
	}
	return &challenge.SubmitResult{
		Matched: true,
		Profile: &profile.Profile{TradeName: "ACME Traders", Status: "Active"},
	}, nil
}

type fakeShortener struct {
	url string
	err error
}

func (f *fakeShortener) Shorten(_ context.Context, longURL string, _ time.Duration) (string, error) {
	return f.url, f.err
}

type ServiceSuite struct {
	suite.Suite
	portal       *fakePortal
	limiterStore *ratelimitstore.InMemoryStore
	stateStore   *workflow.InMemoryStateStore
	profiles     *profile.InMemoryStore
	users        *profile.InMemoryUserStore
	submissions  *filing.InMemorySubmissionStore
	inbox        chan audit.Event
	service      *Service
	now          time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	s.portal = &fakePortal{matched: true}
	s.limiterStore = ratelimitstore.NewInMemoryStore()
	s.limiterStore.SetNow(func() time.Time { return s.now })
	limiter := ratelimit.New(s.limiterStore, 3, time.Hour, log)

	sessions := challenge.NewInMemorySessionStore()
	s.profiles = profile.NewInMemoryStore()
	challenges := challenge.NewService(s.portal, sessions, s.profiles, log, 3*time.Minute, time.Second)

	s.users = profile.NewInMemoryUserStore()
	s.submissions = filing.NewInMemorySubmissionStore()
	encoder := filing.NewEncoder(&fakeShortener{url: "https://sm.example/abc"}, "14409", 10*time.Minute, log)
	tracker := filing.NewTracker(s.submissions, s.users, log)

	s.stateStore = workflow.NewInMemoryStateStore()
	machine := workflow.NewMachine(s.stateStore, 30*time.Minute, log)

	s.inbox = make(chan audit.Event, 64)
	publisher := audit.NewPublisher(s.inbox, log)

	s.service = New(limiter, challenges, s.profiles, s.users,
		encoder, tracker, publisher, log, WithWorkflow(machine))
}

func (s *ServiceSuite) drainAudit() []audit.Event {
	var events []audit.Event
	for {
		select {
		case ev := <-s.inbox:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func (s *ServiceSuite) auditActions() []audit.Action {
	var actions []audit.Action
	for _, ev := range s.drainAudit() {
		actions = append(actions, ev.Action)
	}
	return actions
}

func (s *ServiceSuite) workflowState() workflow.State {
	rec, ok, err := s.stateStore.Get(context.Background(), testGSTIN)
	s.Require().NoError(err)
	if !ok {
		return workflow.StateEntry
	}
	return rec.State
}

// =============================================================================
// ValidateIdentity Tests
// =============================================================================

func (s *ServiceSuite) TestValidateIdentity() {
	ctx := context.Background()

	s.Run("malformed GSTIN fails before any portal contact", func() {
		_, err := s.service.ValidateIdentity(ctx, "NOT-A-GSTIN", "")
		s.True(dErrors.Is(err, dErrors.CodeInvalidFormat))
		s.Empty(s.drainAudit())
	})

	s.Run("unverified GSTIN gets a challenge", func() {
		out, err := s.service.ValidateIdentity(ctx, testGSTIN, "9876543210")
		s.Require().NoError(err)

		nc, ok := out.(NeedsChallenge)
		s.Require().True(ok, "expected NeedsChallenge, got %T", out)
		s.NotEmpty(nc.SessionID)
		s.NotEmpty(nc.ChallengeRef)
		s.Equal([]audit.Action{audit.ActionChallengeIssued}, s.auditActions())
		s.Equal(workflow.StateAwaitingChallenge, s.workflowState())
	})

	s.Run("the phone is linked to the GSTIN up front", func() {
		user, err := s.users.Find(ctx, testGSTIN)
		s.Require().NoError(err)
		s.Equal("9876543210", user.Phone)
	})

	s.Run("raw input is normalized before validation", func() {
		out, err := s.service.ValidateIdentity(ctx, "  29aabcu9603r1zx ", "")
		s.Require().NoError(err)
		_, ok := out.(NeedsChallenge)
		s.True(ok)
	})

	s.Run("an invalid phone fails validation", func() {
		_, err := s.service.ValidateIdentity(ctx, testGSTIN, "12345")
		s.True(dErrors.Is(err, dErrors.CodeInvalidFormat))
	})
}

func (s *ServiceSuite) TestValidateIdentityRateLimit() {
	ctx := context.Background()

	s.Run("the fourth issuance in a window is denied", func() {
		for i := 0; i < 3; i++ {
			out, err := s.service.ValidateIdentity(ctx, testGSTIN, "")
			s.Require().NoError(err)
			_, ok := out.(NeedsChallenge)
			s.Require().True(ok)
		}

		_, err := s.service.ValidateIdentity(ctx, testGSTIN, "")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeRateLimited))

		var dErr *dErrors.Error
		s.Require().True(errors.As(err, &dErr))
		s.Positive(dErrors.RetryAfterMinutes(dErr.RetryAfter))
	})

	s.Run("the denial is audited", func() {
		actions := s.auditActions()
		s.Require().NotEmpty(actions)
		s.Equal(audit.ActionRateLimited, actions[len(actions)-1])
	})

	s.Run("the budget frees after the window", func() {
		s.now = s.now.Add(time.Hour)
		_, err := s.service.ValidateIdentity(ctx, testGSTIN, "")
		s.NoError(err)
	})
}

// =============================================================================
// VerifyChallenge and Cache Tests
// =============================================================================

func (s *ServiceSuite) validate() NeedsChallenge {
	out, err := s.service.ValidateIdentity(context.Background(), testGSTIN, "9876543210")
	s.Require().NoError(err)
	nc, ok := out.(NeedsChallenge)
	s.Require().True(ok, "expected NeedsChallenge, got %T", out)
	return nc
}

func (s *ServiceSuite) TestVerifyChallenge() {
	ctx := context.Background()

	s.Run("a correct answer verifies and caches the profile", func() {
		nc := s.validate()
		p, err := s.service.VerifyChallenge(ctx, nc.SessionID, testGSTIN, "AB12CD")
		s.Require().NoError(err)
		s.Equal("ACME Traders", p.TradeName)
		s.Equal(workflow.StateIdentityVerified, s.workflowState())

		cached, err := s.profiles.Find(ctx, testGSTIN)
		s.Require().NoError(err)
		s.Equal("ACME Traders", cached.TradeName)
	})

	s.Run("a later validation hits the cache with no new session", func() {
		s.drainAudit()
		out, err := s.service.ValidateIdentity(ctx, testGSTIN, "")
		s.Require().NoError(err)

		cached, ok := out.(Cached)
		s.Require().True(ok, "expected Cached, got %T", out)
		s.Equal("ACME Traders", cached.Profile.TradeName)
		s.Empty(s.auditActions(), "a cache hit issues no challenge")
	})

	s.Run("cache hits do not consume rate limit budget", func() {
		for i := 0; i < 10; i++ {
			out, err := s.service.ValidateIdentity(ctx, testGSTIN, "")
			s.Require().NoError(err)
			_, ok := out.(Cached)
			s.Require().True(ok)
		}
	})

	s.Run("missing answer is a bad request", func() {
		_, err := s.service.VerifyChallenge(ctx, "some-session", testGSTIN, "")
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestVerifyChallengeRejection() {
	ctx := context.Background()
	s.portal.matched = false

	nc := s.validate()
	s.drainAudit()

	s.Run("a wrong answer is rejected and rolls the flow back", func() {
		_, err := s.service.VerifyChallenge(ctx, nc.SessionID, testGSTIN, "WRONG")
		s.True(dErrors.Is(err, dErrors.CodeChallengeRejected))
		s.Equal([]audit.Action{audit.ActionChallengeRejected}, s.auditActions())
		s.Equal(workflow.StateIdentityRequested, s.workflowState())
	})

	s.Run("the consumed session cannot be retried", func() {
		_, err := s.service.VerifyChallenge(ctx, nc.SessionID, testGSTIN, "WRONG")
		s.True(dErrors.Is(err, dErrors.CodeSessionNotFound))
	})

	s.Run("nothing is cached after a rejection", func() {
		_, err := s.profiles.Find(ctx, testGSTIN)
		s.ErrorIs(err, profile.ErrNotFound)
	})
}

func (s *ServiceSuite) TestVerifyChallengePortalDown() {
	ctx := context.Background()
	nc := s.validate()

	s.portal.submitErr = errors.New("portal 502")
	_, err := s.service.VerifyChallenge(ctx, nc.SessionID, testGSTIN, "AB12CD")
	s.True(dErrors.Is(err, dErrors.CodeProviderUnavailable))
	s.False(dErrors.Is(err, dErrors.CodeChallengeRejected))
}

// =============================================================================
// GenerateSubmission Tests
// =============================================================================

func (s *ServiceSuite) TestGenerateSubmission() {
	ctx := context.Background()

	s.Run("encodes the filing artifacts", func() {
		encoded, err := s.service.GenerateSubmission(ctx, testGSTIN, "3B", "012026")
		s.Require().NoError(err)
		s.Equal("NIL 3B 29AABCU9603R1ZX 012026", encoded.Text)
		s.Equal("sms:14409?body=NIL+3B+29AABCU9603R1ZX+012026", encoded.DeepLink)
		s.Equal("https://sm.example/abc", encoded.ShortURL)
		s.Equal("Jan 2026", encoded.PeriodLabel)
	})

	s.Run("the submission is tracked as initiated", func() {
		rec, err := s.submissions.Find(ctx, testGSTIN, gstin.ReturnGSTR3B, "012026")
		s.Require().NoError(err)
		s.Equal(filing.OutcomeInitiated, rec.Status)
	})

	s.Run("an unsupported type is rejected", func() {
		_, err := s.service.GenerateSubmission(ctx, testGSTIN, "9C", "012026")
		s.True(dErrors.Is(err, dErrors.CodeInvalidFormat))
	})

	s.Run("an invalid period is rejected", func() {
		_, err := s.service.GenerateSubmission(ctx, testGSTIN, "3B", "132026")
		s.True(dErrors.Is(err, dErrors.CodeInvalidFormat))
	})
}

// =============================================================================
// RecordCompletion Tests
// =============================================================================

func (s *ServiceSuite) TestRecordCompletion() {
	ctx := context.Background()

	s.Run("finalizes a tracked submission", func() {
		_, err := s.service.GenerateSubmission(ctx, testGSTIN, "3B", "012026")
		s.Require().NoError(err)

		tracked, err := s.service.RecordCompletion(ctx, testGSTIN, "3B", "012026", "completed", "9876543210")
		s.Require().NoError(err)
		s.True(tracked)

		rec, err := s.submissions.Find(ctx, testGSTIN, gstin.ReturnGSTR3B, "012026")
		s.Require().NoError(err)
		s.Equal(filing.OutcomeCompleted, rec.Status)
	})

	s.Run("an unknown outcome is rejected", func() {
		tracked, err := s.service.RecordCompletion(ctx, testGSTIN, "3B", "012026", "maybe", "")
		s.False(tracked)
		s.True(dErrors.Is(err, dErrors.CodeInvalidFormat))
	})
}

// =============================================================================
// Full Flow Tests
// =============================================================================

func (s *ServiceSuite) TestFullFilingFlow() {
	ctx := context.Background()

	nc := s.validate()
	_, err := s.service.VerifyChallenge(ctx, nc.SessionID, testGSTIN, "AB12CD")
	s.Require().NoError(err)

	encoded, err := s.service.GenerateSubmission(ctx, testGSTIN, "R1", "022026")
	s.Require().NoError(err)
	s.Equal("NIL R1 29AABCU9603R1ZX 022026", encoded.Text)
	s.Equal(workflow.StateSubmissionIssued, s.workflowState())

	tracked, err := s.service.RecordCompletion(ctx, testGSTIN, "R1", "022026", "completed", "9876543210")
	s.Require().NoError(err)
	s.True(tracked)

	s.Run("the conversation completes and tears down", func() {
		s.Equal(workflow.StateEntry, s.workflowState())
	})

	s.Run("the whole flow leaves an audit trail", func() {
		s.Equal([]audit.Action{
			audit.ActionChallengeIssued,
			audit.ActionChallengeVerified,
			audit.ActionSubmissionEncoded,
			audit.ActionFilingTracked,
		}, s.auditActions())
	})

	s.Run("the user record carries the final outcome", func() {
		user, err := s.users.Find(ctx, testGSTIN)
		s.Require().NoError(err)
		s.Equal("completed", user.LastOutcome)
	})
}
