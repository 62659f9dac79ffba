package filing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nileasy/internal/gstin"
	"nileasy/internal/profile"
	dErrors "nileasy/pkg/domain-errors"
)

var filingsTracked = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nileasy_filings_tracked_total",
	Help: "Filing outcomes recorded, by status",
}, []string{"status"})

// Tracker finalizes submission records. Persistence failure here is a soft
// error: the user's filing may already have gone through on the portal, so
// tracking must never be reported as a workflow failure.
type Tracker struct {
	submissions SubmissionStore
	users       profile.UserStore
	logger      *slog.Logger
	now         func() time.Time
}

func NewTracker(submissions SubmissionStore, users profile.UserStore, logger *slog.Logger) *Tracker {
	return &Tracker{
		submissions: submissions,
		users:       users,
		logger:      logger,
		now:         time.Now,
	}
}

// Initiate records that a submission was encoded. Idempotent: re-encoding
// the same (gstin, type, period) refreshes nothing but the status.
func (t *Tracker) Initiate(ctx context.Context, gstinKey string, returnType gstin.ReturnType, period string) error {
	rec := SubmissionRecord{
		GSTIN:     gstinKey,
		Type:      returnType,
		Period:    period,
		Status:    OutcomeInitiated,
		CreatedAt: t.now(),
	}
	if err := t.submissions.Upsert(ctx, rec); err != nil {
		return dErrors.Newf(dErrors.CodePersistence, "record submission: %v", err)
	}
	return nil
}

// Record finalizes the outcome for (gstin, type, period) and updates the
// user's last known status. A second call with the same key updates the
// existing record rather than duplicating it.
func (t *Tracker) Record(ctx context.Context, gstinKey string, returnType gstin.ReturnType, period string, outcome Outcome, phone string) error {
	rec := SubmissionRecord{
		GSTIN:     gstinKey,
		Type:      returnType,
		Period:    period,
		Status:    outcome,
		CreatedAt: t.now(),
	}
	if existing, err := t.submissions.Find(ctx, gstinKey, returnType, period); err == nil {
		rec.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, ErrNotFound) {
		return dErrors.Newf(dErrors.CodePersistence, "load submission: %v", err)
	}
	if outcome != OutcomeInitiated {
		rec.CompletedAt = t.now()
	}

	if err := t.submissions.Upsert(ctx, rec); err != nil {
		return dErrors.Newf(dErrors.CodePersistence, "finalize submission: %v", err)
	}

	if err := t.users.Upsert(ctx, profile.User{
		GSTIN:       gstinKey,
		Phone:       gstin.NormalizePhone(phone),
		LastOutcome: string(outcome),
		UpdatedAt:   t.now(),
	}); err != nil {
		// The submission record is already in place; the user link is
		// best effort.
		t.logger.WarnContext(ctx, "failed to update user record",
			"gstin", gstinKey,
			"error", err,
		)
	}

	filingsTracked.WithLabelValues(string(outcome)).Inc()
	t.logger.InfoContext(ctx, "filing outcome recorded",
		"gstin", gstinKey,
		"type", returnType,
		"period", period,
		"outcome", outcome,
	)
	return nil
}

// SetNow overrides the clock for tests.
func (t *Tracker) SetNow(now func() time.Time) {
	t.now = now
}
