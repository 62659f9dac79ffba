package filing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nileasy/internal/gstin"
)

// PostgresSubmissionStore persists filing records in the submissions table.
//
//	CREATE TABLE submissions (
//	    gstin        TEXT NOT NULL,
//	    return_type  TEXT NOT NULL,
//	    period       TEXT NOT NULL,
//	    status       TEXT NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL,
//	    completed_at TIMESTAMPTZ,
//	    PRIMARY KEY (gstin, return_type, period)
//	);
type PostgresSubmissionStore struct {
	db *sql.DB
}

func NewPostgresSubmissionStore(db *sql.DB) *PostgresSubmissionStore {
	return &PostgresSubmissionStore{db: db}
}

func (s *PostgresSubmissionStore) Upsert(ctx context.Context, rec SubmissionRecord) error {
	const query = `
		INSERT INTO submissions (gstin, return_type, period, status, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '0001-01-01T00:00:00Z'::timestamptz))
		ON CONFLICT (gstin, return_type, period) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at`

	_, err := s.db.ExecContext(ctx, query,
		rec.GSTIN, string(rec.Type), rec.Period, string(rec.Status),
		rec.CreatedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

func (s *PostgresSubmissionStore) Find(ctx context.Context, gstinKey string, t gstin.ReturnType, period string) (*SubmissionRecord, error) {
	const query = `
		SELECT gstin, return_type, period, status, created_at, COALESCE(completed_at, '0001-01-01T00:00:00Z'::timestamptz)
		FROM submissions
		WHERE gstin = $1 AND return_type = $2 AND period = $3`

	var rec SubmissionRecord
	var typ, status string
	err := s.db.QueryRowContext(ctx, query, gstinKey, string(t), period).Scan(
		&rec.GSTIN, &typ, &rec.Period, &status, &rec.CreatedAt, &rec.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find submission: %w", err)
	}
	rec.Type = gstin.ReturnType(typ)
	rec.Status = Outcome(status)
	return &rec, nil
}
