package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore persists verified profiles in the verified_profiles table.
//
//	CREATE TABLE verified_profiles (
//	    gstin             TEXT PRIMARY KEY,
//	    trade_name        TEXT NOT NULL,
//	    legal_name        TEXT NOT NULL,
//	    address           TEXT NOT NULL,
//	    registration_date TEXT NOT NULL,
//	    status            TEXT NOT NULL,
//	    verified_at       TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, gstin string) (*Profile, error) {
	const query = `
		SELECT gstin, trade_name, legal_name, address, registration_date, status, verified_at
		FROM verified_profiles
		WHERE gstin = $1`

	var p Profile
	err := s.db.QueryRowContext(ctx, query, gstin).Scan(
		&p.GSTIN, &p.TradeName, &p.LegalName, &p.Address,
		&p.RegistrationDate, &p.Status, &p.VerifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) Save(ctx context.Context, p *Profile) error {
	const query = `
		INSERT INTO verified_profiles
			(gstin, trade_name, legal_name, address, registration_date, status, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (gstin) DO UPDATE SET
			trade_name = EXCLUDED.trade_name,
			legal_name = EXCLUDED.legal_name,
			address = EXCLUDED.address,
			registration_date = EXCLUDED.registration_date,
			status = EXCLUDED.status,
			verified_at = EXCLUDED.verified_at`

	_, err := s.db.ExecContext(ctx, query,
		p.GSTIN, p.TradeName, p.LegalName, p.Address,
		p.RegistrationDate, p.Status, p.VerifiedAt,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// PostgresUserStore persists GSTIN-to-phone links in the users table.
//
//	CREATE TABLE users (
//	    gstin        TEXT PRIMARY KEY,
//	    phone        TEXT NOT NULL DEFAULT '',
//	    last_outcome TEXT NOT NULL DEFAULT '',
//	    updated_at   TIMESTAMPTZ NOT NULL
//	);
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) Upsert(ctx context.Context, user User) error {
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = time.Now()
	}
	const query = `
		INSERT INTO users (gstin, phone, last_outcome, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (gstin) DO UPDATE SET
			phone = CASE WHEN EXCLUDED.phone = '' THEN users.phone ELSE EXCLUDED.phone END,
			last_outcome = EXCLUDED.last_outcome,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query, user.GSTIN, user.Phone, user.LastOutcome, user.UpdatedAt); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) Find(ctx context.Context, gstin string) (*User, error) {
	const query = `SELECT gstin, phone, last_outcome, updated_at FROM users WHERE gstin = $1`

	var u User
	err := s.db.QueryRowContext(ctx, query, gstin).Scan(&u.GSTIN, &u.Phone, &u.LastOutcome, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}
