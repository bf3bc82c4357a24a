package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RateLimitStore = (*RateLimitRepo)(nil)

// RateLimitRepo is the SQLite implementation of the RateLimitStore port.
// It keeps one row per category, all owned by the login that saved last.
type RateLimitRepo struct {
	db *DB
}

// NewRateLimitRepo creates a new RateLimitRepo.
func NewRateLimitRepo(db *DB) *RateLimitRepo {
	return &RateLimitRepo{db: db}
}

// Save upserts every snapshot for login in a single transaction and drops rows
// saved under any other login.
func (r *RateLimitRepo) Save(ctx context.Context, login string, snapshots []model.RateLimitSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rate limit save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rate_limits WHERE login <> ?`, login); err != nil {
		return fmt.Errorf("drop rate limits of other logins: %w", err)
	}

	const query = `
		INSERT INTO rate_limits (login, category, lim, remaining, used, reset_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (login, category) DO UPDATE SET
			lim = excluded.lim,
			remaining = excluded.remaining,
			used = excluded.used,
			reset_at = excluded.reset_at,
			fetched_at = excluded.fetched_at`

	for _, s := range snapshots {
		_, err := tx.ExecContext(ctx, query,
			login, string(s.Category), s.Limit, s.Remaining, s.Used,
			formatTime(s.ResetAt), formatTime(s.FetchedAt),
		)
		if err != nil {
			return fmt.Errorf("save rate limit %s: %w", s.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rate limit save: %w", err)
	}
	return nil
}

// Load returns the snapshots stored for login ordered by category.
func (r *RateLimitRepo) Load(ctx context.Context, login string) ([]model.RateLimitSnapshot, error) {
	const query = `
		SELECT category, lim, remaining, used, reset_at, fetched_at
		FROM rate_limits WHERE login = ? ORDER BY category`
	rows, err := r.db.Reader.QueryContext(ctx, query, login)
	if err != nil {
		return nil, fmt.Errorf("load rate limits: %w", err)
	}
	defer rows.Close()

	snapshots := []model.RateLimitSnapshot{}
	for rows.Next() {
		s, err := scanRateLimit(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate limits: %w", err)
	}

	return snapshots, nil
}

func scanRateLimit(s scanner) (model.RateLimitSnapshot, error) {
	var (
		snap               model.RateLimitSnapshot
		category           string
		resetAt, fetchedAt string
	)
	if err := s.Scan(&category, &snap.Limit, &snap.Remaining, &snap.Used, &resetAt, &fetchedAt); err != nil {
		return model.RateLimitSnapshot{}, fmt.Errorf("scan rate limit: %w", err)
	}
	snap.Category = model.RateLimitCategory(category)

	var err error
	if snap.ResetAt, err = parseTime(resetAt); err != nil {
		return model.RateLimitSnapshot{}, fmt.Errorf("parse reset_at for %s: %w", category, err)
	}
	if snap.FetchedAt, err = parseTime(fetchedAt); err != nil {
		return model.RateLimitSnapshot{}, fmt.Errorf("parse fetched_at for %s: %w", category, err)
	}
	return snap, nil
}
