// Package ratelimit caps verification attempts per voter inside a fixed window.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

// Limiter counts one attempt per Check and rejects once the window is full
type Limiter interface {
	Check(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// VoterKey is the counter key for a voter identifier
func VoterKey(identifier string) string {
	return "verify_attempts:" + identifier
}

func exceeded(count, limit int) error {
	return domain.ErrAttemptsExceeded.WithError(
		fmt.Errorf("%d/%d attempts in window", count, limit),
	)
}

// DB is the subset of pgxpool.Pool the postgres limiter needs
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresLimiter keeps counters in attempt_counters
type PostgresLimiter struct {
	db     DB
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewPostgresLimiter: limit <= 0 disables the check
func NewPostgresLimiter(db DB, limit int, window time.Duration) *PostgresLimiter {
	return &PostgresLimiter{db: db, limit: limit, window: window, now: time.Now}
}

func (l *PostgresLimiter) Check(ctx context.Context, key string) error {
	if l.limit <= 0 {
		return nil
	}

	now := l.now()

	// counter restarts once the stored window has closed
	query := `
		INSERT INTO attempt_counters (key, count, window_start, window_end)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET
			count = CASE
				WHEN attempt_counters.window_end <= $2 THEN 1
				ELSE attempt_counters.count + 1
			END,
			window_start = CASE
				WHEN attempt_counters.window_end <= $2 THEN $2
				ELSE attempt_counters.window_start
			END,
			window_end = CASE
				WHEN attempt_counters.window_end <= $2 THEN $3
				ELSE attempt_counters.window_end
			END
		RETURNING count
	`

	var count int
	if err := l.db.QueryRow(ctx, query, key, now, now.Add(l.window)).Scan(&count); err != nil {
		return fmt.Errorf("check attempt limit: %w", err)
	}

	if count > l.limit {
		return exceeded(count, l.limit)
	}
	return nil
}

func (l *PostgresLimiter) Reset(ctx context.Context, key string) error {
	if _, err := l.db.Exec(ctx, `DELETE FROM attempt_counters WHERE key = $1`, key); err != nil {
		return fmt.Errorf("reset attempt limit: %w", err)
	}
	return nil
}

// CleanupExpired removes closed windows; run periodically
func (l *PostgresLimiter) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := l.db.Exec(ctx, `DELETE FROM attempt_counters WHERE window_end < $1`, l.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup attempt counters: %w", err)
	}
	return result.RowsAffected(), nil
}
