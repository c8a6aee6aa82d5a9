package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

// VerificationRepository stores successful verifications and their single-use tokens
type VerificationRepository struct {
	pool PgxPool
}

func NewVerificationRepository(pool PgxPool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

func (r *VerificationRepository) Create(ctx context.Context, rec *domain.VerificationRecord) error {
	query := `
		INSERT INTO verification_records (id, voter_id, station_id, election_id, token, status, distance, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.VoterID,
		rec.StationID,
		rec.ElectionID,
		rec.Token,
		rec.Status,
		rec.Distance,
		rec.CreatedAt,
		rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create verification record: %w", err)
	}

	return nil
}

// Consume marks the token used and flags the voter as having voted, atomically.
// A second call for the same token fails with ErrTokenAlreadyUsed.
func (r *VerificationRepository) Consume(ctx context.Context, token string, now time.Time) (*domain.VerificationRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin consume: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query := `
		UPDATE verification_records
		SET consumed_at = $2
		WHERE token = $1 AND consumed_at IS NULL AND expires_at > $2
		RETURNING id, voter_id, station_id, election_id, status, distance, created_at, expires_at, consumed_at
	`

	rec := domain.VerificationRecord{Token: token}
	err = tx.QueryRow(ctx, query, token, now).Scan(
		&rec.ID,
		&rec.VoterID,
		&rec.StationID,
		&rec.ElectionID,
		&rec.Status,
		&rec.Distance,
		&rec.CreatedAt,
		&rec.ExpiresAt,
		&rec.ConsumedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.whyNotConsumable(ctx, tx, token, now)
	}
	if err != nil {
		return nil, fmt.Errorf("consume token: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE voters SET has_voted = true, updated_at = NOW() WHERE id = $1`, rec.VoterID); err != nil {
		return nil, fmt.Errorf("mark voter voted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit consume: %w", err)
	}

	return &rec, nil
}

// whyNotConsumable distinguishes unknown, used and expired tokens
func (r *VerificationRepository) whyNotConsumable(ctx context.Context, tx pgx.Tx, token string, now time.Time) error {
	var consumedAt *time.Time
	var expiresAt time.Time

	err := tx.QueryRow(ctx, `SELECT consumed_at, expires_at FROM verification_records WHERE token = $1`, token).
		Scan(&consumedAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup token: %w", err)
	}

	if consumedAt != nil {
		return domain.ErrTokenAlreadyUsed
	}
	if !now.Before(expiresAt) {
		return domain.ErrTokenExpired
	}
	return domain.ErrTokenNotFound
}
