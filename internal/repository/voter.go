package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

// VoterRepository is the identity store
type VoterRepository struct {
	pool PgxPool
}

func NewVoterRepository(pool PgxPool) *VoterRepository {
	return &VoterRepository{pool: pool}
}

const voterColumns = `id, identifier, name, embedding, registered, has_voted, created_at, updated_at`

func (r *VoterRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE identifier = $1`

	v, err := scanVoter(r.pool.QueryRow(ctx, query, identifier))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrVoterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get voter by identifier: %w", err)
	}

	return v, nil
}

func (r *VoterRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE id = $1`

	v, err := scanVoter(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrVoterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get voter by id: %w", err)
	}

	return v, nil
}

func scanVoter(row pgx.Row) (*domain.Voter, error) {
	var v domain.Voter
	var embedding *pgvector.Vector

	err := row.Scan(
		&v.ID,
		&v.Identifier,
		&v.Name,
		&embedding,
		&v.Registered,
		&v.HasVoted,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Embedding = fromVector(embedding)
	return &v, nil
}

// Upsert enrolls a voter, replacing name and embedding when the identifier exists.
// Voting flags are never touched by enrollment.
func (r *VoterRepository) Upsert(ctx context.Context, v *domain.Voter) error {
	query := `
		INSERT INTO voters (id, identifier, name, embedding, registered, has_voted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, false, NOW(), NOW())
		ON CONFLICT (identifier) DO UPDATE SET
			name = EXCLUDED.name,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()
		RETURNING id, registered, has_voted, created_at, updated_at
	`

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		v.ID,
		v.Identifier,
		v.Name,
		toVector(v.Embedding),
		v.Registered,
	).Scan(&v.ID, &v.Registered, &v.HasVoted, &v.CreatedAt, &v.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert voter: %w", err)
	}

	return nil
}
