package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

type StationRepository struct {
	pool PgxPool
}

func NewStationRepository(pool PgxPool) *StationRepository {
	return &StationRepository{pool: pool}
}

func (r *StationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Station, error) {
	query := `
		SELECT id, name, code, election_id, is_active, created_at, updated_at
		FROM stations
		WHERE id = $1
	`

	var s domain.Station
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.Name,
		&s.Code,
		&s.ElectionID,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get station by id: %w", err)
	}

	return &s, nil
}

// GetByAPIKeyHash resolves the station behind an active key
func (r *StationRepository) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Station, error) {
	query := `
		SELECT s.id, s.name, s.code, s.election_id, s.is_active, s.created_at, s.updated_at
		FROM stations s
		INNER JOIN api_keys ak ON ak.station_id = s.id
		WHERE ak.key_hash = $1 AND ak.is_active = true AND s.is_active = true
	`

	var s domain.Station
	err := r.pool.QueryRow(ctx, query, apiKeyHash).Scan(
		&s.ID,
		&s.Name,
		&s.Code,
		&s.ElectionID,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get station by api key: %w", err)
	}

	return &s, nil
}

func (r *StationRepository) Create(ctx context.Context, s *domain.Station) error {
	query := `
		INSERT INTO stations (id, name, code, election_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		s.ID,
		s.Name,
		s.Code,
		s.ElectionID,
		s.IsActive,
	).Scan(&s.CreatedAt, &s.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return &domain.AppError{
				Code:       "STATION_ALREADY_EXISTS",
				Message:    "Station with this code already exists",
				StatusCode: 409,
			}
		}
		return fmt.Errorf("create station: %w", err)
	}

	return nil
}
