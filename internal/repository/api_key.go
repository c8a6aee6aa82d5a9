package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

// APIKeyRepository manages the keys polling-station terminals authenticate with.
// Lookup by hash for auth goes through StationRepository.GetByAPIKeyHash.
type APIKeyRepository struct {
	pool PgxPool
}

func NewAPIKeyRepository(pool PgxPool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	query := `
		INSERT INTO api_keys (id, station_id, name, key_hash, key_prefix, environment, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`

	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		key.ID, key.StationID, key.Name, key.KeyHash, key.KeyPrefix, key.Environment, key.IsActive,
	).Scan(&key.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAPIKeyExists
		}
		return fmt.Errorf("create api key: %w", err)
	}

	return nil
}

// ListByStation returns the station's keys, newest first. Hashes are not loaded.
func (r *APIKeyRepository) ListByStation(ctx context.Context, stationID uuid.UUID) ([]domain.APIKey, error) {
	query := `
		SELECT id, station_id, name, key_prefix, environment, is_active, last_used_at, created_at
		FROM api_keys
		WHERE station_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, stationID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		var k domain.APIKey
		if err := rows.Scan(
			&k.ID, &k.StationID, &k.Name, &k.KeyPrefix, &k.Environment, &k.IsActive, &k.LastUsedAt, &k.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	return keys, nil
}

// TouchByHash stamps last_used_at; called in batches by the auth worker
func (r *APIKeyRepository) TouchByHash(ctx context.Context, hash string) error {
	query := `
		UPDATE api_keys
		SET last_used_at = NOW()
		WHERE key_hash = $1
	`

	result, err := r.pool.Exec(ctx, query, hash)
	if err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}

	return nil
}

// RevokeByPrefix deactivates the active key shown to operators as prefix.
// A terminal using it is rejected on its next request.
func (r *APIKeyRepository) RevokeByPrefix(ctx context.Context, prefix string) error {
	query := `
		UPDATE api_keys
		SET is_active = false
		WHERE key_prefix = $1 AND is_active
	`

	result, err := r.pool.Exec(ctx, query, prefix)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}

	return nil
}
