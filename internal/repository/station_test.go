package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

var stationCols = []string{"id", "name", "code", "election_id", "is_active", "created_at", "updated_at"}

func TestStationRepository_GetByAPIKeyHash(t *testing.T) {
	stationID := uuid.New()
	electionID := uuid.New()
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func(mock pgxmock.PgxPoolIface)
		want      *domain.Station
		wantErr   error
	}{
		{
			name: "active key resolves station",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(stationCols).
					AddRow(stationID, "Escola Municipal", "ZE-001-S042", &electionID, true, now, now)
				mock.ExpectQuery(`FROM stations s INNER JOIN api_keys ak ON ak.station_id = s.id`).
					WithArgs("hash_valid").
					WillReturnRows(rows)
			},
			want: &domain.Station{
				ID:         stationID,
				Name:       "Escola Municipal",
				Code:       "ZE-001-S042",
				ElectionID: &electionID,
				IsActive:   true,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		},
		{
			name: "unknown key",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM stations s`).
					WithArgs("hash_valid").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrStationNotFound,
		},
		{
			name: "database error",
			mockSetup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM stations s`).
					WithArgs("hash_valid").
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: errors.New("get station by api key"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.mockSetup(mock)

			repo := NewStationRepository(mock)
			got, err := repo.GetByAPIKeyHash(context.Background(), "hash_valid")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStationRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`FROM stations WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err = NewStationRepository(mock).GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrStationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStationRepository_Create(t *testing.T) {
	t.Run("assigns id and timestamps", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		now := time.Now()
		mock.ExpectQuery(`INSERT INTO stations`).
			WithArgs(pgxmock.AnyArg(), "Seção 42", "S042", pgxmock.AnyArg(), true).
			WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		s := &domain.Station{Name: "Seção 42", Code: "S042", IsActive: true}
		require.NoError(t, NewStationRepository(mock).Create(context.Background(), s))

		assert.NotEqual(t, uuid.Nil, s.ID)
		assert.Equal(t, now, s.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate code", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`INSERT INTO stations`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

		err = NewStationRepository(mock).Create(context.Background(), &domain.Station{Name: "x", Code: "S042"})

		var appErr *domain.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "STATION_ALREADY_EXISTS", appErr.Code)
		assert.Equal(t, 409, appErr.StatusCode)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "sqlstate in message", err: errors.New("duplicate key value violates unique constraint (SQLSTATE 23505)"), want: true},
		{name: "duplicate key text", err: errors.New("duplicate key value"), want: true},
		{name: "nil error", err: nil, want: false},
		{name: "different error", err: errors.New("connection timeout"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}
