package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/voterid/internal/biometric"
)

const uniqueViolation = "23505"

// isUniqueViolation checks if the error is a unique constraint violation
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, uniqueViolation) ||
		strings.Contains(errMsg, "duplicate key")
}

// toVector encodes an embedding for a vector column; empty maps to NULL
func toVector(e []float64) *pgvector.Vector {
	if len(e) == 0 {
		return nil
	}
	vec := pgvector.NewVector(biometric.Embedding(e).Float32())
	return &vec
}

// fromVector decodes a nullable vector column
func fromVector(v *pgvector.Vector) []float64 {
	if v == nil || len(v.Slice()) == 0 {
		return nil
	}
	return biometric.FromFloat32(v.Slice())
}
