package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	VerificationStatusSuccess = "success"

	sessionTokenPrefix = "vt_"
	sessionTokenLength = 40
)

// VerificationRecord is persisted once per successful attempt and consumed
// exactly once by the ballot flow.
type VerificationRecord struct {
	ID         uuid.UUID  `json:"id"`
	VoterID    uuid.UUID  `json:"voter_id"`
	StationID  *uuid.UUID `json:"station_id,omitempty"`
	ElectionID *uuid.UUID `json:"election_id,omitempty"`
	Token      string     `json:"-"`
	Status     string     `json:"status"`
	Distance   float64    `json:"distance"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// IsExpired checks the record against now
func (r *VerificationRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// IsConsumed reports whether the token was already used
func (r *VerificationRecord) IsConsumed() bool {
	return r.ConsumedAt != nil
}

// GenerateSessionToken gera um token opaco de uso único: vt_<random40>
func GenerateSessionToken() (string, error) {
	random, err := randomBase62(sessionTokenLength)
	if err != nil {
		return "", err
	}
	return sessionTokenPrefix + random, nil
}

// IsValidSessionToken checks the opaque token shape
func IsValidSessionToken(token string) bool {
	if len(token) != len(sessionTokenPrefix)+sessionTokenLength || token[:len(sessionTokenPrefix)] != sessionTokenPrefix {
		return false
	}
	return isBase62(token[len(sessionTokenPrefix):], sessionTokenLength)
}
