package domain

import (
	"time"

	"github.com/google/uuid"
)

// Voter is the identity store record for one elector.
// Embedding is written at enrollment and never mutated by verification.
type Voter struct {
	ID         uuid.UUID `json:"id"`
	Identifier string    `json:"identifier"`
	Name       string    `json:"name"`
	Embedding  []float64 `json:"-"`
	Registered bool      `json:"registered"`
	HasVoted   bool      `json:"has_voted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CanVerify reports why a voter may not start a verification attempt
func (v *Voter) CanVerify() error {
	switch {
	case !v.Registered:
		return ErrVoterNotRegistered
	case v.HasVoted:
		return ErrVoterAlreadyVoted
	case len(v.Embedding) == 0:
		return ErrVoterNotEnrolled
	}
	return nil
}
