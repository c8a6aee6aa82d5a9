package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
	"github.com/saturnino-fabrica-de-software/voterid/internal/token"
	"github.com/saturnino-fabrica-de-software/voterid/internal/verification"
)

type VoterRepositoryInterface interface {
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Voter, error)
	Upsert(ctx context.Context, v *domain.Voter) error
}

type TokenStoreInterface interface {
	Consume(ctx context.Context, token string, now time.Time) (*domain.VerificationRecord, error)
}

// PassParser validates a ballot pass
type PassParser interface {
	Parse(pass string) (*token.Claims, error)
}

// Runner executes one verification attempt; *verification.Orchestrator in production
type Runner interface {
	Run(ctx context.Context, a verification.Attempt) (*verification.Outcome, error)
}

// AttemptLimiter caps attempts per voter
type AttemptLimiter interface {
	Check(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// Notifier fans station events out to connected dashboards
type Notifier interface {
	Publish(stationID uuid.UUID, event StationEvent)
}

// StationEvent is what a polling station supervisor sees for each attempt
type StationEvent struct {
	Type            string             `json:"type"`
	VoterIdentifier string             `json:"voter_identifier"`
	State           verification.State `json:"state,omitempty"`
	Reason          string             `json:"reason,omitempty"`
	At              time.Time          `json:"at"`
}

const (
	StationEventOutcome  = "verification.outcome"
	StationEventAborted  = "verification.aborted"
	StationEventConsumed = "token.consumed"
)
