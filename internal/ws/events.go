package ws

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/voterid/internal/verification"
)

// Event is pushed to station dashboards
type Event struct {
	StationID uuid.UUID   `json:"-"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// live session protocol

const (
	MessageState   = "state"
	MessageOutcome = "outcome"
	MessageError   = "error"
)

// StartMessage is the first text message of a live session
type StartMessage struct {
	VoterIdentifier string     `json:"voter_identifier" validate:"required,min=3,max=64"`
	ElectionID      *uuid.UUID `json:"election_id"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServerMessage is every message the server sends during a live session
type ServerMessage struct {
	Type    string                `json:"type"`
	State   verification.State    `json:"state,omitempty"`
	Outcome *verification.Outcome `json:"outcome,omitempty"`
	Error   *ErrorBody            `json:"error,omitempty"`
}
