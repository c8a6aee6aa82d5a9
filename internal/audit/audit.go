// Package audit records every verification decision as a structured log line.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventVerificationSucceeded EventType = "VERIFICATION_SUCCEEDED"
	EventVerificationFailed    EventType = "VERIFICATION_FAILED"
	EventLivenessFailed        EventType = "LIVENESS_FAILED"
	EventVerificationAborted   EventType = "VERIFICATION_ABORTED"
	EventAttemptsExceeded      EventType = "ATTEMPTS_EXCEEDED"
	EventTokenConsumed         EventType = "TOKEN_CONSUMED"
	EventTokenRejected         EventType = "TOKEN_REJECTED"
	EventVoterEnrolled         EventType = "VOTER_ENROLLED"
)

// Event never carries images or embeddings, only the decision and its numbers
type Event struct {
	ID          uuid.UUID  `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	EventType   EventType  `json:"event_type"`
	StationID   *uuid.UUID `json:"station_id,omitempty"`
	ElectionID  *uuid.UUID `json:"election_id,omitempty"`
	VoterID     string     `json:"voter_id,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	Distance    *float64   `json:"distance,omitempty"`
	Samples     int        `json:"samples,omitempty"`
	AvgMovement *float64   `json:"avg_movement,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	IPAddress   string     `json:"ip_address,omitempty"`
}

type Logger interface {
	Log(ctx context.Context, event Event) error
}

type SlogLogger struct {
	logger *slog.Logger
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
	}
}

func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		l.logger.ErrorContext(ctx, "failed to marshal audit event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
		)
		return err
	}

	attrs := []any{
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("voter_id", event.VoterID),
		slog.String("event_data", string(eventJSON)),
	}
	if event.StationID != nil {
		attrs = append(attrs, slog.String("station_id", event.StationID.String()))
	}

	l.logger.InfoContext(ctx, "audit_event", attrs...)

	return nil
}

// NoOpLogger discards events
type NoOpLogger struct{}

func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
