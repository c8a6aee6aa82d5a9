package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger() (*SlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewSlogLogger(logger), &buf
}

func ptr[T any](v T) *T { return &v }

func TestSlogLogger_Log(t *testing.T) {
	stationID := uuid.New()

	tests := []struct {
		name     string
		event    Event
		wantType string
		contains []string
	}{
		{
			name: "success with distance",
			event: Event{
				EventType: EventVerificationSucceeded,
				StationID: &stationID,
				VoterID:   "0123456789",
				Distance:  ptr(0.21),
				Samples:   12,
			},
			wantType: "VERIFICATION_SUCCEEDED",
			contains: []string{`\"distance\":0.21`, stationID.String()},
		},
		{
			name: "liveness failure with reason",
			event: Event{
				EventType:   EventLivenessFailed,
				VoterID:     "0123456789",
				Reason:      "static image suspected",
				Samples:     12,
				AvgMovement: ptr(0.1),
			},
			wantType: "LIVENESS_FAILED",
			contains: []string{"static image suspected", `\"avg_movement\":0.1`},
		},
		{
			name:     "token consumed",
			event:    Event{EventType: EventTokenConsumed, VoterID: "v"},
			wantType: "TOKEN_CONSUMED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger()

			require.NoError(t, l.Log(context.Background(), tt.event))

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

			assert.Equal(t, "audit_event", line["msg"])
			assert.Equal(t, "audit", line["component"])
			assert.Equal(t, tt.wantType, line["event_type"])
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestSlogLogger_Log_GeneratesIDAndTimestamp(t *testing.T) {
	l, buf := newBufferLogger()

	require.NoError(t, l.Log(context.Background(), Event{EventType: EventVerificationAborted}))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))

	id, err := uuid.Parse(line["event_id"].(string))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	var event Event
	require.NoError(t, json.Unmarshal([]byte(line["event_data"].(string)), &event))
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 5*time.Second)
}

func TestSlogLogger_Log_UsesProvidedIDAndTimestamp(t *testing.T) {
	l, buf := newBufferLogger()
	id := uuid.New()
	ts := time.Date(2026, 10, 4, 8, 0, 0, 0, time.UTC)

	require.NoError(t, l.Log(context.Background(), Event{ID: id, Timestamp: ts, EventType: EventVoterEnrolled}))

	assert.Contains(t, buf.String(), id.String())
	assert.Contains(t, buf.String(), "2026-10-04T08:00:00Z")
}

func TestEvent_JSONOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Event{EventType: EventVerificationFailed})
	require.NoError(t, err)

	s := string(data)
	for _, field := range []string{"station_id", "election_id", "distance", "avg_movement", "reason", "ip_address"} {
		assert.False(t, strings.Contains(s, field), field)
	}
}

func TestNoOpLogger_Log(t *testing.T) {
	var l Logger = &NoOpLogger{}
	assert.NoError(t, l.Log(context.Background(), Event{EventType: EventTokenRejected}))
}
