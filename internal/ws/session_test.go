package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
	"github.com/saturnino-fabrica-de-software/voterid/internal/liveness"
	"github.com/saturnino-fabrica-de-software/voterid/internal/service"
	"github.com/saturnino-fabrica-de-software/voterid/internal/verification"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type inbound struct {
	mt   int
	data []byte
}

type fakeConn struct {
	in      chan inbound
	mu      sync.Mutex
	written []ServerMessage
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan inbound, 32)}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	m, ok := <-c.in
	if !ok {
		return 0, nil, io.EOF
	}
	return m.mt, m.data, nil
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, msg)
	return nil
}

func (c *fakeConn) messages() []ServerMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ServerMessage(nil), c.written...)
}

func (c *fakeConn) sendStart(t *testing.T, start StartMessage) {
	t.Helper()
	data, err := json.Marshal(start)
	require.NoError(t, err)
	c.in <- inbound{mt: websocket.TextMessage, data: data}
}

type verifyFunc func(ctx context.Context, req service.VerifyRequest) (*verification.Outcome, error)

func (f verifyFunc) Verify(ctx context.Context, req service.VerifyRequest) (*verification.Outcome, error) {
	return f(ctx, req)
}

func newTestSession(v Verifier) *Session {
	return NewSession(v, validator.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSession_Success(t *testing.T) {
	stationID := uuid.New()
	var got service.VerifyRequest

	verifier := verifyFunc(func(ctx context.Context, req service.VerifyRequest) (*verification.Outcome, error) {
		got = req
		frame, err := req.Camera.Capture(ctx)
		if err != nil {
			return nil, err
		}
		if !frame.IsSupported() {
			return nil, errors.New("unexpected frame")
		}
		for _, st := range []verification.State{
			verification.StateIdle, verification.StateLivenessCheck, verification.StateCapturing,
			verification.StateMatching, verification.StateSuccess,
		} {
			req.Observer(st)
		}
		return &verification.Outcome{State: verification.StateSuccess, Reason: "identity verified", Pass: "signed"}, nil
	})

	conn := newFakeConn()
	conn.sendStart(t, StartMessage{VoterIdentifier: "0123456789"})
	conn.in <- inbound{mt: websocket.TextMessage, data: []byte("ignored")}
	conn.in <- inbound{mt: websocket.BinaryMessage, data: []byte("not an image")}
	conn.in <- inbound{mt: websocket.BinaryMessage, data: pngHeader}

	started := false
	station := &domain.Station{ID: stationID, Code: "S042", IsActive: true}
	newTestSession(verifier).Serve(context.Background(), conn, station, "10.0.0.1", func() { started = true })
	close(conn.in)

	assert.True(t, started)
	assert.Equal(t, "0123456789", got.VoterIdentifier)
	assert.Equal(t, &stationID, got.StationID)
	assert.Equal(t, "10.0.0.1", got.IPAddress)
	assert.Equal(t, liveness.Realtime{}, got.Schedule)

	msgs := conn.messages()
	require.Len(t, msgs, 6)
	for i, st := range []verification.State{"idle", "liveness-check", "capturing", "matching", "success"} {
		assert.Equal(t, MessageState, msgs[i].Type)
		assert.Equal(t, st, msgs[i].State)
	}
	assert.Equal(t, MessageOutcome, msgs[5].Type)
	require.NotNil(t, msgs[5].Outcome)
	assert.Equal(t, verification.StateSuccess, msgs[5].Outcome.State)
	assert.Equal(t, "signed", msgs[5].Outcome.Pass)
}

func TestSession_ElectionContext(t *testing.T) {
	stationElection := uuid.New()
	requested := uuid.New()

	tests := []struct {
		name    string
		station *domain.Station
		start   StartMessage
		want    *uuid.UUID
	}{
		{
			name:    "defaults to the station election",
			station: &domain.Station{ID: uuid.New(), ElectionID: &stationElection},
			start:   StartMessage{VoterIdentifier: "0123456789"},
			want:    &stationElection,
		},
		{
			name:    "start message wins",
			station: &domain.Station{ID: uuid.New(), ElectionID: &stationElection},
			start:   StartMessage{VoterIdentifier: "0123456789", ElectionID: &requested},
			want:    &requested,
		},
		{
			name:    "station without election",
			station: &domain.Station{ID: uuid.New()},
			start:   StartMessage{VoterIdentifier: "0123456789"},
			want:    nil,
		},
		{
			name:  "no station",
			start: StartMessage{VoterIdentifier: "0123456789", ElectionID: &requested},
			want:  &requested,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.VerifyRequest
			verifier := verifyFunc(func(ctx context.Context, req service.VerifyRequest) (*verification.Outcome, error) {
				got = req
				return &verification.Outcome{State: verification.StateFailed, Reason: "no match"}, nil
			})

			conn := newFakeConn()
			conn.sendStart(t, tt.start)
			newTestSession(verifier).Serve(context.Background(), conn, tt.station, "", nil)
			close(conn.in)

			assert.Equal(t, tt.want, got.ElectionID)
			if tt.station != nil {
				require.NotNil(t, got.StationID)
				assert.Equal(t, tt.station.ID, *got.StationID)
			} else {
				assert.Nil(t, got.StationID)
			}
		})
	}
}

func TestSession_WithSchedule(t *testing.T) {
	var got service.VerifyRequest
	verifier := verifyFunc(func(ctx context.Context, req service.VerifyRequest) (*verification.Outcome, error) {
		got = req
		return &verification.Outcome{State: verification.StateLivenessFailed, Reason: "static"}, nil
	})

	replay := liveness.Replay{Start: time.Date(2026, 10, 4, 8, 0, 0, 0, time.UTC)}
	conn := newFakeConn()
	conn.sendStart(t, StartMessage{VoterIdentifier: "0123456789"})

	newTestSession(verifier).WithSchedule(replay).Serve(context.Background(), conn, nil, "", nil)
	close(conn.in)

	assert.Equal(t, replay, got.Schedule)
	assert.Nil(t, got.StationID)
	msgs := conn.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, verification.StateLivenessFailed, msgs[0].Outcome.State)
}

func TestSession_BadStart(t *testing.T) {
	tests := []struct {
		name     string
		first    inbound
		wantCode string
	}{
		{name: "binary first", first: inbound{mt: websocket.BinaryMessage, data: pngHeader}, wantCode: "BAD_REQUEST"},
		{name: "not json", first: inbound{mt: websocket.TextMessage, data: []byte("{")}, wantCode: "BAD_REQUEST"},
		{name: "missing voter", first: inbound{mt: websocket.TextMessage, data: []byte(`{"election_id":null}`)}, wantCode: "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			verifier := verifyFunc(func(context.Context, service.VerifyRequest) (*verification.Outcome, error) {
				called = true
				return nil, nil
			})

			conn := newFakeConn()
			conn.in <- tt.first
			newTestSession(verifier).Serve(context.Background(), conn, nil, "", nil)

			assert.False(t, called)
			msgs := conn.messages()
			require.Len(t, msgs, 1)
			assert.Equal(t, MessageError, msgs[0].Type)
			assert.Equal(t, tt.wantCode, msgs[0].Error.Code)
		})
	}
}

func TestSession_VerifierError(t *testing.T) {
	verifier := verifyFunc(func(context.Context, service.VerifyRequest) (*verification.Outcome, error) {
		return nil, domain.ErrVoterAlreadyVoted
	})

	conn := newFakeConn()
	conn.sendStart(t, StartMessage{VoterIdentifier: "0123456789"})
	newTestSession(verifier).Serve(context.Background(), conn, nil, "", nil)
	close(conn.in)

	msgs := conn.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.ErrVoterAlreadyVoted.Code, msgs[0].Error.Code)
}

func TestSession_DisconnectCancelsAttempt(t *testing.T) {
	verifier := verifyFunc(func(ctx context.Context, req service.VerifyRequest) (*verification.Outcome, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	conn := newFakeConn()
	conn.sendStart(t, StartMessage{VoterIdentifier: "0123456789"})

	done := make(chan struct{})
	go func() {
		newTestSession(verifier).Serve(context.Background(), conn, nil, "", nil)
		close(done)
	}()

	close(conn.in)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session did not end after disconnect")
	}
	assert.Empty(t, conn.messages())
}
