package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/voterid/internal/camera"
	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
	"github.com/saturnino-fabrica-de-software/voterid/internal/liveness"
	"github.com/saturnino-fabrica-de-software/voterid/internal/service"
	"github.com/saturnino-fabrica-de-software/voterid/internal/verification"
)

const (
	maxFrameBytes = 5 * 1024 * 1024
	startTimeout  = 10 * time.Second
)

// Verifier runs one attempt; *service.VerificationService in production
type Verifier interface {
	Verify(ctx context.Context, req service.VerifyRequest) (*verification.Outcome, error)
}

// Conn is the part of *websocket.Conn a session uses
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
}

// Session drives a live verification over one websocket: a JSON start
// message, then binary camera frames. Only the newest frame is kept.
type Session struct {
	verifier Verifier
	validate *validator.Validate
	logger   *slog.Logger
	schedule liveness.Schedule
}

func NewSession(verifier Verifier, validate *validator.Validate, logger *slog.Logger) *Session {
	return &Session{
		verifier: verifier,
		validate: validate,
		logger:   logger.With("component", "live_session"),
		schedule: liveness.Realtime{},
	}
}

// WithSchedule replaces the wall-clock liveness schedule
func (s *Session) WithSchedule(sched liveness.Schedule) *Session {
	s.schedule = sched
	return s
}

// Handler upgrades GET /v1/verifications/live
func (s *Session) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		defer func() { _ = c.Close() }()

		c.SetReadLimit(maxFrameBytes)
		_ = c.SetReadDeadline(time.Now().Add(startTimeout))

		station, _ := c.Locals(localStation).(*domain.Station)

		s.Serve(context.Background(), c, station, c.RemoteAddr().String(), func() {
			_ = c.SetReadDeadline(time.Time{})
		})
	})
}

// Serve runs the session to completion. station may be nil; when set, its
// election is used if the start message names none. started is called once
// the start message is accepted; it may be nil.
func (s *Session) Serve(ctx context.Context, conn Conn, station *domain.Station, ip string, started func()) {
	out := make(chan ServerMessage, 16)
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		for msg := range out {
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("write failed", slog.Any("error", err))
			}
		}
	}()
	defer func() {
		close(out)
		writer.Wait()
	}()

	start, err := s.readStart(conn)
	if err != nil {
		out <- errorMessage(err)
		return
	}
	if started != nil {
		started()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stationID *uuid.UUID
	electionID := start.ElectionID
	if station != nil {
		stationID = &station.ID
		if electionID == nil {
			electionID = station.ElectionID
		}
	}

	stream := camera.NewStream()
	go s.pumpFrames(conn, stream, cancel)

	outcome, err := s.verifier.Verify(ctx, service.VerifyRequest{
		VoterIdentifier: start.VoterIdentifier,
		StationID:       stationID,
		ElectionID:      electionID,
		Camera:          stream,
		Schedule:        s.schedule,
		IPAddress:       ip,
		Observer: func(st verification.State) {
			out <- ServerMessage{Type: MessageState, State: st}
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Info("live session abandoned", slog.String("voter_id", start.VoterIdentifier))
			return
		}
		out <- errorMessage(err)
		return
	}

	out <- ServerMessage{Type: MessageOutcome, Outcome: outcome}
}

func (s *Session) readStart(conn Conn) (*StartMessage, error) {
	mt, data, err := conn.ReadMessage()
	if err != nil {
		return nil, domain.ErrBadRequest.WithError(err)
	}
	if mt != websocket.TextMessage {
		return nil, domain.ErrBadRequest.WithError(errors.New("first message must be the JSON start message"))
	}

	var start StartMessage
	if err := json.Unmarshal(data, &start); err != nil {
		return nil, domain.ErrBadRequest.WithError(err)
	}
	if err := s.validate.Struct(start); err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}
	return &start, nil
}

// pumpFrames feeds binary messages into the stream until the socket closes,
// which cancels the attempt
func (s *Session) pumpFrames(conn Conn, stream *camera.Stream, cancel context.CancelFunc) {
	defer cancel()
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		frame := camera.NewFrame(data, time.Now())
		if !frame.IsSupported() {
			s.logger.Debug("unsupported frame dropped", slog.String("content_type", frame.ContentType))
			continue
		}
		stream.Push(frame)
	}
}

func errorMessage(err error) ServerMessage {
	appErr := domain.ErrInternal
	var e *domain.AppError
	if errors.As(err, &e) {
		appErr = e
	}
	return ServerMessage{Type: MessageError, Error: &ErrorBody{Code: appErr.Code, Message: appErr.Message}}
}
