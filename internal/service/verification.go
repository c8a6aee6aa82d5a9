package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/voterid/internal/audit"
	"github.com/saturnino-fabrica-de-software/voterid/internal/camera"
	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
	"github.com/saturnino-fabrica-de-software/voterid/internal/liveness"
	"github.com/saturnino-fabrica-de-software/voterid/internal/ratelimit"
	"github.com/saturnino-fabrica-de-software/voterid/internal/verification"
)

// VerifyRequest starts one attempt. The service owns Camera from here on
// and releases it on every path.
type VerifyRequest struct {
	VoterIdentifier string
	StationID       *uuid.UUID
	ElectionID      *uuid.UUID
	Camera          camera.Source
	Schedule        liveness.Schedule
	Observer        func(verification.State)
	IPAddress       string
}

type VerificationService struct {
	voters   VoterRepositoryInterface
	tokens   TokenStoreInterface
	passes   PassParser
	runner   Runner
	limiter  AttemptLimiter
	auditor  audit.Logger
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewVerificationService(
	voters VoterRepositoryInterface,
	tokens TokenStoreInterface,
	passes PassParser,
	runner Runner,
	limiter AttemptLimiter,
	auditor audit.Logger,
	logger *slog.Logger,
) *VerificationService {
	if auditor == nil {
		auditor = &audit.NoOpLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VerificationService{
		voters:  voters,
		tokens:  tokens,
		passes:  passes,
		runner:  runner,
		limiter: limiter,
		auditor: auditor,
		logger:  logger.With("component", "verification_service"),
		now:     time.Now,
	}
}

func (s *VerificationService) WithNotifier(n Notifier) *VerificationService {
	s.notifier = n
	return s
}

func (s *VerificationService) WithClock(now func() time.Time) *VerificationService {
	s.now = now
	return s
}

// Verify resolves the voter, enforces the identity gate and the attempt
// limit, then runs the orchestrator. Liveness and match failures come back
// as an Outcome with a nil error.
func (s *VerificationService) Verify(ctx context.Context, req VerifyRequest) (*verification.Outcome, error) {
	handedOver := false
	defer func() {
		if !handedOver {
			_ = req.Camera.Close()
		}
	}()

	voter, err := s.voters.GetByIdentifier(ctx, req.VoterIdentifier)
	if err != nil {
		return nil, err
	}

	if err := voter.CanVerify(); err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Check(ctx, ratelimit.VoterKey(req.VoterIdentifier)); err != nil {
			if errors.Is(err, domain.ErrAttemptsExceeded) {
				s.audit(ctx, req, audit.Event{EventType: audit.EventAttemptsExceeded, Reason: err.Error()})
				return nil, err
			}
			return nil, fmt.Errorf("attempt limiter: %w", err)
		}
	}

	handedOver = true
	outcome, err := s.runner.Run(ctx, verification.Attempt{
		VoterID:    voter.ID,
		StationID:  req.StationID,
		ElectionID: req.ElectionID,
		Enrolled:   voter.Embedding,
		Camera:     req.Camera,
		Schedule:   req.Schedule,
		Observer:   req.Observer,
	})
	if err != nil {
		// detached: the request context may be the reason we are here
		s.audit(context.WithoutCancel(ctx), req, audit.Event{EventType: audit.EventVerificationAborted, Reason: err.Error()})
		s.notify(req, StationEvent{Type: StationEventAborted, Reason: abortReason(err)})
		return nil, err
	}

	s.audit(ctx, req, outcomeEvent(outcome))
	s.notify(req, StationEvent{Type: StationEventOutcome, State: outcome.State, Reason: outcome.Reason})

	if outcome.State == verification.StateSuccess && s.limiter != nil {
		if err := s.limiter.Reset(ctx, ratelimit.VoterKey(req.VoterIdentifier)); err != nil {
			s.logger.Warn("reset attempt counter", slog.Any("error", err))
		}
	}

	return outcome, nil
}

func outcomeEvent(o *verification.Outcome) audit.Event {
	ev := audit.Event{Reason: o.Reason}
	switch o.State {
	case verification.StateSuccess:
		ev.EventType = audit.EventVerificationSucceeded
	case verification.StateLivenessFailed:
		ev.EventType = audit.EventLivenessFailed
	default:
		ev.EventType = audit.EventVerificationFailed
	}
	if o.Liveness != nil {
		ev.Samples = o.Liveness.SampleCount
		avg := o.Liveness.AvgMovement
		ev.AvgMovement = &avg
	}
	if o.Match != nil {
		d := o.Match.Distance
		ev.Distance = &d
	}
	return ev
}

// abortReason hides internal error detail from station screens
func abortReason(err error) string {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if errors.Is(err, context.Canceled) {
		return "attempt cancelled"
	}
	return domain.ErrInternal.Message
}

func (s *VerificationService) audit(ctx context.Context, req VerifyRequest, ev audit.Event) {
	ev.VoterID = req.VoterIdentifier
	ev.StationID = req.StationID
	ev.ElectionID = req.ElectionID
	ev.IPAddress = req.IPAddress
	if err := s.auditor.Log(ctx, ev); err != nil {
		s.logger.Error("audit log failed", slog.Any("error", err))
	}
}

func (s *VerificationService) notify(req VerifyRequest, ev StationEvent) {
	if s.notifier == nil || req.StationID == nil {
		return
	}
	ev.VoterIdentifier = req.VoterIdentifier
	ev.At = s.now().UTC()
	s.notifier.Publish(*req.StationID, ev)
}

// ConsumeToken redeems a ballot pass exactly once and flags the voter as having voted
func (s *VerificationService) ConsumeToken(ctx context.Context, pass string, stationID *uuid.UUID) (*domain.VerificationRecord, error) {
	claims, err := s.passes.Parse(pass)
	if err != nil {
		s.auditToken(ctx, audit.EventTokenRejected, "", stationID, err)
		return nil, err
	}

	rec, err := s.tokens.Consume(ctx, claims.Token(), s.now())
	if err != nil {
		s.auditToken(ctx, audit.EventTokenRejected, claims.VoterID.String(), stationID, err)
		return nil, err
	}

	s.auditToken(ctx, audit.EventTokenConsumed, rec.VoterID.String(), stationID, nil)
	if s.notifier != nil && stationID != nil {
		s.notifier.Publish(*stationID, StationEvent{
			Type:            StationEventConsumed,
			VoterIdentifier: rec.VoterID.String(),
			At:              s.now().UTC(),
		})
	}

	return rec, nil
}

func (s *VerificationService) auditToken(ctx context.Context, t audit.EventType, voterID string, stationID *uuid.UUID, err error) {
	ev := audit.Event{EventType: t, VoterID: voterID, StationID: stationID}
	if err != nil {
		ev.Reason = err.Error()
	}
	if logErr := s.auditor.Log(ctx, ev); logErr != nil {
		s.logger.Error("audit log failed", slog.Any("error", logErr))
	}
}
