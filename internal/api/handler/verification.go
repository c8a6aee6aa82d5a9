package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/voterid/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/voterid/internal/camera"
	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
	"github.com/saturnino-fabrica-de-software/voterid/internal/liveness"
	"github.com/saturnino-fabrica-de-software/voterid/internal/service"
	"github.com/saturnino-fabrica-de-software/voterid/internal/verification"
)

// VerificationService is what the verification routes need from the service layer
type VerificationService interface {
	Verify(ctx context.Context, req service.VerifyRequest) (*verification.Outcome, error)
	ConsumeToken(ctx context.Context, pass string, stationID *uuid.UUID) (*domain.VerificationRecord, error)
}

type VerificationHandler struct {
	service  VerificationService
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewVerificationHandler(svc VerificationService, validate *validator.Validate, logger *slog.Logger) *VerificationHandler {
	return &VerificationHandler{
		service:  svc,
		validate: validate,
		logger:   logger,
		now:      time.Now,
	}
}

// ConsumeRequest body for POST /v1/tokens/consume
type ConsumeRequest struct {
	Pass string `json:"pass" validate:"required"`
}

// ConsumeResponse response for token consumption
type ConsumeResponse struct {
	RecordID   string     `json:"record_id"`
	VoterID    string     `json:"voter_id"`
	ElectionID *uuid.UUID `json:"election_id,omitempty"`
	ConsumedAt *time.Time `json:"consumed_at"`
}

// Verify POST /v1/verifications - replays an uploaded burst through the attempt
func (h *VerificationHandler) Verify(c *fiber.Ctx) error {
	// 1. Station from auth
	station, err := middleware.GetStation(c)
	if err != nil {
		return err
	}

	// 2. Identity and election
	identifier := strings.TrimSpace(c.FormValue("voter_identifier"))
	if identifier == "" {
		return domain.ErrValidationFailed.WithError(errors.New("voter_identifier is required"))
	}

	electionID := station.ElectionID
	if raw := strings.TrimSpace(c.FormValue("election_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return domain.ErrValidationFailed.WithError(errors.New("election_id must be a UUID"))
		}
		electionID = &id
	}

	// 3. Frames in capture order
	form, err := c.MultipartForm()
	if err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	files := form.File["frames"]
	if len(files) == 0 {
		return domain.ErrValidationFailed.WithError(errors.New("at least one frame is required"))
	}
	if len(files) > maxBurstFrames {
		return domain.ErrValidationFailed.WithError(errors.New("too many frames"))
	}

	start := h.now()
	frames := make([]camera.Frame, 0, len(files))
	for i, file := range files {
		frame, err := readFrame(file, start.Add(time.Duration(i)*time.Millisecond))
		if err != nil {
			return err
		}
		frames = append(frames, frame)
	}

	var capture *camera.Frame
	if captures := form.File["capture"]; len(captures) > 0 {
		frame, err := readFrame(captures[0], h.now())
		if err != nil {
			return err
		}
		capture = &frame
	}

	// 4. Run the attempt on a synthetic schedule
	stationID := station.ID
	outcome, err := h.service.Verify(c.UserContext(), service.VerifyRequest{
		VoterIdentifier: identifier,
		StationID:       &stationID,
		ElectionID:      electionID,
		Camera:          camera.NewReplay(frames, capture),
		Schedule:        liveness.Replay{Start: start},
		IPAddress:       c.IP(),
	})
	if err != nil {
		return err
	}

	return c.JSON(outcome)
}

// ConsumeToken POST /v1/tokens/consume - redeems a ballot pass once
func (h *VerificationHandler) ConsumeToken(c *fiber.Ctx) error {
	stationID, err := middleware.GetStationID(c)
	if err != nil {
		return err
	}

	var req ConsumeRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if err := h.validate.Struct(req); err != nil {
		return err
	}

	rec, err := h.service.ConsumeToken(c.UserContext(), req.Pass, &stationID)
	if err != nil {
		return err
	}

	return c.JSON(ConsumeResponse{
		RecordID:   rec.ID.String(),
		VoterID:    rec.VoterID.String(),
		ElectionID: rec.ElectionID,
		ConsumedAt: rec.ConsumedAt,
	})
}
