package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

// VoterEnroller registers the reference embedding of a voter
type VoterEnroller interface {
	Enroll(ctx context.Context, identifier, name string, image []byte) (*domain.Voter, error)
}

type VoterHandler struct {
	enroller VoterEnroller
	logger   *slog.Logger
}

func NewVoterHandler(enroller VoterEnroller, logger *slog.Logger) *VoterHandler {
	return &VoterHandler{enroller: enroller, logger: logger}
}

// EnrollResponse response for voter enrollment
type EnrollResponse struct {
	VoterID    string `json:"voter_id"`
	Identifier string `json:"identifier"`
	Registered bool   `json:"registered"`
	HasVoted   bool   `json:"has_voted"`
	UpdatedAt  string `json:"updated_at"`
}

// Enroll POST /v1/voters - multipart voter_identifier, name, image
func (h *VoterHandler) Enroll(c *fiber.Ctx) error {
	identifier := strings.TrimSpace(c.FormValue("voter_identifier"))
	if identifier == "" {
		return domain.ErrValidationFailed.WithError(errors.New("voter_identifier is required"))
	}

	file, err := c.FormFile("image")
	if err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	frame, err := readFrame(file, time.Now())
	if err != nil {
		return err
	}

	voter, err := h.enroller.Enroll(c.UserContext(), identifier, strings.TrimSpace(c.FormValue("name")), frame.Data)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(EnrollResponse{
		VoterID:    voter.ID.String(),
		Identifier: voter.Identifier,
		Registered: voter.Registered,
		HasVoted:   voter.HasVoted,
		UpdatedAt:  voter.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	})
}
