package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/voterid/internal/audit"
	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
	"github.com/saturnino-fabrica-de-software/voterid/internal/provider"
)

// VoterService enrolls reference embeddings into the identity store
type VoterService struct {
	voters   VoterRepositoryInterface
	detector provider.FaceDetector
	auditor  audit.Logger
	logger   *slog.Logger
}

func NewVoterService(voters VoterRepositoryInterface, detector provider.FaceDetector, auditor audit.Logger, logger *slog.Logger) *VoterService {
	if auditor == nil {
		auditor = &audit.NoOpLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VoterService{
		voters:   voters,
		detector: detector,
		auditor:  auditor,
		logger:   logger.With("component", "voter_service"),
	}
}

// Enroll extracts the embedding of the single face in image and stores it.
// Re-enrolling an identifier replaces its embedding.
func (s *VoterService) Enroll(ctx context.Context, identifier, name string, image []byte) (*domain.Voter, error) {
	det, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("voter %s: detect face: %w", identifier, err)
	}
	if det == nil {
		return nil, domain.ErrNoFaceDetected
	}
	if det.FaceCount > 1 {
		return nil, domain.ErrMultipleFaces
	}
	if !det.HasEmbedding() {
		return nil, domain.ErrDescriptorSourceFailed.WithError(fmt.Errorf("detector returned no embedding"))
	}

	voter := &domain.Voter{
		Identifier: identifier,
		Name:       name,
		Embedding:  det.Embedding,
		Registered: true,
	}
	if err := s.voters.Upsert(ctx, voter); err != nil {
		return nil, err
	}

	if err := s.auditor.Log(ctx, audit.Event{EventType: audit.EventVoterEnrolled, VoterID: identifier}); err != nil {
		s.logger.Error("audit log failed", slog.Any("error", err))
	}
	s.logger.Info("voter enrolled", slog.String("voter_id", voter.ID.String()), slog.Int("dimension", len(det.Embedding)))

	return voter, nil
}
