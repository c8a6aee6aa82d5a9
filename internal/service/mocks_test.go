package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/saturnino-fabrica-de-software/voterid/internal/audit"
	"github.com/saturnino-fabrica-de-software/voterid/internal/camera"
	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
	"github.com/saturnino-fabrica-de-software/voterid/internal/provider"
	"github.com/saturnino-fabrica-de-software/voterid/internal/verification"
)

type MockVoterRepository struct {
	mock.Mock
}

func (m *MockVoterRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Voter, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Voter), args.Error(1)
}

func (m *MockVoterRepository) Upsert(ctx context.Context, v *domain.Voter) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Consume(ctx context.Context, token string, now time.Time) (*domain.VerificationRecord, error) {
	args := m.Called(ctx, token, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationRecord), args.Error(1)
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, a verification.Attempt) (*verification.Outcome, error) {
	args := m.Called(ctx, a)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Outcome), args.Error(1)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Check(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockLimiter) Reset(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) Detect(ctx context.Context, image []byte) (*provider.Detection, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Detection), args.Error(1)
}

// recordingAuditor keeps every event
type recordingAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAuditor) Log(_ context.Context, ev audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingAuditor) types() []audit.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.EventType
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	events map[uuid.UUID][]StationEvent
}

func (r *recordingNotifier) Publish(stationID uuid.UUID, ev StationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[uuid.UUID][]StationEvent)
	}
	r.events[stationID] = append(r.events[stationID], ev)
}

// trackedCamera records Close calls
type trackedCamera struct {
	camera.Source
	closed int
}

func newTrackedCamera() *trackedCamera {
	return &trackedCamera{Source: camera.NewReplay(nil, nil)}
}

func (c *trackedCamera) Close() error {
	c.closed++
	return c.Source.Close()
}
