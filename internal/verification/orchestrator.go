package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/voterid/internal/biometric"
	"github.com/saturnino-fabrica-de-software/voterid/internal/camera"
	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
	"github.com/saturnino-fabrica-de-software/voterid/internal/liveness"
	"github.com/saturnino-fabrica-de-software/voterid/internal/provider"
	"github.com/saturnino-fabrica-de-software/voterid/internal/token"
)

// TokenMinter issues the session token for a verified voter
type TokenMinter interface {
	Mint(voterID uuid.UUID, electionID *uuid.UUID) (*token.Pass, error)
}

// Recorder persists the verification record; it is the only write the core performs
type Recorder interface {
	Create(ctx context.Context, rec *domain.VerificationRecord) error
}

// Attempt is the input of one verification run. The orchestrator takes
// ownership of Camera and closes it before Run returns.
type Attempt struct {
	VoterID    uuid.UUID
	StationID  *uuid.UUID
	ElectionID *uuid.UUID
	Enrolled   biometric.Embedding
	Camera     camera.Source
	// Schedule drives the liveness window; nil means wall-clock ticks
	Schedule liveness.Schedule
	// Observer is called on every state change, in order, from the Run goroutine
	Observer func(State)
}

// Outcome is the terminal result surfaced to the caller
type Outcome struct {
	State      State                  `json:"state"`
	Reason     string                 `json:"reason"`
	Liveness   *liveness.Result       `json:"liveness,omitempty"`
	Match      *biometric.MatchResult `json:"match,omitempty"`
	Similarity *float64               `json:"similarity,omitempty"`
	Token      string                 `json:"-"`
	Pass       string                 `json:"pass,omitempty"`
	ExpiresAt  *time.Time             `json:"expires_at,omitempty"`
	RecordID   *uuid.UUID             `json:"record_id,omitempty"`
}

// Orchestrator sequences liveness -> capture -> match -> token issuance.
// It holds no per-attempt state, so one instance serves concurrent attempts
// on different cameras.
type Orchestrator struct {
	cfg         Config
	landmarks   provider.FaceDetector
	descriptors provider.FaceDetector
	matcher     biometric.Matcher
	minter      TokenMinter
	recorder    Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithMatcher replaces the Euclidean matcher
func WithMatcher(m biometric.Matcher) Option {
	return func(o *Orchestrator) {
		o.matcher = m
	}
}

// WithClock overrides the time source used for records
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator wires the collaborators. landmarks feeds liveness sampling and
// descriptors extracts the capture embedding; they may be the same detector.
func NewOrchestrator(
	cfg Config,
	landmarks, descriptors provider.FaceDetector,
	minter TokenMinter,
	recorder Recorder,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		cfg:         cfg,
		landmarks:   landmarks,
		descriptors: descriptors,
		matcher:     biometric.EuclideanMatcher{},
		minter:      minter,
		recorder:    recorder,
		logger:      logger.With("component", "orchestrator"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the orchestrator tuning
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// run tracks the current state of one attempt
type run struct {
	state    State
	observer func(State)
}

func (r *run) to(s State) {
	if r.state != "" && !CanTransition(r.state, s) {
		panic(fmt.Sprintf("verification: illegal transition %s -> %s", r.state, s))
	}
	r.state = s
	if r.observer != nil {
		r.observer(s)
	}
}

// Run executes one attempt to a terminal state.
// Liveness and match failures are outcomes, not errors. An error means the
// attempt was aborted (cancellation, lost camera, descriptor source failure,
// persistence failure) and no token was issued.
func (o *Orchestrator) Run(ctx context.Context, a Attempt) (*Outcome, error) {
	defer func() {
		if err := a.Camera.Close(); err != nil {
			o.logger.Warn("camera close failed", slog.Any("error", err))
		}
	}()

	logger := o.logger.With(slog.String("voter_id", a.VoterID.String()))
	r := &run{observer: a.Observer}
	r.to(StateIdle)

	r.to(StateLivenessCheck)
	live, err := o.checkLiveness(ctx, a)
	if err != nil {
		return nil, err
	}
	if !live.Passed {
		r.to(StateLivenessFailed)
		logger.Info("liveness failed",
			slog.String("status", string(live.Status)),
			slog.Int("samples", live.SampleCount),
			slog.Float64("avg_movement", live.AvgMovement))
		return &Outcome{State: StateLivenessFailed, Reason: live.Reason, Liveness: live}, nil
	}

	r.to(StateCapturing)
	embedding, err := o.capture(ctx, a.Camera)
	if err != nil {
		return nil, err
	}
	if embedding == nil {
		r.to(StateFailed)
		logger.Info("capture failed", slog.String("reason", ReasonNoFaceInCapture))
		return &Outcome{State: StateFailed, Reason: ReasonNoFaceInCapture, Liveness: live}, nil
	}

	r.to(StateMatching)
	match, err := o.matcher.Match(embedding, a.Enrolled, o.cfg.MatchThreshold)
	if err != nil {
		if errors.Is(err, biometric.ErrLengthMismatch) {
			return nil, domain.ErrEmbeddingLengthMismatch.WithError(err)
		}
		return nil, fmt.Errorf("match: %w", err)
	}

	similarity := biometric.SimilarityPercent(match.Distance)
	if !match.IsMatch {
		r.to(StateFailed)
		reason := fmt.Sprintf("face does not match enrolled voter (similarity %s, threshold %s)",
			biometric.FormatPercent(similarity), strconv.FormatFloat(o.cfg.MatchThreshold, 'f', -1, 64))
		logger.Info("match failed", slog.Float64("distance", match.Distance))
		return &Outcome{State: StateFailed, Reason: reason, Liveness: live, Match: &match, Similarity: &similarity}, nil
	}

	pass, rec, err := o.issue(ctx, a, match)
	if err != nil {
		return nil, err
	}

	r.to(StateSuccess)
	logger.Info("voter verified", slog.Float64("distance", match.Distance), slog.String("record_id", rec.ID.String()))

	return &Outcome{
		State:      StateSuccess,
		Reason:     "identity verified",
		Liveness:   live,
		Match:      &match,
		Similarity: &similarity,
		Token:      pass.Token,
		Pass:       pass.Pass,
		ExpiresAt:  &pass.ExpiresAt,
		RecordID:   &rec.ID,
	}, nil
}

func (o *Orchestrator) checkLiveness(ctx context.Context, a Attempt) (*liveness.Result, error) {
	sched := a.Schedule
	if sched == nil {
		sched = liveness.Realtime{}
	}

	sampler := liveness.NewSampler(o.cfg.Liveness, o.probe(a.Camera), o.logger)
	samples, err := sampler.Run(ctx, sched)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, liveness.ErrSourceLost) {
			return nil, domain.ErrCameraUnavailable.WithError(err)
		}
		return nil, fmt.Errorf("liveness: %w", err)
	}

	skipped, failed := sampler.Stats()
	o.logger.Debug("liveness window closed",
		slog.Int("samples", len(samples)),
		slog.Int("no_face", skipped),
		slog.Int("errors", failed))

	result := liveness.Evaluate(samples, o.cfg.Liveness)
	return &result, nil
}

// probe adapts the camera and landmark detector to the sampler
func (o *Orchestrator) probe(cam camera.Source) liveness.Probe {
	landmark := o.cfg.Liveness.Landmark
	return func(ctx context.Context) (liveness.Point, bool, error) {
		frame, err := cam.Frame(ctx)
		if err != nil {
			if errors.Is(err, camera.ErrNoFrame) {
				return liveness.Point{}, false, nil
			}
			if errors.Is(err, camera.ErrClosed) {
				return liveness.Point{}, false, fmt.Errorf("%w: %v", liveness.ErrSourceLost, err)
			}
			return liveness.Point{}, false, err
		}

		det, err := o.landmarks.Detect(ctx, frame.Data)
		if err != nil || det == nil {
			return liveness.Point{}, false, err
		}

		p, ok := det.Landmark(landmark)
		if !ok {
			return liveness.Point{}, false, nil
		}
		return liveness.Point{X: p.X, Y: p.Y}, true, nil
	}
}

// capture grabs the decisive frame and extracts its embedding.
// A nil embedding with a nil error means no face was present.
func (o *Orchestrator) capture(ctx context.Context, cam camera.Source) (biometric.Embedding, error) {
	frame, err := cam.Capture(ctx)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, camera.ErrNoFrame):
			return nil, nil
		default:
			return nil, domain.ErrCameraUnavailable.WithError(err)
		}
	}

	det, err := o.descriptors.Detect(ctx, frame.Data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, domain.ErrDescriptorSourceFailed.WithError(err)
	}
	if det == nil {
		return nil, nil
	}
	if !det.HasEmbedding() {
		return nil, domain.ErrDescriptorSourceFailed.WithError(errors.New("detector returned a face without embedding"))
	}

	return biometric.Embedding(det.Embedding), nil
}

// issue mints the token and persists the record; the pass is only returned once stored
func (o *Orchestrator) issue(ctx context.Context, a Attempt, match biometric.MatchResult) (*token.Pass, *domain.VerificationRecord, error) {
	pass, err := o.minter.Mint(a.VoterID, a.ElectionID)
	if err != nil {
		return nil, nil, fmt.Errorf("mint token: %w", err)
	}

	rec := &domain.VerificationRecord{
		ID:         uuid.New(),
		VoterID:    a.VoterID,
		StationID:  a.StationID,
		ElectionID: a.ElectionID,
		Token:      pass.Token,
		Status:     domain.VerificationStatusSuccess,
		Distance:   match.Distance,
		CreatedAt:  o.now(),
		ExpiresAt:  pass.ExpiresAt,
	}

	if err := o.recorder.Create(ctx, rec); err != nil {
		return nil, nil, fmt.Errorf("persist verification: %w", err)
	}

	return pass, rec, nil
}
