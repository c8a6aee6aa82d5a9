package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/voterid/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/voterid/internal/camera"
	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
	"github.com/saturnino-fabrica-de-software/voterid/internal/liveness"
	"github.com/saturnino-fabrica-de-software/voterid/internal/service"
	"github.com/saturnino-fabrica-de-software/voterid/internal/verification"
)

var (
	jpegBytes = append([]byte{0xff, 0xd8, 0xff, 0xe0}, make([]byte, 256)...)
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 256)...)
)

// MockVerificationService is a mock implementation of VerificationService
type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) Verify(ctx context.Context, req service.VerifyRequest) (*verification.Outcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.Outcome), args.Error(1)
}

func (m *MockVerificationService) ConsumeToken(ctx context.Context, pass string, stationID *uuid.UUID) (*domain.VerificationRecord, error) {
	args := m.Called(ctx, pass, stationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationRecord), args.Error(1)
}

// MockVoterEnroller is a mock implementation of VoterEnroller
type MockVoterEnroller struct {
	mock.Mock
}

func (m *MockVoterEnroller) Enroll(ctx context.Context, identifier, name string, image []byte) (*domain.Voter, error) {
	args := m.Called(ctx, identifier, name, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Voter), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestApp wires the error handler and a fake authenticated station
func createTestApp(station *domain.Station) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalStationID, station.ID)
		c.Locals(middleware.LocalStation, station)
		return c.Next()
	})
	return app
}

type part struct {
	field string
	name  string
	data  []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...part) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func errorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&payload))
	return payload.Error.Code
}

func TestVerificationHandler_Verify(t *testing.T) {
	stationElection := uuid.New()
	station := &domain.Station{ID: uuid.New(), Name: "Secao 12", Code: "secao-12", ElectionID: &stationElection, IsActive: true}
	explicitElection := uuid.New()

	tests := []struct {
		name       string
		fields     map[string]string
		files      []part
		setupMock  func(*MockVerificationService)
		wantStatus int
		wantCode   string
		check      func(t *testing.T, body []byte)
	}{
		{
			name:   "success uses station election by default",
			fields: map[string]string{"voter_identifier": "0123456789"},
			files:  []part{{"frames", "1.jpg", jpegBytes}, {"frames", "2.png", pngBytes}},
			setupMock: func(m *MockVerificationService) {
				m.On("Verify", mock.Anything, mock.MatchedBy(func(req service.VerifyRequest) bool {
					replay, ok := req.Camera.(*camera.Replay)
					_, replaySchedule := req.Schedule.(liveness.Replay)
					return ok && replaySchedule &&
						replay.Remaining() == 2 &&
						req.VoterIdentifier == "0123456789" &&
						*req.StationID == station.ID &&
						*req.ElectionID == stationElection
				})).Return(&verification.Outcome{
					State:  verification.StateSuccess,
					Reason: "identity verified",
					Token:  "vt_secret",
					Pass:   "signed.pass",
				}, nil)
			},
			wantStatus: 200,
			check: func(t *testing.T, body []byte) {
				var out map[string]any
				require.NoError(t, json.Unmarshal(body, &out))
				assert.Equal(t, "success", out["state"])
				assert.Equal(t, "signed.pass", out["pass"])
				assert.NotContains(t, string(body), "vt_secret")
			},
		},
		{
			name:   "explicit election and capture frame",
			fields: map[string]string{"voter_identifier": "0123456789", "election_id": explicitElection.String()},
			files:  []part{{"frames", "1.jpg", jpegBytes}, {"capture", "c.png", pngBytes}},
			setupMock: func(m *MockVerificationService) {
				m.On("Verify", mock.Anything, mock.MatchedBy(func(req service.VerifyRequest) bool {
					f, err := req.Camera.Capture(context.Background())
					return err == nil && f.ContentType == "image/png" && *req.ElectionID == explicitElection
				})).Return(&verification.Outcome{State: verification.StateLivenessFailed, Reason: "liveness check failed"}, nil)
			},
			wantStatus: 200,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), `"state":"liveness-failed"`)
			},
		},
		{
			name:       "missing voter identifier",
			files:      []part{{"frames", "1.jpg", jpegBytes}},
			setupMock:  func(m *MockVerificationService) {},
			wantStatus: 422,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "bad election id",
			fields:     map[string]string{"voter_identifier": "0123456789", "election_id": "nope"},
			files:      []part{{"frames", "1.jpg", jpegBytes}},
			setupMock:  func(m *MockVerificationService) {},
			wantStatus: 422,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "no frames",
			fields:     map[string]string{"voter_identifier": "0123456789"},
			setupMock:  func(m *MockVerificationService) {},
			wantStatus: 422,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "frame is not an image",
			fields:     map[string]string{"voter_identifier": "0123456789"},
			files:      []part{{"frames", "1.jpg", []byte("plain text, not a frame")}},
			setupMock:  func(m *MockVerificationService) {},
			wantStatus: 422,
			wantCode:   "INVALID_IMAGE",
		},
		{
			name:   "lockout",
			fields: map[string]string{"voter_identifier": "0123456789"},
			files:  []part{{"frames", "1.jpg", jpegBytes}},
			setupMock: func(m *MockVerificationService) {
				m.On("Verify", mock.Anything, mock.Anything).Return(nil, domain.ErrAttemptsExceeded)
			},
			wantStatus: 429,
			wantCode:   "ATTEMPTS_EXCEEDED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockVerificationService{}
			tt.setupMock(svc)

			h := NewVerificationHandler(svc, validator.New(), testLogger())
			app := createTestApp(station)
			app.Post("/v1/verifications", h.Verify)

			body, contentType := multipartBody(t, tt.fields, tt.files...)
			req := httptest.NewRequest("POST", "/v1/verifications", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, resp.Body))
			}
			if tt.check != nil {
				respBody, _ := io.ReadAll(resp.Body)
				tt.check(t, respBody)
			}

			svc.AssertExpectations(t)
		})
	}
}

func TestVerificationHandler_ConsumeToken(t *testing.T) {
	station := &domain.Station{ID: uuid.New(), Name: "Secao 12", Code: "secao-12", IsActive: true}
	consumedAt := time.Date(2026, 10, 4, 9, 30, 0, 0, time.UTC)
	rec := &domain.VerificationRecord{ID: uuid.New(), VoterID: uuid.New(), ConsumedAt: &consumedAt}

	tests := []struct {
		name       string
		body       string
		setupMock  func(*MockVerificationService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "consumed",
			body: `{"pass":"signed.pass"}`,
			setupMock: func(m *MockVerificationService) {
				m.On("ConsumeToken", mock.Anything, "signed.pass", &station.ID).Return(rec, nil)
			},
			wantStatus: 200,
		},
		{
			name: "already used",
			body: `{"pass":"signed.pass"}`,
			setupMock: func(m *MockVerificationService) {
				m.On("ConsumeToken", mock.Anything, "signed.pass", &station.ID).Return(nil, domain.ErrTokenAlreadyUsed)
			},
			wantStatus: 409,
			wantCode:   "TOKEN_ALREADY_USED",
		},
		{
			name: "expired",
			body: `{"pass":"signed.pass"}`,
			setupMock: func(m *MockVerificationService) {
				m.On("ConsumeToken", mock.Anything, "signed.pass", &station.ID).Return(nil, domain.ErrTokenExpired)
			},
			wantStatus: 410,
			wantCode:   "TOKEN_EXPIRED",
		},
		{
			name:       "missing pass",
			body:       `{}`,
			setupMock:  func(m *MockVerificationService) {},
			wantStatus: 422,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "malformed body",
			body:       `{"pass":`,
			setupMock:  func(m *MockVerificationService) {},
			wantStatus: 400,
			wantCode:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockVerificationService{}
			tt.setupMock(svc)

			h := NewVerificationHandler(svc, validator.New(), testLogger())
			app := createTestApp(station)
			app.Post("/v1/tokens/consume", h.ConsumeToken)

			req := httptest.NewRequest("POST", "/v1/tokens/consume", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, resp.Body))
			} else {
				var out ConsumeResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
				assert.Equal(t, rec.ID.String(), out.RecordID)
				assert.Equal(t, rec.VoterID.String(), out.VoterID)
			}

			svc.AssertExpectations(t)
		})
	}
}

func TestCompareHandler_Compare(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
		wantMatch  bool
	}{
		{"same embedding", `{"a":[0.1,0.2,0.3],"b":[0.1,0.2,0.3]}`, 200, "", true},
		{"far apart", `{"a":[0,0,0],"b":[1,1,1]}`, 200, "", false},
		{"length mismatch", `{"a":[0.1,0.2],"b":[0.1,0.2,0.3]}`, 422, "EMBEDDING_LENGTH_MISMATCH", false},
		{"empty input", `{"a":[],"b":[0.1]}`, 422, "VALIDATION_FAILED", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCompareHandler(service.NewComparer(0.6), validator.New())
			app := createTestApp(&domain.Station{ID: uuid.New()})
			app.Post("/v1/embeddings/compare", h.Compare)

			req := httptest.NewRequest("POST", "/v1/embeddings/compare", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, resp.Body))
				return
			}

			var out service.CompareResult
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, tt.wantMatch, out.IsMatch)
			assert.Equal(t, 0.6, out.Threshold)
		})
	}
}

func TestVoterHandler_Enroll(t *testing.T) {
	voterID := uuid.New()

	tests := []struct {
		name       string
		fields     map[string]string
		files      []part
		setupMock  func(*MockVoterEnroller)
		wantStatus int
		wantCode   string
	}{
		{
			name:   "enrolled",
			fields: map[string]string{"voter_identifier": "0123456789", "name": "Maria"},
			files:  []part{{"image", "face.jpg", jpegBytes}},
			setupMock: func(m *MockVoterEnroller) {
				m.On("Enroll", mock.Anything, "0123456789", "Maria", jpegBytes).Return(&domain.Voter{
					ID: voterID, Identifier: "0123456789", Registered: true, UpdatedAt: time.Now(),
				}, nil)
			},
			wantStatus: 201,
		},
		{
			name:       "missing image",
			fields:     map[string]string{"voter_identifier": "0123456789"},
			setupMock:  func(m *MockVoterEnroller) {},
			wantStatus: 422,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:   "no face",
			fields: map[string]string{"voter_identifier": "0123456789"},
			files:  []part{{"image", "face.png", pngBytes}},
			setupMock: func(m *MockVoterEnroller) {
				m.On("Enroll", mock.Anything, "0123456789", "", pngBytes).Return(nil, domain.ErrNoFaceDetected)
			},
			wantStatus: 422,
			wantCode:   "NO_FACE_DETECTED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enroller := &MockVoterEnroller{}
			tt.setupMock(enroller)

			h := NewVoterHandler(enroller, testLogger())
			app := createTestApp(&domain.Station{ID: uuid.New()})
			app.Post("/v1/voters", h.Enroll)

			body, contentType := multipartBody(t, tt.fields, tt.files...)
			req := httptest.NewRequest("POST", "/v1/voters", body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, resp.Body))
			} else {
				var out EnrollResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
				assert.Equal(t, voterID.String(), out.VoterID)
				assert.True(t, out.Registered)
			}

			enroller.AssertExpectations(t)
		})
	}
}
