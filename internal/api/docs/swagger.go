package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
)

// LivenessData is the liveness part of a verification outcome
type LivenessData struct {
	Status      string  `json:"status" example:"PASS"`
	Passed      bool    `json:"passed" example:"true"`
	AvgMovement float64 `json:"avg_movement" example:"3.2"`
	SampleCount int     `json:"sample_count" example:"12"`
	Reason      string  `json:"reason,omitempty" example:"natural movement detected"`
}

// MatchData is the match part of a verification outcome
type MatchData struct {
	Distance  float64 `json:"distance" example:"0.31"`
	IsMatch   bool    `json:"is_match" example:"true"`
	Threshold float64 `json:"threshold" example:"0.45"`
}

// VerificationOutcomeResponse is the terminal result of an attempt.
// Liveness and match failures also return 200 with state liveness-failed or failed.
type VerificationOutcomeResponse struct {
	State      string       `json:"state" example:"success"`
	Reason     string       `json:"reason" example:"identity verified (69% similarity)"`
	Liveness   LivenessData `json:"liveness"`
	Match      MatchData    `json:"match"`
	Similarity float64      `json:"similarity" example:"69"`
	Pass       string       `json:"pass,omitempty" example:"eyJhbGciOiJIUzI1NiIs..."`
	ExpiresAt  string       `json:"expires_at,omitempty" example:"2026-10-04T09:40:00Z"`
	RecordID   string       `json:"record_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// ConsumeTokenRequest is the body of POST /tokens/consume
type ConsumeTokenRequest struct {
	Pass string `json:"pass" example:"eyJhbGciOiJIUzI1NiIs..."`
}

// ConsumeTokenResponse confirms a redeemed pass
type ConsumeTokenResponse struct {
	RecordID   string `json:"record_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	VoterID    string `json:"voter_id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	ElectionID string `json:"election_id,omitempty" example:"1b4e28ba-2fa1-11d2-883f-0016d3cca427"`
	ConsumedAt string `json:"consumed_at" example:"2026-10-04T09:31:12Z"`
}

// CompareRequest is the body of POST /embeddings/compare
type CompareRequest struct {
	A []float64 `json:"a"`
	B []float64 `json:"b"`
}

// CompareResponse is the two-embedding comparison
type CompareResponse struct {
	Distance   float64 `json:"distance" example:"0.52"`
	IsMatch    bool    `json:"is_match" example:"true"`
	Similarity float64 `json:"similarity" example:"48"`
	Threshold  float64 `json:"threshold" example:"0.6"`
}

// EnrollVoterResponse is returned after enrollment
type EnrollVoterResponse struct {
	VoterID    string `json:"voter_id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	Identifier string `json:"identifier" example:"0123456789"`
	Registered bool   `json:"registered" example:"true"`
	HasVoted   bool   `json:"has_voted" example:"false"`
	UpdatedAt  string `json:"updated_at" example:"2026-10-01T12:00:00Z"`
}

// HealthResponse is returned by the probes
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version,omitempty" example:"0.1.0"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

func errorResponses(extra ...response.Response) []response.Response {
	base := []response.Response{
		response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized"),
		response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
		response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded"}, "429", "Too Many Requests"),
	}
	base = append(base, extra...)
	return append(base, response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error"))
}

var apiKeyAuth = []map[string][]string{{"ApiKeyAuth": {}}}

// NewSwagger describes the station terminal API
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "VoterID API",
		Version:     "v1.0.0",
		Description: "Identity verification for polling stations: liveness, face match against the voter registry and single-use ballot passes",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/verifications - burst upload
		endpoint.New(
			endpoint.POST,
			"/verifications",
			endpoint.WithTags("Verifications"),
			endpoint.WithSummary("Verify a voter from an uploaded frame burst"),
			endpoint.WithDescription("Multipart fields: voter_identifier (required), election_id (default: station election), frames (repeated, capture order, JPEG/PNG/WebP) and capture (optional decisive frame, default: last frame). The frames are replayed through the liveness window before the capture is matched against the enrolled embedding."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(VerificationOutcomeResponse{}, "200", "Attempt finished"),
			}),
			endpoint.WithErrors(errorResponses(
				response.New(ErrorResponse{Code: "VOTER_NOT_FOUND", Message: "Voter not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "VOTER_ALREADY_VOTED", Message: "Voter has already voted"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "ATTEMPTS_EXCEEDED", Message: "Too many verification attempts"}, "429", "Too Many Requests"),
				response.New(ErrorResponse{Code: "DESCRIPTOR_SOURCE_FAILED", Message: "Face descriptor source failed"}, "502", "Bad Gateway"),
			)),
			endpoint.WithSecurity(apiKeyAuth),
		),

		// GET /v1/verifications/live - websocket
		endpoint.New(
			endpoint.GET,
			"/verifications/live",
			endpoint.WithTags("Verifications"),
			endpoint.WithSummary("Live verification over websocket"),
			endpoint.WithDescription("Send a JSON start message {voter_identifier, election_id}, then binary frames. The server emits {type: state} on every transition and a final {type: outcome} or {type: error}. Closing the socket cancels the attempt."),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(VerificationOutcomeResponse{}, "101", "Switching Protocols"),
			}),
			endpoint.WithErrors(errorResponses(
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "Upgrade Required"}, "426", "Upgrade Required"),
			)),
			endpoint.WithSecurity(apiKeyAuth),
		),

		// GET /v1/stations/events - websocket
		endpoint.New(
			endpoint.GET,
			"/stations/events",
			endpoint.WithTags("Stations"),
			endpoint.WithSummary("Station event feed"),
			endpoint.WithDescription("Websocket feed of verification outcomes and token consumption for the authenticated station."),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "101", "Switching Protocols"),
			}),
			endpoint.WithSecurity(apiKeyAuth),
		),

		// POST /v1/tokens/consume
		endpoint.New(
			endpoint.POST,
			"/tokens/consume",
			endpoint.WithTags("Tokens"),
			endpoint.WithSummary("Redeem a ballot pass"),
			endpoint.WithDescription("Validates the pass signature and expiry and consumes the session token exactly once."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(ConsumeTokenRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ConsumeTokenResponse{}, "200", "Token consumed"),
			}),
			endpoint.WithErrors(errorResponses(
				response.New(ErrorResponse{Code: "TOKEN_NOT_FOUND", Message: "Session token not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "TOKEN_ALREADY_USED", Message: "Session token already used"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "TOKEN_EXPIRED", Message: "Session token expired"}, "410", "Gone"),
			)),
			endpoint.WithSecurity(apiKeyAuth),
		),

		// POST /v1/embeddings/compare
		endpoint.New(
			endpoint.POST,
			"/embeddings/compare",
			endpoint.WithTags("Embeddings"),
			endpoint.WithSummary("Compare two embeddings"),
			endpoint.WithDescription("Euclidean distance between two embeddings with the compare threshold."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody(CompareRequest{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CompareResponse{}, "200", "Comparison result"),
			}),
			endpoint.WithErrors(errorResponses(
				response.New(ErrorResponse{Code: "EMBEDDING_LENGTH_MISMATCH", Message: "Embeddings have different lengths"}, "422", "Unprocessable Entity"),
			)),
			endpoint.WithSecurity(apiKeyAuth),
		),

		// POST /v1/voters
		endpoint.New(
			endpoint.POST,
			"/voters",
			endpoint.WithTags("Voters"),
			endpoint.WithSummary("Enroll a voter reference face"),
			endpoint.WithDescription("Multipart fields: voter_identifier (required), name and image (required). Extracts the reference embedding from image and stores it for voter_identifier."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EnrollVoterResponse{}, "201", "Voter enrolled"),
			}),
			endpoint.WithErrors(errorResponses(
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "MULTIPLE_FACES", Message: "Multiple faces detected"}, "422", "Unprocessable Entity"),
			)),
			endpoint.WithSecurity(apiKeyAuth),
		),

		// GET /health
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness probe"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Service is up"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
