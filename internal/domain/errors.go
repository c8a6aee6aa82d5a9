package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError with the same code, so errors.Is works on WithError copies
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Invalid or missing API key",
		StatusCode: 401,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Access denied",
		StatusCode: 403,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrMultipleFaces = &AppError{
		Code:       "MULTIPLE_FACES",
		Message:    "More than one face in the enrollment image",
		StatusCode: 422,
	}

	ErrStationNotFound = &AppError{
		Code:       "STATION_NOT_FOUND",
		Message:    "Polling station not found",
		StatusCode: 404,
	}

	ErrStationInactive = &AppError{
		Code:       "STATION_INACTIVE",
		Message:    "Polling station is inactive",
		StatusCode: 403,
	}

	ErrAPIKeyNotFound = &AppError{
		Code:       "API_KEY_NOT_FOUND",
		Message:    "API key not found",
		StatusCode: 404,
	}

	ErrAPIKeyExists = &AppError{
		Code:       "API_KEY_ALREADY_EXISTS",
		Message:    "API key with this hash already exists",
		StatusCode: 409,
	}

	ErrInvalidAPIKeyFormat = &AppError{
		Code:       "INVALID_API_KEY_FORMAT",
		Message:    "Invalid API key format",
		StatusCode: 401,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Voter errors
	ErrVoterNotFound = &AppError{
		Code:       "VOTER_NOT_FOUND",
		Message:    "Voter not found",
		StatusCode: 404,
	}

	ErrVoterNotRegistered = &AppError{
		Code:       "VOTER_NOT_REGISTERED",
		Message:    "Voter is not registered for this election",
		StatusCode: 403,
	}

	ErrVoterNotEnrolled = &AppError{
		Code:       "VOTER_NOT_ENROLLED",
		Message:    "Voter has no enrolled face",
		StatusCode: 409,
	}

	ErrVoterAlreadyVoted = &AppError{
		Code:       "VOTER_ALREADY_VOTED",
		Message:    "Voter has already voted",
		StatusCode: 409,
	}

	ErrAttemptsExceeded = &AppError{
		Code:       "ATTEMPTS_EXCEEDED",
		Message:    "Too many verification attempts, try again later",
		StatusCode: 429,
	}

	// Token errors
	ErrTokenNotFound = &AppError{
		Code:       "TOKEN_NOT_FOUND",
		Message:    "Verification token not found",
		StatusCode: 404,
	}

	ErrTokenAlreadyUsed = &AppError{
		Code:       "TOKEN_ALREADY_USED",
		Message:    "Verification token has already been used",
		StatusCode: 409,
	}

	ErrTokenExpired = &AppError{
		Code:       "TOKEN_EXPIRED",
		Message:    "Verification token has expired",
		StatusCode: 410,
	}

	ErrInvalidToken = &AppError{
		Code:       "INVALID_TOKEN",
		Message:    "Invalid ballot pass",
		StatusCode: 401,
	}

	// Biometric errors
	ErrEmbeddingLengthMismatch = &AppError{
		Code:       "EMBEDDING_LENGTH_MISMATCH",
		Message:    "Embeddings must have the same length",
		StatusCode: 422,
	}

	ErrDescriptorSourceFailed = &AppError{
		Code:       "DESCRIPTOR_SOURCE_FAILED",
		Message:    "Face recognition service failed",
		StatusCode: 502,
	}

	ErrCameraUnavailable = &AppError{
		Code:       "CAMERA_UNAVAILABLE",
		Message:    "Camera stream is unavailable",
		StatusCode: 503,
	}
)
