package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

const (
	// LocalStationID guarda o id da seção autenticada
	LocalStationID = "station_id"
	// LocalStation guarda a seção completa
	LocalStation = "station"
)

// StationRepository resolves the station behind an API key hash
type StationRepository interface {
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.Station, error)
}

// KeyUsage receives the hash of every authenticated key
type KeyUsage interface {
	Enqueue(keyHash string)
}

// Auth authenticates a polling-station terminal by its API key.
// usage may be nil.
func Auth(stations StationRepository, usage KeyUsage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractBearerToken(c)
		if apiKey == "" {
			return domain.ErrUnauthorized
		}

		// malformed keys never reach the database
		if !domain.IsValidFormat(apiKey) {
			return domain.ErrInvalidAPIKeyFormat
		}

		hash := domain.HashAPIKey(apiKey)

		station, err := stations.GetByAPIKeyHash(c.Context(), hash)
		if err != nil {
			// not found and db errors look the same to the caller
			return domain.ErrUnauthorized
		}

		if !station.IsActive {
			return domain.ErrStationInactive
		}

		if usage != nil {
			usage.Enqueue(hash)
		}

		c.Locals(LocalStationID, station.ID)
		c.Locals(LocalStation, station)

		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// GetStationID retrieves the station id set by Auth
func GetStationID(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := c.Locals(LocalStationID).(uuid.UUID)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return id, nil
}

// GetStation retrieves the station set by Auth
func GetStation(c *fiber.Ctx) (*domain.Station, error) {
	station, ok := c.Locals(LocalStation).(*domain.Station)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return station, nil
}
