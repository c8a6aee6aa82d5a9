package domain

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var codeRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Station representa uma seção eleitoral com terminal de verificação
type Station struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Code       string     `json:"code"`
	ElectionID *uuid.UUID `json:"election_id,omitempty"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Validate verifica se a seção é válida
func (s *Station) Validate() error {
	if s.Name == "" {
		return errors.New("station name cannot be empty")
	}

	if s.Code == "" {
		return errors.New("station code cannot be empty")
	}

	if !codeRegex.MatchString(s.Code) {
		return errors.New("station code must contain only lowercase letters, numbers and hyphens")
	}

	return nil
}
