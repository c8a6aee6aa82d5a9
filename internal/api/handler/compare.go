package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
	"github.com/saturnino-fabrica-de-software/voterid/internal/service"
)

// EmbeddingComparer compares two embeddings with the compare threshold
type EmbeddingComparer interface {
	Compare(a, b []float64) (*service.CompareResult, error)
}

type CompareHandler struct {
	comparer EmbeddingComparer
	validate *validator.Validate
}

func NewCompareHandler(comparer EmbeddingComparer, validate *validator.Validate) *CompareHandler {
	return &CompareHandler{comparer: comparer, validate: validate}
}

// CompareRequest body for POST /v1/embeddings/compare
type CompareRequest struct {
	A []float64 `json:"a" validate:"required,min=1"`
	B []float64 `json:"b" validate:"required,min=1"`
}

// Compare POST /v1/embeddings/compare
func (h *CompareHandler) Compare(c *fiber.Ctx) error {
	var req CompareRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if err := h.validate.Struct(req); err != nil {
		return err
	}

	res, err := h.comparer.Compare(req.A, req.B)
	if err != nil {
		return err
	}

	return c.JSON(res)
}
