package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"recruit-assess/internal/models"
	"recruit-assess/internal/repositories"
)

type ResultHandler struct {
	evalRepo repositories.EvaluationRepository
}

func NewResultHandler(evalRepo repositories.EvaluationRepository) *ResultHandler {
	return &ResultHandler{evalRepo: evalRepo}
}

// HandleGetResult handles GET /result/:id
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	evalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid evaluation ID format",
		})
	}

	evaluation, err := h.evalRepo.FindByID(evalID)
	if err != nil {
		if errors.Is(err, repositories.ErrEvaluationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Evaluation not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch evaluation",
		})
	}

	response := models.ResultResponse{
		ID:             evaluation.ID.String(),
		Status:         string(evaluation.Status),
		ProcessingTime: evaluation.ProcessingTime,
		CreatedAt:      evaluation.CreatedAt,
	}

	if evaluation.Status == models.StatusCompleted && evaluation.Result != nil {
		var result models.EvaluationResult
		if err := json.Unmarshal([]byte(*evaluation.Result), &result); err != nil {
			logrus.WithField("job_id", evaluation.ID).Errorf("failed to decode stored result: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to decode evaluation result",
			})
		}
		response.Result = &result
	}

	if evaluation.Status == models.StatusFailed {
		response.Error = evaluation.ErrorMessage
	}

	return c.JSON(response)
}
