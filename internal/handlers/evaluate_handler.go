package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"recruit-assess/internal/models"
	"recruit-assess/internal/repositories"
	"recruit-assess/internal/services"
)

const minContentLength = 50

type EvaluationHandler struct {
	evalRepo     repositories.EvaluationRepository
	templateRepo repositories.JobTemplateRepository
	dispatcher   services.Dispatcher
	validate     *validator.Validate
}

func NewEvaluationHandler(
	evalRepo repositories.EvaluationRepository,
	templateRepo repositories.JobTemplateRepository,
	dispatcher services.Dispatcher,
) *EvaluationHandler {
	return &EvaluationHandler{
		evalRepo:     evalRepo,
		templateRepo: templateRepo,
		dispatcher:   dispatcher,
		validate:     validator.New(),
	}
}

// HandleEvaluate handles POST /evaluate
func (h *EvaluationHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req models.EvaluateRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if len(strings.TrimSpace(req.CVContent)) < minContentLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "CV content too short",
		})
	}

	if len(strings.TrimSpace(req.ProjectContent)) < minContentLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Project content too short",
		})
	}

	jobDescription, templateID, err := h.resolveJobDescription(&req)
	if err != nil {
		if errors.Is(err, repositories.ErrJobTemplateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Job template not found",
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	evaluation := &models.Evaluation{
		ID:             uuid.New(),
		Status:         models.StatusQueued,
		CVContent:      req.CVContent,
		ProjectContent: req.ProjectContent,
		JobDescription: jobDescription,
		JobTemplateID:  templateID,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := h.evalRepo.Create(evaluation); err != nil {
		logrus.Errorf("failed to create evaluation: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create evaluation job",
		})
	}

	h.dispatcher.Enqueue(services.EvaluationTask{
		ID:             evaluation.ID,
		CVContent:      req.CVContent,
		ProjectContent: req.ProjectContent,
		JobDescription: jobDescription,
	})

	return c.Status(fiber.StatusAccepted).JSON(models.EvaluateResponse{
		ID:     evaluation.ID.String(),
		Status: string(models.StatusQueued),
	})
}

func (h *EvaluationHandler) resolveJobDescription(req *models.EvaluateRequest) (string, *uuid.UUID, error) {
	if req.JobTemplateID != "" {
		templateID, err := uuid.Parse(req.JobTemplateID)
		if err != nil {
			return "", nil, errors.New("invalid job_template_id format")
		}

		template, err := h.templateRepo.FindByID(templateID)
		if err != nil {
			return "", nil, err
		}

		description := fmt.Sprintf("%s\n\nRequirements:\n%s", template.Description, template.Requirements)
		return description, &templateID, nil
	}

	if strings.TrimSpace(req.JobDescription) != "" {
		return req.JobDescription, nil, nil
	}

	// The context retriever will resolve requirements from the index based
	// on the extracted job category.
	return "", nil, nil
}
