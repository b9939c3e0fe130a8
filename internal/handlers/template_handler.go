package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"recruit-assess/internal/models"
	"recruit-assess/internal/repositories"
)

type JobTemplateHandler struct {
	templateRepo repositories.JobTemplateRepository
}

func NewJobTemplateHandler(templateRepo repositories.JobTemplateRepository) *JobTemplateHandler {
	return &JobTemplateHandler{templateRepo: templateRepo}
}

// HandleList handles GET /job-templates
func (h *JobTemplateHandler) HandleList(c *fiber.Ctx) error {
	templates, err := h.templateRepo.FindActive()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch job templates",
		})
	}

	items := make([]models.JobTemplateListItem, 0, len(templates))
	for _, template := range templates {
		items = append(items, models.JobTemplateListItem{
			ID:       template.ID.String(),
			Title:    template.Title,
			Category: template.Category,
		})
	}

	return c.JSON(items)
}

// HandleGet handles GET /job-templates/:id
func (h *JobTemplateHandler) HandleGet(c *fiber.Ctx) error {
	templateID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job template ID format",
		})
	}

	template, err := h.templateRepo.FindByID(templateID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobTemplateNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Job template not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch job template",
		})
	}

	return c.JSON(template)
}
