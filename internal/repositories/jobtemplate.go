package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"recruit-assess/internal/models"
)

type JobTemplateRepository interface {
	FindByID(id uuid.UUID) (*models.JobTemplate, error)
	FindActive() ([]models.JobTemplate, error)
}

var ErrJobTemplateNotFound = errors.New("job template not found")

type jobTemplateRepository struct {
	db *gorm.DB
}

func NewJobTemplateRepository(db *gorm.DB) JobTemplateRepository {
	return &jobTemplateRepository{db: db}
}

func (r *jobTemplateRepository) FindByID(id uuid.UUID) (*models.JobTemplate, error) {
	var template models.JobTemplate
	if err := r.db.Where("id = ? AND is_active = ?", id, true).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobTemplateNotFound
		}
		return nil, fmt.Errorf("failed to find job template: %w", err)
	}
	return &template, nil
}

func (r *jobTemplateRepository) FindActive() ([]models.JobTemplate, error) {
	var templates []models.JobTemplate
	if err := r.db.Where("is_active = ?", true).Order("created_at ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to list job templates: %w", err)
	}
	return templates, nil
}
