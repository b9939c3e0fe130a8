package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"recruit-assess/internal/models"
)

// EvaluationRepository is the job store. Status transitions are guarded so a
// stale writer can never move a job backwards: queued -> processing ->
// {completed, failed}. A transition against a missing record is a no-op, since
// an externally deleted job must not fail the in-flight run that owns it.
type EvaluationRepository interface {
	Create(eval *models.Evaluation) error
	FindByID(id uuid.UUID) (*models.Evaluation, error)
	MarkProcessing(id uuid.UUID) error
	MarkCompleted(id uuid.UUID, result *models.EvaluationResult, processingSeconds float64) error
	MarkFailed(id uuid.UUID, errorMsg string) error
}

var ErrEvaluationNotFound = errors.New("evaluation not found")

type evaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(eval *models.Evaluation) error {
	if err := r.db.Create(eval).Error; err != nil {
		return fmt.Errorf("failed to create evaluation: %w", err)
	}
	return nil
}

func (r *evaluationRepository) FindByID(id uuid.UUID) (*models.Evaluation, error) {
	var eval models.Evaluation
	if err := r.db.Where("id = ?", id).First(&eval).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("failed to find evaluation: %w", err)
	}
	return &eval, nil
}

// MarkProcessing also accepts jobs in the failed state: the dispatcher's
// bounded task-level retry re-runs a failed job under the same id. The
// previous attempt's error is cleared in the same update so a processing job
// never carries stale failure state. Completed jobs are terminal and never
// re-enter processing.
func (r *evaluationRepository) MarkProcessing(id uuid.UUID) error {
	result := r.db.Model(&models.Evaluation{}).
		Where("id = ? AND status IN ?", id, []models.EvaluationStatus{models.StatusQueued, models.StatusFailed}).
		Updates(map[string]interface{}{
			"status":        models.StatusProcessing,
			"error_message": nil,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark processing: %w", result.Error)
	}
	return nil
}

// MarkCompleted persists the result payload, the profile snapshot, and the
// processing duration in a single update.
func (r *evaluationRepository) MarkCompleted(id uuid.UUID, result *models.EvaluationResult, processingSeconds float64) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	updates := map[string]interface{}{
		"status":          models.StatusCompleted,
		"result":          string(resultJSON),
		"error_message":   nil,
		"processing_time": processingSeconds,
		"updated_at":      time.Now(),
	}

	if result.CVExtraction != nil {
		profileJSON, err := json.Marshal(result.CVExtraction)
		if err != nil {
			return fmt.Errorf("failed to serialize profile: %w", err)
		}
		updates["cv_extraction"] = string(profileJSON)
	}

	tx := r.db.Model(&models.Evaluation{}).
		Where("id = ? AND status = ?", id, models.StatusProcessing).
		Updates(updates)

	if tx.Error != nil {
		return fmt.Errorf("failed to mark completed: %w", tx.Error)
	}
	return nil
}

func (r *evaluationRepository) MarkFailed(id uuid.UUID, errorMsg string) error {
	tx := r.db.Model(&models.Evaluation{}).
		Where("id = ? AND status = ?", id, models.StatusProcessing).
		Updates(map[string]interface{}{
			"status":        models.StatusFailed,
			"error_message": errorMsg,
			"result":        nil,
			"updated_at":    time.Now(),
		})

	if tx.Error != nil {
		return fmt.Errorf("failed to mark failed: %w", tx.Error)
	}
	return nil
}
