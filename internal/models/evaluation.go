package models

import (
	"time"

	"github.com/google/uuid"
)

type EvaluationStatus string

const (
	StatusQueued     EvaluationStatus = "queued"
	StatusProcessing EvaluationStatus = "processing"
	StatusCompleted  EvaluationStatus = "completed"
	StatusFailed     EvaluationStatus = "failed"
)

// Evaluation is the persisted record of one evaluation job. Input texts are
// written once at creation; result fields are written only by the worker that
// owns the run.
type Evaluation struct {
	ID     uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Status EvaluationStatus `gorm:"not null;default:'queued'" json:"status"`

	// Input data
	CVContent      string     `gorm:"type:text" json:"cv_content"`
	ProjectContent string     `gorm:"type:text" json:"project_content"`
	JobDescription string     `gorm:"type:text" json:"job_description"`
	JobTemplateID  *uuid.UUID `gorm:"type:uuid" json:"job_template_id,omitempty"`

	// Serialized CandidateProfile extracted by the first pipeline stage.
	CVExtraction *string `gorm:"type:jsonb" json:"cv_extraction,omitempty"`

	// Serialized EvaluationResult, present only when status is completed.
	Result *string `gorm:"type:jsonb" json:"result,omitempty"`

	ErrorMessage   *string   `gorm:"type:text" json:"error_message,omitempty"`
	ProcessingTime *float64  `json:"processing_time,omitempty"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}

// JobTemplate is a pre-defined job description the caller can reference
// instead of supplying one inline. Read-only to the evaluation core.
type JobTemplate struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title        string    `gorm:"type:text" json:"title"`
	Category     string    `gorm:"type:text" json:"category"`
	Description  string    `gorm:"type:text" json:"description"`
	Requirements string    `gorm:"type:text" json:"requirements"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (JobTemplate) TableName() string {
	return "job_templates"
}

type EducationEntry struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

type ProjectEntry struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
}

// CandidateProfile is the structured CV representation produced by the
// extraction stage and treated as immutable input by the later stages.
type CandidateProfile struct {
	FullName        string           `json:"fullname"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone"`
	Address         string           `json:"address"`
	CategoryJob     string           `json:"category_job"`
	Summary         string           `json:"summary"`
	Skills          []string         `json:"skills"`
	Strengths       []string         `json:"strengths"`
	ExperienceYears int              `json:"experience_years"`
	Education       []EducationEntry `json:"education"`
	Certifications  []string         `json:"certifications"`
	Projects        []ProjectEntry   `json:"projects"`
}

// EvaluationResult is the terminal artifact of a completed run.
type EvaluationResult struct {
	CVMatchRate     float64            `json:"cv_match_rate"`
	CVFeedback      string             `json:"cv_feedback"`
	ProjectScore    float64            `json:"project_score"`
	ProjectFeedback string             `json:"project_feedback"`
	OverallSummary  string             `json:"overall_summary"`
	CVExtraction    *CandidateProfile  `json:"cv_extraction"`
	DetailedScores  map[string]float64 `json:"detailed_scores"`
}
