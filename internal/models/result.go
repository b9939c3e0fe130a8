package models

import "time"

type EvaluateRequest struct {
	CVContent      string `json:"cv_content" validate:"required"`
	ProjectContent string `json:"project_content" validate:"required"`
	JobDescription string `json:"job_description"`
	JobTemplateID  string `json:"job_template_id" validate:"omitempty,uuid"`
}

type EvaluateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResultResponse struct {
	ID             string            `json:"id"`
	Status         string            `json:"status"`
	Result         *EvaluationResult `json:"result,omitempty"`
	ProcessingTime *float64          `json:"processing_time,omitempty"`
	Error          *string           `json:"error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

type UploadResponse struct {
	Message           string                `json:"message"`
	CVPreview         string                `json:"cv_preview"`
	ProjectPreview    string                `json:"project_preview"`
	CVLength          int                   `json:"cv_length"`
	ProjectLength     int                   `json:"project_length"`
	AvailableJobTemps []JobTemplateListItem `json:"available_job_templates"`
}

type JobTemplateListItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}
