package handlers

import (
	"fmt"
	"mime/multipart"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"recruit-assess/internal/models"
	"recruit-assess/internal/repositories"
	"recruit-assess/internal/services"
)

const previewLength = 300

type UploadHandler struct {
	docRepo        repositories.DocumentRepository
	templateRepo   repositories.JobTemplateRepository
	storageService services.StorageService
	pdfParser      services.PDFParserService
	maxFileSize    int64
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	templateRepo repositories.JobTemplateRepository,
	storageService services.StorageService,
	pdfParser services.PDFParserService,
	maxFileSize int64,
) *UploadHandler {
	return &UploadHandler{
		docRepo:        docRepo,
		templateRepo:   templateRepo,
		storageService: storageService,
		pdfParser:      pdfParser,
		maxFileSize:    maxFileSize,
	}
}

// HandleUpload handles POST /upload. Both files are extracted to plain text
// immediately; the caller submits the extracted texts to /evaluate.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	cvFile, err := c.FormFile("cv_file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cv_file is required",
		})
	}

	projectFile, err := c.FormFile("project_file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "project_file is required",
		})
	}

	cvText, err := h.processFile(cvFile, "cv")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to process CV file: %v", err),
		})
	}

	projectText, err := h.processFile(projectFile, "project_report")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to process project file: %v", err),
		})
	}

	templates, err := h.templateRepo.FindActive()
	if err != nil {
		logrus.Errorf("failed to list job templates: %v", err)
		templates = nil
	}

	items := make([]models.JobTemplateListItem, 0, len(templates))
	for _, template := range templates {
		items = append(items, models.JobTemplateListItem{
			ID:       template.ID.String(),
			Title:    template.Title,
			Category: template.Category,
		})
	}

	return c.JSON(models.UploadResponse{
		Message:           "Files uploaded and processed successfully",
		CVPreview:         preview(cvText),
		ProjectPreview:    preview(projectText),
		CVLength:          len(cvText),
		ProjectLength:     len(projectText),
		AvailableJobTemps: items,
	})
}

func (h *UploadHandler) processFile(file *multipart.FileHeader, fileType string) (string, error) {
	if file.Size > h.maxFileSize {
		return "", fmt.Errorf("file too large, max size: %d bytes", h.maxFileSize)
	}

	filename, filePath, err := h.storageService.SaveFile(file, fileType)
	if err != nil {
		return "", err
	}

	content, err := h.pdfParser.ExtractText(filePath)
	if err != nil {
		h.storageService.DeleteFile(filename)
		return "", err
	}

	doc := &models.Document{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		FileType:         fileType,
		FilePath:         filePath,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := h.docRepo.Create(doc); err != nil {
		h.storageService.DeleteFile(filename)
		return "", err
	}

	return content.Text, nil
}

// preview truncates on a rune boundary so multi-byte text stays valid UTF-8.
func preview(text string) string {
	if len(text) <= previewLength {
		return text
	}
	cut := previewLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
