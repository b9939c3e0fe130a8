package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"recruit-assess/internal/config"
	"recruit-assess/internal/services"
)

// Ingests reference PDFs (job descriptions and scoring rubrics) into the
// Qdrant collection so the context retriever can find them at runtime.
func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.Info("starting document ingestion")

	cfg := config.Load()

	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey)
	if err != nil {
		logrus.Fatalf("failed to initialize Gemini: %v", err)
	}

	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		geminiService,
	)
	if err != nil {
		logrus.Fatalf("failed to initialize Qdrant: %v", err)
	}

	ctx := context.Background()
	if err := qdrantService.EnsureCollection(ctx); err != nil {
		logrus.Fatalf("failed to initialize collection: %v", err)
	}

	pdfParser := services.NewPDFParserService()
	chunker := services.NewTextChunker()

	documents := []struct {
		Path    string
		DocType string
		Name    string
	}{
		{
			Path:    "./reference_docs/job_description.pdf",
			DocType: services.DocTypeJobRequirements,
			Name:    "Job Description - Product Engineer (Backend)",
		},
		{
			Path:    "./reference_docs/scoring_rubric.pdf",
			DocType: services.DocTypeScoringRubric,
			Name:    "Project Scoring Rubric",
		},
	}

	failCount := 0

	for _, doc := range documents {
		log := logrus.WithFields(logrus.Fields{"name": doc.Name, "path": doc.Path})

		if _, err := os.Stat(doc.Path); os.IsNotExist(err) {
			log.Warn("file not found, skipping")
			failCount++
			continue
		}

		content, err := pdfParser.ExtractText(doc.Path)
		if err != nil {
			log.Errorf("failed to extract text: %v", err)
			failCount++
			continue
		}
		log.Infof("extracted %d pages, %d characters", content.PageCount, len(content.Text))

		chunks := chunker.ChunkText(content.Text, 1000, 200)

		var indexDocs []services.IndexDocument
		for i, chunk := range chunks {
			indexDocs = append(indexDocs, services.IndexDocument{
				ID:   fmt.Sprintf("%s_chunk_%d", doc.DocType, i),
				Text: chunk,
			})
		}

		if err := qdrantService.Index(doc.DocType).Seed(ctx, indexDocs); err != nil {
			log.Errorf("failed to store chunks: %v", err)
			failCount++
			continue
		}

		log.Infof("ingested %d chunks", len(indexDocs))
	}

	if failCount > 0 {
		logrus.Warnf("%d documents failed to ingest", failCount)
		os.Exit(1)
	}

	logrus.Info("all documents ingested successfully")
}
