package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"recruit-assess/internal/config"
	"recruit-assess/internal/handlers"
	"recruit-assess/internal/repositories"
	"recruit-assess/internal/services"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	if cfg.Server.Env == "development" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		logrus.Fatalf("failed to initialize database: %v", err)
	}

	evalRepo := repositories.NewEvaluationRepository(db)
	docRepo := repositories.NewDocumentRepository(db)
	templateRepo := repositories.NewJobTemplateRepository(db)

	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		logrus.Fatalf("failed to create upload directory: %v", err)
	}
	pdfParser := services.NewPDFParserService()

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
		logrus.Fatalf("failed to initialize Qdrant collection: %v", err)
	}

	retriever := services.NewContextRetriever(
		qdrantService.Index(services.DocTypeJobRequirements),
		qdrantService.Index(services.DocTypeScoringRubric),
	)
	if err := retriever.SeedDefaults(ctx); err != nil {
		logrus.Fatalf("failed to seed default documents: %v", err)
	}

	gateway := services.NewLLMGateway(
		geminiService,
		cfg.Gateway.MaxAttempts,
		cfg.Gateway.BackoffBase,
		cfg.Gateway.CallTimeout,
		services.NewLogTraceSink(logrus.WithField("component", "llm_trace")),
	)

	pipeline := services.NewPipeline(gateway)
	orchestrator := services.NewOrchestrator(pipeline, retriever)

	dispatcher := services.NewDispatcher(
		evalRepo,
		orchestrator,
		cfg.Worker.Concurrency,
		cfg.Worker.RetryMaxAttempts,
		cfg.Worker.RetryDelay,
	)
	dispatcher.Start(ctx)
	logrus.Info("dispatcher started")

	uploadHandler := handlers.NewUploadHandler(docRepo, templateRepo, storageService, pdfParser, cfg.Storage.MaxFileSize)
	evaluateHandler := handlers.NewEvaluationHandler(evalRepo, templateRepo, dispatcher)
	resultHandler := handlers.NewResultHandler(evalRepo)
	templateHandler := handlers.NewJobTemplateHandler(templateRepo)

	app := fiber.New(fiber.Config{
		AppName:      "Recruit Assess API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize),
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/upload", uploadHandler.HandleUpload)
	api.Post("/evaluate", evaluateHandler.HandleEvaluate)
	api.Get("/result/:id", resultHandler.HandleGetResult)
	api.Get("/job-templates", templateHandler.HandleList)
	api.Get("/job-templates/:id", templateHandler.HandleGet)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logrus.Info("shutting down server")
		dispatcher.Stop()
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("server forced to shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logrus.Infof("server starting on %s", addr)

	if err := app.Listen(addr); err != nil {
		logrus.Fatalf("failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
