package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"recruit-assess/internal/models"
)

// Orchestrator sequences the pipeline stages into one evaluation run and
// aggregates their outputs into the terminal result.
type Orchestrator interface {
	Run(ctx context.Context, cvContent, projectContent, jobDescription string, jobID uuid.UUID) (*models.EvaluationResult, time.Duration, error)
}

type orchestrator struct {
	pipeline  *Pipeline
	retriever ContextRetriever
	log       *logrus.Entry
}

func NewOrchestrator(pipeline *Pipeline, retriever ContextRetriever) Orchestrator {
	return &orchestrator{
		pipeline:  pipeline,
		retriever: retriever,
		log:       logrus.WithField("component", "orchestrator"),
	}
}

// Run executes the strictly ordered stage sequence: extract profile, resolve
// job context, evaluate CV match, resolve rubric, evaluate project, generate
// summary, aggregate. A fatal stage error aborts the run with nothing
// persisted; the caller owns the state transition.
func (o *orchestrator) Run(ctx context.Context, cvContent, projectContent, jobDescription string, jobID uuid.UUID) (*models.EvaluationResult, time.Duration, error) {
	start := time.Now()
	log := o.log.WithField("job_id", jobID)

	log.Info("step 1: extracting cv structure")
	profile, err := o.pipeline.ExtractProfile(ctx, cvContent)
	if err != nil {
		return nil, time.Since(start), fmt.Errorf("evaluation pipeline failed: %w", err)
	}

	log.Info("step 2: resolving job context")
	jobContext := o.retriever.ResolveJobContext(ctx, jobDescription, profile)

	log.Info("step 3: evaluating cv match")
	cvEval, err := o.pipeline.EvaluateCVMatch(ctx, profile, jobContext)
	if err != nil {
		return nil, time.Since(start), fmt.Errorf("evaluation pipeline failed: %w", err)
	}

	log.Info("step 4: evaluating project deliverables")
	rubric := o.retriever.ResolveScoringRubric(ctx)
	projectEval, err := o.pipeline.EvaluateProject(ctx, projectContent, rubric)
	if err != nil {
		return nil, time.Since(start), fmt.Errorf("evaluation pipeline failed: %w", err)
	}

	log.Info("step 5: generating overall summary")
	summary, err := o.pipeline.GenerateSummary(ctx, cvEval, projectEval)
	if err != nil {
		return nil, time.Since(start), fmt.Errorf("evaluation pipeline failed: %w", err)
	}

	// CV sub-scores first, project parameter scores second; on a key
	// collision the project value wins by write order.
	detailedScores := make(map[string]float64, len(cvEval.SkillBreakdown)+len(projectEval.ParameterScores))
	for name, score := range cvEval.SkillBreakdown {
		detailedScores[name] = score
	}
	for name, score := range projectEval.ParameterScores {
		detailedScores[name] = score
	}

	result := &models.EvaluationResult{
		CVMatchRate:     cvEval.MatchRate,
		CVFeedback:      cvEval.Feedback,
		ProjectScore:    projectEval.Score,
		ProjectFeedback: projectEval.Feedback,
		OverallSummary:  summary,
		CVExtraction:    profile,
		DetailedScores:  detailedScores,
	}

	duration := time.Since(start)
	log.WithField("duration", duration.Round(time.Millisecond)).Info("evaluation completed")
	return result, duration, nil
}
