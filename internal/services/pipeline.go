package services

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"recruit-assess/internal/models"
)

// CVMatchEvaluation is the output of the CV match stage.
type CVMatchEvaluation struct {
	MatchRate      float64            `json:"match_rate"`
	Feedback       string             `json:"feedback"`
	SkillBreakdown map[string]float64 `json:"skill_breakdown"`
	MissingSkills  []string           `json:"missing_skills"`
	StrongPoints   []string           `json:"strong_points"`
}

// ProjectEvaluation is the output of the project stage. Score is recomputed
// locally from ParameterScores and is the score of record, regardless of any
// weighted score the model proposed.
type ProjectEvaluation struct {
	ParameterScores map[string]float64 `json:"parameter_scores"`
	Feedback        string             `json:"feedback"`
	Recommendations []string           `json:"recommendations"`
	Score           float64            `json:"-"`
}

// Pipeline holds the four prompt-driven stages of one evaluation run. Each
// stage is a pure function of its inputs plus the gateway; content errors
// degrade to stage-level fallbacks, transport errors propagate as fatal.
type Pipeline struct {
	gateway Gateway
	prompts *PromptBuilder
	log     *logrus.Entry
}

func NewPipeline(gateway Gateway) *Pipeline {
	return &Pipeline{
		gateway: gateway,
		prompts: NewPromptBuilder(),
		log:     logrus.WithField("component", "pipeline"),
	}
}

func fallbackProfile() *models.CandidateProfile {
	return &models.CandidateProfile{
		CategoryJob: "Unknown",
		Summary:     "Failed to extract CV information",
	}
}

// ExtractProfile structures raw CV text into a CandidateProfile. Unparseable
// model output yields the fallback profile, never an error.
func (p *Pipeline) ExtractProfile(ctx context.Context, cvContent string) (*models.CandidateProfile, error) {
	resp, err := p.gateway.Generate(ctx, GatewayRequest{
		Task:        "cv_extraction",
		Prompt:      p.prompts.BuildExtractionPrompt(cvContent),
		Mode:        ModeStructured,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("cv extraction failed: %w", err)
	}

	if resp.Degraded {
		p.log.Warnf("cv extraction degraded: %s", resp.Reason)
		return fallbackProfile(), nil
	}

	var profile models.CandidateProfile
	if err := resp.Decode(&profile); err != nil {
		p.log.Warnf("cv extraction result did not match profile shape: %v", err)
		return fallbackProfile(), nil
	}

	p.log.WithFields(logrus.Fields{
		"category":         profile.CategoryJob,
		"experience_years": profile.ExperienceYears,
	}).Info("cv structure extracted")
	return &profile, nil
}

// EvaluateCVMatch scores the profile against the resolved job context. The
// match rate comes from the model as-is; only the project stage recomputes
// its score locally.
func (p *Pipeline) EvaluateCVMatch(ctx context.Context, profile *models.CandidateProfile, jobContext string) (*CVMatchEvaluation, error) {
	resp, err := p.gateway.Generate(ctx, GatewayRequest{
		Task:        "cv_evaluation",
		Prompt:      p.prompts.BuildCVMatchPrompt(profile, jobContext),
		Mode:        ModeStructured,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("cv match evaluation failed: %w", err)
	}

	if resp.Degraded {
		p.log.Warnf("cv match evaluation degraded: %s", resp.Reason)
		return &CVMatchEvaluation{
			Feedback: "CV match could not be evaluated due to model response issues.",
		}, nil
	}

	var eval CVMatchEvaluation
	if err := resp.Decode(&eval); err != nil {
		p.log.Warnf("cv match result did not match expected shape: %v", err)
		return &CVMatchEvaluation{
			Feedback: "CV match could not be evaluated due to model response issues.",
		}, nil
	}

	return &eval, nil
}

// EvaluateProject scores the project report against the rubric and computes
// the authoritative weighted score.
func (p *Pipeline) EvaluateProject(ctx context.Context, projectContent, scoringRubric string) (*ProjectEvaluation, error) {
	resp, err := p.gateway.Generate(ctx, GatewayRequest{
		Task:        "project_evaluation",
		Prompt:      p.prompts.BuildProjectEvaluationPrompt(projectContent, scoringRubric),
		Mode:        ModeStructured,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("project evaluation failed: %w", err)
	}

	eval := &ProjectEvaluation{}
	if resp.Degraded {
		p.log.Warnf("project evaluation degraded: %s", resp.Reason)
		eval.Feedback = "Project could not be evaluated due to model response issues."
	} else if err := resp.Decode(eval); err != nil {
		p.log.Warnf("project result did not match expected shape: %v", err)
		eval = &ProjectEvaluation{
			Feedback: "Project could not be evaluated due to model response issues.",
		}
	}

	eval.Score = WeightedProjectScore(eval.ParameterScores)
	return eval, nil
}

// GenerateSummary produces the executive narrative from both evaluations.
func (p *Pipeline) GenerateSummary(ctx context.Context, cvEval *CVMatchEvaluation, projectEval *ProjectEvaluation) (string, error) {
	resp, err := p.gateway.Generate(ctx, GatewayRequest{
		Task:        "generate_summary",
		Prompt:      p.prompts.BuildSummaryPrompt(cvEval, projectEval),
		Mode:        ModeText,
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}

	if resp.Degraded {
		p.log.Warnf("summary generation degraded: %s", resp.Reason)
		return "No summary available due to model response issues.", nil
	}

	return resp.Text, nil
}

// WeightedProjectScore computes the score of record from the five named
// parameter scores: 25% correctness, 25% code quality, 25% resilience,
// 15% documentation, 10% creativity, rounded to one decimal place.
func WeightedProjectScore(scores map[string]float64) float64 {
	weighted := scores["correctness"]*0.25 +
		scores["code_quality"]*0.25 +
		scores["resilience"]*0.25 +
		scores["documentation"]*0.15 +
		scores["creativity"]*0.10
	return math.Round(weighted*10) / 10
}
