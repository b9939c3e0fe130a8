package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluationStubGateway() *stubGateway {
	return &stubGateway{responses: map[string]*GatewayResponse{
		"cv_extraction": structuredResponse(`{
			"fullname": "Grace Hopper",
			"category_job": "Backend Developer",
			"summary": "Seasoned systems engineer",
			"skills": ["Go", "Docker"],
			"strengths": ["shipping"],
			"experience_years": 6
		}`),
		"cv_evaluation": structuredResponse(`{
			"match_rate": 0.8,
			"feedback": "well aligned",
			"skill_breakdown": {
				"technical_skills": 0.9,
				"experience_level": 0.8,
				"achievements": 0.7,
				"cultural_fit": 0.75
			},
			"missing_skills": [],
			"strong_points": ["backend depth"]
		}`),
		"project_evaluation": structuredResponse(`{
			"parameter_scores": {
				"correctness": 8.0,
				"code_quality": 7.5,
				"resilience": 6.0,
				"documentation": 9.0,
				"creativity": 7.0
			},
			"feedback": "thorough submission",
			"recommendations": []
		}`),
		"generate_summary": {Text: "A strong candidate overall with solid backend depth."},
	}}
}

func newTestOrchestrator(gw Gateway) Orchestrator {
	retriever := NewContextRetriever(
		&memoryIndex{docs: []IndexDocument{{ID: "backend", Text: "Backend requirements"}}},
		&memoryIndex{docs: []IndexDocument{{ID: "rubric", Text: "The rubric"}}},
	)
	return NewOrchestrator(NewPipeline(gw), retriever)
}

func TestOrchestratorProducesCompleteResult(t *testing.T) {
	orch := newTestOrchestrator(evaluationStubGateway())

	result, duration, err := orch.Run(context.Background(), "cv text", "project text", "", uuid.New())

	require.NoError(t, err)
	assert.GreaterOrEqual(t, duration.Nanoseconds(), int64(0))

	assert.Equal(t, 0.8, result.CVMatchRate)
	assert.Equal(t, "well aligned", result.CVFeedback)
	assert.Equal(t, 7.4, result.ProjectScore)
	assert.Equal(t, "thorough submission", result.ProjectFeedback)
	assert.Equal(t, "A strong candidate overall with solid backend depth.", result.OverallSummary)
	require.NotNil(t, result.CVExtraction)
	assert.Equal(t, "Grace Hopper", result.CVExtraction.FullName)

	// Sub-scores from both evaluation stages are merged into one mapping.
	assert.Len(t, result.DetailedScores, 9)
	assert.Equal(t, 0.9, result.DetailedScores["technical_skills"])
	assert.Equal(t, 8.0, result.DetailedScores["correctness"])
}

func TestOrchestratorIsDeterministic(t *testing.T) {
	orch := newTestOrchestrator(evaluationStubGateway())

	first, _, err := orch.Run(context.Background(), "cv text", "project text", "", uuid.New())
	require.NoError(t, err)

	second, _, err := orch.Run(context.Background(), "cv text", "project text", "", uuid.New())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestOrchestratorDetailedScoreCollisionProjectWins(t *testing.T) {
	gw := evaluationStubGateway()
	gw.responses["cv_evaluation"] = structuredResponse(`{
		"match_rate": 0.5,
		"feedback": "ok",
		"skill_breakdown": {"correctness": 0.1}
	}`)
	orch := newTestOrchestrator(gw)

	result, _, err := orch.Run(context.Background(), "cv text", "project text", "", uuid.New())

	require.NoError(t, err)
	assert.Equal(t, 8.0, result.DetailedScores["correctness"])
}

func TestOrchestratorFatalStageAbortsRun(t *testing.T) {
	gw := evaluationStubGateway()
	gw.errs = map[string]error{"cv_evaluation": ErrGatewayUnavailable}
	orch := newTestOrchestrator(gw)

	result, _, err := orch.Run(context.Background(), "cv text", "project text", "", uuid.New())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestOrchestratorDegradedExtractionStillCompletes(t *testing.T) {
	gw := evaluationStubGateway()
	gw.responses["cv_extraction"] = &GatewayResponse{Degraded: true, Reason: "empty response from model"}
	orch := newTestOrchestrator(gw)

	result, _, err := orch.Run(context.Background(), "cv text", "project text", "", uuid.New())

	require.NoError(t, err)
	require.NotNil(t, result.CVExtraction)
	assert.Equal(t, "Unknown", result.CVExtraction.CategoryJob)
}
