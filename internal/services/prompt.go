package services

import (
	"fmt"
	"strings"

	"recruit-assess/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildExtractionPrompt asks the model to emit a CandidateProfile-shaped
// JSON structure from raw CV text.
func (pb *PromptBuilder) BuildExtractionPrompt(cvContent string) string {
	return fmt.Sprintf(`Analyze this CV and extract structured information in JSON format.
Be thorough and accurate in extracting all available information.

CV Content:
%s

Extract the following information and return as valid JSON:
{
    "fullname": "candidate full name",
    "email": "candidate email address",
    "phone": "phone number with country code if available",
    "address": "full address or city/country",
    "category_job": "primary job category/role (e.g., Backend Developer, AI Engineer, Full Stack Developer)",
    "summary": "professional summary or objective (2-3 sentences max)",
    "skills": ["list", "of", "technical", "skills"],
    "strengths": ["key", "professional", "strengths", "and", "achievements"],
    "experience_years": estimated_total_years_of_experience_as_integer,
    "education": [
        {
            "degree": "degree name",
            "institution": "university/school name",
            "year": "graduation year or period"
        }
    ],
    "certifications": ["list", "of", "certifications"],
    "projects": [
        {
            "name": "project name",
            "description": "brief description",
            "technologies": ["tech1", "tech2"]
        }
    ]
}

Guidelines:
- If information is not available, use null or empty array []
- Skills should be specific technical skills, not soft skills
- Strengths should focus on professional achievements and capabilities
- Experience years should be your best estimate based on career progression
- Only return valid JSON, no additional text`, cvContent)
}

// BuildCVMatchPrompt compares an extracted profile against resolved job
// requirements. The criteria weights are instructions to the model; the
// orchestrator does not recompute the match rate.
func (pb *PromptBuilder) BuildCVMatchPrompt(profile *models.CandidateProfile, jobContext string) string {
	return fmt.Sprintf(`You are an expert HR evaluator. Compare this candidate profile with job requirements.

Job Requirements:
%s

Candidate Profile:
- Position: %s
- Experience: %d years
- Skills: %s
- Summary: %s
- Strengths: %s
- Projects: %d relevant projects
- Education: %d qualifications

Evaluate match rate (0.0-1.0) based on these weighted criteria:
1. Technical Skills Match (40%%) - How well do candidate's skills align with requirements?
2. Experience Level (30%%) - Does experience level meet job requirements?
3. Relevant Achievements (20%%) - Quality of projects and accomplishments
4. Cultural Fit (10%%) - Communication, learning attitude indicators

Return JSON format:
{
    "match_rate": 0.75,
    "feedback": "Detailed feedback highlighting strengths and gaps (3-4 sentences)",
    "skill_breakdown": {
        "technical_skills": 0.8,
        "experience_level": 0.7,
        "achievements": 0.9,
        "cultural_fit": 0.6
    },
    "missing_skills": ["skill1", "skill2"],
    "strong_points": ["strength1", "strength2"]
}

Be honest and specific in your evaluation.`,
		jobContext,
		profile.CategoryJob,
		profile.ExperienceYears,
		strings.Join(profile.Skills, ", "),
		profile.Summary,
		strings.Join(profile.Strengths, ", "),
		len(profile.Projects),
		len(profile.Education),
	)
}

// BuildProjectEvaluationPrompt scores a project report against a rubric. The
// model proposes a weighted score but the pipeline recomputes it locally.
func (pb *PromptBuilder) BuildProjectEvaluationPrompt(projectContent, scoringRubric string) string {
	return fmt.Sprintf(`Evaluate this project report against the scoring rubric.

Scoring Rubric:
%s

Project Report:
%s

Score each parameter (1-10) and provide specific feedback:

1. Correctness (25%%) - Does it meet all requirements? (prompt design, LLM chaining, RAG, error handling)
2. Code Quality (25%%) - Is code clean, modular, well-structured, testable?
3. Resilience (25%%) - How well does it handle failures, implement retries, manage errors?
4. Documentation (15%%) - Quality of README, code comments, architecture explanation
5. Creativity (10%%) - Bonus features like authentication, deployment, monitoring, UI improvements

Return JSON:
{
    "parameter_scores": {
        "correctness": 8.0,
        "code_quality": 7.5,
        "resilience": 6.0,
        "documentation": 9.0,
        "creativity": 7.0
    },
    "weighted_score": 7.4,
    "feedback": "Detailed feedback on each parameter (4-5 sentences)",
    "recommendations": ["specific improvement suggestion 1", "suggestion 2"]
}`, scoringRubric, projectContent)
}

// BuildSummaryPrompt combines both evaluations into a short executive
// narrative. Free text output, no JSON.
func (pb *PromptBuilder) BuildSummaryPrompt(cvEval *CVMatchEvaluation, projectEval *ProjectEvaluation) string {
	return fmt.Sprintf(`Create a concise overall summary of this candidate based on CV and project evaluations.

CV Evaluation:
- Match Rate: %.2f
- Feedback: %s

Project Evaluation:
- Score: %.1f/10
- Feedback: %s

Write a 2-3 sentence executive summary that:
1. States overall candidate fit
2. Highlights key strengths
3. Mentions main development areas

Be professional, balanced, and actionable.`,
		cvEval.MatchRate,
		cvEval.Feedback,
		projectEval.Score,
		projectEval.Feedback,
	)
}
