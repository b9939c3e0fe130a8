package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"

	"recruit-assess/internal/models"
)

const (
	DocTypeJobRequirements = "job_requirements"
	DocTypeScoringRubric   = "scoring_rubric"

	// A caller-supplied job description shorter than this (counting
	// non-whitespace characters) is considered too thin to evaluate
	// against, and the index is consulted instead.
	minJobDescriptionChars = 50

	customJobContextLabel = "Custom Job Description:"
	rubricQuery           = "project evaluation scoring rubric"
)

const genericJobRequirements = `General Requirements:
- Relevant technical skills for the position
- Appropriate experience level
- Problem-solving abilities
- Communication and teamwork skills
- Continuous learning mindset`

const genericScoringRubric = "Evaluate based on correctness, code quality, resilience, documentation, and creativity."

// ContextRetriever resolves the job-requirement text and the scoring rubric
// used by the evaluation stages. Both operations absorb every retrieval
// failure into a fallback text; they never return errors.
type ContextRetriever interface {
	ResolveJobContext(ctx context.Context, jobDescription string, profile *models.CandidateProfile) string
	ResolveScoringRubric(ctx context.Context) string
	SeedDefaults(ctx context.Context) error
}

type contextRetriever struct {
	jobs    RetrievalIndex
	rubrics RetrievalIndex
	chunker TextChunker
	log     *logrus.Entry
}

func NewContextRetriever(jobs, rubrics RetrievalIndex) ContextRetriever {
	return &contextRetriever{
		jobs:    jobs,
		rubrics: rubrics,
		chunker: NewTextChunker(),
		log:     logrus.WithField("component", "context_retriever"),
	}
}

// ResolveJobContext prefers the caller-supplied description verbatim; a thin
// or absent description falls back to the top-2 indexed requirement documents
// for the candidate's job category, then to a generic requirements text.
func (r *contextRetriever) ResolveJobContext(ctx context.Context, jobDescription string, profile *models.CandidateProfile) string {
	if countNonWhitespace(jobDescription) >= minJobDescriptionChars {
		return customJobContextLabel + "\n" + jobDescription
	}

	category := "general"
	if profile != nil && profile.CategoryJob != "" {
		category = profile.CategoryJob
	}

	query := fmt.Sprintf("%s developer requirements skills experience", category)
	docs, err := r.jobs.Query(ctx, query, 2)
	if err != nil {
		r.log.WithField("category", category).Warnf("job context retrieval degraded: %v", err)
		return genericJobRequirements
	}
	if len(docs) == 0 {
		r.log.WithField("category", category).Warn("no job context documents found, using generic fallback")
		return genericJobRequirements
	}

	return strings.Join(docs, "\n")
}

// ResolveScoringRubric returns the single nearest rubric document, or the
// generic rubric when the index has nothing to offer.
func (r *contextRetriever) ResolveScoringRubric(ctx context.Context) string {
	docs, err := r.rubrics.Query(ctx, rubricQuery, 1)
	if err != nil {
		r.log.Warnf("rubric retrieval degraded: %v", err)
		return genericScoringRubric
	}
	if len(docs) == 0 {
		r.log.Warn("no scoring rubric found, using generic fallback")
		return genericScoringRubric
	}
	return docs[0]
}

// SeedDefaults populates empty indexes with the default corpora. Run once at
// process start, before the worker pool accepts jobs.
func (r *contextRetriever) SeedDefaults(ctx context.Context) error {
	empty, err := r.jobs.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check job index: %w", err)
	}
	if empty {
		if err := r.jobs.Seed(ctx, r.chunkCorpus(defaultJobCorpus)); err != nil {
			return fmt.Errorf("failed to seed job index: %w", err)
		}
		r.log.Info("seeded default job requirement documents")
	}

	empty, err = r.rubrics.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check rubric index: %w", err)
	}
	if empty {
		if err := r.rubrics.Seed(ctx, r.chunkCorpus(defaultRubricCorpus)); err != nil {
			return fmt.Errorf("failed to seed rubric index: %w", err)
		}
		r.log.Info("seeded default scoring rubric")
	}

	return nil
}

func (r *contextRetriever) chunkCorpus(docs []IndexDocument) []IndexDocument {
	var out []IndexDocument
	for _, doc := range docs {
		chunks := r.chunker.ChunkText(doc.Text, 1500, 200)
		if len(chunks) <= 1 {
			out = append(out, doc)
			continue
		}
		for i, chunk := range chunks {
			out = append(out, IndexDocument{
				ID:   fmt.Sprintf("%s_chunk_%d", doc.ID, i),
				Text: chunk,
			})
		}
	}
	return out
}

func countNonWhitespace(s string) int {
	count := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}

var defaultJobCorpus = []IndexDocument{
	{
		ID: "backend_dev",
		Text: `Backend Developer Requirements:
- Strong proficiency in Python, Java, or Node.js
- Experience with RESTful API design and development
- Database design and optimization (PostgreSQL, MySQL, MongoDB)
- Cloud platforms (AWS, GCP, Azure) and containerization (Docker)
- Message queues and caching (Redis, RabbitMQ)
- Version control with Git and CI/CD pipelines
- Understanding of microservices architecture
- 3+ years of backend development experience
- Strong problem-solving and analytical skills`,
	},
	{
		ID: "ai_ml_engineer",
		Text: `AI/ML Engineer Requirements:
- Proficiency in Python and ML libraries (TensorFlow, PyTorch, scikit-learn)
- Understanding of machine learning algorithms and statistics
- Experience with data preprocessing and feature engineering
- Knowledge of MLOps, model deployment, and monitoring
- Familiarity with vector databases (Qdrant, Pinecone, Weaviate)
- Experience with LLM integration (OpenAI, Anthropic, Gemini)
- REST API development for ML services
- 2+ years in ML/AI development
- Experience with production ML systems
- Understanding of prompt engineering and RAG systems`,
	},
	{
		ID: "fullstack_dev",
		Text: `Full Stack Developer Requirements:
Frontend: React.js/Vue.js, TypeScript/JavaScript, HTML5, CSS3, Tailwind CSS
Backend: Node.js/Python, RESTful APIs, GraphQL, database management
- State management (Redux, Zustand, Pinia)
- Authentication and authorization systems
- Modern development workflows and tools
- 3+ years full stack development experience
- User-focused mindset and design sensibility
- Agile development experience`,
	},
}

var defaultRubricCorpus = []IndexDocument{
	{
		ID: "project_rubric_v1",
		Text: `Project Evaluation Scoring Rubric (1-10 scale):

1. Correctness (25% weight):
- 9-10: Fully implements all requirements (prompt design, LLM chaining, RAG, error handling)
- 7-8: Implements most requirements with minor gaps
- 5-6: Implements basic requirements but missing key components
- 3-4: Partially implements requirements with major gaps
- 1-2: Minimal implementation, major requirements missing

2. Code Quality (25% weight):
- 9-10: Clean, modular, well-structured, comprehensive tests
- 7-8: Well-organized code with good practices, some tests
- 5-6: Adequate structure, follows basic best practices
- 3-4: Poor organization, inconsistent patterns
- 1-2: Messy, hard to understand code

3. Resilience (25% weight):
- 9-10: Comprehensive error handling, retries, graceful degradation
- 7-8: Good error handling with retry mechanisms
- 5-6: Basic error handling implemented
- 3-4: Minimal error handling, may crash on failures
- 1-2: No error handling, brittle system

4. Documentation (15% weight):
- 9-10: Excellent README, clear architecture docs, code comments
- 7-8: Good documentation covering setup and usage
- 5-6: Basic documentation with setup instructions
- 3-4: Minimal documentation, unclear setup
- 1-2: No or very poor documentation

5. Creativity/Bonus (10% weight):
- 9-10: Multiple innovative features (auth, deployment, monitoring, advanced UI)
- 7-8: Some creative additions beyond requirements
- 5-6: Minor improvements or enhancements
- 3-4: Minimal additional features
- 1-2: No additional features beyond requirements`,
	},
}
