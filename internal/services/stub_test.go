package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"recruit-assess/internal/models"
)

// fakeCompleter returns scripted responses in order. A response with err set
// simulates a transport failure.
type fakeCompleter struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     int
}

type fakeResponse struct {
	text string
	err  error
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32, structured bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.calls >= len(f.responses) {
		return "", fmt.Errorf("unexpected call %d", f.calls+1)
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp.text, resp.err
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingSink captures trace events.
type recordingSink struct {
	mu     sync.Mutex
	events []TraceEvent
}

func (s *recordingSink) Record(event TraceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// stubGateway returns a canned response per task label.
type stubGateway struct {
	responses map[string]*GatewayResponse
	errs      map[string]error
}

func (g *stubGateway) Generate(ctx context.Context, req GatewayRequest) (*GatewayResponse, error) {
	if err, ok := g.errs[req.Task]; ok {
		return nil, err
	}
	if resp, ok := g.responses[req.Task]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("no stubbed response for task %s", req.Task)
}

// memoryIndex is an in-memory RetrievalIndex returning its documents in
// insertion order.
type memoryIndex struct {
	docs     []IndexDocument
	queryErr error
	queries  []string
}

func (m *memoryIndex) Query(ctx context.Context, text string, topK int) ([]string, error) {
	m.queries = append(m.queries, text)
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var texts []string
	for i, doc := range m.docs {
		if i >= topK {
			break
		}
		texts = append(texts, doc.Text)
	}
	return texts, nil
}

func (m *memoryIndex) IsEmpty(ctx context.Context) (bool, error) {
	return len(m.docs) == 0, nil
}

func (m *memoryIndex) Seed(ctx context.Context, docs []IndexDocument) error {
	m.docs = append(m.docs, docs...)
	return nil
}

// memoryEvalRepo is an in-memory job store recording every status transition.
type memoryEvalRepo struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*models.Evaluation
	history map[uuid.UUID][]models.EvaluationStatus
}

func newMemoryEvalRepo() *memoryEvalRepo {
	return &memoryEvalRepo{
		jobs:    make(map[uuid.UUID]*models.Evaluation),
		history: make(map[uuid.UUID][]models.EvaluationStatus),
	}
}

func (r *memoryEvalRepo) Create(eval *models.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *eval
	r.jobs[eval.ID] = &copied
	r.history[eval.ID] = append(r.history[eval.ID], eval.Status)
	return nil
}

func (r *memoryEvalRepo) FindByID(id uuid.UUID) (*models.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("evaluation not found")
	}
	copied := *eval
	return &copied, nil
}

func (r *memoryEvalRepo) MarkProcessing(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval, ok := r.jobs[id]
	if !ok {
		return nil
	}
	if eval.Status != models.StatusQueued && eval.Status != models.StatusFailed {
		return nil
	}
	eval.Status = models.StatusProcessing
	eval.ErrorMessage = nil
	eval.UpdatedAt = time.Now()
	r.history[id] = append(r.history[id], models.StatusProcessing)
	return nil
}

func (r *memoryEvalRepo) MarkCompleted(id uuid.UUID, result *models.EvaluationResult, processingSeconds float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval, ok := r.jobs[id]
	if !ok {
		return nil
	}
	if eval.Status != models.StatusProcessing {
		return nil
	}
	resultJSON := fmt.Sprintf("%+v", result)
	eval.Status = models.StatusCompleted
	eval.Result = &resultJSON
	eval.ErrorMessage = nil
	eval.ProcessingTime = &processingSeconds
	r.history[id] = append(r.history[id], models.StatusCompleted)
	return nil
}

func (r *memoryEvalRepo) MarkFailed(id uuid.UUID, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval, ok := r.jobs[id]
	if !ok {
		return nil
	}
	if eval.Status != models.StatusProcessing {
		return nil
	}
	eval.Status = models.StatusFailed
	eval.ErrorMessage = &errorMsg
	eval.Result = nil
	r.history[id] = append(r.history[id], models.StatusFailed)
	return nil
}

func (r *memoryEvalRepo) statusHistory(id uuid.UUID) []models.EvaluationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EvaluationStatus, len(r.history[id]))
	copy(out, r.history[id])
	return out
}

func (r *memoryEvalRepo) get(id uuid.UUID) *models.Evaluation {
	r.mu.Lock()
	defer r.mu.Unlock()
	eval, ok := r.jobs[id]
	if !ok {
		return nil
	}
	copied := *eval
	return &copied
}
