package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruit-assess/internal/models"
)

// flakyGateway fails the first failCalls extraction calls with a transport
// error, so the first evaluation run aborts and the re-dispatched run
// succeeds. All other tasks delegate to the inner gateway.
type flakyGateway struct {
	mu        sync.Mutex
	inner     Gateway
	failCalls int
	calls     int
}

func newFlakyGateway(inner Gateway, failCalls int) *flakyGateway {
	return &flakyGateway{inner: inner, failCalls: failCalls}
}

func (g *flakyGateway) Generate(ctx context.Context, req GatewayRequest) (*GatewayResponse, error) {
	if req.Task == "cv_extraction" {
		g.mu.Lock()
		g.calls++
		failing := g.calls <= g.failCalls
		g.mu.Unlock()
		if failing {
			return nil, ErrGatewayUnavailable
		}
	}
	return g.inner.Generate(ctx, req)
}

func newTestDispatcher(repo *memoryEvalRepo, gw Gateway, maxRetries int, retryDelay time.Duration) Dispatcher {
	return NewDispatcher(repo, newTestOrchestrator(gw), 2, maxRetries, retryDelay)
}

func queueJob(t *testing.T, repo *memoryEvalRepo) *models.Evaluation {
	t.Helper()
	eval := &models.Evaluation{
		ID:             uuid.New(),
		Status:         models.StatusQueued,
		CVContent:      strings.Repeat("Go engineer with production experience. ", 3),
		ProjectContent: strings.Repeat("Built an evaluation pipeline with retries. ", 3),
		JobDescription: strings.Repeat("Backend engineer role, Go and PostgreSQL required. ", 2),
		CreatedAt:      time.Now(),
	}
	require.NoError(t, repo.Create(eval))
	return eval
}

func taskFor(eval *models.Evaluation) EvaluationTask {
	return EvaluationTask{
		ID:             eval.ID,
		CVContent:      eval.CVContent,
		ProjectContent: eval.ProjectContent,
		JobDescription: eval.JobDescription,
	}
}

func TestDispatcherCompletesJob(t *testing.T) {
	repo := newMemoryEvalRepo()
	dispatcher := newTestDispatcher(repo, evaluationStubGateway(), 3, time.Minute)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	eval := queueJob(t, repo)
	dispatcher.Enqueue(taskFor(eval))

	require.Eventually(t, func() bool {
		return repo.get(eval.ID).Status == models.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	stored := repo.get(eval.ID)
	assert.NotNil(t, stored.Result)
	assert.Nil(t, stored.ErrorMessage)
	require.NotNil(t, stored.ProcessingTime)
	assert.GreaterOrEqual(t, *stored.ProcessingTime, 0.0)

	assert.Equal(t, []models.EvaluationStatus{
		models.StatusQueued,
		models.StatusProcessing,
		models.StatusCompleted,
	}, repo.statusHistory(eval.ID))
}

func TestDispatcherMarksJobFailedWithError(t *testing.T) {
	repo := newMemoryEvalRepo()
	gw := evaluationStubGateway()
	gw.errs = map[string]error{"cv_extraction": ErrGatewayUnavailable}

	// retryDelay far beyond the test window keeps re-dispatches out of the
	// assertion.
	dispatcher := newTestDispatcher(repo, gw, 3, time.Hour)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	eval := queueJob(t, repo)
	dispatcher.Enqueue(taskFor(eval))

	require.Eventually(t, func() bool {
		return repo.get(eval.ID).Status == models.StatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	stored := repo.get(eval.ID)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "llm gateway unavailable")
	assert.Nil(t, stored.Result)
}

func TestDispatcherRetriesFailedRunAndRecovers(t *testing.T) {
	repo := newMemoryEvalRepo()
	gw := newFlakyGateway(evaluationStubGateway(), 1)

	dispatcher := newTestDispatcher(repo, gw, 3, 20*time.Millisecond)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	eval := queueJob(t, repo)
	dispatcher.Enqueue(taskFor(eval))

	require.Eventually(t, func() bool {
		return repo.get(eval.ID).Status == models.StatusCompleted
	}, 3*time.Second, 10*time.Millisecond)

	history := repo.statusHistory(eval.ID)
	assert.Equal(t, []models.EvaluationStatus{
		models.StatusQueued,
		models.StatusProcessing,
		models.StatusFailed,
		models.StatusProcessing,
		models.StatusCompleted,
	}, history)
}

// gatedGateway fails the first extraction call, then blocks the second until
// released, holding the retry attempt open so the test can observe the job
// record mid-processing. All other tasks delegate to the inner gateway.
type gatedGateway struct {
	mu      sync.Mutex
	inner   Gateway
	calls   int
	entered chan struct{}
	release chan struct{}
}

func newGatedGateway(inner Gateway) *gatedGateway {
	return &gatedGateway{
		inner:   inner,
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedGateway) Generate(ctx context.Context, req GatewayRequest) (*GatewayResponse, error) {
	if req.Task == "cv_extraction" {
		g.mu.Lock()
		g.calls++
		call := g.calls
		g.mu.Unlock()

		switch call {
		case 1:
			return nil, ErrGatewayUnavailable
		case 2:
			close(g.entered)
			<-g.release
		}
	}
	return g.inner.Generate(ctx, req)
}

func TestDispatcherRetryClearsPreviousError(t *testing.T) {
	repo := newMemoryEvalRepo()
	gw := newGatedGateway(evaluationStubGateway())

	dispatcher := newTestDispatcher(repo, gw, 3, 20*time.Millisecond)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	eval := queueJob(t, repo)
	dispatcher.Enqueue(taskFor(eval))

	select {
	case <-gw.entered:
	case <-time.After(3 * time.Second):
		t.Fatal("retry attempt never started")
	}

	// The retry attempt is running; the record must not carry the previous
	// attempt's failure state.
	stored := repo.get(eval.ID)
	assert.Equal(t, models.StatusProcessing, stored.Status)
	assert.Nil(t, stored.ErrorMessage)
	assert.Nil(t, stored.Result)

	close(gw.release)
	require.Eventually(t, func() bool {
		return repo.get(eval.ID).Status == models.StatusCompleted
	}, 3*time.Second, 10*time.Millisecond)
}

func TestDispatcherEnqueueAfterStopDropsTask(t *testing.T) {
	repo := newMemoryEvalRepo()
	disp := newTestDispatcher(repo, evaluationStubGateway(), 3, time.Minute).(*dispatcher)
	disp.Start(context.Background())
	disp.Stop()

	eval := queueJob(t, repo)
	disp.Enqueue(taskFor(eval))

	assert.Empty(t, disp.queue, "stopped dispatcher must not buffer tasks")
	assert.Equal(t, models.StatusQueued, repo.get(eval.ID).Status)
}

func TestDispatcherGivesUpAfterMaxRetries(t *testing.T) {
	repo := newMemoryEvalRepo()
	gw := evaluationStubGateway()
	gw.errs = map[string]error{"cv_extraction": ErrGatewayUnavailable}

	dispatcher := newTestDispatcher(repo, gw, 1, 20*time.Millisecond)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	eval := queueJob(t, repo)
	dispatcher.Enqueue(taskFor(eval))

	// Initial attempt plus one retry, both failing.
	require.Eventually(t, func() bool {
		history := repo.statusHistory(eval.ID)
		failures := 0
		for _, status := range history {
			if status == models.StatusFailed {
				failures++
			}
		}
		return failures == 2
	}, 3*time.Second, 10*time.Millisecond)

	// No further attempts arrive.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, models.StatusFailed, repo.get(eval.ID).Status)
	history := repo.statusHistory(eval.ID)
	assert.Len(t, history, 5) // queued, processing, failed, processing, failed
}

func TestDispatcherMissingJobIsNoOp(t *testing.T) {
	repo := newMemoryEvalRepo()
	dispatcher := newTestDispatcher(repo, evaluationStubGateway(), 3, time.Minute)
	dispatcher.Start(context.Background())
	defer dispatcher.Stop()

	ghost := EvaluationTask{
		ID:             uuid.New(),
		CVContent:      "cv",
		ProjectContent: "project",
		JobDescription: "",
	}
	dispatcher.Enqueue(ghost)

	// The run proceeds but every store write is a no-op.
	time.Sleep(100 * time.Millisecond)
	assert.Nil(t, repo.get(ghost.ID))
}
