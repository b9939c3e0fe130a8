package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"recruit-assess/internal/repositories"
)

// EvaluationTask is one dispatch of an evaluation job: the job id plus its
// input payload. Attempt counts task-level re-dispatches, not the gateway's
// inner retries.
type EvaluationTask struct {
	ID             uuid.UUID
	CVContent      string
	ProjectContent string
	JobDescription string
	Attempt        int
}

// Dispatcher runs evaluation jobs asynchronously on a worker pool and owns
// their state transitions. Each job id has at most one active attempt at a
// time; a failed run is re-dispatched a bounded number of times after a fixed
// delay, overwriting the same job record.
type Dispatcher interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(task EvaluationTask)
}

type dispatcher struct {
	evalRepo     repositories.EvaluationRepository
	orchestrator Orchestrator
	queue        chan EvaluationTask
	concurrency  int
	maxRetries   int
	retryDelay   time.Duration

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}

	wg       sync.WaitGroup
	stopChan chan struct{}
	log      *logrus.Entry
}

func NewDispatcher(
	evalRepo repositories.EvaluationRepository,
	orchestrator Orchestrator,
	concurrency int,
	maxRetries int,
	retryDelay time.Duration,
) Dispatcher {
	return &dispatcher{
		evalRepo:     evalRepo,
		orchestrator: orchestrator,
		queue:        make(chan EvaluationTask, 100),
		concurrency:  concurrency,
		maxRetries:   maxRetries,
		retryDelay:   retryDelay,
		inflight:     make(map[uuid.UUID]struct{}),
		stopChan:     make(chan struct{}),
		log:          logrus.WithField("component", "dispatcher"),
	}
}

func (d *dispatcher) Start(ctx context.Context) {
	d.log.WithField("concurrency", d.concurrency).Info("starting worker pool")

	for i := 0; i < d.concurrency; i++ {
		d.wg.Add(1)
		go d.processJobs(ctx, i+1)
	}
}

func (d *dispatcher) Stop() {
	d.log.Info("stopping worker pool")
	close(d.stopChan)
	d.wg.Wait()
	d.log.Info("worker pool stopped")
}

func (d *dispatcher) Enqueue(task EvaluationTask) {
	// Checked before the buffered send: once the pool is stopped a buffered
	// task would never be picked up, leaving its job queued forever.
	select {
	case <-d.stopChan:
		d.log.WithField("job_id", task.ID).Warn("dispatcher stopped, job not enqueued")
		return
	default:
	}

	select {
	case d.queue <- task:
		d.log.WithFields(logrus.Fields{"job_id": task.ID, "attempt": task.Attempt}).Info("job enqueued")
	case <-d.stopChan:
		d.log.WithField("job_id", task.ID).Warn("dispatcher stopped, job not enqueued")
	}
}

func (d *dispatcher) processJobs(ctx context.Context, workerID int) {
	defer d.wg.Done()
	log := d.log.WithField("worker", workerID)

	for {
		select {
		case <-d.stopChan:
			log.Info("worker stopped")
			return
		case task := <-d.queue:
			d.execute(ctx, log, task)
		}
	}
}

func (d *dispatcher) execute(ctx context.Context, log *logrus.Entry, task EvaluationTask) {
	if !d.acquire(task.ID) {
		// Another attempt for this job is still running. The retry
		// scheduling below makes this unreachable in practice; the
		// guard keeps the one-active-attempt invariant honest.
		log.WithField("job_id", task.ID).Warn("job already in flight, skipping dispatch")
		return
	}
	defer d.release(task.ID)

	jobLog := log.WithFields(logrus.Fields{"job_id": task.ID, "attempt": task.Attempt})
	jobLog.Info("processing job")

	if err := d.evalRepo.MarkProcessing(task.ID); err != nil {
		jobLog.Errorf("failed to mark job processing: %v", err)
		return
	}

	result, duration, err := d.orchestrator.Run(ctx, task.CVContent, task.ProjectContent, task.JobDescription, task.ID)
	if err != nil {
		jobLog.Errorf("evaluation failed: %v", err)
		if markErr := d.evalRepo.MarkFailed(task.ID, err.Error()); markErr != nil {
			jobLog.Errorf("failed to record failure: %v", markErr)
		}
		d.scheduleRetry(task)
		return
	}

	if err := d.evalRepo.MarkCompleted(task.ID, result, duration.Seconds()); err != nil {
		jobLog.Errorf("failed to persist result: %v", err)
		return
	}

	jobLog.WithField("duration", duration.Round(time.Millisecond)).Info("job completed")
}

// scheduleRetry re-dispatches the whole pipeline after a fixed delay, up to
// maxRetries additional attempts. This outer loop recovers from transient
// infrastructure failures and is distinct from the gateway's inner retries.
func (d *dispatcher) scheduleRetry(task EvaluationTask) {
	if task.Attempt >= d.maxRetries {
		d.log.WithField("job_id", task.ID).Error("task retries exhausted, job remains failed")
		return
	}

	next := task
	next.Attempt++

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case <-d.stopChan:
		case <-time.After(d.retryDelay):
			d.Enqueue(next)
		}
	}()

	d.log.WithFields(logrus.Fields{
		"job_id":  task.ID,
		"attempt": next.Attempt,
		"delay":   d.retryDelay,
	}).Info("task retry scheduled")
}

func (d *dispatcher) acquire(id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.inflight[id]; ok {
		return false
	}
	d.inflight[id] = struct{}{}
	return true
}

func (d *dispatcher) release(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, id)
}
