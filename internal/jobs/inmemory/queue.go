// Package inmemory implements the jobs interfaces on Go channels. Suitable
// for a single-instance deployment; a multi-instance one would swap in a
// real broker behind the same interfaces.
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khimraj/budget-planner/internal/jobs"
)

const defaultMaxRetries = 3

// Queue is an in-memory publisher and consumer. Safe for concurrent use.
type Queue struct {
	jobChan   chan *jobs.NormalizeUploadJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	workers   int
	closed    bool
}

// NewQueue creates a queue. bufferSize bounds how many jobs may wait before
// publishing blocks; workers is the number of concurrent consumers.
func NewQueue(bufferSize, workers int, store jobs.JobStore) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		jobChan:   make(chan *jobs.NormalizeUploadJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   workers,
	}
}

// PublishNormalizeUpload implements jobs.Publisher.
func (q *Queue) PublishNormalizeUpload(ctx context.Context, job *jobs.NormalizeUploadJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}

	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = defaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("save job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return fmt.Errorf("queue is closed")
	}
}

// Start implements jobs.Consumer.
func (q *Queue) Start(ctx context.Context, handler jobs.Handler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return fmt.Errorf("queue is closed")
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}
			q.processJob(ctx, job, handler)
		}
	}
}

func (q *Queue) processJob(ctx context.Context, job *jobs.NormalizeUploadJob, handler jobs.Handler) {
	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	q.save(ctx, job)

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		q.save(ctx, job)
		return
	}

	job.Error = err.Error()
	if job.RetryCount >= job.MaxRetries {
		job.Status = jobs.JobStatusFailed
		q.save(ctx, job)
		return
	}

	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	q.save(ctx, job)

	// Re-enqueue with linear backoff.
	backoff := time.Duration(job.RetryCount) * time.Second
	time.AfterFunc(backoff, func() {
		job.Status = jobs.JobStatusPending
		job.StartedAt = nil
		job.CompletedAt = nil
		_ = q.PublishNormalizeUpload(ctx, job)
	})
}

func (q *Queue) save(ctx context.Context, job *jobs.NormalizeUploadJob) {
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

// Stop implements jobs.Consumer; it waits for in-flight jobs to finish.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements jobs.Publisher.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var _ jobs.Publisher = (*Queue)(nil)
var _ jobs.Consumer = (*Queue)(nil)
