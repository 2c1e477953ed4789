package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/khimraj/budget-planner/internal/jobs"
)

// Store keeps job state in memory. Data is lost on restart.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.NormalizeUploadJob
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.NormalizeUploadJob)}
}

// SaveJob implements jobs.JobStore.
func (s *Store) SaveJob(ctx context.Context, job *jobs.NormalizeUploadJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	return nil
}

// GetJob implements jobs.JobStore.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.NormalizeUploadJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs implements jobs.JobStore.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.NormalizeUploadJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.NormalizeUploadJob
	for _, job := range s.jobs {
		if filter.UploadID != "" && job.UploadID != filter.UploadID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

var _ jobs.JobStore = (*Store)(nil)
