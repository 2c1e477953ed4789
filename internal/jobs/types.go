package jobs

import (
	"context"
	"time"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// NormalizeUploadJob asks the worker to normalize one uploaded file into the
// canonical transactions source.
type NormalizeUploadJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// UploadID identifies the upload this job belongs to.
	UploadID string `json:"upload_id"`

	// RawPath is where the uploaded file was saved.
	RawPath string `json:"raw_path"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds failure details when Status is failed.
	Error string `json:"error,omitempty"`

	// RetryCount and MaxRetries control re-execution after failure.
	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Publisher enqueues normalization jobs.
type Publisher interface {
	PublishNormalizeUpload(ctx context.Context, job *NormalizeUploadJob) error
	Close() error
}

// Handler processes one job; returning an error triggers a retry.
type Handler func(ctx context.Context, job *NormalizeUploadJob) error

// Consumer pulls jobs and hands them to a Handler.
type Consumer interface {
	Start(ctx context.Context, handler Handler) error
	Stop(ctx context.Context) error
}

// JobStore tracks job state so the API can report upload progress.
type JobStore interface {
	SaveJob(ctx context.Context, job *NormalizeUploadJob) error
	GetJob(ctx context.Context, jobID string) (*NormalizeUploadJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*NormalizeUploadJob, error)
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	UploadID string
	Status   JobStatus
	Limit    int
}
