package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/khimraj/budget-planner/internal/jobs"
)

func TestQueue_PublishAndProcess(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan string, 1)
	handler := func(ctx context.Context, job *jobs.NormalizeUploadJob) error {
		done <- job.UploadID
		return nil
	}
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.NormalizeUploadJob{UploadID: "upload-1", RawPath: "/tmp/raw.csv"}
	if err := q.PublishNormalizeUpload(ctx, job); err != nil {
		t.Fatalf("PublishNormalizeUpload() error = %v", err)
	}

	select {
	case got := <-done:
		if got != "upload-1" {
			t.Errorf("handler got upload %q, want upload-1", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler was never invoked")
	}

	if job.JobID == "" {
		t.Error("publish should assign a job ID")
	}
}

func TestQueue_FailureMarksJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	attempts := 0
	handler := func(ctx context.Context, job *jobs.NormalizeUploadJob) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return errors.New("boom")
	}
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.NormalizeUploadJob{UploadID: "upload-2", MaxRetries: 1}
	if err := q.PublishNormalizeUpload(ctx, job); err != nil {
		t.Fatalf("PublishNormalizeUpload() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		got, err := store.GetJob(ctx, job.JobID)
		if err == nil && got.Status == jobs.JobStatusFailed {
			if got.Error == "" {
				t.Error("failed job should record the error")
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job never reached failed status (last: %+v)", got)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, 1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err := q.PublishNormalizeUpload(context.Background(), &jobs.NormalizeUploadJob{UploadID: "late"})
	if err == nil {
		t.Error("publish after close should fail")
	}
}

func TestStore_Filters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	seed := []*jobs.NormalizeUploadJob{
		{JobID: "1", UploadID: "a", Status: jobs.JobStatusCompleted},
		{JobID: "2", UploadID: "a", Status: jobs.JobStatusFailed},
		{JobID: "3", UploadID: "b", Status: jobs.JobStatusCompleted},
	}
	for _, j := range seed {
		if err := store.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob(%s) error = %v", j.JobID, err)
		}
	}

	byUpload, err := store.ListJobs(ctx, jobs.JobFilter{UploadID: "a"})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(byUpload) != 2 {
		t.Errorf("jobs for upload a = %d, want 2", len(byUpload))
	}

	byStatus, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(byStatus) != 2 {
		t.Errorf("completed jobs = %d, want 2", len(byStatus))
	}

	if _, err := store.GetJob(ctx, "nope"); err == nil {
		t.Error("GetJob of unknown ID should fail")
	}
}
