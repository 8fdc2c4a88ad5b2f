// Package queue serializes transcription of uploaded files. Only one
// job is in the processing state at a time, so upload-style vendors
// never see concurrent requests from the same deployment.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobState describes where a job is in its lifecycle.
type JobState string

const (
	StatePending    JobState = "pending"
	StateProcessing JobState = "processing"
	StateDone       JobState = "done"
	StateFailed     JobState = "failed"
)

// Job is one queued audio file. Each job keeps its own result text so
// callers can address every source independently.
type Job struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	State    JobState  `json:"state"`
	Text     string    `json:"text,omitempty"`
	Error    string    `json:"error,omitempty"`
	Enqueued time.Time `json:"enqueued"`
	Finished time.Time `json:"finished,omitempty"`

	data []byte
}

// TranscribeFunc converts one audio payload into final text.
type TranscribeFunc func(ctx context.Context, label string, data []byte) (string, error)

// Queue runs queued jobs one at a time through a TranscribeFunc.
type Queue struct {
	transcribe TranscribeFunc
	logger     *slog.Logger

	mu      sync.Mutex
	jobs    map[string]*Job
	order   []string
	pending chan string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a queue with capacity pending slots and starts its
// worker.
func New(transcribe TranscribeFunc, capacity int, logger *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		transcribe: transcribe,
		logger:     logger,
		jobs:       make(map[string]*Job),
		pending:    make(chan string, capacity),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go q.worker()
	return q
}

// Enqueue adds a file to the queue and returns the created job.
func (q *Queue) Enqueue(label string, data []byte) (*Job, error) {
	job := &Job{
		ID:       uuid.NewString(),
		Label:    label,
		State:    StatePending,
		Enqueued: time.Now().UTC(),
		data:     data,
	}

	q.mu.Lock()
	q.jobs[job.ID] = job
	q.order = append(q.order, job.ID)
	q.mu.Unlock()

	select {
	case q.pending <- job.ID:
	default:
		q.mu.Lock()
		job.State = StateFailed
		job.Error = "queue full"
		job.Finished = time.Now().UTC()
		q.mu.Unlock()
		return q.snapshot(job.ID), nil
	}

	q.logger.Info("job enqueued", "job_id", job.ID, "label", label, "size", len(data))
	return q.snapshot(job.ID), nil
}

// Get returns a copy of the job, or nil if unknown.
func (q *Queue) Get(id string) *Job {
	return q.snapshot(id)
}

// List returns all jobs in enqueue order.
func (q *Queue) List() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Job, 0, len(q.order))
	for _, id := range q.order {
		job := *q.jobs[id]
		job.data = nil
		out = append(out, job)
	}
	return out
}

// Depth returns the number of jobs not yet terminal.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, job := range q.jobs {
		if job.State == StatePending || job.State == StateProcessing {
			n++
		}
	}
	return n
}

// Shutdown stops the worker after the in-flight job finishes.
func (q *Queue) Shutdown() {
	q.cancel()
	<-q.done
}

func (q *Queue) worker() {
	defer close(q.done)

	for {
		select {
		case <-q.ctx.Done():
			return
		case id := <-q.pending:
			q.process(id)
		}
	}
}

func (q *Queue) process(id string) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.State != StatePending {
		q.mu.Unlock()
		return
	}
	job.State = StateProcessing
	label, data := job.Label, job.data
	q.mu.Unlock()

	text, err := q.transcribe(q.ctx, label, data)

	q.mu.Lock()
	job.Finished = time.Now().UTC()
	job.data = nil
	if err != nil {
		job.State = StateFailed
		job.Error = err.Error()
	} else {
		job.State = StateDone
		job.Text = text
	}
	q.mu.Unlock()

	if err != nil {
		q.logger.Error("job failed", "job_id", id, "label", label, "error", err)
	} else {
		q.logger.Info("job completed", "job_id", id, "label", label, "text_len", len(text))
	}
}

func (q *Queue) snapshot(id string) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil
	}
	cp := *job
	cp.data = nil
	return &cp
}
