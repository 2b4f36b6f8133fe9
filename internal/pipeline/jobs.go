package pipeline

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/emdoc/internal/diag"
)

// JobStatus represents the state of a batch render job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRendering JobStatus = "rendering"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
	StatusCanceled  JobStatus = "canceled"
)

// Job tracks the rendering of a batch of documents.
type Job struct {
	mu sync.Mutex

	ID    string   `json:"job_id"`
	Paths []string `json:"paths"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	results []DocumentResult
	errors  []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalDocuments int      `json:"total_documents"`
	Rendered       int      `json:"rendered"`
	Failed         int      `json:"failed"`
	Diagnostics    int      `json:"diagnostics"`
	Errors         []string `json:"errors"`
}

// DocumentResult is the outcome of one document of a job.
type DocumentResult struct {
	Path        string            `json:"path"`
	Title       string            `json:"title,omitempty"`
	ContentHash string            `json:"content_hash,omitempty"`
	HTML        string            `json:"html,omitempty"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
	Error       string            `json:"error,omitempty"`
	DurationMs  int64             `json:"duration_ms"`
}

// NewJob creates a queued job for paths.
func NewJob(paths []string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Paths:     slices.Clone(paths),
		Status:    StatusQueued,
		Phase:     "queued",
		Progress:  Progress{TotalDocuments: len(paths)},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// AddResult records the outcome of one document.
func (j *Job) AddResult(r DocumentResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, r)
	if r.Error != "" {
		j.Progress.Failed++
	} else {
		j.Progress.Rendered++
	}
	j.Progress.Diagnostics += len(r.Diagnostics)
	j.UpdatedAt = time.Now()
}

// Results returns the document results recorded so far.
func (j *Job) Results() []DocumentResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.results)
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string           `json:"job_id"`
	Status   JobStatus        `json:"status"`
	Phase    string           `json:"phase"`
	Paths    []string         `json:"paths"`
	Progress Progress         `json:"progress"`
	Results  []DocumentResult `json:"results"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := slices.Clone(j.Progress.Errors)
	if errs == nil {
		errs = []string{}
	}
	results := slices.Clone(j.results)
	if results == nil {
		results = []DocumentResult{}
	}
	return JobSnapshot{
		ID:     j.ID,
		Status: j.Status,
		Phase:  j.Phase,
		Paths:  slices.Clone(j.Paths),
		Progress: Progress{
			TotalDocuments: j.Progress.TotalDocuments,
			Rendered:       j.Progress.Rendered,
			Failed:         j.Progress.Failed,
			Diagnostics:    j.Progress.Diagnostics,
			Errors:         errs,
		},
		Results: results,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
