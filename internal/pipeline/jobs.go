package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/analyzer"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/document"
	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/report"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusDone      JobStatus = "done"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s JobStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusCancelled
}

// Job tracks the state of a single report analysis.
type Job struct {
	mu sync.Mutex

	ID       string
	Filename string
	Title    string
	Mode     analyzer.Mode
	Strict   bool

	Status   JobStatus
	Phase    string
	Analyzer string
	Progress Progress

	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Internal: not serialized.
	doc             *document.Document
	result          *report.AnalysisResult
	cancel          context.CancelFunc
	cancelRequested bool
	errors          []string
}

// Progress tracks chunk-level progress as reported by the analyzer.
type Progress struct {
	TotalChunks     int      `json:"total_chunks"`
	ChunksProcessed int      `json:"chunks_processed"`
	FailedChunks    int      `json:"failed_chunks"`
	Errors          []string `json:"errors"`
}

// NewJob creates a queued job for a parsed document.
func NewJob(filename string, doc *document.Document, mode analyzer.Mode, strict bool) *Job {
	now := time.Now()
	hashed := doc.Source
	if hashed == nil {
		hashed = []byte(doc.FullText())
	}
	return &Job{
		ID:          uuid.NewString(),
		Filename:    filename,
		Title:       doc.Title,
		Mode:        mode,
		Strict:      strict,
		Status:      StatusQueued,
		Phase:       "queued",
		ContentHash: ContentHashHex(hashed),
		CreatedAt:   now,
		UpdatedAt:   now,
		doc:         doc,
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

func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs idle for longer than the TTL. Queued and
// running jobs are never evicted.
func (s *JobStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, job := range s.jobs {
		snap := job.Snapshot()
		if snap.Status.Terminal() && now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
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

// Observe folds an analyzer progress event into the job.
func (j *Job) Observe(ev analyzer.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return
	}
	j.Phase = ev.Phase
	if ev.Analyzer != "" {
		j.Analyzer = ev.Analyzer
	}
	if ev.Total > 0 {
		j.Progress.TotalChunks = ev.Total
	}
	if ev.Done > j.Progress.ChunksProcessed {
		j.Progress.ChunksProcessed = ev.Done
	}
	if ev.Failed > j.Progress.FailedChunks {
		j.Progress.FailedChunks = ev.Failed
	}
	j.UpdatedAt = time.Now()
}

// start moves a queued job to running and records its cancel func. It
// returns false when the job was cancelled while it waited in the queue.
func (j *Job) start(cancel context.CancelFunc) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusQueued {
		return false
	}
	j.cancel = cancel
	j.Status = StatusRunning
	j.Phase = "selecting"
	j.UpdatedAt = time.Now()
	return true
}

// Cancel stops a queued or running job. It returns false when the job has
// already finished.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.Status {
	case StatusQueued:
		j.Status = StatusCancelled
		j.Phase = "cancelled"
		j.doc = nil
	case StatusRunning:
		j.cancelRequested = true
		if j.cancel != nil {
			j.cancel()
		}
	default:
		return false
	}
	j.UpdatedAt = time.Now()
	return true
}

// CancelRequested reports whether Cancel was called while the job ran.
func (j *Job) CancelRequested() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelRequested
}

// finish records the final state and result. The document is released.
func (j *Job) finish(status JobStatus, res *report.AnalysisResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = string(status)
	j.result = res
	j.doc = nil
	j.cancel = nil
	j.UpdatedAt = time.Now()
}

// Document returns the parsed document, or nil once the job has finished.
func (j *Job) Document() *document.Document {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.doc
}

// Result returns the analysis result. Cancelled jobs may carry a partial
// result; the bool is false when there is none.
func (j *Job) Result() (report.AnalysisResult, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.result == nil {
		return report.AnalysisResult{}, false
	}
	return *j.result, true
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string        `json:"job_id"`
	Filename    string        `json:"filename"`
	Title       string        `json:"title"`
	Mode        analyzer.Mode `json:"mode"`
	Analyzer    string        `json:"analyzer,omitempty"`
	Status      JobStatus     `json:"status"`
	Phase       string        `json:"phase"`
	Progress    Progress      `json:"progress"`
	ContentHash string        `json:"content_hash,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	return JobSnapshot{
		ID:       j.ID,
		Filename: j.Filename,
		Title:    j.Title,
		Mode:     j.Mode,
		Analyzer: j.Analyzer,
		Status:   j.Status,
		Phase:    j.Phase,
		Progress: Progress{
			TotalChunks:     j.Progress.TotalChunks,
			ChunksProcessed: j.Progress.ChunksProcessed,
			FailedChunks:    j.Progress.FailedChunks,
			Errors:          errs,
		},
		ContentHash: j.ContentHash,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
