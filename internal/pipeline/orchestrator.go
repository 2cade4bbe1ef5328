package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thedamdocta/credit-report-highlighter-sub001/internal/analyzer"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobFinished = errors.New("job already finished")
	ErrStopped     = errors.New("pipeline stopped")
)

// Options size the worker pool.
type Options struct {
	Workers   int
	QueueSize int
	JobTTL    time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 100
	}
	if o.JobTTL <= 0 {
		o.JobTTL = time.Hour
	}
	return o
}

// Orchestrator runs analysis jobs on a fixed pool of workers.
type Orchestrator struct {
	jobs  *JobStore
	queue chan *Job
	deps  *analyzer.Deps
	log   *slog.Logger
	opts  Options

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(deps *analyzer.Deps, opts Options, log *slog.Logger) *Orchestrator {
	opts = opts.withDefaults()
	return &Orchestrator{
		jobs:  NewJobStore(opts.JobTTL),
		queue: make(chan *Job, opts.QueueSize),
		deps:  deps,
		log:   log,
		opts:  opts,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.opts.Workers {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.deps, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n := o.jobs.Cleanup(); n > 0 {
					o.log.Debug("evicted expired jobs", "count", n)
				}
			}
		}
	}()
}

// Stop cancels running jobs and waits for the workers to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return ErrStopped
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.finish(StatusFailed, nil)
		job.AddError("queue full")
		return fmt.Errorf("job queue is full (%d)", o.opts.QueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// Cancel stops a queued or running job.
func (o *Orchestrator) Cancel(id string) error {
	job := o.jobs.Get(id)
	if job == nil {
		return ErrJobNotFound
	}
	if !job.Cancel() {
		return ErrJobFinished
	}
	o.log.Info("job cancel requested", "job_id", id)
	return nil
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// JobCount returns the number of tracked jobs.
func (o *Orchestrator) JobCount() int {
	return o.jobs.Len()
}
