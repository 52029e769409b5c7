package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/logger"
)

// ErrPoolStopped is returned by Submit after Stop has been called.
var ErrPoolStopped = errors.New("worker pool stopped")

// Job is one unit of generation work. Run receives a context that is
// cancelled when the job's own context is cancelled or the pool stops.
type Job struct {
	ID   uuid.UUID
	Type string
	Run  func(ctx context.Context) error
	// Done, if set, is called after Run returns, on the worker goroutine.
	Done func(err error)

	ctx context.Context
}

type Pool struct {
	log         *logger.Logger
	jobs        chan *Job
	workerCount int
	jobTimeout  time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	mu       sync.RWMutex
	stopped  bool
	wg       sync.WaitGroup
}

// NewPool creates a pool with workerCount goroutines and a queue of queueSize
// pending jobs. A zero jobTimeout means jobs only end when their context does.
func NewPool(log *logger.Logger, workerCount, queueSize int, jobTimeout time.Duration) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		log:         logger.OrNop(log),
		jobs:        make(chan *Job, queueSize),
		workerCount: workerCount,
		jobTimeout:  jobTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.Info("started worker goroutines", "count", p.workerCount)
}

// Stop cancels running jobs, drains the queue and waits for the workers to exit.
// Queued jobs that never ran get their Done callback with ErrPoolStopped.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.mu.Lock()
		p.stopped = true
		close(p.jobs)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

// Submit queues job, blocking while the queue is full. It fails when ctx is
// done or the pool has stopped.
func (p *Pool) Submit(ctx context.Context, job *Job) error {
	if job == nil || job.Run == nil {
		return fmt.Errorf("worker: job has no Run func")
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.ctx = ctx

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

// Go submits fn as an anonymous job and reports its result through done.
func (p *Pool) Go(ctx context.Context, jobType string, fn func(ctx context.Context) error, done func(err error)) error {
	return p.Submit(ctx, &Job{Type: jobType, Run: fn, Done: done})
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		if p.ctx.Err() != nil {
			p.finish(job, ErrPoolStopped)
			continue
		}
		p.log.Debug("processing job", "worker", id, "job_id", job.ID, "type", job.Type)
		p.finish(job, p.run(job))
	}
	p.log.Debug("worker shutting down", "worker", id)
}

func (p *Pool) run(job *Job) (err error) {
	ctx, cancel := p.jobContext(job.ctx)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker: job %s panicked: %v", job.ID, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return job.Run(ctx)
}

// jobContext merges the submitter's context with the pool lifetime.
func (p *Pool) jobContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(p.ctx, cancel)
	if p.jobTimeout > 0 {
		tctx, tcancel := context.WithTimeout(ctx, p.jobTimeout)
		return tctx, func() {
			tcancel()
			stop()
			cancel()
		}
	}
	return ctx, func() {
		stop()
		cancel()
	}
}

func (p *Pool) finish(job *Job, err error) {
	if err != nil {
		p.handleFailure(job, err)
	} else {
		p.log.Debug("job completed", "job_id", job.ID, "type", job.Type)
	}
	if job.Done != nil {
		job.Done(err)
	}
}

func (p *Pool) handleFailure(job *Job, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrPoolStopped) {
		p.log.Info("job cancelled", "job_id", job.ID, "type", job.Type)
		return
	}
	p.log.Warn("job failed", "job_id", job.ID, "type", job.Type, "error", err)
}
