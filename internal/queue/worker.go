package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cdaprod/captioner/internal/apperr"
	"github.com/cdaprod/captioner/internal/pipeline"
	"github.com/cdaprod/captioner/internal/types"
)

const (
	queueCapacity = 100
	// MaxRetainedJobs bounds how many finished jobs stay queryable.
	MaxRetainedJobs = 1000
)

// ErrStopped is returned by Enqueue once the pool has been stopped.
var ErrStopped = errors.New("worker pool stopped")

// Runner executes one generate request
type Runner interface {
	Generate(ctx context.Context, req pipeline.Request) (types.CaptionPaths, error)
}

// WorkerPool manages a pool of workers processing caption jobs
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	runner      Runner
	logger      *zap.Logger

	// closeMu orders sends on jobQueue against Stop closing it.
	closeMu sync.RWMutex
	stopped bool

	mu       sync.Mutex
	jobs     map[string]*Job
	finished []string

	wg sync.WaitGroup
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount int, runner Runner, logger *zap.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, queueCapacity),
		workerCount: workerCount,
		runner:      runner,
		logger:      logger.With(zap.String("component", "queue")),
		jobs:        make(map[string]*Job),
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	wp.logger.Info("starting worker pool", zap.Int("workers", wp.workerCount))
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue and waits for in-flight jobs to finish.
func (wp *WorkerPool) Stop() {
	wp.closeMu.Lock()
	if wp.stopped {
		wp.closeMu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.closeMu.Unlock()

	wp.wg.Wait()
	wp.logger.Info("worker pool stopped")
}

// Enqueue registers a job for req and hands it to the workers. It blocks
// while the queue is full until ctx is done.
func (wp *WorkerPool) Enqueue(ctx context.Context, req pipeline.Request) (types.JobSnapshot, error) {
	job := NewJob(uuid.NewString(), req)

	wp.closeMu.RLock()
	defer wp.closeMu.RUnlock()
	if wp.stopped {
		return types.JobSnapshot{}, ErrStopped
	}

	wp.mu.Lock()
	wp.jobs[job.ID] = job
	snap := job.snapshot()
	wp.mu.Unlock()

	select {
	case wp.jobQueue <- job:
	case <-ctx.Done():
		wp.mu.Lock()
		delete(wp.jobs, job.ID)
		wp.mu.Unlock()
		return types.JobSnapshot{}, apperr.Wrap(apperr.ErrUpstream, "enqueue", "job queue is full", ctx.Err())
	}

	wp.logger.Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("project", req.Project),
		zap.String("video", req.VideoRelPath),
	)
	return snap, nil
}

// Get returns the current state of a job.
func (wp *WorkerPool) Get(id string) (types.JobSnapshot, bool) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	job, ok := wp.jobs[id]
	if !ok {
		return types.JobSnapshot{}, false
	}
	return job.snapshot(), true
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		wp.processJob(id, job)
	}
}

func (wp *WorkerPool) processJob(workerID int, job *Job) {
	log := wp.logger.With(zap.Int("worker", workerID), zap.String("job_id", job.ID))
	wp.setStatus(job, types.StatusProcessing)

	var (
		result types.CaptionPaths
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic processing job", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = fmt.Errorf("worker panic: %v", r)
			}
		}()
		result, err = wp.runner.Generate(context.Background(), job.Request)
	}()

	wp.finish(job, result, err)
	if err != nil {
		log.Warn("job failed", zap.Error(err))
		return
	}
	log.Info("job completed", zap.String("srt", result.SRTRelPath))
}

func (wp *WorkerPool) setStatus(job *Job, status string) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	job.Status = status
}

func (wp *WorkerPool) finish(job *Job, result types.CaptionPaths, err error) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	job.FinishedAt = time.Now()
	if err != nil {
		job.Status = types.StatusFailed
		job.Error = errors.New(apperr.Message(err))
	} else {
		job.Status = types.StatusCompleted
		job.Result = &result
	}

	wp.finished = append(wp.finished, job.ID)
	for len(wp.finished) > MaxRetainedJobs {
		delete(wp.jobs, wp.finished[0])
		wp.finished = wp.finished[1:]
	}
}
