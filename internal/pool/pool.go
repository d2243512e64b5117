package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Yuichizx/devops-tools-hub/internal/domain"
	"github.com/Yuichizx/devops-tools-hub/internal/metrics"
	"github.com/Yuichizx/devops-tools-hub/internal/queue"
	"github.com/Yuichizx/devops-tools-hub/internal/repository"
)

// DefaultSize is the worker count used when none is configured.
const DefaultSize = 1

var _ repository.Dispatcher = (*WorkerPool)(nil)

// JobProcessor runs one scan job to completion.
type JobProcessor interface {
	Execute(ctx context.Context, job *domain.ScanJob) error
}

// WorkerPool manages a fixed-size pool of goroutines consuming a shared FIFO.
// Workers are started lazily by the first Dispatch and run until ctx is done.
type WorkerPool struct {
	ctx       context.Context
	size      int
	jobs      *queue.Queue[*domain.ScanJob]
	processor JobProcessor
	logger    *zap.Logger

	once sync.Once
	wg   sync.WaitGroup
}

// NewWorkerPool creates a new fixed-size worker pool. Cancelling ctx stops the
// workers once their current job is finished.
func NewWorkerPool(ctx context.Context, size int, processor JobProcessor, logger *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = DefaultSize
	}
	return &WorkerPool{
		ctx:       ctx,
		size:      size,
		jobs:      queue.New[*domain.ScanJob](),
		processor: processor,
		logger:    logger,
	}
}

// Dispatch enqueues a job and starts the workers on first use. It never blocks.
func (p *WorkerPool) Dispatch(ctx context.Context, job *domain.ScanJob) error {
	if err := p.ctx.Err(); err != nil {
		return fmt.Errorf("worker pool stopped: %w", err)
	}
	p.Start()
	p.jobs.Push(job)
	metrics.QueueDepth.Set(float64(p.jobs.Len()))
	return nil
}

// Start launches all worker goroutines. It is safe to call more than once.
func (p *WorkerPool) Start() {
	p.once.Do(func() {
		p.logger.Info("Starting worker pool", zap.Int("pool_size", p.size))
		for i := 0; i < p.size; i++ {
			p.wg.Add(1)
			go p.worker(i + 1)
		}
	})
}

// Stop waits for all workers to finish their current jobs and exit.
// Cancel the pool context first.
func (p *WorkerPool) Stop() {
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// Pending returns the number of jobs waiting for a worker.
func (p *WorkerPool) Pending() int {
	return p.jobs.Len()
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Worker started", zap.Int("worker_id", id))

	for {
		job, err := p.jobs.Pop(p.ctx)
		if err != nil {
			p.logger.Debug("Worker shutting down", zap.Int("worker_id", id))
			return
		}
		metrics.QueueDepth.Set(float64(p.jobs.Len()))
		p.process(id, job)
	}
}

// process runs one job. A started scan is not cancelled by pool shutdown, and
// a failing or panicking job never takes the worker down with it.
func (p *WorkerPool) process(id int, job *domain.ScanJob) {
	p.logger.Info("Worker processing job",
		zap.Int("worker_id", id),
		zap.String("task_id", job.TaskID),
		zap.String("project_key", job.ProjectKey),
	)

	metrics.WorkersActive.Inc()
	startTime := time.Now()
	defer func() {
		metrics.WorkersActive.Dec()
		metrics.ScanDuration.Observe(time.Since(startTime).Seconds())
		if r := recover(); r != nil {
			p.logger.Error("Worker panic recovered",
				zap.Int("worker_id", id),
				zap.String("task_id", job.TaskID),
				zap.Any("panic", r),
			)
		}
	}()

	if err := p.processor.Execute(context.WithoutCancel(p.ctx), job); err != nil {
		p.logger.Error("Job execution failed",
			zap.Int("worker_id", id),
			zap.String("task_id", job.TaskID),
			zap.Error(err),
		)
	}
}
