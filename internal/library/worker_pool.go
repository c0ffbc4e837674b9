package library

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Task is one unit of refresh work.
type Task func(ctx context.Context) error

// WorkerPool runs submitted tasks on a fixed number of goroutines.
type WorkerPool struct {
	workerCount int
	taskQueue   chan Task
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *slog.Logger

	closeMu sync.Mutex
	closed  bool

	failed atomic.Int64
	done   atomic.Int64
}

// NewWorkerPool creates a pool bound to ctx. Cancelling ctx stops the workers
// after their current task.
func NewWorkerPool(ctx context.Context, workerCount int, logger *slog.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	poolCtx, cancel := context.WithCancel(ctx)
	return &WorkerPool{
		workerCount: workerCount,
		taskQueue:   make(chan Task, workerCount*2),
		ctx:         poolCtx,
		cancel:      cancel,
		logger:      logger,
	}
}

func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.logger.Debug("worker_pool_started", "workers", wp.workerCount)
}

// Submit queues a task. It returns false when the pool is shutting down.
func (wp *WorkerPool) Submit(task Task) bool {
	wp.closeMu.Lock()
	defer wp.closeMu.Unlock()
	if wp.closed || wp.ctx.Err() != nil {
		return false
	}
	select {
	case wp.taskQueue <- task:
		return true
	case <-wp.ctx.Done():
		wp.logger.Debug("worker_pool_task_rejected")
		return false
	}
}

// Wait closes the queue and blocks until every queued task has run.
func (wp *WorkerPool) Wait() {
	wp.closeMu.Lock()
	if !wp.closed {
		close(wp.taskQueue)
		wp.closed = true
	}
	wp.closeMu.Unlock()

	wp.wg.Wait()
	wp.cancel()
}

// Shutdown cancels the workers and waits for them.
func (wp *WorkerPool) Shutdown() {
	wp.cancel()
	wp.Wait()
}

// Stats returns how many tasks finished and how many of those failed.
func (wp *WorkerPool) Stats() (done, failed int64) {
	return wp.done.Load(), wp.failed.Load()
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		select {
		case <-wp.ctx.Done():
			// drain so Wait does not block on a full queue
			continue
		default:
		}

		if err := task(wp.ctx); err != nil {
			wp.failed.Add(1)
			wp.logger.Warn("worker_task_failed", "worker", id, "error", err)
		}
		wp.done.Add(1)
	}
}
