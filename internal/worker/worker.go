package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Task is a unit of periodic or on-demand work, e.g. a refresh or a sweep.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type ProcessFunc func(ctx context.Context, task Task) error

// RunTask is the default processor: it runs the task and logs failures.
func RunTask(ctx context.Context, task Task) error {
	slog.Debug("task started", "task", task.Name)
	if err := task.Run(ctx); err != nil {
		slog.Error("task failed", "task", task.Name, "error", err)
		return err
	}
	slog.Debug("task complete", "task", task.Name)
	return nil
}

type WorkerPool struct {
	numWorkers int
	jobs       chan Task
	processor  ProcessFunc
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewWorkerPool(numWorkers int, bufferSize int, processor ProcessFunc) *WorkerPool {
	if processor == nil {
		processor = RunTask
	}
	return &WorkerPool{
		numWorkers: numWorkers,
		jobs:       make(chan Task, bufferSize),
		processor:  processor,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-wp.jobs:
			if !ok {
				return
			}
			wp.processor(ctx, task)
		}
	}
}

// Submit queues task, waiting for room until ctx is done. It returns false
// once the pool is stopped.
func (wp *WorkerPool) Submit(ctx context.Context, task Task) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}

	select {
	case wp.jobs <- task:
		return true
	case <-ctx.Done():
		return false
	}
}

// TrySubmit queues task only if there is room right now.
func (wp *WorkerPool) TrySubmit(task Task) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}

	select {
	case wp.jobs <- task:
		return true
	default:
		return false
	}
}

// Pending is the number of queued tasks not yet picked up by a worker.
func (wp *WorkerPool) Pending() int {
	return len(wp.jobs)
}

func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.closed {
		wp.closed = true
		close(wp.jobs)
	}
	wp.mu.Unlock()
	wp.wg.Wait()
}
