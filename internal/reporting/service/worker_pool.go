package service

import (
	"log/slog"

	"github.com/panjf2000/ants/v2"
)

// WorkerPool bounds the number of store calls the service runs concurrently.
type WorkerPool struct {
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPool(config WorkerPoolConfig, logger *slog.Logger) (*WorkerPool, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}
	return &WorkerPool{pool: pool, logger: logger}, nil
}

// Go runs task on the pool and returns a channel that yields its error exactly
// once. A nil pool runs the task inline. When the pool rejects the task the
// submission error is delivered instead.
func (w *WorkerPool) Go(task func() error) <-chan error {
	result := make(chan error, 1)

	if w == nil || w.pool == nil {
		result <- task()
		return result
	}

	if err := w.pool.Submit(func() { result <- task() }); err != nil {
		w.logger.Error("Failed to submit task to worker pool", "error", err)
		result <- err
	}
	return result
}

// Shutdown releases the pool's workers.
func (w *WorkerPool) Shutdown() {
	if w == nil || w.pool == nil {
		return
	}
	w.logger.Info("Shutting down worker pool", "running_workers", w.pool.Running())
	w.pool.Release()
}

// Running returns the number of running workers in the pool.
func (w *WorkerPool) Running() int {
	return w.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (w *WorkerPool) Capacity() int {
	return w.pool.Cap()
}
