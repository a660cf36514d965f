package service

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_Go(t *testing.T) {
	pool, err := NewWorkerPool(WorkerPoolConfig{Size: 2}, slog.Default())
	require.NoError(t, err)
	defer pool.Shutdown()

	assert.Equal(t, 2, pool.Capacity())

	taskErr := errors.New("store down")
	ok := pool.Go(func() error { return nil })
	failed := pool.Go(func() error { return taskErr })

	assert.NoError(t, <-ok)
	assert.ErrorIs(t, <-failed, taskErr)
}

func TestWorkerPool_BoundsConcurrency(t *testing.T) {
	pool, err := NewWorkerPool(WorkerPoolConfig{Size: 2}, slog.Default())
	require.NoError(t, err)
	defer pool.Shutdown()

	var running, peak int32
	results := make([]<-chan error, 6)
	for i := range results {
		results[i] = pool.Go(func() error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		})
	}
	for _, r := range results {
		assert.NoError(t, <-r)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestWorkerPool_NilRunsInline(t *testing.T) {
	var pool *WorkerPool
	assert.NoError(t, <-pool.Go(func() error { return nil }))
	pool.Shutdown()
}
