package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForState(t *testing.T, q *Queue, id string, want State) Status {
	t.Helper()
	var status Status
	require.Eventually(t, func() bool {
		var ok bool
		status, ok = q.Status(id)
		return ok && status.State == want
	}, 2*time.Second, 5*time.Millisecond)
	return status
}

func TestQueueRunsJob(t *testing.T) {
	var handled atomic.Int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		handled.Add(1)
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "noop"}))
	waitForState(t, q, "job-1", StateSucceeded)
	assert.Equal(t, int32(1), handled.Load())
}

func TestQueueRetriesThenFails(t *testing.T) {
	var attempts atomic.Int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		attempts.Add(1)
		return errors.New("boom")
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	status := waitForState(t, q, "job-1", StateFailed)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, "boom", status.Error)
}

func TestQueuePermanentErrorSkipsRetry(t *testing.T) {
	assert.True(t, IsPermanent(fmt.Errorf("wrapped: %w", Permanent(errors.New("x")))))
	var attempts atomic.Int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		attempts.Add(1)
		return Permanent(errors.New("bad payload"))
	}, QueueConfig{MaxRetries: 5, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	waitForState(t, q, "job-1", StateFailed)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "job-1"}))
	_, ok := q.Status("job-1")
	assert.False(t, ok)
}

func TestQueueForgetsOldestStatus(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{BufferSize: 4, MaxTracked: 2})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))
	require.NoError(t, q.Enqueue(Job{ID: "c"}))

	_, ok := q.Status("a")
	assert.False(t, ok)
	_, ok = q.Status("c")
	assert.True(t, ok)
}
