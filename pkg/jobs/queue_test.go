package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := []string{}
	done := make(chan struct{}, 3)

	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "noop"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("job not processed")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)
}

func TestQueueRetriesThenDeadLetters(t *testing.T) {
	var calls int32
	dead := make(chan Job, 1)

	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("broker down")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		DeadLetter: func(job Job, err error) { dead <- job },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "evt-1", Type: "repair.request.assigned"}))

	select {
	case job := <-dead:
		assert.Equal(t, "evt-1", job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(time.Second):
		t.Fatal("job never dead-lettered")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueRejectsWhenStoppedOrFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})

	assert.Error(t, q.Enqueue(Job{ID: "early"}))

	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	require.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "2"}))
	assert.ErrorIs(t, q.Enqueue(Job{ID: "3"}), ErrQueueFull)

	close(block)
	q.Stop()
	assert.Error(t, q.Enqueue(Job{ID: "late"}))
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	var delivered, cancelled int32
	q := NewQueue("drain", func(ctx context.Context, job Job) error {
		time.Sleep(20 * time.Millisecond)
		if ctx.Err() != nil {
			atomic.AddInt32(&cancelled, 1)
		}
		atomic.AddInt32(&delivered, 1)
		return nil
	}, QueueConfig{Workers: 1, DrainTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{ID: string(rune('a' + i)), Type: "repair.request.assigned"}))
	}
	cancel()
	q.Stop()

	assert.Equal(t, int32(5), atomic.LoadInt32(&delivered))
	assert.Zero(t, atomic.LoadInt32(&cancelled))
	assert.Error(t, q.Enqueue(Job{ID: "late"}))
}

func TestQueueStopCancelsAfterDrainTimeout(t *testing.T) {
	started := make(chan struct{})
	var sawCancel int32
	q := NewQueue("stuck", func(ctx context.Context, job Job) error {
		close(started)
		<-ctx.Done()
		atomic.StoreInt32(&sawCancel, 1)
		return nil
	}, QueueConfig{Workers: 1, DrainTimeout: 20 * time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "blocked"}))
	require.NoError(t, q.Enqueue(Job{ID: "left-behind"}))
	<-started

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not return after the drain timeout")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&sawCancel))
	assert.Equal(t, 1, q.Len())
}
