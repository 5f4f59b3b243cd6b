package scheduler

import (
	"context"
	"errors"
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

func TestNext(t *testing.T) {
	from := time.Date(2026, 5, 4, 10, 2, 30, 0, time.UTC)
	next, err := Next("*/5 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 10, 5, 0, 0, time.UTC), next)

	next, err = Next("0 3 * * 1-5", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 5, 3, 0, 0, 0, time.UTC), next)

	_, err = Next("*/5 * * * * *", from)
	assert.Error(t, err)
	_, err = Next("every five minutes", from)
	assert.Error(t, err)
}

func TestSchedulerRunsAndStops(t *testing.T) {
	s := New(nil, time.Second)
	var runs int32
	require.NoError(t, s.Add("sweep", "* * * * *", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}))
	assert.Error(t, s.Add("broken", "nope", func(ctx context.Context) error { return nil }))

	s.run("sweep", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return errors.New("boom")
	})

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.LessOrEqual(t, atomic.LoadInt32(&runs), int32(1))
}

func TestSchedulerCancelsTasksOnStop(t *testing.T) {
	s := New(nil, 0)
	started := make(chan struct{})
	finished := make(chan error, 1)

	go s.run("long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		finished <- ctx.Err()
		return ctx.Err()
	})
	<-started

	require.NoError(t, s.Stop(context.Background()))
	select {
	case err := <-finished:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("task not cancelled")
	}
}
