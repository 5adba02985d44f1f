package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() Options {
	return Options{Workers: 2, Buffer: 8, MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, AttemptTimeout: time.Second}
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	q := NewQueue(fastOptions())
	q.Start()

	var calls atomic.Int32
	done := make(chan struct{})
	require.True(t, q.Enqueue("flaky", func(ctx context.Context) error {
		if calls.Add(1) < 3 {
			return errors.New("smtp indisponible")
		}
		close(done)
		return nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("la tâche n'a pas abouti")
	}
	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueueStopsAfterMaxAttempts(t *testing.T) {
	q := NewQueue(fastOptions())
	q.Start()

	var calls atomic.Int32
	q.Enqueue("always-fails", func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	})
	var permanentCalls atomic.Int32
	q.Enqueue("permanent", func(ctx context.Context) error {
		permanentCalls.Add(1)
		return Permanent(errors.New("adresse invalide"))
	})

	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int32(1), permanentCalls.Load())
}

func TestQueueRefusesWhenFullOrClosed(t *testing.T) {
	q := NewQueue(Options{Workers: 1, Buffer: 1})

	noop := func(ctx context.Context) error { return nil }
	assert.True(t, q.Enqueue("a", noop))
	assert.False(t, q.Enqueue("b", noop))

	q.Start()
	require.NoError(t, q.Shutdown(context.Background()))
	assert.False(t, q.Enqueue("c", noop))
}

func TestQueueRecoversFromPanics(t *testing.T) {
	q := NewQueue(fastOptions())
	q.Start()

	var ran atomic.Bool
	q.Enqueue("panics", func(ctx context.Context) error { panic("oups") })
	q.Enqueue("after", func(ctx context.Context) error { ran.Store(true); return nil })

	require.NoError(t, q.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}
