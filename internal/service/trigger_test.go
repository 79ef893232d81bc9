package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRunner struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
	err     error
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (r *blockingRunner) RunBatch(_ context.Context, now time.Time) (BatchResult, error) {
	r.calls.Add(1)
	select {
	case r.started <- struct{}{}:
	default:
	}
	<-r.release
	return BatchResult{StartedAt: now, Processed: 2, Created: 1, Failed: 1}, r.err
}

func TestTrigger_RejectsOverlap(t *testing.T) {
	runner := newBlockingRunner()
	trig := NewTrigger(runner, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		trig.Tick(context.Background())
		close(done)
	}()
	<-runner.started

	_, err := trig.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrBatchInFlight)

	// A periodic tick during the batch is dropped, not queued.
	trig.Tick(context.Background())

	close(runner.release)
	<-done
	assert.EqualValues(t, 1, runner.calls.Load())
}

func TestTrigger_RunNowRecordsOutcome(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	trig := NewTrigger(runner, zerolog.Nop())
	fixed := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	trig.now = func() time.Time { return fixed }

	_, ok := trig.Last()
	assert.False(t, ok)

	var observed []BatchResult
	trig.OnBatch(func(res BatchResult, err error) {
		assert.NoError(t, err)
		observed = append(observed, res)
	})

	res, err := trig.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, fixed, res.StartedAt)

	last, ok := trig.Last()
	require.True(t, ok)
	assert.Equal(t, res, last.Result)
	assert.NoError(t, last.Err)
	assert.Len(t, observed, 1)
}

func TestTrigger_TickKeepsErrors(t *testing.T) {
	runner := newBlockingRunner()
	runner.err = errors.New("store offline")
	close(runner.release)
	trig := NewTrigger(runner, zerolog.Nop())

	trig.Tick(context.Background())

	last, ok := trig.Last()
	require.True(t, ok)
	assert.EqualError(t, last.Err, "store offline")

	// The trigger stays usable for the next cadence.
	trig.Tick(context.Background())
	assert.EqualValues(t, 2, runner.calls.Load())
}
