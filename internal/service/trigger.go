package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrBatchInFlight is returned by RunNow while another batch is running.
var ErrBatchInFlight = errors.New("batch already in progress")

// BatchRunner runs one materialization tick.
type BatchRunner interface {
	RunBatch(ctx context.Context, now time.Time) (BatchResult, error)
}

// BatchObserver is told about every finished batch.
type BatchObserver func(res BatchResult, err error)

// Trigger runs batches on the periodic cadence and on demand, never two at once.
type Trigger struct {
	runner BatchRunner
	now    func() time.Time
	log    zerolog.Logger

	running sync.Mutex

	mu        sync.RWMutex
	last      *BatchOutcome
	observers []BatchObserver
}

// BatchOutcome is a finished batch and its error, if any.
type BatchOutcome struct {
	Result BatchResult
	Err    error
}

func NewTrigger(runner BatchRunner, log zerolog.Logger) *Trigger {
	return &Trigger{
		runner: runner,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log.With().Str("component", "trigger").Logger(),
	}
}

// OnBatch registers an observer called after each batch.
func (t *Trigger) OnBatch(fn BatchObserver) {
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

// Tick is the periodic entry point. Overlapping ticks are dropped and
// failures are logged; the next cadence retries.
func (t *Trigger) Tick(ctx context.Context) {
	_, err := t.run(ctx)
	switch {
	case errors.Is(err, ErrBatchInFlight):
		t.log.Warn().Msg("previous batch still running; tick skipped")
	case err != nil:
		t.log.Error().Err(err).Msg("batch failed")
	}
}

// RunNow runs one batch immediately, outside the cadence.
func (t *Trigger) RunNow(ctx context.Context) (BatchResult, error) {
	t.log.Info().Msg("manual batch requested")
	return t.run(ctx)
}

// Last returns the most recent batch outcome, if any batch has run.
func (t *Trigger) Last() (BatchOutcome, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.last == nil {
		return BatchOutcome{}, false
	}
	return *t.last, true
}

func (t *Trigger) run(ctx context.Context) (BatchResult, error) {
	if !t.running.TryLock() {
		return BatchResult{}, ErrBatchInFlight
	}
	defer t.running.Unlock()

	res, err := t.runner.RunBatch(ctx, t.now())

	t.mu.Lock()
	t.last = &BatchOutcome{Result: res, Err: err}
	observers := append([]BatchObserver(nil), t.observers...)
	t.mu.Unlock()

	for _, fn := range observers {
		fn(res, err)
	}
	return res, err
}
