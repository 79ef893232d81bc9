package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerService_Schedule(t *testing.T) {
	s := NewSchedulerService(time.UTC, zerolog.Nop())
	noop := func() {}

	for _, spec := range []string{"@hourly", "0 * * * *", "30 0 * * * *", "15m", " 2h "} {
		_, err := s.Schedule(spec, noop)
		assert.NoError(t, err, spec)
	}
	for _, spec := range []string{"", "every now and then", "61 * * * *"} {
		_, err := s.Schedule(spec, noop)
		assert.Error(t, err, spec)
	}

	_, err := s.ScheduleInterval(0, noop)
	assert.Error(t, err)
}

func TestSchedulerService_RunsJobs(t *testing.T) {
	s := NewSchedulerService(time.UTC, zerolog.Nop())
	var runs atomic.Int32

	id, err := s.Schedule("1s", func() { runs.Add(1) })
	require.NoError(t, err)
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return !s.NextRun(id).IsZero() }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
