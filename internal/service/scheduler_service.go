package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"recurring-tasks/internal/logging"
)

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron   *cron.Cron
	parser cron.Parser
}

func NewSchedulerService(loc *time.Location, log zerolog.Logger) *SchedulerService {
	cronLog := cron.PrintfLogger(logging.Printf{Log: log.With().Str("component", "cron").Logger(), Level: zerolog.DebugLevel})
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithParser(parser),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		parser: parser,
	}
}

// Schedule registers job on spec, which is either a Go duration ("15m") or
// a cron expression ("0 * * * *", "@hourly").
func (s *SchedulerService) Schedule(spec string, job func()) (cron.EntryID, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("schedule is required")
	}
	if d, err := time.ParseDuration(spec); err == nil {
		return s.ScheduleInterval(d, job)
	}
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return s.cron.Schedule(sched, cron.FuncJob(job)), nil
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	// Convert to cron spec: every N seconds.
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)
	return s.cron.AddFunc(spec, job)
}

// NextRun reports when the entry fires next. It is zero before Start.
func (s *SchedulerService) NextRun(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
