package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"recurring-tasks/internal/model"
	"recurring-tasks/internal/platform"
	"recurring-tasks/internal/recurrence"
	"recurring-tasks/internal/repository"
)

// DueStore is the part of the record store the materializer reads and advances.
type DueStore interface {
	FindDue(ctx context.Context, horizon time.Time) ([]model.RecurringTask, error)
	RecordMaterialization(ctx context.Context, m repository.Materialization) error
	CompleteExpired(ctx context.Context, id string, expectedNext, now time.Time) error
}

// InstanceCounter counts the instances already created for a definition.
type InstanceCounter interface {
	CountByTask(ctx context.Context, taskID string) (int, error)
}

// MaterializerConfig tunes a batch.
type MaterializerConfig struct {
	// Lookahead widens due selection so definitions with an advance-creation
	// window are seen before their next occurrence.
	Lookahead time.Duration

	// TaskTimeout bounds one definition's external calls and writes.
	TaskTimeout time.Duration
}

// TaskFailure describes one definition that could not be materialized.
type TaskFailure struct {
	TaskID string
	Name   string
	Err    error
}

// BatchResult summarizes one tick.
type BatchResult struct {
	StartedAt time.Time
	Duration  time.Duration

	// Processed counts definitions attempted this tick, successful or not.
	Processed int
	Created   int
	Failed    int
	Failures  []TaskFailure

	// Skipped counts definitions selected by the lookahead whose
	// advance-creation window has not opened yet.
	Skipped int

	// Expired counts definitions completed because their pending
	// occurrence is past the end date. No item is created for them.
	Expired int
}

// Materializer turns due recurring definitions into board items.
type Materializer struct {
	tasks     DueStore
	instances InstanceCounter
	client    platform.Client
	holidays  recurrence.HolidayCalendar
	cfg       MaterializerConfig
	log       zerolog.Logger
}

func NewMaterializer(tasks DueStore, instances InstanceCounter, client platform.Client, holidays recurrence.HolidayCalendar, cfg MaterializerConfig, log zerolog.Logger) *Materializer {
	return &Materializer{
		tasks:     tasks,
		instances: instances,
		client:    client,
		holidays:  holidays,
		cfg:       cfg,
		log:       log.With().Str("component", "materializer").Logger(),
	}
}

// RunBatch materializes every definition due at now. Only a failure to
// select due definitions is returned; per-definition failures are logged and
// reported in the result.
func (m *Materializer) RunBatch(ctx context.Context, now time.Time) (BatchResult, error) {
	res := BatchResult{StartedAt: now}
	started := time.Now()

	due, err := m.tasks.FindDue(ctx, now.Add(m.cfg.Lookahead))
	if err != nil {
		res.Duration = time.Since(started)
		return res, fmt.Errorf("select due tasks: %w", err)
	}
	m.log.Debug().Int("candidates", len(due)).Time("now", now).Msg("batch started")

	for i := range due {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(started)
			return res, err
		}
		task := &due[i]

		if task.EndDate != nil && task.NextOccurrence.After(*task.EndDate) {
			if err := m.tasks.CompleteExpired(ctx, task.ID, task.NextOccurrence, now); err != nil {
				m.log.Warn().Err(err).Str("task_id", task.ID).Str("task", task.Name).Msg("complete expired recurring task")
				continue
			}
			res.Expired++
			m.log.Info().Str("task_id", task.ID).Str("task", task.Name).Msg("recurring task reached its end date")
			continue
		}

		if task.CreationDate().After(now) {
			res.Skipped++
			continue
		}

		res.Processed++
		if err := m.materializeOne(ctx, task, now); err != nil {
			res.Failed++
			res.Failures = append(res.Failures, TaskFailure{TaskID: task.ID, Name: task.Name, Err: err})
			m.log.Error().Err(err).Str("task_id", task.ID).Str("task", task.Name).Msg("materialize recurring task")
			continue
		}
		res.Created++
	}

	res.Duration = time.Since(started)
	m.log.Info().
		Int("processed", res.Processed).
		Int("created", res.Created).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Int("expired", res.Expired).
		Dur("took", res.Duration).
		Msg("batch finished")
	return res, nil
}

func (m *Materializer) materializeOne(ctx context.Context, task *model.RecurringTask, now time.Time) error {
	if m.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.TaskTimeout)
		defer cancel()
	}

	itemID, err := m.client.CloneItem(ctx, task.TemplateItemID, task.BoardID)
	if err != nil {
		return fmt.Errorf("clone template item: %w", err)
	}

	// Past this point a failure leaves itemID on the board without an instance.
	orphaned := func(err error) error {
		m.log.Warn().Str("task_id", task.ID).Str("item", itemID).Msg("cloned item left without instance")
		return err
	}

	prior, err := m.instances.CountByTask(ctx, task.ID)
	if err != nil {
		return orphaned(err)
	}
	assignee, _ := recurrence.NextAssignee(task.AssigneeRotation, prior)

	err = m.client.UpdateItem(ctx, task.BoardID, itemID, platform.ItemUpdate{
		ScheduledDate: task.NextOccurrence,
		Assignee:      assignee,
		Status:        platform.StatusNotStarted,
	})
	if err != nil {
		return orphaned(fmt.Errorf("update item: %w", err))
	}

	// Anchor on the scheduled occurrence, not on now, so tick delays never shift the cadence.
	next := recurrence.Next(task.Rule, task.NextOccurrence, m.holidays)
	status := model.StatusActive
	if task.EndDate != nil && next.After(*task.EndDate) {
		status = model.StatusCompleted
	}

	err = m.tasks.RecordMaterialization(ctx, repository.Materialization{
		Instance: &model.TaskInstance{
			ItemID:        itemID,
			ScheduledDate: task.NextOccurrence,
			Assignee:      assignee,
			Status:        model.InstancePending,
		},
		TaskID:       task.ID,
		ExpectedNext: task.NextOccurrence,
		NewNext:      next,
		Status:       status,
		Now:          now,
	})
	if err != nil {
		return orphaned(fmt.Errorf("record instance: %w", err))
	}

	m.log.Info().
		Str("task_id", task.ID).
		Str("task", task.Name).
		Str("item", itemID).
		Str("assignee", assignee).
		Time("scheduled", task.NextOccurrence).
		Time("next", next).
		Str("status", string(status)).
		Msg("recurring task materialized")
	return nil
}
