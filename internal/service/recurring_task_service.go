package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recurring-tasks/internal/model"
	"recurring-tasks/internal/recurrence"
	"recurring-tasks/internal/repository"
)

var (
	// ErrValidation wraps every input error returned by RecurringTaskService.
	ErrValidation = errors.New("invalid recurring task")
	// ErrEnded is returned when resuming a definition with no occurrence left before its end date.
	ErrEnded = errors.New("recurring task has ended")
)

const (
	maxNameLen          = 500
	defaultAdvanceDays  = 30
	recentInstanceLimit = 5
	maxCatchUpSteps     = 100000
)

// TaskInput represents data required to create a recurring task.
type TaskInput struct {
	AccountID           string
	BoardID             string
	TemplateItemID      string
	Name                string
	Rule                model.RecurrenceRule
	StartDate           time.Time
	EndDate             *time.Time
	AssigneeRotation    []string
	AdvanceCreationDays int
}

// TaskUpdate carries the fields to change; nil fields are kept.
type TaskUpdate struct {
	BoardID             *string
	TemplateItemID      *string
	Name                *string
	Rule                *model.RecurrenceRule
	StartDate           *time.Time
	EndDate             *time.Time
	ClearEndDate        bool
	AssigneeRotation    *[]string
	AdvanceCreationDays *int
}

// TaskDetails is a definition with its latest instances.
type TaskDetails struct {
	Task   model.RecurringTask
	Recent []model.TaskInstance
}

// RecurringTaskService wraps definition lifecycle logic.
type RecurringTaskService struct {
	taskRepo     *repository.RecurringTaskRepository
	instanceRepo *repository.TaskInstanceRepository
	holidays     recurrence.HolidayCalendar
	maxAdvance   int
	now          func() time.Time
}

func NewRecurringTaskService(taskRepo *repository.RecurringTaskRepository, instanceRepo *repository.TaskInstanceRepository, holidays recurrence.HolidayCalendar) *RecurringTaskService {
	return &RecurringTaskService{
		taskRepo:     taskRepo,
		instanceRepo: instanceRepo,
		holidays:     holidays,
		maxAdvance:   defaultAdvanceDays,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithMaxAdvanceDays caps AdvanceCreationDays, matching the materializer's lookahead.
func (s *RecurringTaskService) WithMaxAdvanceDays(days int) *RecurringTaskService {
	s.maxAdvance = days
	return s
}

// Create stores a new active definition. Its first occurrence is the rule's
// next date after StartDate.
func (s *RecurringTaskService) Create(ctx context.Context, input TaskInput) (*model.RecurringTask, error) {
	task := model.RecurringTask{
		AccountID:           strings.TrimSpace(input.AccountID),
		BoardID:             strings.TrimSpace(input.BoardID),
		TemplateItemID:      strings.TrimSpace(input.TemplateItemID),
		Name:                strings.TrimSpace(input.Name),
		Rule:                input.Rule,
		StartDate:           input.StartDate,
		EndDate:             input.EndDate,
		AssigneeRotation:    model.StringList(input.AssigneeRotation),
		AdvanceCreationDays: input.AdvanceCreationDays,
		Status:              model.StatusActive,
	}
	if task.Rule.Interval <= 0 {
		task.Rule.Interval = 1
	}
	if err := validate(&task, s.maxAdvance); err != nil {
		return nil, err
	}
	task.NextOccurrence = recurrence.Next(task.Rule, task.StartDate, s.holidays)
	if pastEnd(&task) {
		task.Status = model.StatusCompleted
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update applies changes. The next occurrence is recomputed from the start
// date only when the rule or the start date changed.
func (s *RecurringTaskService) Update(ctx context.Context, id string, upd TaskUpdate) (*model.RecurringTask, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	reschedule := false
	if upd.BoardID != nil {
		task.BoardID = strings.TrimSpace(*upd.BoardID)
	}
	if upd.TemplateItemID != nil {
		task.TemplateItemID = strings.TrimSpace(*upd.TemplateItemID)
	}
	if upd.Name != nil {
		task.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Rule != nil {
		task.Rule = *upd.Rule
		if task.Rule.Interval <= 0 {
			task.Rule.Interval = 1
		}
		reschedule = true
	}
	if upd.StartDate != nil {
		task.StartDate = *upd.StartDate
		reschedule = true
	}
	switch {
	case upd.ClearEndDate:
		task.EndDate = nil
	case upd.EndDate != nil:
		end := *upd.EndDate
		task.EndDate = &end
	}
	if upd.AssigneeRotation != nil {
		task.AssigneeRotation = model.StringList(*upd.AssigneeRotation)
	}
	if upd.AdvanceCreationDays != nil {
		task.AdvanceCreationDays = *upd.AdvanceCreationDays
	}

	if err := validate(task, s.maxAdvance); err != nil {
		return nil, err
	}
	if reschedule {
		task.NextOccurrence = recurrence.Next(task.Rule, task.StartDate, s.holidays)
	}
	if task.Status == model.StatusActive && pastEnd(task) {
		task.Status = model.StatusCompleted
	}
	if err := s.taskRepo.Update(ctx, task, reschedule); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *RecurringTaskService) Pause(ctx context.Context, id string) error {
	return s.taskRepo.SetStatus(ctx, id, model.StatusPaused)
}

func (s *RecurringTaskService) Complete(ctx context.Context, id string) error {
	return s.taskRepo.SetStatus(ctx, id, model.StatusCompleted)
}

// Resume reactivates a definition. Occurrences that passed while it was
// paused are skipped rather than created in a burst. A definition whose next
// occurrence would fall after its end date stays as it is and ErrEnded is returned.
func (s *RecurringTaskService) Resume(ctx context.Context, id string) (*model.RecurringTask, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	reschedule := false
	for i := 0; task.NextOccurrence.Before(now) && i < maxCatchUpSteps; i++ {
		task.NextOccurrence = recurrence.Next(task.Rule, task.NextOccurrence, s.holidays)
		reschedule = true
	}
	if pastEnd(task) {
		return nil, ErrEnded
	}
	task.Status = model.StatusActive
	if err := s.taskRepo.Update(ctx, task, reschedule); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *RecurringTaskService) Delete(ctx context.Context, id string) error {
	return s.taskRepo.Delete(ctx, id)
}

func (s *RecurringTaskService) List(ctx context.Context, accountID string) ([]model.RecurringTask, error) {
	return s.taskRepo.ListByAccount(ctx, accountID)
}

// Get returns a definition with its most recent instances.
func (s *RecurringTaskService) Get(ctx context.Context, id string) (*TaskDetails, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	recent, err := s.instanceRepo.ListRecent(ctx, id, recentInstanceLimit)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	return &TaskDetails{Task: *task, Recent: recent}, nil
}

// Preview returns the next n occurrence dates, starting with the pending one.
func (s *RecurringTaskService) Preview(ctx context.Context, id string, n int) ([]time.Time, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	out := []time.Time{task.NextOccurrence}
	return append(out, recurrence.Occurrences(task.Rule, task.NextOccurrence, n-1, s.holidays)...), nil
}

func pastEnd(task *model.RecurringTask) bool {
	return task.EndDate != nil && task.NextOccurrence.After(*task.EndDate)
}

func validate(task *model.RecurringTask, maxAdvance int) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
	}

	switch {
	case task.AccountID == "":
		return invalid("account id is required")
	case task.BoardID == "":
		return invalid("board id is required")
	case task.TemplateItemID == "":
		return invalid("template item id is required")
	case task.Name == "":
		return invalid("name is required")
	case len([]rune(task.Name)) > maxNameLen:
		return invalid("name must be at most %d characters", maxNameLen)
	case task.StartDate.IsZero():
		return invalid("start date is required")
	case task.EndDate != nil && task.EndDate.Before(task.StartDate):
		return invalid("end date is before start date")
	case task.AdvanceCreationDays < 0 || task.AdvanceCreationDays > maxAdvance:
		return invalid("advance creation days must be between 0 and %d", maxAdvance)
	}

	rule := task.Rule
	switch rule.Type {
	case model.RecurDaily, model.RecurWeekly, model.RecurMonthly, model.RecurYearly:
	default:
		return invalid("unknown recurrence type %q", rule.Type)
	}
	for _, d := range rule.DaysOfWeek {
		if d < 0 || d > 6 {
			return invalid("day of week %d out of range 0-6", d)
		}
	}
	if rule.DayOfMonth < 0 || rule.DayOfMonth > 31 {
		return invalid("day of month %d out of range 1-31", rule.DayOfMonth)
	}
	if rule.WeekOrdinal < 0 || rule.WeekOrdinal > 5 {
		return invalid("week ordinal %d out of range 1-5", rule.WeekOrdinal)
	}
	if rule.Weekday != nil && (*rule.Weekday < 0 || *rule.Weekday > 6) {
		return invalid("weekday %d out of range 0-6", *rule.Weekday)
	}
	for _, a := range task.AssigneeRotation {
		if strings.TrimSpace(a) == "" {
			return invalid("assignee rotation contains an empty id")
		}
	}
	return nil
}
