package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring-tasks/internal/model"
	"recurring-tasks/internal/repository"
	"recurring-tasks/internal/service"
)

const operatorChat int64 = 42

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakeTasks struct {
	tasks   map[string]model.RecurringTask
	paused  []string
	preview int
}

func (f *fakeTasks) List(_ context.Context, accountID string) ([]model.RecurringTask, error) {
	var out []model.RecurringTask
	for _, t := range f.tasks {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) Get(_ context.Context, id string) (*service.TaskDetails, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &service.TaskDetails{Task: t}, nil
}

func (f *fakeTasks) Pause(_ context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	f.paused = append(f.paused, id)
	return nil
}

func (f *fakeTasks) Resume(_ context.Context, id string) (*model.RecurringTask, error) {
	if id == "ended" {
		return nil, service.ErrEnded
	}
	t, ok := f.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTasks) Preview(_ context.Context, id string, n int) ([]time.Time, error) {
	if _, ok := f.tasks[id]; !ok {
		return nil, repository.ErrNotFound
	}
	f.preview = n
	base := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.AddDate(0, 0, 7*i)
	}
	return out, nil
}

type fakeTrigger struct {
	res  service.BatchResult
	err  error
	last *service.BatchOutcome
}

func (f *fakeTrigger) RunNow(context.Context) (service.BatchResult, error) {
	return f.res, f.err
}

func (f *fakeTrigger) Last() (service.BatchOutcome, bool) {
	if f.last == nil {
		return service.BatchOutcome{}, false
	}
	return *f.last, true
}

func newTestBot(tasks *fakeTasks, trig *fakeTrigger) (*Bot, *fakeSender) {
	s := &fakeSender{}
	return newBot(s, tasks, trig, []int64{operatorChat}, zerolog.Nop()), s
}

func command(chatID int64, text string) *tgbotapi.Message {
	cmd := text
	for i, r := range text {
		if r == ' ' {
			cmd = text[:i]
			break
		}
	}
	return &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(cmd)},
		},
	}
}

func sampleTasks() *fakeTasks {
	wd := int(time.Tuesday)
	return &fakeTasks{tasks: map[string]model.RecurringTask{
		"t1": {
			ID:             "t1",
			AccountID:      "acc",
			Name:           "Weekly <sync>",
			Status:         model.StatusActive,
			NextOccurrence: time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
			Rule: model.RecurrenceRule{
				Type:       model.RecurWeekly,
				Interval:   1,
				DaysOfWeek: model.IntList{1, 3},
			},
		},
		"t2": {
			ID:        "t2",
			AccountID: "acc",
			Name:      "Payroll",
			Status:    model.StatusPaused,
			Rule: model.RecurrenceRule{
				Type:        model.RecurMonthly,
				Interval:    1,
				WeekOrdinal: 2,
				Weekday:     &wd,
			},
		},
	}}
}

func TestRejectsUnauthorizedChat(t *testing.T) {
	trig := &fakeTrigger{}
	b, s := newTestBot(sampleTasks(), trig)

	require.NoError(t, b.handleMessage(context.Background(), command(7, "/run")))

	msg := s.last(t)
	assert.Equal(t, int64(7), msg.ChatID)
	assert.Contains(t, msg.Text, "restricted")
}

func TestRunReportsBatch(t *testing.T) {
	trig := &fakeTrigger{res: service.BatchResult{
		Processed: 3,
		Created:   2,
		Failed:    1,
		Failures:  []service.TaskFailure{{TaskID: "t9", Name: "Report", Err: errors.New("clone failed")}},
	}}
	b, s := newTestBot(sampleTasks(), trig)

	require.NoError(t, b.handleMessage(context.Background(), command(operatorChat, "/run")))

	msg := s.last(t)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "Attempted: 3 · created: 2 · failed: 1")
	assert.Contains(t, msg.Text, "clone failed")
}

func TestRunWhileBatchInFlight(t *testing.T) {
	b, s := newTestBot(sampleTasks(), &fakeTrigger{err: service.ErrBatchInFlight})

	require.NoError(t, b.handleMessage(context.Background(), command(operatorChat, "/run")))
	assert.Contains(t, s.last(t).Text, "already running")
}

func TestStatusBeforeAndAfterBatch(t *testing.T) {
	trig := &fakeTrigger{}
	b, s := newTestBot(sampleTasks(), trig)

	require.NoError(t, b.handleMessage(context.Background(), command(operatorChat, "/status")))
	assert.Contains(t, s.last(t).Text, "No batch")

	trig.last = &service.BatchOutcome{Err: errors.New("store down")}
	require.NoError(t, b.handleMessage(context.Background(), command(operatorChat, "/status")))
	assert.Contains(t, s.last(t).Text, "Batch failed")
	assert.Contains(t, s.last(t).Text, "store down")
}

func TestMenuButtonsMapToCommands(t *testing.T) {
	trig := &fakeTrigger{}
	b, s := newTestBot(sampleTasks(), trig)

	msg := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: operatorChat}, Text: menuLabelStatus}
	require.NoError(t, b.handleMessage(context.Background(), msg))
	assert.Contains(t, s.last(t).Text, "No batch")
}

func TestTasksListEscapesNames(t *testing.T) {
	b, s := newTestBot(sampleTasks(), &fakeTrigger{})

	require.NoError(t, b.handleMessage(context.Background(), command(operatorChat, "/tasks acc")))

	text := s.last(t).Text
	assert.Contains(t, text, "Weekly &lt;sync&gt;")
	assert.Contains(t, text, "every 1 week(s) on Mon, Wed")
	assert.Contains(t, text, "on the 2nd Tue")
}

func TestTaskCommands(t *testing.T) {
	tasks := sampleTasks()
	b, s := newTestBot(tasks, &fakeTrigger{})
	ctx := context.Background()

	require.NoError(t, b.handleMessage(ctx, command(operatorChat, "/task missing")))
	assert.Contains(t, s.last(t).Text, "No recurring task")

	require.NoError(t, b.handleMessage(ctx, command(operatorChat, "/pause t1")))
	assert.Equal(t, []string{"t1"}, tasks.paused)

	require.NoError(t, b.handleMessage(ctx, command(operatorChat, "/resume t1")))
	assert.Contains(t, s.last(t).Text, "2025-03-03 09:00 UTC")

	require.NoError(t, b.handleMessage(ctx, command(operatorChat, "/resume ended")))
	assert.Contains(t, s.last(t).Text, "end date")

	require.NoError(t, b.handleMessage(ctx, command(operatorChat, "/pause")))
	assert.Contains(t, s.last(t).Text, "Usage")
}

func TestPreviewCount(t *testing.T) {
	tasks := sampleTasks()
	b, s := newTestBot(tasks, &fakeTrigger{})
	ctx := context.Background()

	require.NoError(t, b.handleMessage(ctx, command(operatorChat, "/preview t1")))
	assert.Equal(t, defaultPreviewCount, tasks.preview)
	assert.Contains(t, s.last(t).Text, "Mon 2025-03-03 09:00 UTC")

	require.NoError(t, b.handleMessage(ctx, command(operatorChat, "/preview t1 500")))
	assert.Equal(t, maxPreviewCount, tasks.preview)

	require.NoError(t, b.handleMessage(ctx, command(operatorChat, "/preview t1 zero")))
	assert.Contains(t, s.last(t).Text, "positive")
}

func TestNotifyBatchOnlyOnFailures(t *testing.T) {
	b, s := newTestBot(sampleTasks(), &fakeTrigger{})

	b.NotifyBatch(service.BatchResult{Processed: 2, Created: 2}, nil)
	assert.Empty(t, s.sent)

	b.NotifyBatch(service.BatchResult{Processed: 1, Failed: 1, Failures: []service.TaskFailure{
		{TaskID: "t1", Name: "Weekly", Err: repository.ErrConflict},
	}}, nil)
	msg := s.last(t)
	assert.Equal(t, operatorChat, msg.ChatID)
	assert.Contains(t, msg.Text, "t1")
}
