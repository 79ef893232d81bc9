package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"recurring-tasks/internal/model"
	"recurring-tasks/internal/platform"
	"recurring-tasks/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := repository.NewDB(dsn, zerolog.Nop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

var errPlatformDown = errors.New("platform unavailable")

// fakeClient records platform calls. Templates listed in failClone fail to
// clone; templates listed in blockClone hang until the context is done.
type fakeClient struct {
	mu         sync.Mutex
	failClone  map[string]bool
	blockClone map[string]bool
	updateErr  error
	seq        int
	clones     []string
	updates    map[string]platform.ItemUpdate
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		failClone:  map[string]bool{},
		blockClone: map[string]bool{},
		updates:    map[string]platform.ItemUpdate{},
	}
}

func (c *fakeClient) CloneItem(ctx context.Context, templateItemID, _ string) (string, error) {
	c.mu.Lock()
	block := c.blockClone[templateItemID]
	c.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failClone[templateItemID] {
		return "", errPlatformDown
	}
	c.seq++
	c.clones = append(c.clones, templateItemID)
	return fmt.Sprintf("item-%d", c.seq), nil
}

func (c *fakeClient) UpdateItem(_ context.Context, _, itemID string, update platform.ItemUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.updateErr != nil {
		return c.updateErr
	}
	c.updates[itemID] = update
	return nil
}

type fixture struct {
	db        *gorm.DB
	tasks     *repository.RecurringTaskRepository
	instances *repository.TaskInstanceRepository
	client    *fakeClient
}

func newFixture(t *testing.T) *fixture {
	db := newTestDB(t)
	return &fixture{
		db:        db,
		tasks:     repository.NewRecurringTaskRepository(db),
		instances: repository.NewTaskInstanceRepository(db),
		client:    newFakeClient(),
	}
}

func (f *fixture) materializer(cfg MaterializerConfig) *Materializer {
	return NewMaterializer(f.tasks, f.instances, f.client, nil, cfg, zerolog.Nop())
}

func (f *fixture) addTask(t *testing.T, name string, next time.Time, mutate ...func(*model.RecurringTask)) *model.RecurringTask {
	t.Helper()
	task := &model.RecurringTask{
		AccountID:      "acc-1",
		BoardID:        "board-1",
		TemplateItemID: "tpl-" + name,
		Name:           name,
		Rule:           model.RecurrenceRule{Type: model.RecurDaily, Interval: 1},
		StartDate:      next.AddDate(0, 0, -1),
		NextOccurrence: next,
		Status:         model.StatusActive,
	}
	for _, fn := range mutate {
		fn(task)
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

func (f *fixture) reload(t *testing.T, id string) *model.RecurringTask {
	t.Helper()
	task, err := f.tasks.FindByID(context.Background(), id)
	require.NoError(t, err)
	return task
}

func (f *fixture) count(t *testing.T, id string) int {
	t.Helper()
	n, err := f.instances.CountByTask(context.Background(), id)
	require.NoError(t, err)
	return n
}
