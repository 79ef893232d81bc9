package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"recurring-tasks/internal/model"
)

// RecurringTaskRepository handles CRUD and due selection for definitions.
type RecurringTaskRepository struct {
	db *gorm.DB
}

func NewRecurringTaskRepository(db *gorm.DB) *RecurringTaskRepository {
	return &RecurringTaskRepository{db: db}
}

func (r *RecurringTaskRepository) Create(ctx context.Context, task *model.RecurringTask) error {
	normalizeTask(task)
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create recurring task: %w", err)
	}
	return nil
}

func (r *RecurringTaskRepository) FindByID(ctx context.Context, id string) (*model.RecurringTask, error) {
	var task model.RecurringTask
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("find recurring task: %w", err)
	}
}

func (r *RecurringTaskRepository) ListByAccount(ctx context.Context, accountID string) ([]model.RecurringTask, error) {
	var tasks []model.RecurringTask
	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list recurring tasks: %w", err)
	}
	return tasks, nil
}

// Update writes the definition's editable columns. next_occurrence is only
// written when schedule is true, so an edit that keeps the rule cannot undo
// an advance made by a concurrent batch.
func (r *RecurringTaskRepository) Update(ctx context.Context, task *model.RecurringTask, schedule bool) error {
	normalizeTask(task)
	omit := []string{"Instances", "CreatedAt"}
	if !schedule {
		omit = append(omit, "NextOccurrence")
	}
	res := r.db.WithContext(ctx).Model(task).Select("*").Omit(omit...).Updates(task)
	if res.Error != nil {
		return fmt.Errorf("update recurring task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RecurringTaskRepository) SetStatus(ctx context.Context, id string, status model.TaskStatus) error {
	res := r.db.WithContext(ctx).Model(&model.RecurringTask{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("set status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a definition together with its instance history.
func (r *RecurringTaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recurring_task_id = ?", id).Delete(&model.TaskInstance{}).Error; err != nil {
			return fmt.Errorf("delete instances: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&model.RecurringTask{})
		if res.Error != nil {
			return fmt.Errorf("delete recurring task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// FindDue returns active definitions whose next occurrence is at or before horizon.
func (r *RecurringTaskRepository) FindDue(ctx context.Context, horizon time.Time) ([]model.RecurringTask, error) {
	var tasks []model.RecurringTask
	if err := r.db.WithContext(ctx).
		Where("status = ? AND next_occurrence <= ?", model.StatusActive, horizon.UTC()).
		Order("next_occurrence ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("find due tasks: %w", err)
	}
	return tasks, nil
}

// Materialization is the state written after an item was created for a definition.
type Materialization struct {
	Instance *model.TaskInstance
	TaskID   string

	// ExpectedNext is the next occurrence read when the definition was selected.
	ExpectedNext time.Time
	NewNext      time.Time
	Status       model.TaskStatus
	Now          time.Time
}

// RecordMaterialization stores the instance and advances the definition in
// one transaction. The advance only applies while next_occurrence still
// equals ExpectedNext; otherwise nothing is written and ErrConflict is returned.
func (r *RecurringTaskRepository) RecordMaterialization(ctx context.Context, m Materialization) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inst := m.Instance
		inst.RecurringTaskID = m.TaskID
		inst.ScheduledDate = inst.ScheduledDate.UTC()
		if err := tx.Create(inst).Error; err != nil {
			return fmt.Errorf("create instance: %w", err)
		}

		status := m.Status
		if status == "" {
			status = model.StatusActive
		}
		res := tx.Model(&model.RecurringTask{}).
			Where("id = ? AND next_occurrence = ?", m.TaskID, m.ExpectedNext.UTC()).
			Updates(map[string]any{
				"next_occurrence": m.NewNext.UTC(),
				"status":          status,
				"updated_at":      m.Now.UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("advance next occurrence: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	})
}

// CompleteExpired marks a definition completed without creating an instance,
// provided next_occurrence still equals expectedNext.
func (r *RecurringTaskRepository) CompleteExpired(ctx context.Context, id string, expectedNext, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.RecurringTask{}).
		Where("id = ? AND next_occurrence = ? AND status = ?", id, expectedNext.UTC(), model.StatusActive).
		Updates(map[string]any{"status": model.StatusCompleted, "updated_at": now.UTC()})
	if res.Error != nil {
		return fmt.Errorf("complete expired task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func normalizeTask(task *model.RecurringTask) {
	task.StartDate = task.StartDate.UTC()
	task.NextOccurrence = task.NextOccurrence.UTC()
	if task.EndDate != nil {
		end := task.EndDate.UTC()
		task.EndDate = &end
	}
}
