package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"recurring-tasks/internal/model"
)

// TaskInstanceRepository reads the materialization history.
type TaskInstanceRepository struct {
	db *gorm.DB
}

func NewTaskInstanceRepository(db *gorm.DB) *TaskInstanceRepository {
	return &TaskInstanceRepository{db: db}
}

func (r *TaskInstanceRepository) CountByTask(ctx context.Context, taskID string) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.TaskInstance{}).
		Where("recurring_task_id = ?", taskID).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count instances: %w", err)
	}
	return int(n), nil
}

// ListRecent returns up to limit instances, latest scheduled date first.
func (r *TaskInstanceRepository) ListRecent(ctx context.Context, taskID string, limit int) ([]model.TaskInstance, error) {
	var instances []model.TaskInstance
	if err := r.db.WithContext(ctx).Where("recurring_task_id = ?", taskID).
		Order("scheduled_date DESC, created_at DESC").
		Limit(limit).
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("list recent instances: %w", err)
	}
	return instances, nil
}
