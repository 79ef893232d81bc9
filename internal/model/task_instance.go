package model

import "time"

// InstanceStatus tracks a materialized item.
type InstanceStatus string

const InstancePending InstanceStatus = "pending"

// TaskInstance records one board item created for a recurring definition.
type TaskInstance struct {
	ID              string `gorm:"primaryKey;size:36"`
	RecurringTaskID string `gorm:"index;not null"`
	ItemID          string
	ScheduledDate   time.Time
	Assignee        string
	Status          InstanceStatus `gorm:"size:16;default:pending"`
	CreatedAt       time.Time
}
