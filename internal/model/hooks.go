package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (t *RecurringTask) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (i *TaskInstance) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
