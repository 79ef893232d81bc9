package model

import "time"

// RecurrenceType selects the period a rule advances by.
type RecurrenceType string

const (
	RecurDaily   RecurrenceType = "daily"
	RecurWeekly  RecurrenceType = "weekly"
	RecurMonthly RecurrenceType = "monthly"
	RecurYearly  RecurrenceType = "yearly"
)

// TaskStatus is the lifecycle state of a recurring definition.
type TaskStatus string

const (
	StatusActive    TaskStatus = "active"
	StatusPaused    TaskStatus = "paused"
	StatusCompleted TaskStatus = "completed"
)

// RecurrenceRule describes when a definition recurs. Fields that do not apply
// to Type are ignored.
type RecurrenceRule struct {
	Type     RecurrenceType `gorm:"size:16"`
	Interval int            `gorm:"default:1"`

	// Weekly only; 0=Sunday..6=Saturday.
	DaysOfWeek IntList `gorm:"type:text"`

	// Monthly only. Zero means unset; WeekOrdinal and Weekday are used instead.
	DayOfMonth  int
	WeekOrdinal int
	Weekday     *int

	SkipWeekends bool
	SkipHolidays bool
}

// RecurringTask is a definition that is periodically materialized into board items.
type RecurringTask struct {
	ID                  string         `gorm:"primaryKey;size:36"`
	AccountID           string         `gorm:"index;not null"`
	BoardID             string         `gorm:"not null"`
	TemplateItemID      string         `gorm:"not null"`
	Name                string         `gorm:"size:500"`
	Rule                RecurrenceRule `gorm:"embedded;embeddedPrefix:rule_"`
	StartDate           time.Time
	EndDate             *time.Time
	NextOccurrence      time.Time  `gorm:"index:idx_due"`
	AdvanceCreationDays int        `gorm:"default:0"`
	AssigneeRotation    StringList `gorm:"type:text"`
	Status              TaskStatus `gorm:"size:16;index:idx_due;default:active"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Instances           []TaskInstance `gorm:"foreignKey:RecurringTaskID;constraint:OnDelete:CASCADE"`
}

// CreationDate is the earliest moment the next occurrence may be materialized.
func (t RecurringTask) CreationDate() time.Time {
	return t.NextOccurrence.AddDate(0, 0, -t.AdvanceCreationDays)
}
