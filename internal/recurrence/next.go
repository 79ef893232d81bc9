package recurrence

import (
	"sort"
	"time"

	"recurring-tasks/internal/model"
)

// Next returns the first occurrence after anchor. cal may be nil.
func Next(rule model.RecurrenceRule, anchor time.Time, cal HolidayCalendar) time.Time {
	interval := rule.Interval
	if interval <= 0 {
		interval = 1
	}

	var next time.Time
	switch rule.Type {
	case model.RecurDaily:
		next = anchor.AddDate(0, 0, interval)
	case model.RecurWeekly:
		if len(rule.DaysOfWeek) > 0 {
			next = nextWeekday(anchor, rule.DaysOfWeek, interval)
		} else {
			next = anchor.AddDate(0, 0, 7*interval)
		}
	case model.RecurMonthly:
		switch {
		case rule.DayOfMonth > 0:
			next = withDay(addMonths(anchor, interval), rule.DayOfMonth)
		case rule.WeekOrdinal > 0 && rule.Weekday != nil:
			next = nthWeekday(addMonths(anchor, interval), rule.WeekOrdinal, time.Weekday(*rule.Weekday))
		default:
			next = addMonths(anchor, interval)
		}
	case model.RecurYearly:
		next = addMonths(anchor, 12*interval)
	default:
		next = anchor.AddDate(0, 0, 1)
	}

	return applySkips(rule, next, cal)
}

// Occurrences chains Next n times starting from anchor. It returns nil for n <= 0.
func Occurrences(rule model.RecurrenceRule, anchor time.Time, n int, cal HolidayCalendar) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	cur := anchor
	for i := 0; i < n; i++ {
		cur = Next(rule, cur, cal)
		out = append(out, cur)
	}
	return out
}

func applySkips(rule model.RecurrenceRule, t time.Time, cal HolidayCalendar) time.Time {
	if rule.SkipWeekends {
		t = skipWeekend(t)
	}
	if rule.SkipHolidays && cal != nil {
		for cal.IsHoliday(t) {
			t = t.AddDate(0, 0, 1)
			if rule.SkipWeekends {
				t = skipWeekend(t)
			}
		}
	}
	return t
}

func skipWeekend(t time.Time) time.Time {
	for isWeekend(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// nextWeekday picks the next listed weekday later in anchor's week, or the
// first listed weekday interval weeks ahead.
func nextWeekday(anchor time.Time, days []int, interval int) time.Time {
	sorted := make([]int, 0, len(days))
	for _, d := range days {
		if d >= 0 && d <= 6 {
			sorted = append(sorted, d)
		}
	}
	if len(sorted) == 0 {
		return anchor.AddDate(0, 0, 7*interval)
	}
	sort.Ints(sorted)

	current := int(anchor.Weekday())
	for _, d := range sorted {
		if d > current {
			return anchor.AddDate(0, 0, d-current)
		}
	}
	return anchor.AddDate(0, 0, 7*interval+sorted[0]-current)
}

// nthWeekday returns the ordinal-th wd of t's month, keeping t's clock time.
// A fifth weekday the month does not have spills into the next month.
func nthWeekday(t time.Time, ordinal int, wd time.Weekday) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	offset += (ordinal - 1) * 7
	return first.AddDate(0, 0, offset)
}

// addMonths moves t by n months, clamping the day to the target month's length.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysInMonth(target.Month(), target.Year()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// withDay sets the day of month, clamping to the month's last day.
func withDay(t time.Time, day int) time.Time {
	if last := daysInMonth(t.Month(), t.Year()); day > last {
		day = last
	}
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
