package recurrence

import "time"

// HolidayCalendar reports whether a calendar date is a holiday.
type HolidayCalendar interface {
	IsHoliday(t time.Time) bool
}

// DateKey formats the calendar date of t in its own location.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Holidays is a fixed set of holiday dates keyed by DateKey.
type Holidays map[string]struct{}

// NewHolidays builds a set from YYYY-MM-DD strings.
func NewHolidays(dates ...string) Holidays {
	h := make(Holidays, len(dates))
	for _, d := range dates {
		h[d] = struct{}{}
	}
	return h
}

func (h Holidays) IsHoliday(t time.Time) bool {
	_, ok := h[DateKey(t)]
	return ok
}
