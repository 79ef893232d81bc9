// Package holiday loads operator-maintained holiday calendars.
package holiday

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"recurring-tasks/internal/recurrence"
)

// Entry is one line of a holiday file.
type Entry struct {
	Date string `yaml:"date"`
	Name string `yaml:"name"`
}

type file struct {
	Holidays []Entry `yaml:"holidays"`
}

// Calendar is a recurrence.HolidayCalendar whose contents can be replaced
// while batches are reading it.
type Calendar struct {
	mu   sync.RWMutex
	days recurrence.Holidays
}

func NewCalendar(entries ...Entry) *Calendar {
	c := &Calendar{}
	c.Set(entries)
	return c
}

func (c *Calendar) IsHoliday(t time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.days.IsHoliday(t)
}

// Set replaces the calendar contents.
func (c *Calendar) Set(entries []Entry) {
	days := make(recurrence.Holidays, len(entries))
	for _, e := range entries {
		days[e.Date] = struct{}{}
	}
	c.mu.Lock()
	c.days = days
	c.mu.Unlock()
}

// Len returns the number of holiday dates.
func (c *Calendar) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.days)
}

// LoadFile parses a YAML holiday file. Every date must be YYYY-MM-DD.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holidays %q: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]Entry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse holidays: %w", err)
	}
	for i := range f.Holidays {
		f.Holidays[i].Date = strings.TrimSpace(f.Holidays[i].Date)
		if _, err := time.Parse("2006-01-02", f.Holidays[i].Date); err != nil {
			return nil, fmt.Errorf("holidays[%d]: invalid date %q", i, f.Holidays[i].Date)
		}
	}
	return f.Holidays, nil
}
