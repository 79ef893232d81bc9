package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recurring-tasks/internal/holiday"
	"recurring-tasks/internal/model"
	"recurring-tasks/internal/recurrence"
)

type previewOptions struct {
	ruleType     string
	interval     int
	days         string
	dayOfMonth   int
	weekOrdinal  int
	weekday      int
	skipWeekends bool
	skipHolidays bool
	from         string
	count        int
	holidays     string
}

func previewCmd() *cobra.Command {
	var opts previewOptions

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the next occurrences of a recurrence rule",
		Long: `Print the next occurrences of a rule described by flags, without
touching the database or the board.

Examples:
  recurringtasks preview --type weekly --days mon,wed --from 2025-03-03T09:00:00Z
  recurringtasks preview --type monthly --week-ordinal 2 --weekday 2 --count 6`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := opts.rule()
			if err != nil {
				return err
			}
			from, err := parseFrom(opts.from)
			if err != nil {
				return err
			}
			if opts.count <= 0 {
				return errors.New("--count must be positive")
			}

			var cal recurrence.HolidayCalendar
			if opts.holidays != "" {
				entries, err := holiday.LoadFile(opts.holidays)
				if err != nil {
					return err
				}
				cal = holiday.NewCalendar(entries...)
			}

			out := cmd.OutOrStdout()
			for _, t := range recurrence.Occurrences(rule, from, opts.count, cal) {
				fmt.Fprintf(out, "%s  %s\n", t.Format(time.RFC3339), t.Weekday().String()[:3])
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.ruleType, "type", "daily", "rule type: daily, weekly, monthly or yearly")
	f.IntVar(&opts.interval, "interval", 1, "repeat every N units")
	f.StringVar(&opts.days, "days", "", "weekly days, comma separated (0-6 or sun..sat)")
	f.IntVar(&opts.dayOfMonth, "day-of-month", 0, "monthly day of month (1-31)")
	f.IntVar(&opts.weekOrdinal, "week-ordinal", 0, "monthly week ordinal (1-5)")
	f.IntVar(&opts.weekday, "weekday", -1, "monthly weekday for --week-ordinal (0-6)")
	f.BoolVar(&opts.skipWeekends, "skip-weekends", false, "push occurrences off Saturday and Sunday")
	f.BoolVar(&opts.skipHolidays, "skip-holidays", false, "push occurrences off holidays")
	f.StringVar(&opts.from, "from", "", "anchor instant, RFC3339 or YYYY-MM-DD (default now)")
	f.IntVar(&opts.count, "count", 5, "number of occurrences to print")
	f.StringVar(&opts.holidays, "holidays", "", "holiday calendar YAML file")
	return cmd
}

func (o previewOptions) rule() (model.RecurrenceRule, error) {
	rule := model.RecurrenceRule{
		Type:         model.RecurrenceType(strings.ToLower(o.ruleType)),
		Interval:     o.interval,
		DayOfMonth:   o.dayOfMonth,
		WeekOrdinal:  o.weekOrdinal,
		SkipWeekends: o.skipWeekends,
		SkipHolidays: o.skipHolidays,
	}
	switch rule.Type {
	case model.RecurDaily, model.RecurWeekly, model.RecurMonthly, model.RecurYearly:
	default:
		return rule, fmt.Errorf("unknown rule type %q", o.ruleType)
	}
	if o.days != "" {
		for _, part := range strings.Split(o.days, ",") {
			d, err := parseWeekday(part)
			if err != nil {
				return rule, err
			}
			rule.DaysOfWeek = append(rule.DaysOfWeek, d)
		}
	}
	if o.weekday >= 0 {
		if o.weekday > 6 {
			return rule, fmt.Errorf("weekday %d out of range 0-6", o.weekday)
		}
		wd := o.weekday
		rule.Weekday = &wd
	}
	if rule.WeekOrdinal != 0 && rule.Weekday == nil {
		return rule, errors.New("--week-ordinal needs --weekday")
	}
	return rule, nil
}

var weekdayAbbrev = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

func parseWeekday(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if d, ok := weekdayAbbrev[s]; ok {
		return d, nil
	}
	d, err := strconv.Atoi(s)
	if err != nil || d < 0 || d > 6 {
		return 0, fmt.Errorf("invalid weekday %q", s)
	}
	return d, nil
}

func parseFrom(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC().Truncate(time.Minute), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --from %q: want RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}
