package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"recurring-tasks/internal/model"
	"recurring-tasks/internal/service"
)

const helpText = `<b>Recurring tasks console</b>

/run - materialize due tasks now
/status - result of the last batch
/tasks &lt;account&gt; - definitions of an account
/task &lt;id&gt; - one definition with its latest items
/pause &lt;id&gt; - stop materializing a definition
/resume &lt;id&gt; - resume, skipping missed occurrences
/preview &lt;id&gt; [n] - next n occurrence dates`

func escape(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04 MST")
}

func statusIcon(s model.TaskStatus) string {
	switch s {
	case model.StatusActive:
		return "🟢"
	case model.StatusPaused:
		return "⏸"
	default:
		return "✅"
	}
}

func formatBatch(res service.BatchResult, err error) string {
	var sb strings.Builder
	if err != nil {
		sb.WriteString("❌ <b>Batch failed</b>\n")
		sb.WriteString(escape(err.Error()))
		sb.WriteByte('\n')
	} else {
		sb.WriteString("📦 <b>Batch finished</b>\n")
	}
	if !res.StartedAt.IsZero() {
		fmt.Fprintf(&sb, "🕒 %s · %s\n", formatTime(res.StartedAt), res.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(&sb, "Attempted: %d · created: %d · failed: %d · waiting: %d", res.Processed, res.Created, res.Failed, res.Skipped)
	if res.Expired > 0 {
		fmt.Fprintf(&sb, " · ended: %d", res.Expired)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(&sb, "\n⚠️ %s (<code>%s</code>): %s", escape(f.Name), escape(f.TaskID), escape(f.Err.Error()))
	}
	return sb.String()
}

func formatTaskList(accountID string, tasks []model.RecurringTask) string {
	if len(tasks) == 0 {
		return fmt.Sprintf("No recurring tasks for account <code>%s</code>.", escape(accountID))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "♻️ <b>Recurring tasks</b> · <code>%s</code>\n", escape(accountID))
	for _, t := range tasks {
		fmt.Fprintf(&sb, "\n%s %s\n   <code>%s</code> · %s", statusIcon(t.Status), escape(t.Name), escape(t.ID), describeRule(t.Rule))
		if t.Status == model.StatusActive {
			fmt.Fprintf(&sb, "\n   📆 next: %s", formatTime(t.NextOccurrence))
		}
	}
	return sb.String()
}

func formatTaskDetails(d *service.TaskDetails) string {
	t := d.Task
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s <b>%s</b>\n", statusIcon(t.Status), escape(t.Name))
	fmt.Fprintf(&sb, "🆔 <code>%s</code>\n", escape(t.ID))
	fmt.Fprintf(&sb, "🔁 %s\n", describeRule(t.Rule))
	fmt.Fprintf(&sb, "📆 next: %s", formatTime(t.NextOccurrence))
	if t.AdvanceCreationDays > 0 {
		fmt.Fprintf(&sb, " (created %d d. ahead)", t.AdvanceCreationDays)
	}
	if t.EndDate != nil {
		fmt.Fprintf(&sb, "\n🏁 ends: %s", formatTime(*t.EndDate))
	}
	if len(t.AssigneeRotation) > 0 {
		fmt.Fprintf(&sb, "\n👥 rotation: %s", escape(strings.Join(t.AssigneeRotation, ", ")))
	}
	if len(d.Recent) == 0 {
		sb.WriteString("\n\nNo items created yet.")
		return sb.String()
	}
	sb.WriteString("\n\n<b>Latest items</b>")
	for _, inst := range d.Recent {
		fmt.Fprintf(&sb, "\n• %s · item <code>%s</code>", formatTime(inst.ScheduledDate), escape(inst.ItemID))
		if inst.Assignee != "" {
			fmt.Fprintf(&sb, " · %s", escape(inst.Assignee))
		}
	}
	return sb.String()
}

func formatPreview(dates []time.Time) string {
	if len(dates) == 0 {
		return "No upcoming occurrences."
	}
	var sb strings.Builder
	sb.WriteString("🗓 <b>Upcoming occurrences</b>")
	for _, d := range dates {
		fmt.Fprintf(&sb, "\n• %s %s", d.UTC().Weekday().String()[:3], formatTime(d))
	}
	return sb.String()
}

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var ordinals = [...]string{"", "1st", "2nd", "3rd", "4th", "5th"}

func describeRule(r model.RecurrenceRule) string {
	every := r.Interval
	if every <= 0 {
		every = 1
	}
	var desc string
	switch r.Type {
	case model.RecurWeekly:
		desc = fmt.Sprintf("every %d week(s)", every)
		if len(r.DaysOfWeek) > 0 {
			names := make([]string, 0, len(r.DaysOfWeek))
			for _, d := range r.DaysOfWeek {
				if d >= 0 && d < len(weekdayNames) {
					names = append(names, weekdayNames[d])
				}
			}
			desc += " on " + strings.Join(names, ", ")
		}
	case model.RecurMonthly:
		desc = fmt.Sprintf("every %d month(s)", every)
		switch {
		case r.DayOfMonth > 0:
			desc += fmt.Sprintf(" on day %d", r.DayOfMonth)
		case r.WeekOrdinal > 0 && r.WeekOrdinal < len(ordinals) && r.Weekday != nil && *r.Weekday >= 0 && *r.Weekday < len(weekdayNames):
			desc += fmt.Sprintf(" on the %s %s", ordinals[r.WeekOrdinal], weekdayNames[*r.Weekday])
		}
	case model.RecurYearly:
		desc = fmt.Sprintf("every %d year(s)", every)
	default:
		desc = fmt.Sprintf("every %d day(s)", every)
	}
	if r.SkipWeekends {
		desc += ", skip weekends"
	}
	if r.SkipHolidays {
		desc += ", skip holidays"
	}
	return desc
}
