package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recurring-tasks/internal/model"
)

func executePreview(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"preview"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestPreviewWeeklyDays(t *testing.T) {
	out, err := executePreview(t, "--type", "weekly", "--days", "mon,wed", "--from", "2025-03-03T09:00:00Z", "--count", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		"2025-03-05T09:00:00Z  Wed",
		"2025-03-10T09:00:00Z  Mon",
		"2025-03-12T09:00:00Z  Wed",
	}, lines)
}

func TestPreviewSkipsHolidaysFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.yaml")
	require.NoError(t, os.WriteFile(path, []byte("holidays:\n  - date: 2025-03-04\n    name: Test day\n"), 0o644))

	out, err := executePreview(t, "--from", "2025-03-03", "--count", "2", "--skip-holidays", "--holidays", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{
		"2025-03-05T00:00:00Z  Wed",
		"2025-03-06T00:00:00Z  Thu",
	}, lines)
}

func TestPreviewRejectsBadInput(t *testing.T) {
	_, err := executePreview(t, "--type", "hourly")
	assert.ErrorContains(t, err, "unknown rule type")

	_, err = executePreview(t, "--type", "monthly", "--week-ordinal", "2")
	assert.ErrorContains(t, err, "needs --weekday")

	_, err = executePreview(t, "--from", "yesterday")
	assert.ErrorContains(t, err, "invalid --from")
}

func TestPreviewOptionsRule(t *testing.T) {
	opts := previewOptions{ruleType: "Monthly", interval: 2, weekOrdinal: 3, weekday: 0, days: "sun, 6"}

	rule, err := opts.rule()
	require.NoError(t, err)
	assert.Equal(t, model.RecurMonthly, rule.Type)
	assert.Equal(t, 2, rule.Interval)
	assert.Equal(t, model.IntList{0, 6}, rule.DaysOfWeek)
	require.NotNil(t, rule.Weekday)
	assert.Equal(t, 0, *rule.Weekday)
}
