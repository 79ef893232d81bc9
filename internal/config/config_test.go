package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "recurring_tasks.db", cfg.DatabaseURL)
	assert.Equal(t, "@hourly", cfg.TickSchedule)
	assert.Equal(t, 30*time.Second, cfg.TaskTimeout)
	assert.Equal(t, 30, cfg.MaxAdvanceDays)
	assert.Equal(t, 15*time.Second, cfg.Platform.Timeout)
	assert.Equal(t, 5, cfg.Platform.RatePerSec)
	assert.Equal(t, "date", cfg.Platform.DateColumn)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Empty(t, cfg.Platform.Token)
}

func TestLoadFrom_Env(t *testing.T) {
	cfg, err := LoadFrom(envOf(map[string]string{
		"DATABASE_URL":      "data/tasks.db",
		"TICK_SCHEDULE":     "15m",
		"TASK_TIMEOUT":      "5s",
		"MAX_ADVANCE_DAYS":  "7",
		"PLATFORM_TOKEN":    " secret ",
		"TELEGRAM_TOKEN":    "tg",
		"OPERATOR_CHAT_IDS": "1, 22,",
	}))
	require.NoError(t, err)

	assert.Equal(t, "data/tasks.db", cfg.DatabaseURL)
	assert.Equal(t, "15m", cfg.TickSchedule)
	assert.Equal(t, 5*time.Second, cfg.TaskTimeout)
	assert.Equal(t, 7, cfg.MaxAdvanceDays)
	assert.Equal(t, "secret", cfg.Platform.Token)
	assert.Equal(t, []int64{1, 22}, cfg.OperatorChatIDs)
}

func TestLoadFrom_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: file.db
tick_schedule: "0 * * * *"
task_timeout: 10s
platform:
  token: from-file
  status_column: state
`), 0o644))

	cfg, err := LoadFrom(envOf(map[string]string{
		"CONFIG_FILE":  path,
		"DATABASE_URL": "env.db",
	}))
	require.NoError(t, err)

	assert.Equal(t, "env.db", cfg.DatabaseURL)
	assert.Equal(t, "0 * * * *", cfg.TickSchedule)
	assert.Equal(t, 10*time.Second, cfg.TaskTimeout)
	assert.Equal(t, "from-file", cfg.Platform.Token)
	assert.Equal(t, "state", cfg.Platform.StatusColumn)
}

func TestLoadFrom_ZeroAdvanceDays(t *testing.T) {
	cfg, err := LoadFrom(envOf(map[string]string{"MAX_ADVANCE_DAYS": "0"}))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MaxAdvanceDays)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_advance_days: 0\n"), 0o644))
	cfg, err = LoadFrom(envOf(map[string]string{"CONFIG_FILE": path}))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MaxAdvanceDays)
}

func TestLoadFrom_Errors(t *testing.T) {
	tests := map[string]map[string]string{
		"bad duration":        {"TASK_TIMEOUT": "soon"},
		"negative duration":   {"PLATFORM_TIMEOUT": "-1s"},
		"bad int":             {"MAX_ADVANCE_DAYS": "a week"},
		"negative advance":    {"MAX_ADVANCE_DAYS": "-2"},
		"bad chat id":         {"TELEGRAM_TOKEN": "tg", "OPERATOR_CHAT_IDS": "me"},
		"bot without chats":   {"TELEGRAM_TOKEN": "tg"},
		"missing config file": {"CONFIG_FILE": "/nonexistent/config.yaml"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(envOf(env))
			assert.Error(t, err)
		})
	}
}
