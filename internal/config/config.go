package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Config keeps runtime settings for the materializer service.
type Config struct {
	DatabaseURL string `yaml:"database_url"`

	// TickSchedule is a cron expression or a Go duration.
	TickSchedule   string        `yaml:"tick_schedule"`
	TaskTimeout    time.Duration `yaml:"task_timeout"`
	MaxAdvanceDays int           `yaml:"max_advance_days"`
	HolidaysFile   string        `yaml:"holidays_file"`

	Platform PlatformConfig `yaml:"platform"`

	TelegramToken   string  `yaml:"telegram_token"`
	OperatorChatIDs []int64 `yaml:"operator_chat_ids"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// PlatformConfig configures the workflow board API client.
type PlatformConfig struct {
	APIURL       string        `yaml:"api_url"`
	Token        string        `yaml:"token"`
	Timeout      time.Duration `yaml:"timeout"`
	RatePerSec   int           `yaml:"rate_per_sec"`
	DateColumn   string        `yaml:"date_column"`
	PersonColumn string        `yaml:"person_column"`
	StatusColumn string        `yaml:"status_column"`
}

// Load reads CONFIG_FILE (if set) and then environment variables, with sane defaults.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with an injectable environment lookup.
func LoadFrom(getenv func(string) string) (Config, error) {
	// Zero is a valid advance window, so its default is set before any source is read.
	cfg := Config{MaxAdvanceDays: 30}

	if path := strings.TrimSpace(getenv("CONFIG_FILE")); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	env := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	env("DATABASE_URL", &cfg.DatabaseURL)
	env("TICK_SCHEDULE", &cfg.TickSchedule)
	env("HOLIDAYS_FILE", &cfg.HolidaysFile)
	env("PLATFORM_API_URL", &cfg.Platform.APIURL)
	env("PLATFORM_TOKEN", &cfg.Platform.Token)
	env("PLATFORM_DATE_COLUMN", &cfg.Platform.DateColumn)
	env("PLATFORM_PERSON_COLUMN", &cfg.Platform.PersonColumn)
	env("PLATFORM_STATUS_COLUMN", &cfg.Platform.StatusColumn)
	env("TELEGRAM_TOKEN", &cfg.TelegramToken)
	env("LOG_LEVEL", &cfg.LogLevel)
	env("LOG_FORMAT", &cfg.LogFormat)

	var err error
	if cfg.TaskTimeout, err = parseDuration("TASK_TIMEOUT", getenv("TASK_TIMEOUT"), cfg.TaskTimeout); err != nil {
		return cfg, err
	}
	if cfg.Platform.Timeout, err = parseDuration("PLATFORM_TIMEOUT", getenv("PLATFORM_TIMEOUT"), cfg.Platform.Timeout); err != nil {
		return cfg, err
	}
	if cfg.MaxAdvanceDays, err = parseInt("MAX_ADVANCE_DAYS", getenv("MAX_ADVANCE_DAYS"), cfg.MaxAdvanceDays); err != nil {
		return cfg, err
	}
	if cfg.Platform.RatePerSec, err = parseInt("PLATFORM_RATE_PER_SEC", getenv("PLATFORM_RATE_PER_SEC"), cfg.Platform.RatePerSec); err != nil {
		return cfg, err
	}
	if raw := strings.TrimSpace(getenv("OPERATOR_CHAT_IDS")); raw != "" {
		if cfg.OperatorChatIDs, err = parseChatIDs(raw); err != nil {
			return cfg, err
		}
	}

	applyDefaults(&cfg)

	if cfg.MaxAdvanceDays < 0 {
		return cfg, fmt.Errorf("MAX_ADVANCE_DAYS must be >= 0")
	}
	if cfg.TelegramToken != "" && len(cfg.OperatorChatIDs) == 0 {
		return cfg, fmt.Errorf("OPERATOR_CHAT_IDS is required when TELEGRAM_TOKEN is set")
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "recurring_tasks.db"
	}
	if cfg.TickSchedule == "" {
		cfg.TickSchedule = "@hourly"
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}
	if cfg.Platform.APIURL == "" {
		cfg.Platform.APIURL = "https://api.monday.com/v2"
	}
	if cfg.Platform.Timeout <= 0 {
		cfg.Platform.Timeout = 15 * time.Second
	}
	if cfg.Platform.RatePerSec <= 0 {
		cfg.Platform.RatePerSec = 5
	}
	if cfg.Platform.DateColumn == "" {
		cfg.Platform.DateColumn = "date"
	}
	if cfg.Platform.PersonColumn == "" {
		cfg.Platform.PersonColumn = "person"
	}
	if cfg.Platform.StatusColumn == "" {
		cfg.Platform.StatusColumn = "status"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "console"
	}
}

func parseDuration(key, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", key)
	}
	return d, nil
}

func parseInt(key, raw string, def int) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return n, nil
}

func parseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("OPERATOR_CHAT_IDS: invalid chat id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
