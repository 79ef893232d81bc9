package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"recurring-tasks/internal/config"
	"recurring-tasks/internal/holiday"
	"recurring-tasks/internal/logging"
	"recurring-tasks/internal/platform"
	"recurring-tasks/internal/recurrence"
	"recurring-tasks/internal/repository"
	"recurring-tasks/internal/service"
)

// app holds the wired dependencies shared by serve and run.
type app struct {
	cfg config.Config
	log zerolog.Logger
	db  *gorm.DB

	calendar *holiday.Calendar
	tasks    *service.RecurringTaskService
	trigger  *service.Trigger
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: db}

	// A nil *holiday.Calendar must not leak into the interface.
	var holidays recurrence.HolidayCalendar
	if cfg.HolidaysFile != "" {
		entries, err := holiday.LoadFile(cfg.HolidaysFile)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("holidays: %w", err)
		}
		a.calendar = holiday.NewCalendar(entries...)
		holidays = a.calendar
		log.Info().Str("path", cfg.HolidaysFile).Int("holidays", len(entries)).Msg("holiday calendar loaded")
	}

	taskRepo := repository.NewRecurringTaskRepository(db)
	instanceRepo := repository.NewTaskInstanceRepository(db)

	materializer := service.NewMaterializer(taskRepo, instanceRepo, newPlatformClient(cfg, log), holidays, service.MaterializerConfig{
		Lookahead:   time.Duration(cfg.MaxAdvanceDays) * 24 * time.Hour,
		TaskTimeout: cfg.TaskTimeout,
	}, log)

	a.tasks = service.NewRecurringTaskService(taskRepo, instanceRepo, holidays).WithMaxAdvanceDays(cfg.MaxAdvanceDays)
	a.trigger = service.NewTrigger(materializer, log)
	return a, nil
}

func newPlatformClient(cfg config.Config, log zerolog.Logger) platform.Client {
	if cfg.Platform.Token == "" {
		log.Warn().Msg("PLATFORM_TOKEN is not set; using dry-run platform client")
		return platform.NewDryRunClient(log)
	}
	return platform.NewHTTPClient(platform.HTTPConfig{
		URL:        cfg.Platform.APIURL,
		Token:      cfg.Platform.Token,
		Timeout:    cfg.Platform.Timeout,
		RatePerSec: cfg.Platform.RatePerSec,
		Columns: platform.Columns{
			Date:   cfg.Platform.DateColumn,
			Person: cfg.Platform.PersonColumn,
			Status: cfg.Platform.StatusColumn,
		},
	})
}

// watchHolidays reloads the calendar on file changes until ctx is done.
func (a *app) watchHolidays(ctx context.Context) {
	if a.calendar == nil {
		return
	}
	go func() {
		if err := holiday.Watch(ctx, a.cfg.HolidaysFile, a.calendar, a.log); err != nil {
			a.log.Error().Err(err).Msg("holiday watcher stopped")
		}
	}()
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
