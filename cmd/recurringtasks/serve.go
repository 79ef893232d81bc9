package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"recurring-tasks/internal/bot"
	"recurring-tasks/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the periodic materializer until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	var operatorBot *bot.Bot
	if a.cfg.TelegramToken != "" {
		var err error
		operatorBot, err = bot.New(a.cfg.TelegramToken, a.tasks, a.trigger, a.cfg.OperatorChatIDs, a.log)
		if err != nil {
			return err
		}
		a.trigger.OnBatch(operatorBot.NotifyBatch)
	}

	a.watchHolidays(ctx)

	scheduler := service.NewSchedulerService(time.UTC, a.log)
	if _, err := scheduler.Schedule(a.cfg.TickSchedule, func() {
		a.trigger.Tick(ctx)
	}); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	a.log.Info().
		Str("schedule", a.cfg.TickSchedule).
		Bool("operator_bot", operatorBot != nil).
		Msg("recurring tasks service started")

	if operatorBot == nil {
		<-ctx.Done()
	} else if err := operatorBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info().Msg("shutdown complete")
	return nil
}
