package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"recurring-tasks/internal/model"
	"recurring-tasks/internal/service"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage recurring task definitions",
	}
	cmd.AddCommand(taskAddCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskStatusCmd("pause", "Stop materializing a definition", func(a *app, cmd *cobra.Command, id string) error {
		return a.tasks.Pause(cmd.Context(), id)
	}))
	cmd.AddCommand(taskStatusCmd("complete", "Mark a definition as completed", func(a *app, cmd *cobra.Command, id string) error {
		return a.tasks.Complete(cmd.Context(), id)
	}))
	cmd.AddCommand(taskStatusCmd("resume", "Resume a definition, skipping missed occurrences", func(a *app, cmd *cobra.Command, id string) error {
		task, err := a.tasks.Resume(cmd.Context(), id)
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "next occurrence: %s\n", task.NextOccurrence.Format(time.RFC3339))
		}
		return err
	}))
	cmd.AddCommand(taskStatusCmd("delete", "Delete a definition and its instance history", func(a *app, cmd *cobra.Command, id string) error {
		return a.tasks.Delete(cmd.Context(), id)
	}))
	return cmd
}

func taskAddCmd() *cobra.Command {
	var (
		opts      previewOptions
		input     service.TaskInput
		start     string
		end       string
		assignees string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a recurring task definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := opts.rule()
			if err != nil {
				return err
			}
			input.Rule = rule
			if input.StartDate, err = parseFrom(start); err != nil {
				return err
			}
			if end != "" {
				e, err := parseFrom(end)
				if err != nil {
					return err
				}
				input.EndDate = &e
			}
			if assignees != "" {
				input.AssigneeRotation = strings.Split(assignees, ",")
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			task, err := a.tasks.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), *task)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&input.AccountID, "account", "", "account id")
	f.StringVar(&input.BoardID, "board", "", "board id")
	f.StringVar(&input.TemplateItemID, "template", "", "template item id to clone")
	f.StringVar(&input.Name, "name", "", "definition name")
	f.IntVar(&input.AdvanceCreationDays, "advance-days", 0, "create items this many days ahead (0-30)")
	f.StringVar(&assignees, "assignees", "", "assignee rotation, comma separated")
	f.StringVar(&start, "start", "", "start instant, RFC3339 or YYYY-MM-DD (default now)")
	f.StringVar(&end, "end", "", "optional end instant")
	f.StringVar(&opts.ruleType, "type", "daily", "rule type: daily, weekly, monthly or yearly")
	f.IntVar(&opts.interval, "interval", 1, "repeat every N units")
	f.StringVar(&opts.days, "days", "", "weekly days, comma separated (0-6 or sun..sat)")
	f.IntVar(&opts.dayOfMonth, "day-of-month", 0, "monthly day of month (1-31)")
	f.IntVar(&opts.weekOrdinal, "week-ordinal", 0, "monthly week ordinal (1-5)")
	f.IntVar(&opts.weekday, "weekday", -1, "monthly weekday for --week-ordinal (0-6)")
	f.BoolVar(&opts.skipWeekends, "skip-weekends", false, "push occurrences off Saturday and Sunday")
	f.BoolVar(&opts.skipHolidays, "skip-holidays", false, "push occurrences off holidays")
	return cmd
}

func taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <account>",
		Short: "List the definitions of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			tasks, err := a.tasks.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no recurring tasks")
			}
			for _, t := range tasks {
				printTask(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
}

func taskStatusCmd(use, short string, fn func(a *app, cmd *cobra.Command, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			return fn(a, cmd, args[0])
		},
	}
}

func printTask(w io.Writer, t model.RecurringTask) {
	fmt.Fprintf(w, "%s  %-9s  %s  next=%s\n", t.ID, t.Status, t.Name, t.NextOccurrence.Format(time.RFC3339))
}
