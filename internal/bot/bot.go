package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"recurring-tasks/internal/model"
	"recurring-tasks/internal/repository"
	"recurring-tasks/internal/service"
)

const (
	menuLabelRun    = "▶️ Run now"
	menuLabelStatus = "📊 Status"
	menuLabelHelp   = "ℹ️ Help"

	defaultPreviewCount = 5
	maxPreviewCount     = 20
)

// TaskManager is the definition surface the operator console uses.
type TaskManager interface {
	List(ctx context.Context, accountID string) ([]model.RecurringTask, error)
	Get(ctx context.Context, id string) (*service.TaskDetails, error)
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) (*model.RecurringTask, error)
	Preview(ctx context.Context, id string, n int) ([]time.Time, error)
}

// BatchTrigger runs and reports materialization batches.
type BatchTrigger interface {
	RunNow(ctx context.Context) (service.BatchResult, error)
	Last() (service.BatchOutcome, bool)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot is a Telegram console for operators of the materializer.
type Bot struct {
	api       sender
	poller    *tgbotapi.BotAPI
	tasks     TaskManager
	trigger   BatchTrigger
	operators map[int64]bool
	log       zerolog.Logger
}

func New(token string, tasks TaskManager, trigger BatchTrigger, operatorChats []int64, log zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	b := newBot(api, tasks, trigger, operatorChats, log)
	b.poller = api
	b.log.Info().Str("account", api.Self.UserName).Msg("bot authorized")
	return b, nil
}

func newBot(api sender, tasks TaskManager, trigger BatchTrigger, operatorChats []int64, log zerolog.Logger) *Bot {
	ops := make(map[int64]bool, len(operatorChats))
	for _, id := range operatorChats {
		ops[id] = true
	}
	return &Bot{
		api:       api,
		tasks:     tasks,
		trigger:   trigger,
		operators: ops,
		log:       log.With().Str("component", "bot").Logger(),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.poller == nil {
		return errors.New("bot has no telegram connection")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.poller.GetUpdatesChan(updateConfig)

	b.log.Info().Msg("start polling updates")

	go func() {
		<-ctx.Done()
		b.poller.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.Chat == nil {
			continue
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error().Err(err).Int64("chat", update.Message.Chat.ID).Msg("handle message")
		}
	}

	return nil
}

// NotifyBatch tells operators about batches that failed or had failing definitions.
func (b *Bot) NotifyBatch(res service.BatchResult, err error) {
	if err == nil && res.Failed == 0 {
		return
	}
	text := formatBatch(res, err)
	for chatID := range b.operators {
		if sendErr := b.sendText(chatID, text); sendErr != nil {
			b.log.Warn().Err(sendErr).Int64("chat", chatID).Msg("send batch notification")
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	if !b.operators[chatID] {
		b.log.Warn().Int64("chat", chatID).Msg("message from unauthorized chat")
		return b.sendText(chatID, "This console is restricted to operators.")
	}

	command, args := msg.Command(), strings.Fields(msg.CommandArguments())
	if !msg.IsCommand() {
		command, args = menuAlias(msg.Text), nil
	}
	if command == "" {
		return b.sendText(chatID, "Unknown input. Send /help for the list of commands.")
	}

	b.log.Info().Int64("chat", chatID).Str("command", command).Strs("args", args).Msg("command")
	reply, err := b.dispatch(ctx, command, args)
	if err != nil {
		reply = describeError(err)
	}
	return b.sendText(chatID, reply)
}

func menuAlias(text string) string {
	switch strings.TrimSpace(text) {
	case menuLabelRun:
		return "run"
	case menuLabelStatus:
		return "status"
	case menuLabelHelp:
		return "help"
	default:
		return ""
	}
}

func (b *Bot) dispatch(ctx context.Context, command string, args []string) (string, error) {
	switch command {
	case "start", "help":
		return helpText, nil
	case "run":
		res, err := b.trigger.RunNow(ctx)
		if errors.Is(err, service.ErrBatchInFlight) {
			return "⏳ A batch is already running. Try /status in a moment.", nil
		}
		return formatBatch(res, err), nil
	case "status":
		last, ok := b.trigger.Last()
		if !ok {
			return "No batch has run since startup.", nil
		}
		return formatBatch(last.Result, last.Err), nil
	case "tasks":
		if len(args) != 1 {
			return "Usage: /tasks &lt;account id&gt;", nil
		}
		tasks, err := b.tasks.List(ctx, args[0])
		if err != nil {
			return "", err
		}
		return formatTaskList(args[0], tasks), nil
	case "task":
		if len(args) != 1 {
			return "Usage: /task &lt;id&gt;", nil
		}
		details, err := b.tasks.Get(ctx, args[0])
		if err != nil {
			return "", err
		}
		return formatTaskDetails(details), nil
	case "pause":
		if len(args) != 1 {
			return "Usage: /pause &lt;id&gt;", nil
		}
		if err := b.tasks.Pause(ctx, args[0]); err != nil {
			return "", err
		}
		return "⏸ Paused.", nil
	case "resume":
		if len(args) != 1 {
			return "Usage: /resume &lt;id&gt;", nil
		}
		task, err := b.tasks.Resume(ctx, args[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("▶️ Resumed. Next occurrence: %s", formatTime(task.NextOccurrence)), nil
	case "preview":
		return b.preview(ctx, args)
	default:
		return "Unknown command. Send /help for the list of commands.", nil
	}
}

func (b *Bot) preview(ctx context.Context, args []string) (string, error) {
	if len(args) < 1 || len(args) > 2 {
		return "Usage: /preview &lt;id&gt; [count]", nil
	}
	n := defaultPreviewCount
	if len(args) == 2 {
		v, err := strconv.Atoi(args[1])
		if err != nil || v <= 0 {
			return "Count must be a positive number.", nil
		}
		n = min(v, maxPreviewCount)
	}
	dates, err := b.tasks.Preview(ctx, args[0], n)
	if err != nil {
		return "", err
	}
	return formatPreview(dates), nil
}

func describeError(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "❓ No recurring task with that id."
	case errors.Is(err, service.ErrEnded):
		return "🏁 This task has reached its end date."
	default:
		return "⚠️ " + escape(err.Error())
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelRun),
			tgbotapi.NewKeyboardButton(menuLabelStatus),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}
