package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/julianstephens/dayplan/internal/logger"
	"github.com/julianstephens/dayplan/internal/models"
)

// callbackSep joins notification and action ids in inline button data.
const callbackSep = "|"

// ActionHandler applies an action chosen on a notification.
type ActionHandler func(notificationID, actionID string) error

// TelegramSink sends notifications to one chat with their actions as inline
// buttons, and turns button presses back into notification actions.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	return newTelegramSink(token, chatID, tgbotapi.APIEndpoint, &http.Client{})
}

func newTelegramSink(token string, chatID int64, endpoint string, client tgbotapi.HTTPClient) (*TelegramSink, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram token and chat id are required")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

func (t *TelegramSink) Name() string { return "telegram" }

func (t *TelegramSink) Send(_ context.Context, cfg models.NotificationConfig) error {
	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("%s\n%s", cfg.Title, cfg.Message))
	if len(cfg.Actions) > 0 {
		var row []tgbotapi.InlineKeyboardButton
		for _, a := range cfg.Actions {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(a.Label, cfg.ID+callbackSep+a.ID))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	}
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

// Listen long-polls for button presses from the configured chat until ctx is
// done.
func (t *TelegramSink) Listen(ctx context.Context, handle ActionHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(upd, handle)
		}
	}
}

func (t *TelegramSink) handleUpdate(upd tgbotapi.Update, handle ActionHandler) {
	cb := upd.CallbackQuery
	if cb == nil || cb.Message == nil || cb.Message.Chat == nil || cb.Message.Chat.ID != t.chatID {
		return
	}
	notifID, actionID, ok := parseCallbackData(cb.Data)
	if !ok {
		return
	}

	reply := "Done"
	if err := handle(notifID, actionID); err != nil {
		logger.Warn("Telegram action failed", "id", notifID, "action", actionID, "error", err)
		reply = "Failed: " + err.Error()
	}
	if _, err := t.bot.Request(tgbotapi.NewCallback(cb.ID, reply)); err != nil {
		logger.Debug("Failed to answer telegram callback", "error", err)
	}
}

func parseCallbackData(data string) (string, string, bool) {
	i := strings.LastIndex(data, callbackSep)
	if i <= 0 || i == len(data)-1 {
		return "", "", false
	}
	return data[:i], data[i+1:], true
}
