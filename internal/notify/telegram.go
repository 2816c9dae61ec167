package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/datatalk-cz/events-bot/internal/logger"
)

// TelegramBot delivers messages through the Telegram Bot API.
type TelegramBot struct {
	api *tgbotapi.BotAPI
	log *logger.Logger
}

// NewTelegram creates a Telegram sender. Returns nil (and no error) when no
// token is configured; callers treat a nil sender as "channel disabled".
func NewTelegram(token string, log *logger.Logger) (*TelegramBot, error) {
	if token == "" {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &TelegramBot{api: api, log: log}, nil
}

// Send delivers one Markdown-formatted message, retrying on failure.
func (t *TelegramBot) Send(ctx context.Context, chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}

	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	err = retrySend(ctx, func() error {
		if _, err := t.api.Send(msg); err != nil {
			return fmt.Errorf("sending telegram message: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	t.log.Info("telegram message sent", logger.Fields{"chat_id": chatID})
	return nil
}
