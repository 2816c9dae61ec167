package notify

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/datatalk-cz/events-bot/internal/calendar"
	"github.com/datatalk-cz/events-bot/internal/config"
	"github.com/datatalk-cz/events-bot/internal/logger"
	"github.com/datatalk-cz/events-bot/internal/store"
)

// sendAttempts is the total number of tries per outbound send, with
// exponential backoff between 1s and 10s.
const sendAttempts = 3

// Attachment is a file attached to an outgoing email.
type Attachment struct {
	Filename string
	MIMEType string
	Content  []byte
}

// EmailSender delivers one email. Implementations retry internally;
// a returned error means delivery was not confirmed.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string, attachments []Attachment) error
}

// TelegramSender delivers one Telegram message to a chat.
type TelegramSender interface {
	Send(ctx context.Context, chatID, text string) error
}

// NewEmailSender constructs the configured email provider.
func NewEmailSender(cfg config.Config, log *logger.Logger) EmailSender {
	if cfg.EmailProvider == config.ProviderSendGrid {
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.EmailFrom, log)
	}
	return NewResendSender(cfg.ResendAPIKey, cfg.EmailFrom, log)
}

// MakeICSAttachment builds the calendar-invite attachment for an event.
func MakeICSAttachment(ev *store.Event) Attachment {
	return Attachment{
		Filename: "event-" + ev.ExternalID + ".ics",
		MIMEType: "text/calendar",
		Content:  []byte(calendar.GenerateICS(ev)),
	}
}

// retrySend runs op with the standard outbound-send backoff policy.
func retrySend(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 10 * time.Second
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, sendAttempts-1), ctx))
}
