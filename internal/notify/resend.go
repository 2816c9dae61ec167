package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/dghubble/sling"

	"github.com/datatalk-cz/events-bot/internal/logger"
)

const resendBaseURL = "https://api.resend.com/"

// ResendSender delivers email through the Resend API.
type ResendSender struct {
	from string
	base *sling.Sling
	log  *logger.Logger
}

// NewResendSender creates a Resend-backed email sender.
func NewResendSender(apiKey, from string, log *logger.Logger) *ResendSender {
	return newResendWithBase(apiKey, from, resendBaseURL, log)
}

func newResendWithBase(apiKey, from, baseURL string, log *logger.Logger) *ResendSender {
	client := &http.Client{Timeout: 30 * time.Second}
	return &ResendSender{
		from: from,
		base: sling.New().
			Client(client).
			Base(baseURL).
			Set("Authorization", "Bearer "+apiKey),
		log: log,
	}
}

type resendAttachment struct {
	Content  string `json:"content"` // base64
	Filename string `json:"filename"`
	Type     string `json:"type"`
}

type resendPayload struct {
	From        string             `json:"from"`
	To          string             `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

// Send posts one email, retrying on failure.
func (r *ResendSender) Send(ctx context.Context, to, subject, html string, attachments []Attachment) error {
	payload := resendPayload{
		From:    r.from,
		To:      to,
		Subject: subject,
		HTML:    html,
	}
	for _, att := range attachments {
		payload.Attachments = append(payload.Attachments, resendAttachment{
			Content:  base64.StdEncoding.EncodeToString(att.Content),
			Filename: att.Filename,
			Type:     att.MIMEType,
		})
	}

	err := retrySend(ctx, func() error {
		resp, err := r.base.New().Post("emails").BodyJSON(payload).ReceiveSuccess(nil)
		if err != nil {
			return fmt.Errorf("posting email: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("resend returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info("email sent", logger.Fields{"to": to, "provider": "resend"})
	return nil
}
