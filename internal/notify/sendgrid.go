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

const sendgridBaseURL = "https://api.sendgrid.com/"

// SendGridSender delivers email through the SendGrid v3 API.
type SendGridSender struct {
	from string
	base *sling.Sling
	log  *logger.Logger
}

// NewSendGridSender creates a SendGrid-backed email sender.
func NewSendGridSender(apiKey, from string, log *logger.Logger) *SendGridSender {
	return newSendGridWithBase(apiKey, from, sendgridBaseURL, log)
}

func newSendGridWithBase(apiKey, from, baseURL string, log *logger.Logger) *SendGridSender {
	client := &http.Client{Timeout: 30 * time.Second}
	return &SendGridSender{
		from: from,
		base: sling.New().
			Client(client).
			Base(baseURL).
			Set("Authorization", "Bearer "+apiKey),
		log: log,
	}
}

type sgEmail struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgEmail `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgAttachment struct {
	Content  string `json:"content"` // base64
	Filename string `json:"filename"`
	Type     string `json:"type"`
}

type sendgridPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgEmail             `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
	Attachments      []sgAttachment      `json:"attachments,omitempty"`
}

// Send posts one email, retrying on failure.
func (g *SendGridSender) Send(ctx context.Context, to, subject, html string, attachments []Attachment) error {
	payload := sendgridPayload{
		Personalizations: []sgPersonalization{{To: []sgEmail{{Email: to}}}},
		From:             sgEmail{Email: g.from},
		Subject:          subject,
		Content:          []sgContent{{Type: "text/html", Value: html}},
	}
	for _, att := range attachments {
		payload.Attachments = append(payload.Attachments, sgAttachment{
			Content:  base64.StdEncoding.EncodeToString(att.Content),
			Filename: att.Filename,
			Type:     att.MIMEType,
		})
	}

	err := retrySend(ctx, func() error {
		resp, err := g.base.New().Post("v3/mail/send").BodyJSON(payload).ReceiveSuccess(nil)
		if err != nil {
			return fmt.Errorf("posting email: %w", err)
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return err
	}

	g.log.Info("email sent", logger.Fields{"to": to, "provider": "sendgrid"})
	return nil
}
