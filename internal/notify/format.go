package notify

import (
	"fmt"
	"strings"

	"github.com/datatalk-cz/events-bot/internal/store"
)

// EmailSubject is the fixed subject for digest emails.
const EmailSubject = "Nove eventy na DataTalk"

// telegramMaxEvents caps how many events one Telegram message lists.
const telegramMaxEvents = 5

// FormatEmailHTML renders the digest email body for a set of events.
func FormatEmailHTML(events []store.Event) string {
	var items strings.Builder
	for _, e := range events {
		location := e.Location
		if location == "" {
			location = "TBD"
		}

		speakersHTML := ""
		if speakers := e.SpeakersList(); len(speakers) > 0 {
			speakersHTML = fmt.Sprintf(
				`<p style="color:#444;margin:5px 0;font-size:0.9em;">Speakers: %s</p>`,
				strings.Join(speakers, ", "))
		}
		descHTML := ""
		if e.Description != "" {
			descHTML = fmt.Sprintf(
				`<p style="color:#555;margin:5px 0;font-size:0.9em;">%s</p>`,
				e.Description)
		}

		items.WriteString(fmt.Sprintf(
			`<div style="margin-bottom:20px;padding:15px;border:1px solid #ddd;border-radius:8px;">`+
				`<h3 style="margin:0 0 10px 0;">%s</h3>`+
				`<p style="color:#666;margin:5px 0;">%s</p>`+
				`%s%s`+
				`<a href="%s" style="color:#0066cc;">Vice info</a>`+
				`</div>`,
			e.Title, location, speakersHTML, descHTML, e.URL))
	}

	return fmt.Sprintf(
		`<div style="font-family:sans-serif;max-width:600px;margin:0 auto;">`+
			`<h1 style="color:#333;">Nove eventy tento tyden</h1>%s</div>`,
		items.String())
}

// FormatTelegram renders the Telegram digest: at most five events, each as
// title, location, and link.
func FormatTelegram(events []store.Event) string {
	if len(events) > telegramMaxEvents {
		events = events[:telegramMaxEvents]
	}

	lines := make([]string, 0, len(events))
	for _, e := range events {
		location := e.Location
		if location == "" {
			location = "TBD"
		}
		lines = append(lines, fmt.Sprintf("*%s*\n%s\n[Vice info](%s)", e.Title, location, e.URL))
	}

	return "*Nove eventy*\n\n" + strings.Join(lines, "\n\n")
}
