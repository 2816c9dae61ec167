// Package calendar generates RFC 5545 iCalendar objects for persisted
// events, used as email attachments and for on-demand export.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/datatalk-cz/events-bot/internal/store"
)

// defaultDuration is used when an event has no end date.
const defaultDuration = 2 * time.Hour

// GenerateICS renders one event as a VCALENDAR containing a single VEVENT.
// Events without a known start date get a placeholder one week out so the
// invite is still importable.
func GenerateICS(ev *store.Event) string {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//DataTalk Events//datatalk.cz//\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	ics.WriteString("BEGIN:VEVENT\r\n")

	ics.WriteString(fmt.Sprintf("UID:%s@datatalk.cz\r\n", ev.ExternalID))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICSTime(time.Now().UTC())))

	start := time.Now().AddDate(0, 0, 7)
	if ev.Date != nil {
		start = *ev.Date
	}
	end := start.Add(defaultDuration)
	if ev.EndDate != nil {
		end = *ev.EndDate
	}

	ics.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICSTime(start)))
	ics.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICSTime(end)))
	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICS(ev.Title)))

	if ev.Location != "" {
		ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICS(ev.Location)))
	}
	if ev.Description != "" {
		ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICS(ev.Description)))
	}
	ics.WriteString(fmt.Sprintf("URL:%s\r\n", ev.URL))

	ics.WriteString("STATUS:CONFIRMED\r\n")
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")

	ics.WriteString("END:VEVENT\r\n")
	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String()
}

// formatICSTime formats a time.Time as an iCalendar UTC datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters according to RFC 5545
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
