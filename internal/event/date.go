package event

import (
	"time"

	"github.com/araddon/dateparse"
)

// DefaultStartHour is applied when a source gives only a calendar date.
// Most listed events start in the morning; 09:00 keeps calendar invites
// from landing at midnight.
const DefaultStartHour = 9

// ParseWhen parses a date or datetime string from JSON-LD or the extractor.
// RFC 3339 is tried first, then a tolerant parse covering the formats seen
// in the wild ("2026-03-01", "March 1, 2026", "1.3.2026 18:00"). A
// date-only value gets DefaultStartHour. Returns nil when the value cannot
// be parsed; callers treat nil as "date unknown".
func ParseWhen(s string) *time.Time {
	if s == "" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}

	// Bare date: apply the default start hour.
	if t, err := time.Parse("2006-01-02", s); err == nil {
		t = time.Date(t.Year(), t.Month(), t.Day(), DefaultStartHour, 0, 0, 0, time.Local)
		return &t
	}

	t, err := dateparse.ParseLocal(s)
	if err != nil {
		return nil
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		t = time.Date(t.Year(), t.Month(), t.Day(), DefaultStartHour, 0, 0, 0, t.Location())
	}
	return &t
}

// IsUpcoming reports whether an event with the given date should still be
// notified about. A nil date means the date is unknown and the event is
// included (safer default); past events are recorded but never notified.
func IsUpcoming(date *time.Time, now time.Time) bool {
	if date == nil {
		return true
	}
	return date.After(now)
}
