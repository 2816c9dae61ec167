package store

import (
	"encoding/json"
	"time"
)

// Subscriber lifecycle states.
const (
	StatusPending      = "pending"
	StatusVerified     = "verified"
	StatusUnsubscribed = "unsubscribed"
)

// Notification channels.
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
)

// ScrapeRun states.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunFailed  = "failed"
)

// Event is a persisted event record. ExternalID is the stable upsert key
// derived from the canonical URL; ScrapedAt advances on every write.
type Event struct {
	ID          uint   `gorm:"primaryKey"`
	ExternalID  string `gorm:"uniqueIndex;size:16"`
	Title       string `gorm:"size:512"`
	Date        *time.Time
	EndDate     *time.Time
	Location    string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	URL         string `gorm:"size:1024"`
	Topics      string `gorm:"type:text"` // JSON array
	EventType   string `gorm:"size:32"`
	Level       string `gorm:"size:32"`
	Language    string `gorm:"size:8"`
	Speakers    string `gorm:"type:text"` // JSON array
	Organizer   string `gorm:"size:255"`
	ImageURL    string `gorm:"size:1024"`
	ScrapedAt   time.Time
}

// TopicsList decodes the serialized topics array.
func (e *Event) TopicsList() []string {
	return decodeList(e.Topics)
}

// SpeakersList decodes the serialized speakers array.
func (e *Event) SpeakersList() []string {
	return decodeList(e.Speakers)
}

// EncodeList serializes a string list for storage on the Event row.
func EncodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeList(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

// Subscriber is a notification recipient. Subscribers are never
// hard-deleted; unsubscribing flips the status.
type Subscriber struct {
	ID                uint   `gorm:"primaryKey"`
	Email             string `gorm:"uniqueIndex;size:255"`
	TelegramChatID    string `gorm:"size:64"`
	Status            string `gorm:"index;size:16"`
	VerificationToken string `gorm:"index;size:64"`
	CreatedAt         time.Time
	VerifiedAt        *time.Time
}

// NotificationLog is the append-only dedup ledger: one row per
// (subscriber, event, channel) dispatch attempt. The pipeline never updates
// or deletes rows here.
type NotificationLog struct {
	ID           uint   `gorm:"primaryKey"`
	SubscriberID uint   `gorm:"index:idx_sub_channel"`
	EventID      uint   `gorm:"index"`
	Channel      string `gorm:"index:idx_sub_channel;size:16"`
	SentAt       time.Time
	Status       string `gorm:"size:16"` // sent, failed
}

// ScrapeRun records one pipeline invocation.
type ScrapeRun struct {
	ID           uint `gorm:"primaryKey"`
	StartedAt    time.Time
	FinishedAt   *time.Time
	Status       string `gorm:"index;size:16"`
	EventsFound  int
	EventsNew    int
	ErrorMessage string `gorm:"type:text"`
}
