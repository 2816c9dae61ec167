// Package store is the relational persistence layer: events, subscribers,
// the notification ledger, and scrape-run history, backed by SQLite.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps the database handle. One Store is shared per process; the
// pipeline is the only writer during a run.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path and migrates
// the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.AutoMigrate(&Event{}, &Subscriber{}, &NotificationLog{}, &ScrapeRun{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// CreateRun persists a new running ScrapeRun immediately, so partial
// progress is observable mid-run.
func (s *Store) CreateRun() (*ScrapeRun, error) {
	run := &ScrapeRun{StartedAt: time.Now().UTC(), Status: RunRunning}
	if err := s.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("creating scrape run: %w", err)
	}
	return run, nil
}

// FinishRun writes the terminal state of a run: status, counts, and the
// error message when failed.
func (s *Store) FinishRun(runID uint, status string, found, added int, errMsg string) error {
	now := time.Now().UTC()
	err := s.db.Model(&ScrapeRun{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"status":        status,
		"events_found":  found,
		"events_new":    added,
		"error_message": errMsg,
		"finished_at":   &now,
	}).Error
	if err != nil {
		return fmt.Errorf("finishing scrape run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first.
func (s *Store) RecentRuns(limit int) ([]ScrapeRun, error) {
	var runs []ScrapeRun
	if err := s.db.Order("started_at desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// UpsertEvents writes a batch of events keyed by ExternalID in a single
// transaction. An existing row is overwritten in place (ScrapedAt
// advances); a miss inserts. Returns the number of inserts. Each element's
// ID is populated on return.
func (s *Store) UpsertEvents(events []*Event) (int, error) {
	added := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, ev := range events {
			ev.ScrapedAt = time.Now().UTC()

			var existing Event
			err := tx.Where("external_id = ?", ev.ExternalID).First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := tx.Create(ev).Error; err != nil {
					return fmt.Errorf("inserting event %s: %w", ev.ExternalID, err)
				}
				added++
			case err != nil:
				return fmt.Errorf("looking up event %s: %w", ev.ExternalID, err)
			default:
				ev.ID = existing.ID
				if err := tx.Model(&Event{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
					"title":       ev.Title,
					"date":        ev.Date,
					"end_date":    ev.EndDate,
					"location":    ev.Location,
					"description": ev.Description,
					"url":         ev.URL,
					"topics":      ev.Topics,
					"event_type":  ev.EventType,
					"level":       ev.Level,
					"language":    ev.Language,
					"speakers":    ev.Speakers,
					"organizer":   ev.Organizer,
					"image_url":   ev.ImageURL,
					"scraped_at":  ev.ScrapedAt,
				}).Error; err != nil {
					return fmt.Errorf("updating event %s: %w", ev.ExternalID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// EventByExternalID loads one event by its stable identifier.
func (s *Store) EventByExternalID(externalID string) (*Event, error) {
	var ev Event
	if err := s.db.Where("external_id = ?", externalID).First(&ev).Error; err != nil {
		return nil, fmt.Errorf("loading event %s: %w", externalID, err)
	}
	return &ev, nil
}

// UpcomingEvents returns events whose date is unknown or in the future,
// soonest first (dateless events last).
func (s *Store) UpcomingEvents(now time.Time) ([]Event, error) {
	var events []Event
	err := s.db.Where("date IS NULL OR date > ?", now).
		Order("date IS NULL, date asc").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("listing upcoming events: %w", err)
	}
	return events, nil
}

// CreateSubscriber registers a pending subscriber with a fresh verification
// token.
func (s *Store) CreateSubscriber(email, telegramChatID string) (*Subscriber, error) {
	sub := &Subscriber{
		Email:             email,
		TelegramChatID:    telegramChatID,
		Status:            StatusPending,
		VerificationToken: uuid.NewString(),
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.db.Create(sub).Error; err != nil {
		return nil, fmt.Errorf("creating subscriber: %w", err)
	}
	return sub, nil
}

// VerifySubscriber consumes a verification token: the matching pending
// subscriber becomes verified and the token is cleared.
func (s *Store) VerifySubscriber(token string) (*Subscriber, error) {
	var sub Subscriber
	err := s.db.Where("verification_token = ? AND status = ?", token, StatusPending).First(&sub).Error
	if err != nil {
		return nil, fmt.Errorf("verifying subscriber: %w", err)
	}

	now := time.Now().UTC()
	err = s.db.Model(&sub).Updates(map[string]interface{}{
		"status":             StatusVerified,
		"verification_token": "",
		"verified_at":        &now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("verifying subscriber: %w", err)
	}
	sub.Status = StatusVerified
	sub.VerificationToken = ""
	sub.VerifiedAt = &now
	return &sub, nil
}

// Unsubscribe marks a subscriber unsubscribed. The row is kept so the
// notification ledger stays intact.
func (s *Store) Unsubscribe(email string) error {
	res := s.db.Model(&Subscriber{}).Where("email = ?", email).Update("status", StatusUnsubscribed)
	if res.Error != nil {
		return fmt.Errorf("unsubscribing %s: %w", email, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("unsubscribing %s: no such subscriber", email)
	}
	return nil
}

// VerifiedSubscribers returns all subscribers eligible for notification.
func (s *Store) VerifiedSubscribers() ([]Subscriber, error) {
	var subs []Subscriber
	if err := s.db.Where("status = ?", StatusVerified).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("listing verified subscribers: %w", err)
	}
	return subs, nil
}

// NotifiedEventIDs returns the set of event IDs already logged for a
// subscriber on a channel. This is the dedup gate for notification deltas.
func (s *Store) NotifiedEventIDs(subscriberID uint, channel string) (map[uint]bool, error) {
	var ids []uint
	err := s.db.Model(&NotificationLog{}).
		Where("subscriber_id = ? AND channel = ?", subscriberID, channel).
		Pluck("event_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("loading notification log: %w", err)
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// LogNotifications appends one ledger row per event for a subscriber and
// channel. Rows are appended regardless of transport outcome; status
// records what the transport reported.
func (s *Store) LogNotifications(subscriberID uint, eventIDs []uint, channel, status string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]NotificationLog, 0, len(eventIDs))
	for _, id := range eventIDs {
		rows = append(rows, NotificationLog{
			SubscriberID: subscriberID,
			EventID:      id,
			Channel:      channel,
			SentAt:       now,
			Status:       status,
		})
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("appending notification log: %w", err)
	}
	return nil
}

// NotificationCount returns the total ledger size, used by tests and the
// runs listing.
func (s *Store) NotificationCount() (int64, error) {
	var n int64
	if err := s.db.Model(&NotificationLog{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting notification log: %w", err)
	}
	return n, nil
}
