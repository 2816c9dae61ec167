// Package pipeline orchestrates one scrape-enrich-extract-notify run:
// scrape the listing, enrich stubs from detail pages, extract normalized
// records, upsert them, and notify verified subscribers about events they
// have not been told about yet.
//
// Runs are single-writer: the caller must not invoke Run concurrently
// against the same store.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/datatalk-cz/events-bot/internal/event"
	"github.com/datatalk-cz/events-bot/internal/extractor"
	"github.com/datatalk-cz/events-bot/internal/logger"
	"github.com/datatalk-cz/events-bot/internal/metrics"
	"github.com/datatalk-cz/events-bot/internal/notify"
	"github.com/datatalk-cz/events-bot/internal/store"
)

// Scraper produces event stubs from the listing page.
type Scraper interface {
	Scrape(ctx context.Context) ([]event.Stub, error)
}

// DetailFetcher enriches stubs from their detail pages. Must return one
// result per input, in input order.
type DetailFetcher interface {
	FetchDetails(ctx context.Context, stubs []event.Stub) []event.Enriched
}

// Deps are the pipeline's collaborators. Telegram and Metrics may be nil.
type Deps struct {
	Store     *store.Store
	Scraper   Scraper
	Details   DetailFetcher
	Extractor extractor.Extractor
	Email     notify.EmailSender
	Telegram  notify.TelegramSender
	Metrics   *metrics.Metrics
	Log       *logger.Logger
	Now       func() time.Time
}

// Pipeline runs the scrape-and-notify sequence.
type Pipeline struct {
	deps Deps
}

// New creates a Pipeline from its collaborators.
func New(deps Deps) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{deps: deps}
}

// Run executes one full pipeline run. A ScrapeRun row is created up front
// and its terminal state (success or failed, with counts) is written exactly
// once on every exit path; the error, if any, is also returned so the
// scheduler sees it.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	d := p.deps
	started := d.Now()

	run, err := d.Store.CreateRun()
	if err != nil {
		return fmt.Errorf("creating run record: %w", err)
	}
	d.Log.Info("scrape run started", logger.Fields{"run_id": run.ID})

	var found, added int
	defer func() {
		status := store.RunSuccess
		errMsg := ""
		if err != nil {
			status = store.RunFailed
			errMsg = err.Error()
		}
		if ferr := d.Store.FinishRun(run.ID, status, found, added, errMsg); ferr != nil {
			d.Log.Error("finalizing run failed", logger.Fields{"run_id": run.ID}, ferr)
			if err == nil {
				err = ferr
			}
		}
		if d.Metrics != nil {
			d.Metrics.RunsTotal.WithLabelValues(status).Inc()
			d.Metrics.RunDuration.Observe(d.Now().Sub(started).Seconds())
		}
		d.Log.Info("scrape run finished", logger.Fields{
			"run_id": run.ID, "status": status, "events_found": found, "events_new": added,
		})
	}()

	stubs, err := d.Scraper.Scrape(ctx)
	if err != nil {
		return fmt.Errorf("scraping listing: %w", err)
	}
	if len(stubs) == 0 {
		d.Log.Warn("no events found on listing page", nil)
		return nil
	}

	enriched := d.Details.FetchDetails(ctx, stubs)

	normalized, err := d.Extractor.Extract(ctx, enriched)
	if err != nil {
		return fmt.Errorf("extracting events: %w", err)
	}

	records := make([]*store.Event, 0, len(normalized))
	for _, n := range normalized {
		records = append(records, buildRecord(n))
	}
	added, err = d.Store.UpsertEvents(records)
	if err != nil {
		return fmt.Errorf("saving events: %w", err)
	}
	found = len(normalized)
	if d.Metrics != nil {
		d.Metrics.EventsFound.Add(float64(found))
		d.Metrics.EventsNew.Add(float64(added))
	}

	eligible := eligibleForNotification(records, d.Now())
	if len(eligible) == 0 {
		d.Log.Info("no upcoming events to notify about", nil)
		return nil
	}

	subs, err := d.Store.VerifiedSubscribers()
	if err != nil {
		return fmt.Errorf("loading subscribers: %w", err)
	}
	for _, sub := range subs {
		if err := p.notifySubscriber(ctx, sub, eligible); err != nil {
			return fmt.Errorf("notifying %s: %w", sub.Email, err)
		}
	}

	return nil
}

// buildRecord converts a normalized event into its persisted form. Dates
// are parsed here so a malformed value degrades to NULL instead of failing
// the run.
func buildRecord(n event.Normalized) *store.Event {
	var date, end *time.Time
	if t := event.ParseWhen(n.Date); t != nil {
		date = t
	}
	if t := event.ParseWhen(n.EndDate); t != nil {
		end = t
	}
	return &store.Event{
		ExternalID:  event.ExternalID(n.URL),
		Title:       n.Title,
		Date:        date,
		EndDate:     end,
		Location:    n.Location,
		Description: n.Description,
		URL:         n.URL,
		Topics:      store.EncodeList(n.Topics),
		EventType:   n.Type,
		Level:       n.Level,
		Language:    n.Language,
		Speakers:    store.EncodeList(n.Speakers),
		Organizer:   n.Organizer,
		ImageURL:    n.ImageURL,
	}
}

// eligibleForNotification keeps events whose date is unknown or strictly in
// the future. Past events stay in storage but never drive notifications.
func eligibleForNotification(records []*store.Event, now time.Time) []*store.Event {
	eligible := make([]*store.Event, 0, len(records))
	for _, ev := range records {
		if event.IsUpcoming(ev.Date, now) {
			eligible = append(eligible, ev)
		}
	}
	return eligible
}

// notifySubscriber computes the subscriber's notification delta and
// dispatches it. The email-channel ledger is the canonical dedup gate: an
// empty delta skips the subscriber entirely, Telegram included. Transport
// failures are logged and recorded in the ledger but never fail the run;
// storage failures do.
func (p *Pipeline) notifySubscriber(ctx context.Context, sub store.Subscriber, eligible []*store.Event) error {
	d := p.deps

	seen, err := d.Store.NotifiedEventIDs(sub.ID, store.ChannelEmail)
	if err != nil {
		return err
	}

	delta := make([]store.Event, 0, len(eligible))
	ids := make([]uint, 0, len(eligible))
	for _, ev := range eligible {
		if !seen[ev.ID] {
			delta = append(delta, *ev)
			ids = append(ids, ev.ID)
		}
	}
	if len(delta) == 0 {
		d.Log.Debug("subscriber already notified", logger.Fields{"email": sub.Email})
		return nil
	}

	attachments := make([]notify.Attachment, 0, len(delta))
	for i := range delta {
		attachments = append(attachments, notify.MakeICSAttachment(&delta[i]))
	}

	emailStatus := "sent"
	if err := d.Email.Send(ctx, sub.Email, notify.EmailSubject, notify.FormatEmailHTML(delta), attachments); err != nil {
		d.Log.Error("email send failed", logger.Fields{"email": sub.Email}, err)
		emailStatus = "failed"
	} else if d.Metrics != nil {
		d.Metrics.NotificationsTotal.WithLabelValues(store.ChannelEmail).Inc()
	}
	if err := d.Store.LogNotifications(sub.ID, ids, store.ChannelEmail, emailStatus); err != nil {
		return err
	}

	if sub.TelegramChatID != "" {
		tgStatus := "sent"
		if d.Telegram == nil {
			d.Log.Warn("telegram not configured, skipping send", logger.Fields{"email": sub.Email})
			tgStatus = "failed"
		} else if err := d.Telegram.Send(ctx, sub.TelegramChatID, notify.FormatTelegram(delta)); err != nil {
			d.Log.Error("telegram send failed", logger.Fields{"email": sub.Email}, err)
			tgStatus = "failed"
		} else if d.Metrics != nil {
			d.Metrics.NotificationsTotal.WithLabelValues(store.ChannelTelegram).Inc()
		}
		if err := d.Store.LogNotifications(sub.ID, ids, store.ChannelTelegram, tgStatus); err != nil {
			return err
		}
	}

	d.Log.Info("subscriber notified", logger.Fields{"email": sub.Email, "events": len(delta)})
	return nil
}
