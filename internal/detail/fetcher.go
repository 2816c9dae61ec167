package detail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/datatalk-cz/events-bot/internal/event"
	"github.com/datatalk-cz/events-bot/internal/logger"
	"github.com/datatalk-cz/events-bot/internal/search"
)

const (
	// UserAgent matches the listing scraper so the site sees one client.
	UserAgent = "datatalk-events-bot/1.0 (github.com/datatalk-cz/events-bot)"

	// maxSearchCandidates bounds how many search results the blocked-page
	// fallback inspects.
	maxSearchCandidates = 5
)

// Fetcher fetches detail pages for event stubs.
type Fetcher struct {
	client         *http.Client
	search         search.Client
	blockedDomains []string
	sem            chan struct{}
	log            *logger.Logger
}

// New creates a Fetcher. concurrency bounds in-flight page fetches
// (including search-fallback candidate fetches, which share the same gate);
// timeout applies per request. searchClient may be nil, in which case the
// blocked-page fallback is skipped.
func New(concurrency int, timeout time.Duration, blockedDomains []string, searchClient search.Client, log *logger.Logger) *Fetcher {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Fetcher{
		client:         &http.Client{Timeout: timeout},
		search:         searchClient,
		blockedDomains: blockedDomains,
		sem:            make(chan struct{}, concurrency),
		log:            log,
	}
}

// FetchDetails fetches every stub's detail page concurrently. The result
// always has the same length and order as the input; per-item failures
// degrade to empty defaults and are never returned as errors.
func (f *Fetcher) FetchDetails(ctx context.Context, stubs []event.Stub) []event.Enriched {
	results := make([]event.Enriched, len(stubs))

	var wg sync.WaitGroup
	for i, stub := range stubs {
		wg.Add(1)
		go func(i int, stub event.Stub) {
			defer wg.Done()
			results[i] = f.fetchOne(ctx, stub)
		}(i, stub)
	}
	wg.Wait()

	return results
}

// fetchOne fetches and parses a single detail page.
func (f *Fetcher) fetchOne(ctx context.Context, stub event.Stub) event.Enriched {
	enriched := event.Enriched{
		Stub:   stub,
		OGMeta: map[string]string{},
	}
	if stub.URL == "" {
		return enriched
	}

	body, err := f.get(ctx, stub.URL)
	if err != nil {
		f.log.Warn("detail fetch failed", logger.Fields{"url": stub.URL, "reason": err.Error()})
		return enriched
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		f.log.Warn("detail parse failed", logger.Fields{"url": stub.URL, "reason": err.Error()})
		return enriched
	}

	if reason := f.blockedReason(stub.URL, doc, body); reason != "" {
		f.log.Info("detail page blocked", logger.Fields{"url": stub.URL, "reason": reason})
		if alt := f.searchFallback(ctx, stub); alt != nil {
			doc = alt
		}
	}

	enriched.JSONLD = extractJSONLD(doc)
	enriched.OGMeta = extractOGMeta(doc)
	enriched.Markdown = renderMarkdown(doc)
	return enriched
}

// get performs one GET under the shared concurrency gate. Non-2xx responses
// are errors; there is no retry at this layer, these are bulk best-effort
// fetches.
func (f *Fetcher) get(ctx context.Context, pageURL string) ([]byte, error) {
	select {
	case f.sem <- struct{}{}:
		defer func() { <-f.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// searchFallback looks for an alternative source for a blocked page: a web
// search for the event title, trying candidates that are neither the
// original domain nor themselves blocked. Returns nil when no usable
// candidate is found; the caller proceeds with the original document.
func (f *Fetcher) searchFallback(ctx context.Context, stub event.Stub) *goquery.Document {
	if f.search == nil {
		return nil
	}

	results, err := f.search.Search(ctx, stub.Title+" event")
	if err != nil {
		f.log.Warn("search fallback failed", logger.Fields{"title": stub.Title, "reason": err.Error()})
		return nil
	}
	if len(results) > maxSearchCandidates {
		results = results[:maxSearchCandidates]
	}

	origHost := hostOf(stub.URL)
	for _, r := range results {
		host := hostOf(r.URL)
		if host == "" || host == origHost || f.isBlockedDomain(host) {
			continue
		}

		body, err := f.get(ctx, r.URL)
		if err != nil {
			continue
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			continue
		}
		if f.blockedReason(r.URL, doc, body) != "" {
			continue
		}

		f.log.Info("using search fallback source", logger.Fields{"title": stub.Title, "url": r.URL})
		return doc
	}

	return nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
