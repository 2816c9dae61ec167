package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"

	"github.com/datatalk-cz/events-bot/internal/event"
	"github.com/datatalk-cz/events-bot/internal/logger"
)

const (
	UserAgent = "datatalk-events-bot/1.0 (github.com/datatalk-cz/events-bot)"
	Timeout   = 30 * time.Second

	// DescriptionMaxChars caps the stub description taken from the
	// listing container.
	DescriptionMaxChars = 500
)

// fetchAttempts is the total number of tries for the listing page,
// with exponential backoff between 1s and 10s.
const fetchAttempts = 3

// Scraper fetches and parses the event calendar listing page.
type Scraper struct {
	client *http.Client
	url    string
	log    *logger.Logger
}

// New creates a Scraper for the given listing URL.
func New(listingURL string, log *logger.Logger) *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: Timeout},
		url:    listingURL,
		log:    log,
	}
}

// Scrape fetches the listing page and returns the parsed event stubs.
// The fetch is retried on transport errors and 5xx responses; the final
// failure propagates. An empty page yields an empty slice, not an error.
func (s *Scraper) Scrape(ctx context.Context) ([]event.Stub, error) {
	s.log.Info("scraping listing page", logger.Fields{"url": s.url})

	var body []byte
	operation := func() error {
		b, err := s.fetchPage(ctx)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 10 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, fetchAttempts-1), ctx)); err != nil {
		return nil, fmt.Errorf("fetching listing page: %w", err)
	}

	stubs, err := s.parseStubs(strings.NewReader(string(body)), s.url)
	if err != nil {
		return nil, err
	}

	s.log.Info("listing parsed", logger.Fields{"stubs": len(stubs)})
	return stubs, nil
}

// fetchPage performs one GET against the listing URL. 4xx responses are
// permanent; 5xx and transport errors are retryable.
func (s *Scraper) fetchPage(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("server error: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	return io.ReadAll(resp.Body)
}

// parenPattern captures the first parenthesized group after the event link,
// which the site uses for date/location hints, e.g. "(12. 3. 2026, Praha)".
var parenPattern = regexp.MustCompile(`\(([^)]+)\)`)

// parseStubs extracts event stubs from listing HTML. The primary strategy
// wins when it yields anything; otherwise the generic card fallback runs.
func (s *Scraper) parseStubs(r io.Reader, sourceURL string) ([]event.Stub, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parsing listing URL: %w", err)
	}

	stubs := parsePrimary(doc, base)
	if len(stubs) == 0 {
		stubs = parseFallback(doc, base)
	}

	return dedupeByURL(stubs), nil
}

// parsePrimary scans list items for a bold/emphasis wrapper around a link,
// which is how the calendar page marks event entries. Parenthesized text
// after the link is the raw date/location string.
func parsePrimary(doc *goquery.Document, base *url.URL) []event.Stub {
	stubs := make([]event.Stub, 0)

	doc.Find("li").Each(func(_ int, item *goquery.Selection) {
		link := item.Find("b a[href], strong a[href], em a[href]").First()
		if link.Length() == 0 {
			return
		}

		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		// Relative links that don't point at a detail page are
		// navigation noise (e.g. "/kontakt").
		if ref.Host == "" && !isDetailPath(ref.Path) {
			return
		}
		abs := base.ResolveReference(ref).String()

		itemText := normalizeSpace(item.Text())
		dateText := ""
		if idx := strings.Index(itemText, title); idx >= 0 {
			after := itemText[idx+len(title):]
			if m := parenPattern.FindStringSubmatch(after); m != nil {
				dateText = strings.TrimSpace(m[1])
			}
		}

		stubs = append(stubs, event.Stub{
			Title:       title,
			URL:         abs,
			DateText:    dateText,
			Description: truncate(itemText, DescriptionMaxChars),
		})
	})

	return stubs
}

// parseFallback handles generic card layouts: article elements and common
// calendar-widget containers, taking the first heading+link pair in each.
// No date text is captured on this path.
func parseFallback(doc *goquery.Document, base *url.URL) []event.Stub {
	stubs := make([]event.Stub, 0)

	sel := "article, .event-card, .event-item, .tribe-events-calendar-list__event"
	doc.Find(sel).Each(func(_ int, card *goquery.Selection) {
		heading := card.Find("h1, h2, h3, h4").First()
		link := card.Find("a[href]").First()
		if heading.Length() == 0 || link.Length() == 0 {
			return
		}

		title := strings.TrimSpace(heading.Text())
		href, _ := link.Attr("href")
		if title == "" || href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		stubs = append(stubs, event.Stub{
			Title:       title,
			URL:         base.ResolveReference(ref).String(),
			Description: truncate(normalizeSpace(card.Text()), DescriptionMaxChars),
		})
	})

	return stubs
}

// isDetailPath reports whether a relative path plausibly points at an event
// detail page: at least two non-empty segments, e.g. "/kalendar-akci/ai-meetup/".
func isDetailPath(path string) bool {
	segments := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments++
		}
	}
	return segments >= 2
}

func dedupeByURL(stubs []event.Stub) []event.Stub {
	seen := make(map[string]bool, len(stubs))
	unique := make([]event.Stub, 0, len(stubs))
	for _, st := range stubs {
		if seen[st.URL] {
			continue
		}
		seen[st.URL] = true
		unique = append(unique, st)
	}
	return unique
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
