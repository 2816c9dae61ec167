package detail

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/datatalk-cz/events-bot/internal/event"
	"github.com/datatalk-cz/events-bot/internal/logger"
	"github.com/datatalk-cz/events-bot/internal/search"
)

func testLogger() *logger.Logger {
	return logger.New(logger.LevelError, io.Discard)
}

func testFetcher(blocked []string, sc search.Client) *Fetcher {
	return New(2, 5*time.Second, blocked, sc, testLogger())
}

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing test HTML: %v", err)
	}
	return doc
}

func TestExtractJSONLD(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string // expected event name, empty means no event found
	}{
		{
			name: "direct event object",
			html: `<script type="application/ld+json">{"@type":"Event","name":"AI Meetup"}</script>`,
			want: "AI Meetup",
		},
		{
			name: "graph member",
			html: `<script type="application/ld+json">{"@context":"https://schema.org","@graph":[{"@type":"WebSite"},{"@type":"Event","name":"Data Fest"}]}</script>`,
			want: "Data Fest",
		},
		{
			name: "top-level array",
			html: `<script type="application/ld+json">[{"@type":"BreadcrumbList"},{"@type":"Event","name":"Workshop"}]</script>`,
			want: "Workshop",
		},
		{
			name: "malformed json skipped, later script wins",
			html: `<script type="application/ld+json">{not json</script>` +
				`<script type="application/ld+json">{"@type":"Event","name":"Second"}</script>`,
			want: "Second",
		},
		{
			name: "no event type",
			html: `<script type="application/ld+json">{"@type":"Organization","name":"DataTalk"}</script>`,
			want: "",
		},
		{
			name: "no scripts",
			html: `<p>plain page</p>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractJSONLD(docFrom(t, "<html><head>"+tt.html+"</head><body></body></html>"))
			if tt.want == "" {
				if got != nil {
					t.Fatalf("expected no event, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected an event, got nil")
			}
			if name, _ := got["name"].(string); name != tt.want {
				t.Errorf("event name = %q, want %q", name, tt.want)
			}
		})
	}
}

func TestExtractOGMeta(t *testing.T) {
	html := `<html><head>
<meta property="og:title" content="AI Meetup">
<meta property="og:image" content="https://example.org/img.png">
<meta property="og:description" content="">
<meta name="description" content="not og">
</head><body></body></html>`

	got := extractOGMeta(docFrom(t, html))
	if len(got) != 2 {
		t.Fatalf("got %d og entries, want 2: %v", len(got), got)
	}
	if got["og:title"] != "AI Meetup" || got["og:image"] != "https://example.org/img.png" {
		t.Errorf("og meta = %v", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	html := `<html><body>
<nav>Home | Events | Contact</nav>
<main><h1>AI Meetup</h1><p>Talk about <strong>LLMs</strong>.</p></main>
<footer>Copyright</footer>
</body></html>`

	md := renderMarkdown(docFrom(t, html))
	if !strings.Contains(md, "AI Meetup") || !strings.Contains(md, "LLMs") {
		t.Errorf("markdown missing content: %q", md)
	}
	if strings.Contains(md, "Contact") || strings.Contains(md, "Copyright") {
		t.Errorf("markdown kept chrome: %q", md)
	}
}

func TestRenderMarkdownTruncates(t *testing.T) {
	html := "<html><body><main><p>" + strings.Repeat("a", MarkdownMaxChars+500) + "</p></main></body></html>"
	md := renderMarkdown(docFrom(t, html))
	if got := len([]rune(md)); got > MarkdownMaxChars {
		t.Errorf("markdown length = %d, want <= %d", got, MarkdownMaxChars)
	}
}

func TestBlockedReason(t *testing.T) {
	longBody := "<p>" + strings.Repeat("obsah akce ", 50) + "</p>"
	eventLD := `<script type="application/ld+json">{"@type":"Event","name":"X"}</script>`

	tests := []struct {
		name    string
		url     string
		html    string
		blocked bool
	}{
		{
			name:    "blocked domain",
			url:     "https://www.facebook.com/events/123",
			html:    "<html><head><title>Event</title></head><body>" + longBody + "</body></html>",
			blocked: true,
		},
		{
			name:    "login wall title",
			url:     "https://example.org/event",
			html:    "<html><head><title>Log in to continue</title></head><body>" + longBody + "</body></html>",
			blocked: true,
		},
		{
			name:    "czech login title",
			url:     "https://example.org/event",
			html:    "<html><head><title>Přihlášení</title></head><body>" + longBody + "</body></html>",
			blocked: true,
		},
		{
			name:    "interstitial title",
			url:     "https://example.org/event",
			html:    "<html><head><title>Just a moment...</title></head><body>" + longBody + "</body></html>",
			blocked: true,
		},
		{
			name:    "thin content without structured data",
			url:     "https://example.org/event",
			html:    "<html><head><title>Event</title></head><body><p>krátké</p></body></html>",
			blocked: true,
		},
		{
			name:    "thin content with event json-ld is fine",
			url:     "https://example.org/event",
			html:    "<html><head><title>Event</title>" + eventLD + "</head><body><p>short</p></body></html>",
			blocked: false,
		},
		{
			name:    "normal page",
			url:     "https://example.org/event",
			html:    "<html><head><title>AI Meetup</title></head><body>" + longBody + "</body></html>",
			blocked: false,
		},
	}

	f := testFetcher([]string{"facebook.com", "instagram.com"}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := f.blockedReason(tt.url, docFrom(t, tt.html), []byte(tt.html))
			if (reason != "") != tt.blocked {
				t.Errorf("blockedReason = %q, want blocked=%v", reason, tt.blocked)
			}
		})
	}
}

func TestIsBlockedDomain(t *testing.T) {
	f := testFetcher([]string{"facebook.com", "x.com"}, nil)

	tests := []struct {
		host string
		want bool
	}{
		{"facebook.com", true},
		{"www.facebook.com", true},
		{"m.facebook.com", true},
		{"notfacebook.com", false},
		{"x.com", true},
		{"example.org", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := f.isBlockedDomain(tt.host); got != tt.want {
			t.Errorf("isBlockedDomain(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestFetchDetailsPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a":
			io.WriteString(w, `<html><head><title>A</title><script type="application/ld+json">{"@type":"Event","name":"Event A"}</script></head><body><main><p>`+strings.Repeat("a ", 200)+`</p></main></body></html>`)
		case "/b":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			io.WriteString(w, `<html><head><title>C</title><meta property="og:title" content="Event C"></head><body><main><p>`+strings.Repeat("c ", 200)+`</p></main></body></html>`)
		}
	}))
	defer srv.Close()

	stubs := []event.Stub{
		{Title: "A", URL: srv.URL + "/a"},
		{Title: "B", URL: srv.URL + "/b"},
		{Title: "C", URL: srv.URL + "/c"},
	}

	f := testFetcher(nil, nil)
	got := f.FetchDetails(context.Background(), stubs)

	if len(got) != len(stubs) {
		t.Fatalf("got %d results, want %d", len(got), len(stubs))
	}
	for i := range stubs {
		if got[i].Title != stubs[i].Title {
			t.Errorf("result %d title = %q, want %q", i, got[i].Title, stubs[i].Title)
		}
	}

	if name, _ := got[0].JSONLD["name"].(string); name != "Event A" {
		t.Errorf("first result JSON-LD = %v", got[0].JSONLD)
	}
	// Failed fetch degrades to the bare stub, never an error.
	if got[1].JSONLD != nil || got[1].Markdown != "" {
		t.Errorf("failed fetch not degraded: %+v", got[1])
	}
	if got[2].OGMeta["og:title"] != "Event C" {
		t.Errorf("third result og meta = %v", got[2].OGMeta)
	}
}

type fakeSearch struct {
	results []search.Result
	err     error
	queries []string
}

func (f *fakeSearch) Search(_ context.Context, query string) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

func TestSearchFallbackReplacesBlockedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orig":
			io.WriteString(w, `<html><head><title>Just a moment...</title></head><body><p>checking</p></body></html>`)
		case "/alt":
			io.WriteString(w, `<html><head><title>AI Meetup</title><script type="application/ld+json">{"@type":"Event","name":"AI Meetup Alt"}</script></head><body><main><p>`+strings.Repeat("detail ", 60)+`</p></main></body></html>`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	// The original stub lives on a different hostname than the candidate so
	// the same-domain skip does not fire.
	origURL := strings.Replace(srv.URL, "127.0.0.1", "localhost", 1) + "/orig"

	fs := &fakeSearch{results: []search.Result{
		{URL: origURL, Title: "same host, skipped"},
		{URL: srv.URL + "/alt", Title: "usable"},
	}}

	f := testFetcher(nil, fs)
	got := f.FetchDetails(context.Background(), []event.Stub{{Title: "AI Meetup", URL: origURL}})

	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if name, _ := got[0].JSONLD["name"].(string); name != "AI Meetup Alt" {
		t.Errorf("fallback source not used, JSON-LD = %v", got[0].JSONLD)
	}
	if len(fs.queries) != 1 || !strings.Contains(fs.queries[0], "AI Meetup") {
		t.Errorf("search queries = %v", fs.queries)
	}
}

func TestSearchFallbackKeepsOriginalWhenNoCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `<html><head><title>Just a moment...</title><meta property="og:title" content="Blocked Event"></head><body><p>checking</p></body></html>`)
	}))
	defer srv.Close()

	fs := &fakeSearch{results: nil}
	f := testFetcher(nil, fs)
	got := f.FetchDetails(context.Background(), []event.Stub{{Title: "X", URL: srv.URL + "/orig"}})

	// No usable candidate: the original page's data is still extracted.
	if got[0].OGMeta["og:title"] != "Blocked Event" {
		t.Errorf("original page data lost: %v", got[0].OGMeta)
	}
}
