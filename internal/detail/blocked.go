package detail

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// thinTextChars is the visible-text threshold below which a page with no
// Event JSON-LD is treated as blocked (interstitials and stubs are short).
const thinTextChars = 200

// blockedTitleKeywords mark login walls, captchas, and bot checks. The list
// covers English and Czech since fallback sources are often local.
var blockedTitleKeywords = []string{
	"login",
	"log in",
	"sign in",
	"sign up",
	"captcha",
	"verify",
	"verification",
	"attention required",
	"just a moment",
	"access denied",
	"přihlášení",
	"přihlaste",
	"ověření",
	"overeni",
}

// blockedReason classifies a fetched page, checking in order: blocked-domain
// membership, title keywords, and the thin-content heuristic. Returns an
// empty string for a usable page.
func (f *Fetcher) blockedReason(pageURL string, doc *goquery.Document, rawHTML []byte) string {
	if f.isBlockedDomain(hostOf(pageURL)) {
		return "blocked domain"
	}

	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	for _, kw := range blockedTitleKeywords {
		if strings.Contains(title, kw) {
			return "title keyword: " + kw
		}
	}

	if extractJSONLD(doc) == nil && visibleTextLen(rawHTML, pageURL) < thinTextChars {
		return "thin content"
	}

	return ""
}

// isBlockedDomain matches the host against the configured blocked-domain
// list by suffix, so subdomains of a blocked domain are blocked too.
func (f *Fetcher) isBlockedDomain(host string) bool {
	if host == "" {
		return false
	}
	for _, d := range f.blockedDomains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// visibleTextLen measures the readable body text of a page using
// readability's content extraction, falling back to the raw body text when
// extraction fails.
func visibleTextLen(rawHTML []byte, pageURL string) int {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = nil
	}
	article, err := readability.FromReader(bytes.NewReader(rawHTML), u)
	if err == nil {
		return len(strings.TrimSpace(article.TextContent))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return 0
	}
	return len(strings.TrimSpace(doc.Find("body").Text()))
}
