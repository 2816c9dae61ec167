package detail

import (
	"encoding/json"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// MarkdownMaxChars caps the markdown rendering of the page body.
const MarkdownMaxChars = 3000

// extractJSONLD returns the first Event-typed JSON-LD object on the page,
// checking each ld+json script for a direct Event object, an @graph member,
// or a top-level array member, in that order. Malformed JSON is skipped
// silently. Returns nil when no Event object is found.
func extractJSONLD(doc *goquery.Document) map[string]interface{} {
	var found map[string]interface{}

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}

		switch v := data.(type) {
		case map[string]interface{}:
			if isEventType(v) {
				found = v
				return false
			}
			if graph, ok := v["@graph"].([]interface{}); ok {
				if ev := firstEvent(graph); ev != nil {
					found = ev
					return false
				}
			}
		case []interface{}:
			if ev := firstEvent(v); ev != nil {
				found = ev
				return false
			}
		}
		return true
	})

	return found
}

func firstEvent(items []interface{}) map[string]interface{} {
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok && isEventType(obj) {
			return obj
		}
	}
	return nil
}

func isEventType(obj map[string]interface{}) bool {
	t, _ := obj["@type"].(string)
	return t == "Event"
}

// extractOGMeta collects OpenGraph meta tags (og:title, og:image, ...) into
// a property→content map, skipping entries with empty content.
func extractOGMeta(doc *goquery.Document) map[string]string {
	result := map[string]string{}
	doc.Find(`meta[property^="og:"]`).Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if prop != "" && content != "" {
			result[prop] = content
		}
	})
	return result
}

// renderMarkdown converts the main content of the page to markdown: the
// first of main/article/body, with nav, footer, header, script, and style
// subtrees removed, truncated to MarkdownMaxChars.
func renderMarkdown(doc *goquery.Document) string {
	content := doc.Find("main").First()
	if content.Length() == 0 {
		content = doc.Find("article").First()
	}
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	if content.Length() == 0 {
		return ""
	}

	content.Find("nav, footer, header, script, style").Remove()

	converter := md.NewConverter("", true, nil)
	text := strings.TrimSpace(converter.Convert(content))

	runes := []rune(text)
	if len(runes) > MarkdownMaxChars {
		return string(runes[:MarkdownMaxChars])
	}
	return text
}
