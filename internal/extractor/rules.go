package extractor

import (
	"context"

	"github.com/datatalk-cz/events-bot/internal/event"
)

// Rules is the deterministic extraction path used when no LLM credential is
// configured. Fields are derived from JSON-LD and OpenGraph data with a
// fixed precedence; topics, type, level, and language stay empty since they
// require inference. Never fails, regardless of how little structured data
// an item carries.
type Rules struct{}

// NewRules creates the rule-based extractor.
func NewRules() *Rules {
	return &Rules{}
}

// Extract normalizes each item independently, preserving input order.
func (r *Rules) Extract(_ context.Context, items []event.Enriched) ([]event.Normalized, error) {
	out := make([]event.Normalized, 0, len(items))
	for _, it := range items {
		out = append(out, normalizeOne(it))
	}
	return out, nil
}

func normalizeOne(it event.Enriched) event.Normalized {
	ld := it.JSONLD // nil-safe: reads on a nil map return zero values

	n := event.Normalized{
		URL:      it.URL,
		Topics:   []string{},
		Speakers: decodeSpeakers(ld),
	}
	n.Title = firstNonEmpty(asString(ld["name"]), it.OGMeta["og:title"], it.Title)
	n.Date = asString(ld["startDate"])
	n.EndDate = asString(ld["endDate"])
	n.Location = decodeLocation(ld["location"])
	n.Organizer = decodeNamed(ld["organizer"])
	n.ImageURL = firstNonEmpty(it.OGMeta["og:image"], decodeImage(ld["image"]))
	n.Description = firstNonEmpty(it.OGMeta["og:description"], asString(ld["description"]), it.Description)
	return n
}

// decodeLocation handles the shapes schema.org allows for location, in a
// fixed priority: plain string, object with a name, object with an address
// (string or object with addressLocality), list of any of those.
func decodeLocation(v interface{}) string {
	switch loc := v.(type) {
	case string:
		return loc
	case map[string]interface{}:
		if name := asString(loc["name"]); name != "" {
			return name
		}
		switch addr := loc["address"].(type) {
		case string:
			return addr
		case map[string]interface{}:
			return asString(addr["addressLocality"])
		}
		return ""
	case []interface{}:
		if len(loc) > 0 {
			return decodeLocation(loc[0])
		}
	}
	return ""
}

// decodeNamed handles organizer-like values: a plain string or an object
// with a name.
func decodeNamed(v interface{}) string {
	switch o := v.(type) {
	case string:
		return o
	case map[string]interface{}:
		return asString(o["name"])
	}
	return ""
}

// decodeSpeakers flattens performer/performers into a name list: a single
// string or object yields one element, a list yields one per usable member.
func decodeSpeakers(ld map[string]interface{}) []string {
	v := ld["performer"]
	if v == nil {
		v = ld["performers"]
	}

	switch p := v.(type) {
	case string:
		return []string{p}
	case map[string]interface{}:
		if name := asString(p["name"]); name != "" {
			return []string{name}
		}
	case []interface{}:
		names := make([]string, 0, len(p))
		for _, item := range p {
			if name := decodeNamed(item); name != "" {
				names = append(names, name)
			}
		}
		return names
	}
	return []string{}
}

// decodeImage handles image values: a plain URL string, an object with a
// url field, or a list whose first element is either.
func decodeImage(v interface{}) string {
	switch img := v.(type) {
	case string:
		return img
	case map[string]interface{}:
		return asString(img["url"])
	case []interface{}:
		if len(img) > 0 {
			return decodeImage(img[0])
		}
	}
	return ""
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
