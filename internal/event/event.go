package event

import (
	"crypto/md5"
	"fmt"
)

// Stub is a minimal event record produced by the listing scraper,
// before detail-page enrichment.
type Stub struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	DateText    string `json:"date_text,omitempty"`
	Description string `json:"description"`
}

// Enriched is a Stub plus the structured data pulled from its detail page.
type Enriched struct {
	Stub
	JSONLD   map[string]interface{} `json:"json_ld,omitempty"`
	OGMeta   map[string]string      `json:"og_meta"`
	Markdown string                 `json:"markdown"`
}

// Event types recognized by the extractor.
const (
	TypeWorkshop   = "workshop"
	TypeMeetup     = "meetup"
	TypeConference = "conference"
	TypeWebinar    = "webinar"
)

// Difficulty levels recognized by the extractor.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Normalized is a fully extracted event record. Date fields are raw strings
// as returned by the extractor; parsing happens at persist time so that a
// malformed value degrades to NULL instead of failing the run.
type Normalized struct {
	Title       string   `json:"title"`
	Date        string   `json:"date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Location    string   `json:"location,omitempty"`
	Topics      []string `json:"topics"`
	Type        string   `json:"type,omitempty"`
	Level       string   `json:"level,omitempty"`
	Language    string   `json:"language,omitempty"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Speakers    []string `json:"speakers"`
	Organizer   string   `json:"organizer,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// ExternalID derives the stable identifier used as the upsert key: the
// first 16 hex characters of the md5 digest of the canonical URL. It
// identifies "the same event" across runs regardless of content drift.
func ExternalID(url string) string {
	sum := md5.Sum([]byte(url))
	return fmt.Sprintf("%x", sum)[:16]
}
