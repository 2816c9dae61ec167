// Package scraper provides HTTP fetching and HTML parsing for the
// datatalk.cz event calendar.
//
// The scraper fetches the public calendar page and extracts candidate event
// stubs (title, detail URL, raw date text, short description). Parsing uses
// a site-specific primary strategy with a generic card fallback so that
// minor layout changes degrade to fewer fields rather than zero events.
package scraper
