// Package detail fetches event detail pages with bounded concurrency and
// extracts JSON-LD structured data, OpenGraph metadata, and a markdown
// rendering of the page body.
//
// Fetching is best-effort: a failed or blocked page degrades to empty
// defaults instead of failing the batch, and blocked pages (login walls,
// captchas, thin stubs) are substituted with a web-search-located
// alternative source when one can be found.
package detail
