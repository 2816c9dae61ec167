// Package extractor turns enriched event stubs into normalized event
// records.
//
// Two mutually exclusive paths exist: an LLM-backed path that sends the
// aggregated page evidence to a chat-completion endpoint, and a
// deterministic rules path that derives fields directly from JSON-LD and
// OpenGraph data when no LLM credential is configured.
package extractor
