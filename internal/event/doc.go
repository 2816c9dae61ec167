// Package event provides the domain types flowing through the scrape
// pipeline and functions for identifying and dating events.
//
// Each event is assigned a deterministic external ID derived from its
// canonical URL, enabling upserts that survive content drift across runs.
// Date handling is tolerant: unparseable values degrade to nil rather than
// failing a run.
package event
