package extractor

import (
	"context"

	"github.com/datatalk-cz/events-bot/internal/event"
	"github.com/datatalk-cz/events-bot/internal/logger"
)

// Extractor produces normalized event records from enriched stubs.
// The LLM path does not guarantee output order; callers that need to
// correlate outputs with inputs must match by URL.
type Extractor interface {
	Extract(ctx context.Context, items []event.Enriched) ([]event.Normalized, error)
}

// New selects the extraction path: LLM-backed when an API key is
// configured, deterministic rules otherwise.
func New(apiKey, model string, log *logger.Logger) Extractor {
	if apiKey != "" {
		return NewLLM(apiKey, model, log)
	}
	log.Warn("no LLM credential configured, using rule-based extraction", nil)
	return NewRules()
}
