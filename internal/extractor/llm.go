package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dghubble/sling"

	"github.com/datatalk-cz/events-bot/internal/event"
	"github.com/datatalk-cz/events-bot/internal/logger"
)

const openAIBaseURL = "https://api.openai.com/"

// llmAttempts is the total number of tries for the chat-completion call,
// with exponential backoff between 2s and 30s. Exhaustion propagates to the
// caller and fails the run.
const llmAttempts = 3

const prompt = `Analyze these events and extract structured data.
Return a JSON array with objects containing:
- title: string
- date: full ISO-8601 datetime string or null (use 09:00 if only the day is known)
- end_date: full ISO-8601 datetime string or null
- location: "online" or city/venue name or null
- topics: array of tags like ["AI", "Data", "Python"]
- type: "workshop" | "meetup" | "conference" | "webinar" | null
- level: "beginner" | "intermediate" | "advanced" | null
- language: "cs" | "en" | null
- url: string (preserve from input)
- description: short summary string
- speakers: array of speaker names
- organizer: organizer name or null
- image_url: image URL or null

Events to analyze:
%s

Return ONLY a valid JSON array, no markdown.`

// LLM extracts structured data via a chat-completion endpoint.
type LLM struct {
	model string
	base  *sling.Sling
	log   *logger.Logger
}

// NewLLM creates an LLM extractor against the OpenAI API.
func NewLLM(apiKey, model string, log *logger.Logger) *LLM {
	return newLLMWithBase(apiKey, model, openAIBaseURL, log)
}

// newLLMWithBase allows tests to point the extractor at a local server.
func newLLMWithBase(apiKey, model, baseURL string, log *logger.Logger) *LLM {
	client := &http.Client{Timeout: 60 * time.Second}
	return &LLM{
		model: model,
		base: sling.New().
			Client(client).
			Base(baseURL).
			Set("Authorization", "Bearer "+apiKey),
		log: log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// evidence is the per-item payload embedded in the prompt.
type evidence struct {
	Title    string                 `json:"title"`
	URL      string                 `json:"url"`
	DateText string                 `json:"date_text,omitempty"`
	JSONLD   map[string]interface{} `json:"json_ld,omitempty"`
	OGMeta   map[string]string      `json:"og_meta,omitempty"`
	Markdown string                 `json:"markdown,omitempty"`
}

// Extract sends one batch request with all items' evidence and parses the
// returned JSON array. Retried on any failure; the final failure propagates.
func (l *LLM) Extract(ctx context.Context, items []event.Enriched) ([]event.Normalized, error) {
	if len(items) == 0 {
		return []event.Normalized{}, nil
	}

	batch := make([]evidence, 0, len(items))
	for _, it := range items {
		batch = append(batch, evidence{
			Title:    it.Title,
			URL:      it.URL,
			DateText: it.DateText,
			JSONLD:   it.JSONLD,
			OGMeta:   it.OGMeta,
			Markdown: it.Markdown,
		})
	}
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encoding evidence: %w", err)
	}

	req := chatRequest{
		Model: l.model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(prompt, string(payload))},
		},
		Temperature: 0.1,
	}

	var out []event.Normalized
	operation := func() error {
		content, err := l.complete(req)
		if err != nil {
			l.log.Warn("extraction attempt failed", logger.Fields{"reason": err.Error()})
			return err
		}
		if err := json.Unmarshal([]byte(stripCodeFence(content)), &out); err != nil {
			return fmt.Errorf("parsing extraction result: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, llmAttempts-1), ctx)); err != nil {
		return nil, fmt.Errorf("LLM extraction: %w", err)
	}

	l.log.Info("extraction finished", logger.Fields{"events": len(out)})
	return out, nil
}

// complete performs one chat-completion request and returns the message text.
func (l *LLM) complete(req chatRequest) (string, error) {
	var ok chatResponse
	resp, err := l.base.New().
		Post("v1/chat/completions").
		BodyJSON(req).
		ReceiveSuccess(&ok)
	if err != nil {
		return "", fmt.Errorf("calling chat completion: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion returned status %d", resp.StatusCode)
	}
	if len(ok.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return ok.Choices[0].Message.Content, nil
}

// stripCodeFence removes a leading/trailing markdown code fence when the
// model wraps its answer in one despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
