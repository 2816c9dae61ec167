package extractor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/datatalk-cz/events-bot/internal/event"
	"github.com/datatalk-cz/events-bot/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.LevelError, io.Discard)
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Fatalf("encoding chat reply: %v", err)
	}
}

func TestLLMExtract(t *testing.T) {
	result := `[{"title":"AI Meetup","date":"2026-03-01T18:00:00Z","url":"https://x.cz/a/b/","topics":["AI"],"type":"meetup","language":"cs","speakers":["Jan Novak"],"description":"Povidani o LLM"}]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != "gpt-4o-mini" {
			t.Errorf("model = %q", req.Model)
		}
		if req.Temperature != 0.1 {
			t.Errorf("temperature = %v", req.Temperature)
		}
		if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "https://x.cz/a/b/") {
			t.Errorf("prompt missing evidence: %+v", req.Messages)
		}

		chatReply(t, w, result)
	}))
	defer srv.Close()

	l := newLLMWithBase("test-key", "gpt-4o-mini", srv.URL+"/", testLogger())
	out, err := l.Extract(context.Background(), []event.Enriched{
		{Stub: event.Stub{Title: "AI Meetup", URL: "https://x.cz/a/b/", DateText: "12. 3. 2026"}},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d results, want 1", len(out))
	}
	if out[0].Title != "AI Meetup" || out[0].Type != "meetup" || out[0].Language != "cs" {
		t.Errorf("result = %+v", out[0])
	}
	if len(out[0].Speakers) != 1 || out[0].Speakers[0] != "Jan Novak" {
		t.Errorf("speakers = %v", out[0].Speakers)
	}
}

func TestLLMExtractStripsCodeFence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		chatReply(t, w, "```json\n[{\"title\":\"Fenced\",\"url\":\"https://x.cz/f/1/\"}]\n```")
	}))
	defer srv.Close()

	l := newLLMWithBase("k", "m", srv.URL+"/", testLogger())
	out, err := l.Extract(context.Background(), []event.Enriched{
		{Stub: event.Stub{Title: "Fenced", URL: "https://x.cz/f/1/"}},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(out) != 1 || out[0].Title != "Fenced" {
		t.Errorf("result = %+v", out)
	}
}

func TestLLMExtractFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	// Short deadline so the retry loop gives up quickly.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	l := newLLMWithBase("k", "m", srv.URL+"/", testLogger())
	if _, err := l.Extract(ctx, []event.Enriched{{Stub: event.Stub{Title: "X", URL: "https://x.cz/a/b/"}}}); err == nil {
		t.Fatal("expected error when the API keeps failing")
	}
}

func TestLLMExtractEmptyInput(t *testing.T) {
	l := newLLMWithBase("k", "m", "http://127.0.0.1:1/", testLogger())
	out, err := l.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("got %d results, want 0", len(out))
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"[1,2]", "[1,2]"},
		{"```json\n[1,2]\n```", "[1,2]"},
		{"```\n[1,2]\n```", "[1,2]"},
		{"  [1,2]  ", "[1,2]"},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewSelectsPath(t *testing.T) {
	if _, ok := New("key", "model", testLogger()).(*LLM); !ok {
		t.Error("expected LLM path with an API key")
	}
	if _, ok := New("", "model", testLogger()).(*Rules); !ok {
		t.Error("expected rules path without an API key")
	}
}
