// Package search provides the web-search collaborator used by the detail
// fetcher when a page is blocked and an alternative source is needed.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Result is one search hit.
type Result struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Client performs a text search and returns candidate pages.
type Client interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// BraveClient talks to the Brave Search API.
type BraveClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewBrave creates a Brave Search client. Returns nil when no API key is
// configured so callers can treat search as unavailable.
func NewBrave(apiKey string) *BraveClient {
	if apiKey == "" {
		return nil
	}
	return &BraveClient{
		apiKey:  apiKey,
		baseURL: "https://api.search.brave.com",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		} `json:"results"`
	} `json:"web"`
}

// Search runs a web search for the given query.
func (c *BraveClient) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Add("q", query)

	reqURL := fmt.Sprintf("%s/res/v1/web/search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		results = append(results, Result{URL: r.URL, Title: r.Title})
	}
	return results, nil
}
