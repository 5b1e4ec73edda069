package ports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// BingSearch is a real Search adapter over Bing's Web Search REST API.
// Selected by configuration (a non-empty BING_SEARCH_API_KEY) rather
// than by any caller — orchestrator and sub-graphs only ever see the
// Search interface. Grounded on the teacher's runbook.GitHubClient:
// a small *http.Client with a fixed timeout, a bearer/subscription
// header set once, and defensive status-code/body handling.
type BingSearch struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
}

// NewBingSearch builds a BingSearch adapter. endpoint defaults to the
// public Bing Web Search v7 endpoint when empty.
func NewBingSearch(apiKey, endpoint string) *BingSearch {
	if endpoint == "" {
		endpoint = "https://api.bing.microsoft.com/v7.0/search"
	}
	return &BingSearch{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		endpoint:   endpoint,
	}
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			URL     string `json:"url"`
			Snippet string `json:"snippet"`
		} `json:"value"`
	} `json:"webPages"`
}

// Search issues one GET against the Bing Web Search API and maps the
// response into SearchResult. searchType is appended to the query
// verbatim when non-empty (e.g. "news" narrows toward recency), since
// Bing's Web Search API has no separate vertical parameter for it.
func (b *BingSearch) Search(ctx context.Context, query string, numResults int, searchType string) ([]SearchResult, error) {
	if numResults <= 0 {
		numResults = 5
	}
	q := query
	if searchType != "" {
		q = query + " " + searchType
	}

	reqURL := b.endpoint + "?" + url.Values{
		"q":     {q},
		"count": {strconv.Itoa(numResults)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("bing search: build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bing search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bing search: unexpected status %d", resp.StatusCode)
	}

	var parsed bingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("bing search: decode response: %w", err)
	}

	results := make([]SearchResult, 0, len(parsed.WebPages.Value))
	for _, v := range parsed.WebPages.Value {
		results = append(results, SearchResult{
			Title: v.Name, Snippet: v.Snippet, URL: v.URL, Source: "bing",
		})
	}
	return results, nil
}

// FormatResultsAsContext renders results as a numbered list suitable
// for folding into an LLM prompt's search_context.
func (b *BingSearch) FormatResultsAsContext(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n%s\n%s\n\n", i+1, r.Title, r.Snippet, r.URL)
	}
	return strings.TrimSpace(sb.String())
}
