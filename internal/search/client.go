// Package search wraps the Tavily web-search API and exposes it as a chat
// tool the model can invoke mid-generation.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.tavily.com"
	defaultTimeout = 30 * time.Second
	maxResults     = 5

	contentTypeJSON = "application/json"
	userAgent       = "chatrelay/0.1"
)

// Client performs web searches with a server-held Tavily credential. The
// credential is process-wide configuration, never part of client-supplied
// request state.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient constructs a search client. baseURL and httpClient fall back to
// sane defaults when zero-valued; an empty apiKey yields a client that
// reports itself unavailable instead of failing.
func NewClient(apiKey, baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// Available reports whether a search credential is configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// Response is the structured search outcome fed back to the model.
type Response struct {
	Answer  string   `json:"answer,omitempty"`
	Results []Result `json:"results"`
}

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searchPayload struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

// Search runs one query against the search API. Transport and upstream
// failures are returned as errors and propagate as generation failures.
func (c *Client) Search(ctx context.Context, query string) (*Response, error) {
	body, err := json.Marshal(searchPayload{
		APIKey:        c.apiKey,
		Query:         query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
		MaxResults:    maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct search request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if out.Results == nil {
		out.Results = []Result{}
	}
	return &out, nil
}

func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("search error status %d and failed to read body: %w", resp.StatusCode, err)
	}

	var apiErr struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error != "" {
			return fmt.Errorf("search error: %s", apiErr.Error)
		}
		if apiErr.Detail != "" {
			return fmt.Errorf("search error: %s", apiErr.Detail)
		}
	}

	return fmt.Errorf("search error status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
