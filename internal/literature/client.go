// Package literature is the client for the literature-search microservice.
// The service runs the actual PubMed search and article analysis; this
// package only ships the request and decodes the records it returns.
package literature

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/qi-research/internal/httpclient"
)

// ErrNoResults is returned when the search matched nothing, whether the
// service answered 404 or an empty list.
var ErrNoResults = errors.New("literature: no articles found")

// SearchRequest is the body of POST /pubmed-search.
type SearchRequest struct {
	MaxResults int    `json:"max_results"`
	Query      string `json:"query"`
	APIKey     string `json:"api_key"`
	Email      string `json:"email"`
}

// Record is one analysed article keyed by column name ("Title", "URL",
// "Findings", ...). Values are whatever JSON the service produced; numbers
// are kept as json.Number so they render exactly as sent.
type Record map[string]any

// Client talks to the literature-search service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL. A nil httpClient
// gets one bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(timeout)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Search runs a literature search. It returns ErrNoResults when nothing
// matched; any other failure is wrapped with the status or cause.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Record, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("literature: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pubmed-search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("literature: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("literature: calling search service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoResults
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("literature: search service returned %d: %s", resp.StatusCode, errorMessage(resp.Body))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("literature: decoding response: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoResults
	}
	return records, nil
}

// errorMessage extracts {"error": "..."} from an error body, falling back to
// the raw (truncated) body.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
