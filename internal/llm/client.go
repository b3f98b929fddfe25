// Package llm is a minimal client for OpenAI-compatible chat completions.
// The API key is passed per call: it is the application-wide key from the
// key store, or one the caller supplied, never process configuration.
package llm

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

// Chat roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ErrEmptyCompletion is returned when the provider answered without choices.
var ErrEmptyCompletion = errors.New("llm: completion has no choices")

// Client calls POST {baseURL}/chat/completions.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a client. A nil httpClient gets one bounded by timeout.
func NewClient(baseURL, model string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = httpclient.New(timeout)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    httpClient,
	}
}

// Complete sends messages and returns the content of the first choice.
func (c *Client) Complete(ctx context.Context, apiKey string, messages []Message) (string, error) {
	if apiKey == "" {
		return "", errors.New("llm: api key is empty")
	}

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("llm: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: calling provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error.Message != "" {
			return "", fmt.Errorf("llm: provider returned %d: %s", resp.StatusCode, e.Error.Message)
		}
		return "", fmt.Errorf("llm: provider returned %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("llm: decoding response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}
