package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "gpt-4", time.Second, srv.Client())
}

func TestComplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)
		assert.Equal(t, RoleUser, req.Messages[1].Role)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"falls prevention"}}]}`))
	})

	got, err := c.Complete(context.Background(), "sk-test", []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "user"},
	})
	require.NoError(t, err)
	assert.Equal(t, "falls prevention", got)
}

func TestComplete_ProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	_, err := c.Complete(context.Background(), "sk-bad", []Message{{Role: RoleUser, Content: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestComplete_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Complete(context.Background(), "sk", []Message{{Role: RoleUser, Content: "x"}})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestComplete_EmptyKey(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "gpt-4", time.Second, nil)

	_, err := c.Complete(context.Background(), "", nil)
	assert.Error(t, err)
}
