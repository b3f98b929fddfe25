package literature

import (
	"context"
	"encoding/json"
	"errors"
	"io"
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
	return NewClient(srv.URL+"/", time.Second, srv.Client())
}

func TestSearch_SendsRequestAndDecodesRecords(t *testing.T) {
	var got SearchRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pubmed-search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"Title":"A","URL":"https://x/1","Year":2021},{"Title":"B"}]`))
	})

	records, err := c.Search(context.Background(), SearchRequest{
		MaxResults: 5,
		Query:      "falls elderly",
		APIKey:     "pm-key",
		Email:      "nurse@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, SearchRequest{MaxResults: 5, Query: "falls elderly", APIKey: "pm-key", Email: "nurse@example.com"}, got)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0]["Title"])
	assert.Equal(t, json.Number("2021"), records[0]["Year"])
}

func TestSearch_WireFieldNames(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Contains(t, raw, "max_results")
		assert.Contains(t, raw, "query")
		assert.Contains(t, raw, "api_key")
		assert.Contains(t, raw, "email")
		w.Write([]byte(`[{"Title":"A"}]`))
	})

	_, err := c.Search(context.Background(), SearchRequest{MaxResults: 1, Query: "q"})
	require.NoError(t, err)
}

func TestSearch_NoResults(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"404 from service", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"No articles found"}`))
		}},
		{"empty list", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Search(context.Background(), SearchRequest{MaxResults: 1, Query: "q"})
			assert.ErrorIs(t, err, ErrNoResults)
		})
	}
}

func TestSearch_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Entrez is down"}`))
	})

	_, err := c.Search(context.Background(), SearchRequest{MaxResults: 1, Query: "q"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoResults))
	assert.Contains(t, err.Error(), "Entrez is down")
}

func TestSearch_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// The server only notices a disconnect once the body is consumed.
		io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	// Registered after newTestClient, so it runs before srv.Close.
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Search(ctx, SearchRequest{MaxResults: 1, Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
