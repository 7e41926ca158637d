package fetch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaminer/internal/domain"
	"ideaminer/internal/fetch"
	"ideaminer/internal/logger"
)

func TestJSONFeedFetcher_PaginatesUntilEmpty(t *testing.T) {
	pages := map[string][]map[string]any{
		"": {
			{"title": "alpha", "description": "first idea", "url": "https://example.com/1"},
			{"title": "beta", "description": "second idea", "url": "https://example.com/2"},
		},
		"2": {
			{"title": "gamma", "description": "third idea", "url": "https://example.com/3"},
		},
		"3": {},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := pages[r.URL.Query().Get("page")]
		require.NoError(t, json.NewEncoder(w).Encode(entries))
	}))
	defer srv.Close()

	source := domain.Source{
		Name:        "feed",
		BaseURL:     srv.URL,
		Enabled:     true,
		MaxPages:    10,
		RateLimitMs: 1,
	}

	listings, err := fetch.NewJSONFeedFetcher(logger.NewNop()).Fetch(context.Background(), source)
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, "alpha", listings[0].Title)
	assert.Equal(t, "feed", listings[0].SourceName)
	assert.Equal(t, "gamma", listings[2].Title)
	assert.False(t, listings[0].ScrapedAt.IsZero())
}

func TestJSONFeedFetcher_RespectsMaxPages(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		require.NoError(t, json.NewEncoder(w).Encode([]map[string]any{
			{"title": "endless", "description": "always more", "url": "https://example.com/x"},
		}))
	}))
	defer srv.Close()

	source := domain.Source{Name: "feed", BaseURL: srv.URL, MaxPages: 2, RateLimitMs: 1}

	listings, err := fetch.NewJSONFeedFetcher(logger.NewNop()).Fetch(context.Background(), source)
	require.NoError(t, err)
	assert.Len(t, listings, 2)
	assert.Equal(t, 2, requests)
}

func TestJSONFeedFetcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	source := domain.Source{Name: "feed", BaseURL: srv.URL, MaxPages: 1}

	_, err := fetch.NewJSONFeedFetcher(logger.NewNop()).Fetch(context.Background(), source)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
