package nobitex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/navid-fn/nerkh/internal/crawler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveConvertsRialToToman(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"lastTradePrice": "1021000",
			"asks": [["1021500", "120.5"], ["1022000", "3"]],
			"bids": [["1020500", "88"], ["1020000", "1"]]
		}`))
	}))
	defer server.Close()

	vendor := NewVendor(crawler.NewClient(nil), server.URL)
	obs, err := vendor.Observe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Name, obs.Vendor)
	assert.Equal(t, 102050.0, obs.Bid)
	assert.Equal(t, 102150.0, obs.Ask)
	assert.Equal(t, 102100.0, obs.Mid())
}

func TestParseOrderbookRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"not an object", []any{}},
		{"failed status", map[string]any{"status": "failed"}},
		{"no bids", map[string]any{"status": "ok", "asks": []any{[]any{"1", "1"}}}},
		{"empty asks", map[string]any{"bids": []any{[]any{"1", "1"}}, "asks": []any{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseOrderbook(tt.value, time.Now())
			assert.Error(t, err)
		})
	}
}

func TestObserveServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewVendor(crawler.NewClient(nil), server.URL).Observe(context.Background())
	assert.ErrorIs(t, err, crawler.ErrFetch)
}
