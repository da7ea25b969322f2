package coinmarketcap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/nerkh/internal/crawler"
	"github.com/navid-fn/nerkh/internal/models"
)

const body = `{
	"status": {"error_code": 0},
	"data": {
		"BTC": {"symbol": "BTC", "quote": {"USD": {"price": 60000}}},
		"ETH": [{"symbol": "ETH", "quote": {"USD": {"price": 3000}}}],
		"XRP": [],
		"BAD": {"symbol": "BAD", "quote": {}}
	}
}`

func TestFetchSendsKeyAndSymbols(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get(apiKeyHeader))
		assert.Equal(t, "BTC,ETH", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	defer server.Close()

	vendor := NewVendor(crawler.NewClient(nil), server.URL, "secret", []string{"btc", "eth"})
	raw, err := vendor.Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, body, string(raw))
}

func TestFetchWithoutSymbols(t *testing.T) {
	_, err := NewVendor(crawler.NewClient(nil), "", "k", nil).Fetch(context.Background())
	assert.Error(t, err)
}

func TestParseObjectAndArrayEntries(t *testing.T) {
	vendor := NewVendor(nil, "", "", nil)
	at := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

	quotes, err := vendor.Parse([]byte(body), at)
	require.NoError(t, err)
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })

	assert.Equal(t, []models.PriceQuote{
		{Symbol: "BTC", RawValue: 60000, USDDenominated: true, FetchedAt: at},
		{Symbol: "ETH", RawValue: 3000, USDDenominated: true, FetchedAt: at},
	}, quotes)
}

func TestParseRejectsBodyWithoutData(t *testing.T) {
	vendor := NewVendor(nil, "", "", nil)
	_, err := vendor.Parse([]byte(`{"status": {"error_code": 1002}}`), time.Now())
	assert.Error(t, err)

	_, err = vendor.Parse([]byte(`not json`), time.Now())
	assert.Error(t, err)
}
