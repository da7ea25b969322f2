// Package coinmarketcap fetches USD quotes from the CoinMarketCap pro API.
//
//	{
//	  "status": {"error_code": 0},
//	  "data": {
//	    "BTC": {"symbol": "BTC", "quote": {"USD": {"price": 60000.12}}},
//	    "ETH": [{"symbol": "ETH", "quote": {"USD": {"price": 3000.5}}}]
//	  }
//	}
//
// Entries under data are either an object or an array of objects.
package coinmarketcap

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/navid-fn/nerkh/internal/crawler"
	"github.com/navid-fn/nerkh/internal/models"
)

const (
	Name         = "coinmarketcap"
	DefaultURL   = "https://pro-api.coinmarketcap.com/v1/cryptocurrency/quotes/latest"
	apiKeyHeader = "X-CMC_PRO_API_KEY"
)

type Vendor struct {
	client  *crawler.Client
	baseURL string
	apiKey  string
	symbols []string
}

func NewVendor(client *crawler.Client, baseURL, apiKey string, symbols []string) *Vendor {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Vendor{client: client, baseURL: baseURL, apiKey: apiKey, symbols: symbols}
}

func (v *Vendor) Name() string { return Name }

func (v *Vendor) Fetch(ctx context.Context) ([]byte, error) {
	if len(v.symbols) == 0 {
		return nil, fmt.Errorf("no crypto symbols configured")
	}
	u, err := url.Parse(v.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid coinmarketcap url: %w", err)
	}
	q := u.Query()
	q.Set("symbol", strings.ToUpper(strings.Join(v.symbols, ",")))
	u.RawQuery = q.Encode()

	resp, err := v.client.Fetch(ctx, crawler.Request{
		URL:     u.String(),
		Headers: map[string]string{apiKeyHeader: v.apiKey, "Accept": "application/json"},
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Parse returns USD quotes keyed by the symbols under data.
func (v *Vendor) Parse(raw []byte, fetchedAt time.Time) ([]models.PriceQuote, error) {
	value, err := crawler.DecodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode coinmarketcap body: %w", err)
	}
	data, ok := crawler.GetMap(value, "data")
	if !ok {
		return nil, fmt.Errorf("coinmarketcap body has no data")
	}

	quotes := make([]models.PriceQuote, 0, len(data))
	for symbol, entry := range data {
		if list, isList := entry.([]any); isList {
			if len(list) == 0 {
				continue
			}
			entry = list[0]
		}
		quote, ok := crawler.GetMap(entry, "quote")
		if !ok {
			continue
		}
		usd, ok := quote["USD"].(map[string]any)
		if !ok {
			continue
		}
		price, ok := crawler.GetFloatValue(usd, "price")
		if !ok || price < 0 {
			continue
		}
		quotes = append(quotes, models.PriceQuote{
			Symbol:         strings.ToUpper(symbol),
			RawValue:       price,
			USDDenominated: true,
			FetchedAt:      fetchedAt,
		})
	}
	return quotes, nil
}
