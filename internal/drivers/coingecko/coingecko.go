// Package coingecko fetches USD prices from the public CoinGecko API.
package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/navid-fn/nerkh/internal/crawler"
	"github.com/navid-fn/nerkh/internal/models"
)

const (
	Name    = "coingecko"
	baseURL = "https://api.coingecko.com/api/v3"
)

// Vendor queries /simple/price. ids maps ticker symbols to CoinGecko ids.
type Vendor struct {
	client  *crawler.Client
	baseURL string
	ids     map[string]string
}

func NewVendor(client *crawler.Client, url string, ids map[string]string) *Vendor {
	if url == "" {
		url = baseURL
	}
	normalized := make(map[string]string, len(ids))
	for symbol, id := range ids {
		if id != "" {
			normalized[strings.ToUpper(symbol)] = id
		}
	}
	return &Vendor{client: client, baseURL: strings.TrimRight(url, "/"), ids: normalized}
}

func (v *Vendor) Name() string { return Name }

func (v *Vendor) Fetch(ctx context.Context) ([]byte, error) {
	if len(v.ids) == 0 {
		return nil, fmt.Errorf("no coingecko ids configured")
	}
	ids := make([]string, 0, len(v.ids))
	for _, id := range v.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")

	resp, err := v.client.Fetch(ctx, crawler.Request{URL: v.baseURL + "/simple/price?" + params.Encode()})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Parse reads {"bitcoin": {"usd": 60000}, ...} back into ticker symbols.
func (v *Vendor) Parse(raw []byte, fetchedAt time.Time) ([]models.PriceQuote, error) {
	value, err := crawler.DecodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode coingecko body: %w", err)
	}
	if _, ok := value.(map[string]any); !ok {
		return nil, fmt.Errorf("unexpected coingecko payload %T", value)
	}

	quotes := make([]models.PriceQuote, 0, len(v.ids))
	for symbol, id := range v.ids {
		entry, ok := crawler.GetMap(value, id)
		if !ok {
			continue
		}
		price, ok := crawler.GetFloatValue(entry, "usd")
		if !ok || price < 0 {
			continue
		}
		quotes = append(quotes, models.PriceQuote{
			Symbol:         symbol,
			RawValue:       price,
			USDDenominated: true,
			FetchedAt:      fetchedAt,
		})
	}
	return quotes, nil
}
