// Package sourcearena fetches the currency and gold board from SourceArena.
//
// The body is either a bare array or wrapped in "data":
//
//	[{"slug": "USD", "name": "دلار", "price": "1,020,000"}, ...]
//	{"data": [{"slug": "USD", "price": 1020000}, ...]}
//
// Prices arrive in rials except for a few instruments quoted in USD.
package sourcearena

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
	Name       = "sourcearena"
	DefaultURL = "https://sourcearena.ir/api/"
)

type Vendor struct {
	client  *crawler.Client
	baseURL string
	token   string
}

func NewVendor(client *crawler.Client, baseURL, token string) *Vendor {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Vendor{client: client, baseURL: baseURL, token: token}
}

// Name is also the cache key of the raw body.
func (v *Vendor) Name() string { return Name }

// Fetch returns the raw response body.
func (v *Vendor) Fetch(ctx context.Context) ([]byte, error) {
	u, err := url.Parse(v.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid sourcearena url: %w", err)
	}
	q := u.Query()
	q.Set("token", v.token)
	q.Set("currency", "")
	u.RawQuery = q.Encode()

	resp, err := v.client.Fetch(ctx, crawler.Request{URL: u.String()})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Parse reads rows into quotes carrying only Symbol and RawValue.
// Rows without a slug or a numeric price are skipped.
func (v *Vendor) Parse(raw []byte, fetchedAt time.Time) ([]models.PriceQuote, error) {
	value, err := crawler.DecodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode sourcearena body: %w", err)
	}

	rows, ok := value.([]any)
	if !ok {
		rows, ok = crawler.GetSlice(value, "data")
	}
	if !ok {
		return nil, fmt.Errorf("sourcearena body has no rows")
	}

	quotes := make([]models.PriceQuote, 0, len(rows))
	for _, item := range rows {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		slug := strings.TrimSpace(crawler.GetStringValue(row, "slug"))
		if slug == "" {
			continue
		}
		price, ok := crawler.GetFloatValue(row, "price")
		if !ok || price < 0 {
			continue
		}
		quotes = append(quotes, models.PriceQuote{
			Symbol:    strings.ToUpper(slug),
			RawValue:  price,
			FetchedAt: fetchedAt,
		})
	}
	return quotes, nil
}
