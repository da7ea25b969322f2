// Package nobitex reads the USDT/IRT orderbook from Nobitex.
//
//	{
//	  "status": "ok",
//	  "lastUpdate": 1726581829816,
//	  "lastTradePrice": "1021000",
//	  "asks": [["1021500", "120.5"], ...],
//	  "bids": [["1020100", "88"], ...]
//	}
//
// Prices are in rials.
package nobitex

import (
	"context"
	"fmt"
	"time"

	"github.com/navid-fn/nerkh/internal/crawler"
	"github.com/navid-fn/nerkh/internal/models"
)

const (
	Name         = "nobitex"
	USDTPriceAPI = "https://apiv2.nobitex.ir/v3/orderbook/USDTIRT"
)

type Vendor struct {
	client *crawler.Client
	url    string
}

func NewVendor(client *crawler.Client, url string) *Vendor {
	if url == "" {
		url = USDTPriceAPI
	}
	return &Vendor{client: client, url: url}
}

func (v *Vendor) Name() string { return Name }

func (v *Vendor) Observe(ctx context.Context) (models.TetherObservation, error) {
	resp, err := v.client.Fetch(ctx, crawler.Request{URL: v.url})
	if err != nil {
		return models.TetherObservation{}, err
	}
	return parseOrderbook(resp.Value, time.Now())
}

func parseOrderbook(value any, observedAt time.Time) (models.TetherObservation, error) {
	body, ok := value.(map[string]any)
	if !ok {
		return models.TetherObservation{}, fmt.Errorf("unexpected orderbook payload %T", value)
	}
	if status := crawler.GetStringValue(body, "status"); status != "" && status != "ok" {
		return models.TetherObservation{}, fmt.Errorf("orderbook status %q", status)
	}

	bids, _ := crawler.GetSlice(body, "bids")
	asks, _ := crawler.GetSlice(body, "asks")
	bid, bidOK := crawler.FirstLevelPrice(bids)
	ask, askOK := crawler.FirstLevelPrice(asks)
	if !bidOK || !askOK {
		return models.TetherObservation{}, fmt.Errorf("orderbook missing best bid or ask")
	}

	return models.TetherObservation{
		Vendor:     Name,
		Bid:        bid / 10,
		Ask:        ask / 10,
		ObservedAt: observedAt,
	}, nil
}
