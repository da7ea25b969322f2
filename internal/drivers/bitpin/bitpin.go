// Package bitpin reads the USDT_IRT orderbook from Bitpin. Prices are in toman.
package bitpin

import (
	"context"
	"fmt"
	"time"

	"github.com/navid-fn/nerkh/internal/crawler"
	"github.com/navid-fn/nerkh/internal/models"
)

const (
	Name         = "bitpin"
	baseURL      = "https://api.bitpin.ir"
	orderbookAPI = baseURL + "/api/v1/mth/orderbook/USDT_IRT/"
)

type Vendor struct {
	client *crawler.Client
	url    string
}

func NewVendor(client *crawler.Client, url string) *Vendor {
	if url == "" {
		url = orderbookAPI
	}
	return &Vendor{client: client, url: url}
}

func (v *Vendor) Name() string { return Name }

func (v *Vendor) Observe(ctx context.Context) (models.TetherObservation, error) {
	resp, err := v.client.Fetch(ctx, crawler.Request{URL: v.url})
	if err != nil {
		return models.TetherObservation{}, err
	}

	bids, bidsOK := crawler.GetSlice(resp.Value, "bids")
	asks, asksOK := crawler.GetSlice(resp.Value, "asks")
	if !bidsOK || !asksOK {
		return models.TetherObservation{}, fmt.Errorf("bitpin orderbook missing sides")
	}
	bid, bidOK := crawler.FirstLevelPrice(bids)
	ask, askOK := crawler.FirstLevelPrice(asks)
	if !bidOK || !askOK {
		return models.TetherObservation{}, fmt.Errorf("bitpin orderbook missing best bid or ask")
	}

	return models.TetherObservation{
		Vendor:     Name,
		Bid:        bid,
		Ask:        ask,
		ObservedAt: time.Now(),
	}, nil
}
