// Package wallex reads the USDTTMN book from Wallex, over REST and
// optionally over its depth websocket. Prices are in toman.
package wallex

import (
	"context"
	"fmt"
	"time"

	"github.com/navid-fn/nerkh/internal/crawler"
	"github.com/navid-fn/nerkh/internal/models"
)

const (
	Name     = "wallex"
	Market   = "USDTTMN"
	depthAPI = "https://api.wallex.ir/v1/depth?symbol=" + Market
)

// Vendor prefers a fresh stream observation and falls back to REST.
type Vendor struct {
	client *crawler.Client
	url    string
	stream *Stream
}

func NewVendor(client *crawler.Client, url string, stream *Stream) *Vendor {
	if url == "" {
		url = depthAPI
	}
	return &Vendor{client: client, url: url, stream: stream}
}

func (v *Vendor) Name() string { return Name }

func (v *Vendor) Observe(ctx context.Context) (models.TetherObservation, error) {
	if v.stream != nil {
		if obs, ok := v.stream.Latest(time.Now()); ok {
			return obs, nil
		}
	}

	resp, err := v.client.Fetch(ctx, crawler.Request{URL: v.url})
	if err != nil {
		return models.TetherObservation{}, err
	}

	result, ok := crawler.GetMap(resp.Value, "result")
	if !ok {
		return models.TetherObservation{}, fmt.Errorf("wallex depth missing result")
	}
	bids, _ := crawler.GetSlice(result, "bid")
	asks, _ := crawler.GetSlice(result, "ask")
	bid, bidOK := crawler.FirstLevelPrice(bids)
	ask, askOK := crawler.FirstLevelPrice(asks)
	if !bidOK || !askOK {
		return models.TetherObservation{}, fmt.Errorf("wallex depth missing best bid or ask")
	}

	return models.TetherObservation{
		Vendor:     Name,
		Bid:        bid,
		Ask:        ask,
		ObservedAt: time.Now(),
	}, nil
}
