package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Snapshot is a refreshed table together with the baseline it was
// rendered against. It is what gets published and stored.
type Snapshot struct {
	ID          string       `json:"snapshot_id"`
	Source      string       `json:"source"`
	FetchedAt   time.Time    `json:"fetched_at"`
	FromCache   bool         `json:"from_cache"`
	USDToLocal  float64      `json:"usd_to_local"`
	USDTToLocal float64      `json:"usdt_to_local"`
	Quotes      []PriceQuote `json:"quotes"`
}

// NewSnapshot copies table into a snapshot with a fresh id. Quotes are
// sorted by symbol.
func NewSnapshot(table *PriceTable, usdToLocal, usdtToLocal float64) Snapshot {
	s := Snapshot{
		ID:          uuid.NewString(),
		USDToLocal:  usdToLocal,
		USDTToLocal: usdtToLocal,
	}
	if table == nil {
		return s
	}
	s.Source = table.Source
	s.FetchedAt = table.FetchedAt
	s.FromCache = table.FromCache
	s.Quotes = make([]PriceQuote, 0, len(table.Quotes))
	for _, q := range table.Quotes {
		s.Quotes = append(s.Quotes, q)
	}
	sort.Slice(s.Quotes, func(i, j int) bool { return s.Quotes[i].Symbol < s.Quotes[j].Symbol })
	return s
}
