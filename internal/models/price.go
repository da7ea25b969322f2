// Package models defines the domain models shared by the price services.
package models

import (
	"math"
	"strings"
	"time"
)

// Price units accepted by lookups.
const (
	UnitLocal = "local"
	UnitUSD   = "usd"
)

// PriceQuote is a single instrument's latest known price.
type PriceQuote struct {
	// Symbol is the canonical uppercase ticker (e.g., "USD", "TALA_18", "BTC").
	Symbol string `json:"symbol"`

	// RawValue is the number exactly as the vendor reported it.
	RawValue float64 `json:"raw_value"`

	// Value is RawValue after unit normalization: toman for local-quoted
	// instruments, dollars for USD-denominated ones.
	Value float64 `json:"value"`

	// USDDenominated is true when the vendor quotes the instrument in USD
	// rather than local currency (bullion ounce, oil, crypto).
	USDDenominated bool `json:"usd_denominated"`

	// FetchedAt is when the vendor table holding this quote was fetched.
	FetchedAt time.Time `json:"fetched_at"`
}

// Available reports whether the quote carries a usable price.
// Zero means "no price", never an error sentinel.
func (q PriceQuote) Available() bool {
	return q.Value > 0 && !math.IsInf(q.Value, 1)
}

// NativeUnit returns the unit Value is expressed in.
func (q PriceQuote) NativeUnit() string {
	if q.USDDenominated {
		return UnitUSD
	}
	return UnitLocal
}

// PriceTable is a normalized vendor table.
type PriceTable struct {
	// Source is the vendor name (e.g., "sourcearena", "coinmarketcap").
	Source string `json:"source"`

	// FetchedAt is when the raw table was received.
	FetchedAt time.Time `json:"fetched_at"`

	// FromCache is set when the table was rebuilt from the disk cache
	// instead of a live fetch.
	FromCache bool `json:"from_cache"`

	Quotes map[string]PriceQuote `json:"quotes"`
}

// NewPriceTable returns an empty table for source.
func NewPriceTable(source string, fetchedAt time.Time) *PriceTable {
	return &PriceTable{
		Source:    source,
		FetchedAt: fetchedAt,
		Quotes:    make(map[string]PriceQuote),
	}
}

// Get looks a symbol up case-insensitively.
func (t *PriceTable) Get(symbol string) (PriceQuote, bool) {
	if t == nil {
		return PriceQuote{}, false
	}
	q, ok := t.Quotes[strings.ToUpper(symbol)]
	return q, ok
}

// Set stores q under its canonical symbol.
func (t *PriceTable) Set(q PriceQuote) {
	q.Symbol = strings.ToUpper(q.Symbol)
	t.Quotes[q.Symbol] = q
}

// Clone returns a deep copy so callers can mutate quotes without touching
// the table other readers hold.
func (t *PriceTable) Clone() *PriceTable {
	if t == nil {
		return nil
	}
	out := *t
	out.Quotes = make(map[string]PriceQuote, len(t.Quotes))
	for k, v := range t.Quotes {
		out.Quotes[k] = v
	}
	return &out
}
