package models

import "time"

// TetherObservation is one vendor's view of the USDT/toman rate.
// Bid and Ask are already converted to toman.
type TetherObservation struct {
	Vendor     string    `json:"vendor"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	ObservedAt time.Time `json:"observed_at"`
}

// Mid is the arithmetic midpoint. bid <= ask is not enforced.
func (o TetherObservation) Mid() float64 {
	return (o.Bid + o.Ask) / 2
}

// Valid reports whether the observation can be used as a rate.
func (o TetherObservation) Valid() bool {
	return o.Bid > 0 && o.Ask > 0
}

// TetherRate is the outcome of vendor selection.
type TetherRate struct {
	// Value is one USDT in toman.
	Value float64 `json:"value"`

	// Source names the vendor, or "embedded:<table source>" for tier 3.
	Source string `json:"source"`

	// Tier is 1-based: dedicated vendors in priority order come first,
	// the embedded table row is len(vendors)+1.
	Tier int `json:"tier"`

	ObservedAt time.Time `json:"observed_at"`
}
