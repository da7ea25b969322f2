// Package convert implements cross-rate conversion through a USD pivot.
package convert

import (
	"fmt"
	"math"
	"strings"

	"github.com/navid-fn/nerkh/internal/models"
)

// Pricer answers a price for symbol in unit ("usd" or "local").
type Pricer interface {
	Price(symbol, unit string) (float64, bool)
}

// PricerFunc adapts a function to Pricer.
type PricerFunc func(symbol, unit string) (float64, bool)

func (f PricerFunc) Price(symbol, unit string) (float64, bool) { return f(symbol, unit) }

// Equivalent is one target row of an equalize call. Available is false
// when the target has no USD price.
type Equivalent struct {
	Symbol    string  `json:"symbol"`
	Amount    float64 `json:"amount"`
	Available bool    `json:"available"`
}

// Equalize values amount of symbol in USD, then divides that value by
// each target's USD price. Every target yields exactly one row.
func Equalize(p Pricer, symbol string, amount float64, targets []string) ([]Equivalent, error) {
	if !finite(amount) || amount < 0 {
		return nil, fmt.Errorf("invalid amount %v", amount)
	}
	symbol = strings.ToUpper(symbol)
	sourceUSD, ok := p.Price(symbol, models.UnitUSD)
	if !ok || !finite(sourceUSD) || sourceUSD <= 0 {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrUnknownSymbol)
	}
	pivot := sourceUSD * amount

	out := make([]Equivalent, 0, len(targets))
	for _, target := range targets {
		target = strings.ToUpper(target)
		targetUSD, ok := p.Price(target, models.UnitUSD)
		if !ok || !finite(targetUSD) || targetUSD <= 0 {
			out = append(out, Equivalent{Symbol: target})
			continue
		}
		out = append(out, Equivalent{Symbol: target, Amount: pivot / targetUSD, Available: true})
	}
	return out, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Chain asks each pricer in order and returns the first answer.
func Chain(pricers ...Pricer) Pricer {
	return PricerFunc(func(symbol, unit string) (float64, bool) {
		for _, p := range pricers {
			if p == nil {
				continue
			}
			if v, ok := p.Price(symbol, unit); ok {
				return v, true
			}
		}
		return 0, false
	})
}
