// Package rates holds the process-wide USD and USDT exchange baseline.
package rates

import (
	"sync"
	"time"
)

// Rate names accepted by Pin and Unpin.
const (
	USD  = "usd"
	USDT = "usdt"
)

// Snapshot is a point-in-time copy of the baseline.
type Snapshot struct {
	USDToLocal  float64   `json:"usd_to_local"`
	USDTToLocal float64   `json:"usdt_to_local"`
	USDPinned   bool      `json:"usd_pinned"`
	USDTPinned  bool      `json:"usdt_pinned"`
	Source      string    `json:"source"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type pin struct {
	set   bool
	value float64
}

// Baseline is the current best estimate of 1 USD and 1 USDT in toman.
// One instance is shared by every service in the process; the refresh
// sequence writes it and renderers read it.
type Baseline struct {
	mu        sync.RWMutex
	usd       float64
	usdt      float64
	usdPin    pin
	usdtPin   pin
	source    string
	updatedAt time.Time
}

// NewBaseline starts from hardcoded defaults until the first refresh.
func NewBaseline(defaultUSD, defaultUSDT float64) *Baseline {
	return &Baseline{
		usd:    defaultUSD,
		usdt:   defaultUSDT,
		source: "default",
	}
}

// USDToLocal returns the pinned value when set, otherwise the derived one.
func (b *Baseline) USDToLocal() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.usdPin.set {
		return b.usdPin.value
	}
	return b.usd
}

func (b *Baseline) USDTToLocal() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.usdtPin.set {
		return b.usdtPin.value
	}
	return b.usdt
}

// Update stores derived values. Non-positive values are ignored so a bad
// cycle cannot zero the baseline.
func (b *Baseline) Update(usd, usdt float64, source string, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if usd > 0 {
		b.usd = usd
	}
	if usdt > 0 {
		b.usdt = usdt
	}
	b.source = source
	b.updatedAt = at
}

// Pin fixes a rate to value, bypassing vendor derivation. It reports false
// for an unknown rate name or a non-positive value.
func (b *Baseline) Pin(rate string, value float64) bool {
	if value <= 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch rate {
	case USD:
		b.usdPin = pin{set: true, value: value}
	case USDT:
		b.usdtPin = pin{set: true, value: value}
	default:
		return false
	}
	return true
}

// Unpin returns a rate to automatic derivation.
func (b *Baseline) Unpin(rate string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch rate {
	case USD:
		b.usdPin = pin{}
	case USDT:
		b.usdtPin = pin{}
	default:
		return false
	}
	return true
}

// FullyPinned is true when both rates are pinned and vendor selection can
// be skipped.
func (b *Baseline) FullyPinned() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.usdPin.set && b.usdtPin.set
}

func (b *Baseline) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := Snapshot{
		USDToLocal:  b.usd,
		USDTToLocal: b.usdt,
		USDPinned:   b.usdPin.set,
		USDTPinned:  b.usdtPin.set,
		Source:      b.source,
		UpdatedAt:   b.updatedAt,
	}
	if b.usdPin.set {
		s.USDToLocal = b.usdPin.value
	}
	if b.usdtPin.set {
		s.USDTToLocal = b.usdtPin.value
	}
	return s
}
