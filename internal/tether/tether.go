// Package tether derives the USDT/toman rate from dedicated exchange vendors.
//
// Selection walks the vendors in priority order and takes the most recent
// successful observation of the first vendor whose failure streak is below
// the threshold. When every dedicated vendor is failing it falls back to the
// TETHER row embedded in the primary currency table.
package tether

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/navid-fn/nerkh/internal/models"
	"github.com/navid-fn/nerkh/internal/rates"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultFailureThreshold = 3

// Vendor is a dedicated tether price source.
type Vendor interface {
	Name() string
	Observe(ctx context.Context) (models.TetherObservation, error)
}

// Embedded is the tether row carried by the primary currency table.
type Embedded struct {
	Source     string
	Value      float64
	ObservedAt time.Time
}

// VendorStatus is exposed for diagnostics.
type VendorStatus struct {
	Name     string                    `json:"name"`
	State    string                    `json:"state"`
	Failures int                       `json:"failures"`
	Last     *models.TetherObservation `json:"last,omitempty"`
}

type Deriver struct {
	vendors  []Vendor
	baseline *rates.Baseline
	logger   *logrus.Entry
	now      func() time.Time

	streaks map[string]*FailureStreak

	mu   sync.RWMutex
	last map[string]models.TetherObservation
}

func NewDeriver(vendors []Vendor, threshold int, baseline *rates.Baseline, logger *logrus.Logger) *Deriver {
	streaks := make(map[string]*FailureStreak, len(vendors))
	for _, v := range vendors {
		streaks[v.Name()] = NewFailureStreak(threshold)
	}
	return &Deriver{
		vendors:  vendors,
		baseline: baseline,
		logger:   logger.WithField("component", "tether"),
		now:      time.Now,
		streaks:  streaks,
		last:     make(map[string]models.TetherObservation),
	}
}

// Observe fetches one vendor and updates its streak.
func (d *Deriver) Observe(ctx context.Context, name string) (models.TetherObservation, error) {
	var vendor Vendor
	for _, v := range d.vendors {
		if v.Name() == name {
			vendor = v
			break
		}
	}
	if vendor == nil {
		return models.TetherObservation{}, fmt.Errorf("unknown tether vendor %q", name)
	}

	obs, err := vendor.Observe(ctx)
	if err == nil && !obs.Valid() {
		err = fmt.Errorf("%s returned an empty orderbook", name)
	}
	if err != nil {
		failures := d.streaks[name].RecordFailure(d.now())
		d.logger.WithField("vendor", name).Warnf("Tether observation failed (%d in a row): %v", failures, err)
		return models.TetherObservation{}, err
	}

	d.streaks[name].RecordSuccess(obs.ObservedAt)
	d.mu.Lock()
	d.last[name] = obs
	d.mu.Unlock()
	d.logger.WithField("vendor", name).Debugf("Tether mid %.0f", obs.Mid())
	return obs, nil
}

// Refresh observes every vendor concurrently. Individual failures only
// feed the streaks.
func (d *Deriver) Refresh(ctx context.Context) {
	var g errgroup.Group
	for _, v := range d.vendors {
		name := v.Name()
		g.Go(func() error {
			d.Observe(ctx, name)
			return nil
		})
	}
	g.Wait()
}

// SelectBest picks the rate by priority: healthy dedicated vendors in order,
// then the embedded table row.
func (d *Deriver) SelectBest(embedded *Embedded) (models.TetherRate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for i, v := range d.vendors {
		name := v.Name()
		if d.streaks[name].State() == StateFailing {
			continue
		}
		obs, ok := d.last[name]
		if !ok {
			continue
		}
		return models.TetherRate{
			Value:      obs.Mid(),
			Source:     name,
			Tier:       i + 1,
			ObservedAt: obs.ObservedAt,
		}, nil
	}

	if embedded != nil && embedded.Value > 0 {
		return models.TetherRate{
			Value:      embedded.Value,
			Source:     "embedded:" + embedded.Source,
			Tier:       len(d.vendors) + 1,
			ObservedAt: embedded.ObservedAt,
		}, nil
	}

	return models.TetherRate{}, fmt.Errorf("no tether rate: %w", models.ErrNoData)
}

// UpdateBaseline runs selection and writes the result into the shared
// baseline. Pinned rates are checked first; when both are pinned vendor
// selection is skipped entirely.
func (d *Deriver) UpdateBaseline(embedded *Embedded) (models.TetherRate, error) {
	if d.baseline.FullyPinned() {
		return models.TetherRate{
			Value:  d.baseline.USDTToLocal(),
			Source: "pinned",
		}, nil
	}

	rate, err := d.SelectBest(embedded)
	if err != nil {
		d.logger.Warnf("Keeping previous baseline: %v", err)
		return models.TetherRate{}, err
	}

	// USDT stands in for the dollar; a pinned USD value still wins on read.
	d.baseline.Update(rate.Value, rate.Value, rate.Source, rate.ObservedAt)
	d.logger.Infof("Tether rate %.0f from %s (tier %d)", rate.Value, rate.Source, rate.Tier)
	return rate, nil
}

// Status reports each vendor's streak and last observation in priority order.
func (d *Deriver) Status() []VendorStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]VendorStatus, 0, len(d.vendors))
	for _, v := range d.vendors {
		name := v.Name()
		status := VendorStatus{
			Name:     name,
			State:    d.streaks[name].State().String(),
			Failures: d.streaks[name].Failures(),
		}
		if obs, ok := d.last[name]; ok {
			status.Last = &obs
		}
		out = append(out, status)
	}
	return out
}
