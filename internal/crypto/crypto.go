// Package crypto serves USD-quoted crypto prices. Toman prices are always
// derived from the shared USD baseline.
package crypto

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/navid-fn/nerkh/internal/catalog"
	"github.com/navid-fn/nerkh/internal/convert"
	"github.com/navid-fn/nerkh/internal/format"
	"github.com/navid-fn/nerkh/internal/models"
	"github.com/navid-fn/nerkh/internal/rates"
)

type Vendor interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
	Parse(raw []byte, fetchedAt time.Time) ([]models.PriceQuote, error)
}

type Store interface {
	Write(key string, raw []byte) error
	Read(key string) ([]byte, error)
	ModTime(key string) (time.Time, error)
}

type Service struct {
	vendor   Vendor
	store    Store
	baseline *rates.Baseline
	catalog  *catalog.Catalog
	logger   *logrus.Entry
	now      func() time.Time

	refreshes singleflight.Group

	mu     sync.RWMutex
	latest *models.PriceTable
}

func NewService(vendor Vendor, store Store, baseline *rates.Baseline, cat *catalog.Catalog, logger *logrus.Logger) *Service {
	return &Service{
		vendor:   vendor,
		store:    store,
		baseline: baseline,
		catalog:  cat,
		logger:   logger.WithField("component", "crypto"),
		now:      time.Now,
	}
}

func (s *Service) Name() string { return s.vendor.Name() }

// Refresh fetches and replaces the table. On failure the previous table
// stays in place. Concurrent callers share one in-flight refresh.
func (s *Service) Refresh(ctx context.Context) (*models.PriceTable, error) {
	v, err, _ := s.refreshes.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	table, _ := v.(*models.PriceTable)
	return table, err
}

func (s *Service) refresh(ctx context.Context) (*models.PriceTable, error) {
	fetchedAt := s.now()

	raw, err := s.vendor.Fetch(ctx)
	if err != nil {
		s.logger.Warnf("Fetch from %s failed: %v", s.vendor.Name(), err)
		return nil, fmt.Errorf("refresh %s: %w", s.vendor.Name(), err)
	}
	quotes, err := s.vendor.Parse(raw, fetchedAt)
	if err != nil {
		s.logger.Warnf("Unusable response from %s: %v", s.vendor.Name(), err)
		return nil, fmt.Errorf("refresh %s: %w", s.vendor.Name(), err)
	}

	if err := s.store.Write(s.vendor.Name(), raw); err != nil {
		s.logger.Warnf("Failed to cache %s: %v", s.vendor.Name(), err)
	}

	table := s.normalize(quotes, fetchedAt)
	s.mu.Lock()
	s.latest = table
	s.mu.Unlock()

	s.logger.Infof("Refreshed %d coins from %s", len(table.Quotes), s.vendor.Name())
	return table.Clone(), nil
}

// Latest returns the in-memory table, else the disk cache, else
// models.ErrNoData.
func (s *Service) Latest() (*models.PriceTable, error) {
	s.mu.RLock()
	table := s.latest
	s.mu.RUnlock()
	if table != nil {
		return table.Clone(), nil
	}

	raw, err := s.store.Read(s.vendor.Name())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.vendor.Name(), models.ErrNoData)
	}
	fetchedAt, err := s.store.ModTime(s.vendor.Name())
	if err != nil {
		fetchedAt = s.now()
	}
	quotes, err := s.vendor.Parse(raw, fetchedAt)
	if err != nil {
		s.logger.Warnf("Cached %s table is unusable: %v", s.vendor.Name(), err)
		return nil, fmt.Errorf("%s: %w", s.vendor.Name(), models.ErrNoData)
	}
	table = s.normalize(quotes, fetchedAt)
	table.FromCache = true

	s.mu.Lock()
	if s.latest == nil {
		s.latest = table
	}
	s.mu.Unlock()

	s.logger.Infof("Serving %s from disk cache", s.vendor.Name())
	return table.Clone(), nil
}

func (s *Service) Price(symbol, unit string) (float64, bool) {
	table, err := s.Latest()
	if err != nil {
		return 0, false
	}
	q, ok := table.Get(symbol)
	if !ok || !q.Available() {
		return 0, false
	}

	switch strings.ToLower(unit) {
	case models.UnitUSD:
		return q.Value, true
	case models.UnitLocal:
		usdToLocal := s.baseline.USDToLocal()
		if usdToLocal <= 0 {
			return 0, false
		}
		return q.Value * usdToLocal, true
	}
	return 0, false
}

// RenderRow always returns exactly one line; every coin shows its USD price.
func (s *Service) RenderRow(symbol, lang, noPriceMessage string) string {
	inst := s.catalog.Instrument(symbol)
	name := inst.Name(lang)

	local, ok := s.Price(inst.Symbol, models.UnitLocal)
	if !ok {
		if noPriceMessage == "" {
			return format.Unavailable(catalog.DefaultMarker, name, "")
		}
		return format.Unavailable(inst.Marker, name, noPriceMessage)
	}
	usd, _ := s.Price(inst.Symbol, models.UnitUSD)
	return format.Row(inst.Marker, name, local, &usd, lang)
}

func (s *Service) Equalize(symbol string, amount float64, targets []string) ([]convert.Equivalent, error) {
	return convert.Equalize(s, symbol, amount, targets)
}

func (s *Service) normalize(quotes []models.PriceQuote, fetchedAt time.Time) *models.PriceTable {
	table := models.NewPriceTable(s.vendor.Name(), fetchedAt)
	for _, q := range quotes {
		q.USDDenominated = true
		q.Value = q.RawValue
		table.Set(q)
	}
	return table
}
