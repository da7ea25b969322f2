// Package currency serves fiat and gold prices from the primary currency
// vendor, normalized to toman and corrected with the tether baseline.
package currency

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/navid-fn/nerkh/internal/catalog"
	"github.com/navid-fn/nerkh/internal/convert"
	"github.com/navid-fn/nerkh/internal/format"
	"github.com/navid-fn/nerkh/internal/models"
	"github.com/navid-fn/nerkh/internal/rates"
	"github.com/navid-fn/nerkh/internal/tether"
)

const (
	// rialPerToman converts the vendor's rial quotes. Applied once per raw table.
	rialPerToman = 10

	SymbolUSD    = "USD"
	SymbolTether = "TETHER"
)

// Vendor fetches a raw table and parses it into quotes carrying RawValue.
type Vendor interface {
	Name() string
	Fetch(ctx context.Context) ([]byte, error)
	Parse(raw []byte, fetchedAt time.Time) ([]models.PriceQuote, error)
}

// Store is the raw body cache.
type Store interface {
	Write(key string, raw []byte) error
	Read(key string) ([]byte, error)
	ModTime(key string) (time.Time, error)
}

// TetherDeriver refreshes dedicated tether vendors and writes the baseline.
type TetherDeriver interface {
	Refresh(ctx context.Context)
	UpdateBaseline(embedded *tether.Embedded) (models.TetherRate, error)
}

type Service struct {
	vendor   Vendor
	store    Store
	deriver  TetherDeriver
	baseline *rates.Baseline
	catalog  *catalog.Catalog
	logger   *logrus.Entry
	now      func() time.Time

	refreshes singleflight.Group

	mu     sync.RWMutex
	latest *models.PriceTable
}

func NewService(
	vendor Vendor,
	store Store,
	deriver TetherDeriver,
	baseline *rates.Baseline,
	cat *catalog.Catalog,
	logger *logrus.Logger,
) *Service {
	return &Service{
		vendor:   vendor,
		store:    store,
		deriver:  deriver,
		baseline: baseline,
		catalog:  cat,
		logger:   logger.WithField("component", "currency"),
		now:      time.Now,
	}
}

func (s *Service) Name() string { return s.vendor.Name() }

// Refresh fetches the vendor table while the tether vendors are observed,
// then rebuilds the normalized table. A failed fetch still updates the
// baseline, using the previous table's tether row as the last tier, and
// leaves the previous table in place. Concurrent callers share one
// in-flight refresh.
func (s *Service) Refresh(ctx context.Context) (*models.PriceTable, error) {
	v, err, _ := s.refreshes.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	table, _ := v.(*models.PriceTable)
	return table, err
}

func (s *Service) refresh(ctx context.Context) (*models.PriceTable, error) {
	fetchedAt := s.now()

	var raw []byte
	var fetchErr error
	var g errgroup.Group
	g.Go(func() error {
		raw, fetchErr = s.vendor.Fetch(ctx)
		return nil
	})
	if s.deriver != nil {
		g.Go(func() error {
			s.deriver.Refresh(ctx)
			return nil
		})
	}
	g.Wait()

	if fetchErr != nil {
		s.logger.Warnf("Fetch from %s failed: %v", s.vendor.Name(), fetchErr)
		s.updateBaseline(s.previous())
		return nil, fmt.Errorf("refresh %s: %w", s.vendor.Name(), fetchErr)
	}

	quotes, err := s.vendor.Parse(raw, fetchedAt)
	if err != nil {
		s.logger.Warnf("Unusable response from %s: %v", s.vendor.Name(), err)
		s.updateBaseline(s.previous())
		return nil, fmt.Errorf("refresh %s: %w", s.vendor.Name(), err)
	}

	if err := s.store.Write(s.vendor.Name(), raw); err != nil {
		s.logger.Warnf("Failed to cache %s: %v", s.vendor.Name(), err)
	}

	table := s.normalize(quotes, fetchedAt)
	s.updateBaseline(table)

	s.mu.Lock()
	s.latest = table
	s.mu.Unlock()

	s.logger.Infof("Refreshed %d instruments from %s", len(table.Quotes), s.vendor.Name())
	return s.withBaseline(table), nil
}

// Latest returns the in-memory table, else the one rebuilt from the disk
// cache. It fails with models.ErrNoData only when neither exists.
func (s *Service) Latest() (*models.PriceTable, error) {
	table := s.previous()
	if table == nil {
		return nil, fmt.Errorf("%s: %w", s.vendor.Name(), models.ErrNoData)
	}
	return s.withBaseline(table), nil
}

// Price returns symbol in unit ("local" or "usd"), converting through the
// baseline when the instrument is quoted in the other unit.
func (s *Service) Price(symbol, unit string) (float64, bool) {
	table, err := s.Latest()
	if err != nil {
		return 0, false
	}
	q, ok := table.Get(s.catalog.Resolve(symbol))
	if !ok || !q.Available() {
		return 0, false
	}
	return s.convertQuote(q, unit)
}

// RenderRow always returns exactly one line for symbol.
func (s *Service) RenderRow(symbol, lang, noPriceMessage string) string {
	inst := s.catalog.Instrument(s.catalog.Resolve(symbol))
	name := inst.Name(lang)

	local, ok := s.Price(inst.Symbol, models.UnitLocal)
	if !ok {
		if noPriceMessage == "" {
			return format.Unavailable(catalog.DefaultMarker, name, "")
		}
		return format.Unavailable(inst.Marker, name, noPriceMessage)
	}

	var usd *float64
	if inst.Dual {
		if v, ok := s.Price(inst.Symbol, models.UnitUSD); ok {
			usd = &v
		}
	}
	return format.Row(inst.Marker, name, local, usd, lang)
}

// Equalize converts amount of symbol into each target through USD.
func (s *Service) Equalize(symbol string, amount float64, targets []string) ([]convert.Equivalent, error) {
	return convert.Equalize(s, s.catalog.Resolve(symbol), amount, resolveAll(s.catalog, targets))
}

func (s *Service) current() *models.PriceTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// previous returns the in-memory table, loading it from the disk cache
// after a restart. It returns nil when neither exists.
func (s *Service) previous() *models.PriceTable {
	if table := s.current(); table != nil {
		return table
	}
	table, err := s.loadCached()
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		s.latest = table
		s.logger.Infof("Serving %s from disk cache", s.vendor.Name())
	}
	return s.latest
}

func (s *Service) loadCached() (*models.PriceTable, error) {
	raw, err := s.store.Read(s.vendor.Name())
	if err != nil {
		return nil, err
	}
	fetchedAt, err := s.store.ModTime(s.vendor.Name())
	if err != nil {
		fetchedAt = s.now()
	}
	quotes, err := s.vendor.Parse(raw, fetchedAt)
	if err != nil {
		return nil, err
	}
	table := s.normalize(quotes, fetchedAt)
	table.FromCache = true
	return table, nil
}

// normalize builds a table from raw vendor quotes. Rial quotes are divided
// by rialPerToman; allow-listed instruments stay in USD.
func (s *Service) normalize(quotes []models.PriceQuote, fetchedAt time.Time) *models.PriceTable {
	table := models.NewPriceTable(s.vendor.Name(), fetchedAt)
	for _, q := range quotes {
		q.Symbol = s.catalog.Resolve(q.Symbol)
		if existing, ok := table.Get(q.Symbol); ok && existing.Available() {
			continue
		}
		if s.catalog.USDQuoted(q.Symbol) {
			q.USDDenominated = true
			q.Value = q.RawValue
		} else {
			q.USDDenominated = false
			q.Value = q.RawValue / rialPerToman
		}
		table.Set(q)
	}
	return table
}

func (s *Service) updateBaseline(table *models.PriceTable) {
	if s.deriver == nil {
		return
	}
	var embedded *tether.Embedded
	if table == nil {
		s.deriver.UpdateBaseline(nil)
		return
	}
	if q, ok := table.Get(SymbolTether); ok && q.Available() {
		embedded = &tether.Embedded{Source: table.Source, Value: q.Value, ObservedAt: table.FetchedAt}
	}
	// Failures are logged by the deriver; the previous baseline stays.
	s.deriver.UpdateBaseline(embedded)
}

// withBaseline returns a copy with the USD and TETHER rows replaced by the
// current baseline.
func (s *Service) withBaseline(table *models.PriceTable) *models.PriceTable {
	out := table.Clone()
	override := func(symbol string, value float64) {
		if value <= 0 {
			return
		}
		q, _ := out.Get(symbol)
		q.Symbol = symbol
		q.Value = value
		q.USDDenominated = false
		if q.FetchedAt.IsZero() {
			q.FetchedAt = out.FetchedAt
		}
		out.Set(q)
	}
	override(SymbolUSD, s.baseline.USDToLocal())
	override(SymbolTether, s.baseline.USDTToLocal())
	return out
}

func (s *Service) convertQuote(q models.PriceQuote, unit string) (float64, bool) {
	unit = strings.ToLower(unit)
	if unit == q.NativeUnit() {
		return q.Value, true
	}
	usdToLocal := s.baseline.USDToLocal()
	if usdToLocal <= 0 {
		return 0, false
	}
	switch unit {
	case models.UnitUSD:
		return q.Value / usdToLocal, true
	case models.UnitLocal:
		return q.Value * usdToLocal, true
	}
	return 0, false
}

func resolveAll(cat *catalog.Catalog, symbols []string) []string {
	out := make([]string, len(symbols))
	for i, symbol := range symbols {
		out[i] = cat.Resolve(symbol)
	}
	return out
}
