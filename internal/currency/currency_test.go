package currency

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/nerkh/internal/cache"
	"github.com/navid-fn/nerkh/internal/catalog"
	"github.com/navid-fn/nerkh/internal/crawler"
	"github.com/navid-fn/nerkh/internal/drivers/sourcearena"
	"github.com/navid-fn/nerkh/internal/models"
	"github.com/navid-fn/nerkh/internal/rates"
	"github.com/navid-fn/nerkh/internal/tether"
)

const board = `[
	{"slug": "USD", "name": "دلار", "price": "1,000,000"},
	{"slug": "EUR", "name": "یورو", "price": 1100000},
	{"slug": "USDT", "name": "تتر", "price": "1,010,000"},
	{"slug": "18ayar", "name": "طلا", "price": "80,000,000"},
	{"slug": "ONS", "name": "انس", "price": 2650},
	{"slug": "GBP", "name": "پوند", "price": 0}
]`

type fakeTether struct {
	mid float64
	err error
}

func (f *fakeTether) Name() string { return "nobitex" }

func (f *fakeTether) Observe(ctx context.Context) (models.TetherObservation, error) {
	if f.err != nil {
		return models.TetherObservation{}, f.err
	}
	return models.TetherObservation{Vendor: "nobitex", Bid: f.mid - 100, Ask: f.mid + 100, ObservedAt: time.Now()}, nil
}

type vendorServer struct {
	*httptest.Server
	status atomic.Int32
}

func newVendorServer(t *testing.T) *vendorServer {
	t.Helper()
	vs := &vendorServer{}
	vs.status.Store(http.StatusOK)
	vs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(int(vs.status.Load()))
		w.Write([]byte(board))
	}))
	t.Cleanup(vs.Close)
	return vs
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fixture struct {
	service  *Service
	server   *vendorServer
	store    *cache.Disk
	baseline *rates.Baseline
	tether   *fakeTether
}

func newFixture(t *testing.T, cacheDir string) *fixture {
	t.Helper()
	logger := quietLogger()

	server := newVendorServer(t)
	store, err := cache.NewDisk(cacheDir, t.TempDir(), logger)
	require.NoError(t, err)

	baseline := rates.NewBaseline(50000, 50000)
	tv := &fakeTether{mid: 102000}
	deriver := tether.NewDeriver([]tether.Vendor{tv}, 3, baseline, logger)
	vendor := sourcearena.NewVendor(crawler.NewClient(nil), server.URL, "token")

	return &fixture{
		service:  NewService(vendor, store, deriver, baseline, catalog.Default(), logger),
		server:   server,
		store:    store,
		baseline: baseline,
		tether:   tv,
	}
}

func price(t *testing.T, s *Service, symbol, unit string) float64 {
	t.Helper()
	v, ok := s.Price(symbol, unit)
	require.True(t, ok, "%s in %s", symbol, unit)
	return v
}

func TestRefreshNormalizesAndOverrides(t *testing.T) {
	f := newFixture(t, t.TempDir())

	table, err := f.service.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, table.FromCache)
	assert.Equal(t, sourcearena.Name, table.Source)

	assert.Equal(t, 110000.0, price(t, f.service, "EUR", models.UnitLocal))
	assert.Equal(t, 8000000.0, price(t, f.service, "TALA_18", models.UnitLocal))
	assert.Equal(t, 2650.0, price(t, f.service, "ONS", models.UnitUSD))
	assert.Equal(t, 2650.0*102000, price(t, f.service, "ONS", models.UnitLocal))

	// Vendor USD and tether rows are replaced by the tether vendor's mid.
	assert.Equal(t, 102000.0, price(t, f.service, "USD", models.UnitLocal))
	assert.Equal(t, 102000.0, price(t, f.service, "TETHER", models.UnitLocal))
	assert.Equal(t, 102000.0, price(t, f.service, "usdt", models.UnitLocal))
	assert.Equal(t, 1.0, price(t, f.service, "USD", models.UnitUSD))

	usd, _ := table.Get("USD")
	assert.Equal(t, 1000000.0, usd.RawValue)

	_, ok := f.service.Price("GBP", models.UnitLocal)
	assert.False(t, ok, "zero price means unavailable")
	_, ok = f.service.Price("NOPE", models.UnitLocal)
	assert.False(t, ok)
}

func TestRefreshCachesRawBody(t *testing.T) {
	f := newFixture(t, t.TempDir())

	_, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	raw, err := f.store.Read(sourcearena.Name)
	require.NoError(t, err)
	assert.Equal(t, board, string(raw))
}

func TestEmbeddedTetherRowWhenVendorsFail(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.tether.err = errors.New("connection refused")

	_, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 101000.0, f.baseline.USDTToLocal())
	assert.Equal(t, 101000.0, price(t, f.service, "USD", models.UnitLocal))
	assert.Equal(t, "embedded:"+sourcearena.Name, f.baseline.Snapshot().Source)
}

func TestAcceptedStatusIsFailure(t *testing.T) {
	f := newFixture(t, t.TempDir())
	f.server.status.Store(http.StatusAccepted)

	_, err := f.service.Refresh(context.Background())
	assert.ErrorIs(t, err, crawler.ErrFetch)

	_, err = f.service.Latest()
	assert.ErrorIs(t, err, models.ErrNoData)
}

func TestCacheSurvivesLiveFailure(t *testing.T) {
	f := newFixture(t, t.TempDir())

	_, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	f.server.status.Store(http.StatusInternalServerError)
	_, err = f.service.Refresh(context.Background())
	require.ErrorIs(t, err, crawler.ErrFetch)

	assert.Equal(t, 110000.0, price(t, f.service, "EUR", models.UnitLocal))
	assert.Equal(t, "🇪🇺 Euro: 110,000 Toman / 1.07$", f.service.RenderRow("EUR", "en", ""))
}

func TestDiskCacheAfterRestart(t *testing.T) {
	cacheDir := t.TempDir()

	first := newFixture(t, cacheDir)
	_, err := first.service.Refresh(context.Background())
	require.NoError(t, err)

	second := newFixture(t, cacheDir)
	second.server.status.Store(http.StatusBadGateway)
	second.tether.err = errors.New("down")
	_, err = second.service.Refresh(context.Background())
	require.Error(t, err)

	// The cached table's tether row is the last tier even before any read.
	assert.Equal(t, 101000.0, second.baseline.USDTToLocal())
	assert.Equal(t, "embedded:"+sourcearena.Name, second.baseline.Snapshot().Source)

	table, err := second.service.Latest()
	require.NoError(t, err)
	assert.True(t, table.FromCache)

	// The divisor is applied once per raw table, not once per read.
	assert.Equal(t, 110000.0, price(t, second.service, "EUR", models.UnitLocal))
	assert.Equal(t, 110000.0, price(t, second.service, "EUR", models.UnitLocal))
	assert.Equal(t, 8000000.0, price(t, second.service, "TALA_18", models.UnitLocal))
}

func TestUnitRoundTrip(t *testing.T) {
	f := newFixture(t, t.TempDir())
	_, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	for _, symbol := range []string{"EUR", "TALA_18", "USD", "TETHER"} {
		t.Run(symbol, func(t *testing.T) {
			local := price(t, f.service, symbol, models.UnitLocal)
			usd := price(t, f.service, symbol, models.UnitUSD)
			assert.InDelta(t, local, usd*f.baseline.USDToLocal(), 1e-6)
		})
	}
}

func TestPinnedRatesWin(t *testing.T) {
	f := newFixture(t, t.TempDir())
	_, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	require.True(t, f.baseline.Pin(rates.USD, 120000))
	assert.Equal(t, 120000.0, price(t, f.service, "USD", models.UnitLocal))
	assert.Equal(t, 102000.0, price(t, f.service, "TETHER", models.UnitLocal))

	require.True(t, f.baseline.Unpin(rates.USD))
	assert.Equal(t, 102000.0, price(t, f.service, "USD", models.UnitLocal))
}

func TestRenderRowForEverySymbol(t *testing.T) {
	f := newFixture(t, t.TempDir())
	_, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	tests := []struct {
		symbol  string
		lang    string
		message string
		want    string
	}{
		{"USD", "en", "", "🇺🇸 US Dollar: 102,000 Toman"},
		{"USD", "fa", "", "🇺🇸 دلار آمریکا: ۱۰۲,۰۰۰ تومان"},
		{"TALA_18", "en", "", "🟡 18K Gold (gram): 8,000,000 Toman"},
		{"ONS", "en", "", "🥇 Gold Ounce: 270,300,000 Toman / 2,650$"},
		{"GBP", "en", "unavailable", "🇬🇧 British Pound: unavailable"},
		{"GBP", "en", "", "• British Pound"},
		{"XYZ", "en", "", "• XYZ"},
	}
	for _, tt := range tests {
		t.Run(tt.symbol+"/"+tt.lang, func(t *testing.T) {
			assert.Equal(t, tt.want, f.service.RenderRow(tt.symbol, tt.lang, tt.message))
		})
	}
}

func TestEqualizeFiatToGold(t *testing.T) {
	f := newFixture(t, t.TempDir())
	_, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	rows, err := f.service.Equalize("EUR", 100, []string{"usd", "TALA_18", "NOPE"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.InDelta(t, 110000.0*100/102000, rows[0].Amount, 1e-9)
	assert.InDelta(t, 110000.0*100/8000000, rows[1].Amount, 1e-9)
	assert.False(t, rows[2].Available)

	_, err = f.service.Equalize("NOPE", 1, []string{"USD"})
	assert.ErrorIs(t, err, models.ErrUnknownSymbol)
}

// gatedTether fails every observation once released and counts calls.
type gatedTether struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedTether) Name() string { return "nobitex" }

func (g *gatedTether) Observe(ctx context.Context) (models.TetherObservation, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
	}
	<-g.release
	return models.TetherObservation{}, errors.New("connection refused")
}

func TestConcurrentRefreshesShareOneCycle(t *testing.T) {
	logger := quietLogger()
	server := newVendorServer(t)
	store, err := cache.NewDisk(t.TempDir(), t.TempDir(), logger)
	require.NoError(t, err)

	baseline := rates.NewBaseline(50000, 50000)
	tv := &gatedTether{entered: make(chan struct{}), release: make(chan struct{})}
	deriver := tether.NewDeriver([]tether.Vendor{tv}, 3, baseline, logger)
	vendor := sourcearena.NewVendor(crawler.NewClient(nil), server.URL, "token")
	service := NewService(vendor, store, deriver, baseline, catalog.Default(), logger)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = service.Refresh(context.Background())
	}()
	<-tv.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = service.Refresh(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	close(tv.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int32(1), tv.calls.Load())

	status := deriver.Status()
	require.Len(t, status, 1)
	assert.Equal(t, 1, status[0].Failures)
}
