package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/nerkh/configs"
	"github.com/navid-fn/nerkh/internal/cache"
	"github.com/navid-fn/nerkh/internal/catalog"
	"github.com/navid-fn/nerkh/internal/crawler"
	"github.com/navid-fn/nerkh/internal/crypto"
	"github.com/navid-fn/nerkh/internal/currency"
	"github.com/navid-fn/nerkh/internal/drivers/bitpin"
	"github.com/navid-fn/nerkh/internal/drivers/coingecko"
	"github.com/navid-fn/nerkh/internal/drivers/coinmarketcap"
	"github.com/navid-fn/nerkh/internal/drivers/nobitex"
	"github.com/navid-fn/nerkh/internal/drivers/sourcearena"
	"github.com/navid-fn/nerkh/internal/drivers/wallex"
	"github.com/navid-fn/nerkh/internal/handler"
	"github.com/navid-fn/nerkh/internal/notifier"
	"github.com/navid-fn/nerkh/internal/publisher"
	"github.com/navid-fn/nerkh/internal/rates"
	"github.com/navid-fn/nerkh/internal/report"
	"github.com/navid-fn/nerkh/internal/router"
	"github.com/navid-fn/nerkh/internal/scheduler"
	"github.com/navid-fn/nerkh/internal/storage"
	"github.com/navid-fn/nerkh/internal/tether"
)

func main() {
	var once bool
	flag.BoolVar(&once, "once", false, "Refresh once, print the report and exit")
	flag.Parse()

	cfg := configs.AppLoad()
	logger := crawler.NewLogger(cfg.LogLevel)

	if err := run(context.Background(), cfg, logger, once); err != nil {
		logger.Fatalf("nerkh failed: %v", err)
	}
}

func run(ctx context.Context, cfg *configs.AppConfig, logger *logrus.Logger, once bool) error {
	client := crawler.NewClient(crawler.DefaultHTTPConfig(cfg.HTTP.RequestsPerSecond, cfg.HTTP.Timeout))
	cat := catalog.Default()
	baseline := rates.NewBaseline(cfg.Baseline.DefaultUSD, cfg.Baseline.DefaultUSDT)

	store, err := cache.NewDisk(cfg.Cache.Dir, cfg.Cache.ArchiveDir, logger)
	if err != nil {
		return err
	}

	var stream *wallex.Stream
	if cfg.Tether.WallexStream && !once {
		stream = wallex.NewStream("", logger)
	}
	deriver := tether.NewDeriver(tetherVendors(cfg, client, stream, logger), cfg.Tether.FailureThreshold, baseline, logger)

	currencyService := currency.NewService(
		sourcearena.NewVendor(client, cfg.SourceArena.URL, cfg.SourceArena.Token),
		store, deriver, baseline, cat, logger,
	)
	cryptoVendor, err := newCryptoVendor(cfg, client, cat)
	if err != nil {
		return err
	}
	cryptoService := crypto.NewService(cryptoVendor, store, baseline, cat, logger)
	builder := report.NewBuilder(currencyService, cryptoService, cat, logger)

	if once {
		text, err := builder.BuildReport(ctx, cfg.Report.Symbols, cfg.Report.Language, false)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, text)
		return nil
	}

	schedCfg := scheduler.Config{
		Services: []scheduler.Refresher{currencyService, cryptoService},
		Builder:  builder,
		Baseline: baseline,
		Interval: cfg.Report.Interval,
		Symbols:  cfg.Report.Symbols,
		Language: cfg.Report.Language,
	}

	if cfg.Telegram.BotToken != "" && len(cfg.Telegram.Channels) > 0 {
		tg, err := notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.Channels, logger)
		if err != nil {
			return err
		}
		schedCfg.Notifier = tg
	}

	if cfg.Kafka.Broker != "" {
		pub, err := publisher.NewKafkaPublisher(cfg.Kafka.Broker, cfg.Kafka.PriceTopic, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		schedCfg.Publisher = pub
	}

	if cfg.History.Enabled {
		db, err := storage.Open(cfg.History.DSN)
		if err != nil {
			return err
		}
		history := storage.NewGormHistoryStore(db)
		defer history.Close()
		schedCfg.History = history
	}

	workers := []crawler.Worker{scheduler.New(schedCfg, logger)}
	if stream != nil {
		workers = append(workers, stream)
	}
	if cfg.ServerPort != "" {
		engine := router.NewRouter(&router.Config{
			PriceHandler:    handler.NewPriceHandler(currencyService, cryptoService, cat, builder),
			BaselineHandler: handler.NewBaselineHandler(baseline, deriver),
		})
		workers = append(workers, router.NewServer(cfg.ServerPort, engine))
	}

	return crawler.RunWithGracefulShutdown(ctx, logger, func(ctx context.Context, wg *sync.WaitGroup) {
		for _, w := range workers {
			wg.Add(1)
			go func(w crawler.Worker) {
				defer wg.Done()
				logger.Infof("Starting %s", w.Name())
				if err := w.Run(ctx); err != nil {
					logger.Errorf("%s stopped: %v", w.Name(), err)
				}
			}(w)
		}
	})
}

func tetherVendors(cfg *configs.AppConfig, client *crawler.Client, stream *wallex.Stream, logger *logrus.Logger) []tether.Vendor {
	var vendors []tether.Vendor
	for _, name := range cfg.Tether.Vendors {
		switch name {
		case nobitex.Name:
			vendors = append(vendors, nobitex.NewVendor(client, ""))
		case wallex.Name:
			vendors = append(vendors, wallex.NewVendor(client, "", stream))
		case bitpin.Name:
			vendors = append(vendors, bitpin.NewVendor(client, ""))
		default:
			logger.Warnf("Unknown tether vendor %q ignored", name)
		}
	}
	return vendors
}

func newCryptoVendor(cfg *configs.AppConfig, client *crawler.Client, cat *catalog.Catalog) (crypto.Vendor, error) {
	switch cfg.Crypto.Vendor {
	case coinmarketcap.Name:
		return coinmarketcap.NewVendor(client, cfg.Crypto.CMCURL, cfg.Crypto.CMCAPIKey, cfg.Crypto.Symbols), nil
	case coingecko.Name:
		return coingecko.NewVendor(client, cfg.Crypto.CoinGeckoURL, cat.CoinGeckoIDs(cfg.Crypto.Symbols)), nil
	}
	return nil, fmt.Errorf("unknown crypto vendor %q", cfg.Crypto.Vendor)
}
