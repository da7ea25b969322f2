// Package scheduler runs the periodic refresh and post cycle.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/nerkh/internal/models"
	"github.com/navid-fn/nerkh/internal/notifier"
	"github.com/navid-fn/nerkh/internal/publisher"
	"github.com/navid-fn/nerkh/internal/rates"
	"github.com/navid-fn/nerkh/internal/storage"
)

const DefaultInterval = 5 * time.Minute

type Refresher interface {
	Name() string
	Refresh(ctx context.Context) (*models.PriceTable, error)
}

type ReportBuilder interface {
	BuildReport(ctx context.Context, symbols []string, lang string, useCache bool) (string, error)
}

// Config wires a Scheduler. Notifier, Publisher and History are optional.
type Config struct {
	// Services are refreshed in order; the currency service goes first so
	// later services see the new baseline.
	Services  []Refresher
	Builder   ReportBuilder
	Baseline  *rates.Baseline
	Notifier  notifier.Notifier
	Publisher publisher.Publisher
	History   storage.HistoryStore
	Interval  time.Duration
	Symbols   []string
	Language  string
}

type Scheduler struct {
	cfg    Config
	logger *logrus.Entry
}

func New(cfg Config, logger *logrus.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Scheduler{cfg: cfg, logger: logger.WithField("component", "scheduler")}
}

func (s *Scheduler) Name() string { return "scheduler" }

// Run executes a cycle immediately and then once per interval until ctx is
// done. Cycles never overlap.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Infof("Starting scheduler, interval %v", s.cfg.Interval)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logger.Errorf("Cycle failed: %v", err)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce refreshes every service, posts the report and fans the fresh
// tables out to the publisher and history store.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var fresh []*models.PriceTable
	for _, svc := range s.cfg.Services {
		table, err := svc.Refresh(ctx)
		if err != nil {
			s.logger.Warnf("%s refresh failed, cached data will be used: %v", svc.Name(), err)
			continue
		}
		fresh = append(fresh, table)
	}

	report, err := s.cfg.Builder.BuildReport(ctx, s.cfg.Symbols, s.cfg.Language, true)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	if s.cfg.Notifier != nil {
		if err := s.cfg.Notifier.Post(ctx, report); err != nil {
			s.logger.Warnf("Posting report: %v", err)
		}
	}

	snap := s.cfg.Baseline.Snapshot()
	for _, table := range fresh {
		snapshot := models.NewSnapshot(table, snap.USDToLocal, snap.USDTToLocal)
		if s.cfg.Publisher != nil {
			if err := s.cfg.Publisher.Publish(ctx, snapshot); err != nil {
				s.logger.Warnf("Publishing %s snapshot: %v", table.Source, err)
			}
		}
		if s.cfg.History != nil {
			if err := s.cfg.History.SaveSnapshot(ctx, snapshot); err != nil {
				s.logger.Warnf("Storing %s snapshot: %v", table.Source, err)
			}
		}
	}

	s.logger.Infof("Cycle done: %d fresh tables, usd %.0f, usdt %.0f", len(fresh), snap.USDToLocal, snap.USDTToLocal)
	return nil
}
