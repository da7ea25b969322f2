// Package storage keeps a price history in ClickHouse.
package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/navid-fn/nerkh/internal/models"
)

// PriceRecord is one quote of one snapshot.
type PriceRecord struct {
	SnapshotID     string    `gorm:"column:snapshot_id;type:UUID"`
	Source         string    `gorm:"column:source;type:LowCardinality(String)"`
	Symbol         string    `gorm:"column:symbol;type:LowCardinality(String)"`
	RawValue       float64   `gorm:"column:raw_value"`
	Value          float64   `gorm:"column:value"`
	USDDenominated bool      `gorm:"column:usd_denominated"`
	USDToLocal     float64   `gorm:"column:usd_to_local"`
	USDTToLocal    float64   `gorm:"column:usdt_to_local"`
	FromCache      bool      `gorm:"column:from_cache"`
	FetchedAt      time.Time `gorm:"column:fetched_at"`
	InsertedAt     time.Time `gorm:"column:inserted_at"`
}

func (PriceRecord) TableName() string { return "price_history" }

type HistoryStore interface {
	SaveSnapshot(ctx context.Context, snapshot models.Snapshot) error
	Close() error
}

// Open connects to ClickHouse and makes sure the history table exists.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(clickhouse.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	err = db.Set("gorm:table_options", "ENGINE=MergeTree() ORDER BY (symbol, fetched_at)").
		AutoMigrate(&PriceRecord{})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare price_history: %w", err)
	}
	return db, nil
}

type gormHistoryStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormHistoryStore(db *gorm.DB) HistoryStore {
	return &gormHistoryStore{db: db, now: time.Now}
}

func (s *gormHistoryStore) SaveSnapshot(ctx context.Context, snapshot models.Snapshot) error {
	records := Records(snapshot, s.now())
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&records).Error
}

func (s *gormHistoryStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Records flattens a snapshot into rows, skipping quotes without a price.
func Records(snapshot models.Snapshot, insertedAt time.Time) []PriceRecord {
	records := make([]PriceRecord, 0, len(snapshot.Quotes))
	for _, q := range snapshot.Quotes {
		if !q.Available() {
			continue
		}
		records = append(records, PriceRecord{
			SnapshotID:     snapshot.ID,
			Source:         snapshot.Source,
			Symbol:         q.Symbol,
			RawValue:       q.RawValue,
			Value:          q.Value,
			USDDenominated: q.USDDenominated,
			USDToLocal:     snapshot.USDToLocal,
			USDTToLocal:    snapshot.USDTToLocal,
			FromCache:      snapshot.FromCache,
			FetchedAt:      snapshot.FetchedAt,
			InsertedAt:     insertedAt,
		})
	}
	return records
}
