package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/nerkh/internal/models"
)

func TestRecords(t *testing.T) {
	fetchedAt := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	insertedAt := fetchedAt.Add(time.Second)

	snapshot := models.Snapshot{
		ID:          "0b9f7c9e-5f0e-4a39-9a8e-2d8c4c1f0a11",
		Source:      "sourcearena",
		FetchedAt:   fetchedAt,
		USDToLocal:  102000,
		USDTToLocal: 101500,
		Quotes: []models.PriceQuote{
			{Symbol: "EUR", RawValue: 1100000, Value: 110000},
			{Symbol: "GBP", RawValue: 0, Value: 0},
			{Symbol: "ONS", RawValue: 2650, Value: 2650, USDDenominated: true},
		},
	}

	records := Records(snapshot, insertedAt)
	require.Len(t, records, 2)

	assert.Equal(t, PriceRecord{
		SnapshotID:  snapshot.ID,
		Source:      "sourcearena",
		Symbol:      "EUR",
		RawValue:    1100000,
		Value:       110000,
		USDToLocal:  102000,
		USDTToLocal: 101500,
		FetchedAt:   fetchedAt,
		InsertedAt:  insertedAt,
	}, records[0])
	assert.Equal(t, "ONS", records[1].Symbol)
	assert.True(t, records[1].USDDenominated)
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "price_history", PriceRecord{}.TableName())
}
