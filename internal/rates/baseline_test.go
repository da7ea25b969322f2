package rates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBaselineDefaults(t *testing.T) {
	b := NewBaseline(95000, 96000)

	assert.Equal(t, 95000.0, b.USDToLocal())
	assert.Equal(t, 96000.0, b.USDTToLocal())
	assert.Equal(t, "default", b.Snapshot().Source)
}

func TestBaselineUpdateIgnoresNonPositive(t *testing.T) {
	b := NewBaseline(95000, 96000)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	b.Update(100000, 0, "nobitex", at)

	assert.Equal(t, 100000.0, b.USDToLocal())
	assert.Equal(t, 96000.0, b.USDTToLocal())
	assert.Equal(t, "nobitex", b.Snapshot().Source)
	assert.Equal(t, at, b.Snapshot().UpdatedAt)
}

func TestBaselinePinAndUnpin(t *testing.T) {
	b := NewBaseline(95000, 96000)

	assert.True(t, b.Pin(USDT, 110000))
	b.Update(100000, 101000, "wallex", time.Now())

	assert.Equal(t, 110000.0, b.USDTToLocal(), "pinned value wins over derived")
	assert.Equal(t, 100000.0, b.USDToLocal())
	assert.False(t, b.FullyPinned())

	assert.True(t, b.Pin(USD, 105000))
	assert.True(t, b.FullyPinned())

	snap := b.Snapshot()
	assert.True(t, snap.USDPinned)
	assert.Equal(t, 105000.0, snap.USDToLocal)

	assert.True(t, b.Unpin(USDT))
	assert.Equal(t, 101000.0, b.USDTToLocal(), "unpinning restores the derived value")
}

func TestBaselineRejectsBadPins(t *testing.T) {
	b := NewBaseline(1, 1)

	assert.False(t, b.Pin("eur", 10))
	assert.False(t, b.Pin(USD, 0))
	assert.False(t, b.Pin(USD, -5))
	assert.False(t, b.Unpin("eur"))
}
