package utils

import (
	"testing"

	"binance-observer/src/models"

	"github.com/stretchr/testify/require"
)

func tick(id uint64, price float64, tradeTime int64) models.MTrade {
	return models.MTrade{
		Symbol:      "BTCUSDT",
		TradeID:     id,
		Price:       price,
		Quantity:    1,
		QuoteVolume: price,
		TradeTime:   tradeTime,
	}
}

func TestTradeRingAppendAndLatest(t *testing.T) {
	rb := NewTradeRing("BTCUSDT", 3)

	rb.Append(tick(1, 100, 1000))
	rb.Append(tick(2, 101, 2000))
	require.Equal(t, 2, rb.Size())

	latest := rb.Latest(1)
	require.Len(t, latest, 1)
	require.Equal(t, uint64(2), latest[0].TradeID)
	require.Equal(t, "BTCUSDT", latest[0].Symbol)
}

func TestTradeRingWrapAround(t *testing.T) {
	rb := NewTradeRing("BTCUSDT", 3)
	for i := uint64(1); i <= 5; i++ {
		rb.Append(tick(i, float64(100+i), int64(i*1000)))
	}

	require.True(t, rb.IsFull())
	require.Equal(t, 3, rb.Size())

	all := rb.All()
	require.Len(t, all, 3)
	// Oldest two were overwritten
	require.Equal(t, uint64(3), all[0].TradeID)
	require.Equal(t, uint64(5), all[2].TradeID)
}

func TestTradeRingSince(t *testing.T) {
	rb := NewTradeRing("BTCUSDT", 10)
	for i := uint64(1); i <= 5; i++ {
		rb.Append(tick(i, 100, int64(i*1000)))
	}

	recent := rb.Since(3000)
	require.Len(t, recent, 3)
	require.Equal(t, int64(3000), recent[0].TradeTime)
}

func TestTradeRingResizeKeepsNewest(t *testing.T) {
	rb := NewTradeRing("BTCUSDT", 5)
	for i := uint64(1); i <= 5; i++ {
		rb.Append(tick(i, 100, int64(i)))
	}

	rb.Resize(2)
	require.Equal(t, 2, rb.Capacity())

	all := rb.All()
	require.Len(t, all, 2)
	require.Equal(t, uint64(4), all[0].TradeID)
	require.Equal(t, uint64(5), all[1].TradeID)

	// Still usable after resize
	rb.Append(tick(6, 100, 6))
	require.Equal(t, uint64(6), rb.Latest(1)[0].TradeID)
}

func TestWindowDurationMs(t *testing.T) {
	require.Equal(t, int64(60000), WindowDurationMs("1m"))
	require.Equal(t, int64(300000), WindowDurationMs("5m"))
	require.Equal(t, int64(3600000), WindowDurationMs("1h"))
	require.Equal(t, int64(86400000), WindowDurationMs("1d"))
	require.Equal(t, int64(0), WindowDurationMs("weird"))
	require.Equal(t, int64(0), WindowDurationMs("m"))
	require.Equal(t, int64(0), WindowDurationMs("0m"))
}
