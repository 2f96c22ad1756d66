package analysis

import (
	"testing"

	"binance-observer/src/logger"
	"binance-observer/src/models"
	"binance-observer/src/utils"

	"github.com/stretchr/testify/require"
)

func testConfig() *models.MConfig {
	return &models.MConfig{
		Name:       "observer-test",
		WindowsAgg: []string{"1m"},
		Retention:  models.MRetentionConfig{MaxTradesPerSymbol: 1000},
	}
}

func addTrade(mem *utils.MemoryManager, id uint64, price, qty float64, tradeTime int64, maker bool) {
	mem.AddTrade(models.MTrade{
		Symbol:       "BTCUSDT",
		TradeID:      id,
		Price:        price,
		Quantity:     qty,
		QuoteVolume:  price * qty,
		IsBuyerMaker: maker,
		TradeTime:    tradeTime,
	})
}

func TestAggregateWindowsCandle(t *testing.T) {
	agg := NewTradeAggregator(testConfig(), logger.NewLogger("AggTest"))
	mem := utils.NewMemoryManager(256, 1000)

	// One minute window starting at 120000ms
	base := int64(120000)
	addTrade(mem, 1, 100, 2, base+1000, false)  // open
	addTrade(mem, 2, 110, 1, base+2000, true)   // high
	addTrade(mem, 3, 95, 1, base+3000, false)   // low
	addTrade(mem, 4, 105, 2, base+4000, true)   // close

	result := agg.AggregateWindows("BTCUSDT", mem, base+5000)
	require.Contains(t, result, "1m")
	require.Len(t, result["1m"], 1)

	c := result["1m"][0]
	require.Equal(t, 100.0, c.Open)
	require.Equal(t, 110.0, c.High)
	require.Equal(t, 95.0, c.Low)
	require.Equal(t, 105.0, c.Close)
	require.Equal(t, 6.0, c.Volume)
	require.Equal(t, 4, c.TradeCount)
	require.Equal(t, 0.5, c.BuyerMakerRatio)
	require.Equal(t, base, c.StartTime)
	require.Equal(t, base+60000, c.EndTime)

	// VWAP = (100*2 + 110*1 + 95*1 + 105*2) / 6
	expectedVWAP := (100.0*2 + 110.0*1 + 95.0*1 + 105.0*2) / 6.0
	require.InDelta(t, expectedVWAP, c.VWAP, 1e-9)
}

func TestAggregateWindowsExcludesOlderTrades(t *testing.T) {
	agg := NewTradeAggregator(testConfig(), logger.NewLogger("AggTest"))
	mem := utils.NewMemoryManager(256, 1000)

	// Trade from the previous minute must not leak into the current candle.
	addTrade(mem, 1, 50, 1, 59000, false)
	addTrade(mem, 2, 100, 1, 61000, false)

	result := agg.AggregateWindows("BTCUSDT", mem, 65000)
	require.Len(t, result["1m"], 1)
	require.Equal(t, 100.0, result["1m"][0].Open)
	require.Equal(t, 1, result["1m"][0].TradeCount)
}

func TestAggregateWindowsEmpty(t *testing.T) {
	agg := NewTradeAggregator(testConfig(), logger.NewLogger("AggTest"))
	mem := utils.NewMemoryManager(256, 1000)

	result := agg.AggregateWindows("BTCUSDT", mem, 65000)
	require.Empty(t, result)
}
