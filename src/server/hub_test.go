package server

import (
	"testing"
	"time"

	"binance-observer/src/logger"
	"binance-observer/src/models"

	"github.com/stretchr/testify/require"
)

func testServer() *FastAPIServer {
	cfg := &models.MConfig{
		Name:       "observer-test",
		Host:       "127.0.0.1",
		Port:       9999,
		LogLevel:   "ERROR",
		WindowsAgg: []string{"1m", "5m"},
	}
	return NewFastAPIServer(cfg, logger.NewLogger("ServerTest"), nil)
}

func update(symbol string, price float64, window string) *models.MLatestData {
	return &models.MLatestData{
		Type: "UPDATE",
		LastTrades: map[string]models.MTrade{
			symbol: {Symbol: symbol, Price: price},
		},
		Aggregations: map[string]map[string][]models.MAggregation{
			symbol: {window: {{Symbol: symbol, WindowName: window, Close: price}}},
		},
		Timestamp: 1000,
	}
}

func TestMergeStateKeepsUntouchedSymbols(t *testing.T) {
	s := testServer()

	s.mergeStateLocked(update("BTCUSDT", 50000, "1m"))
	s.mergeStateLocked(update("ETHUSDT", 4000, "1m"))

	require.Len(t, s.latestState.LastTrades, 2)
	require.Equal(t, 50000.0, s.latestState.LastTrades["BTCUSDT"].Price)
	require.Equal(t, 4000.0, s.latestState.LastTrades["ETHUSDT"].Price)

	// A later update for one symbol must not erase the other
	s.mergeStateLocked(update("BTCUSDT", 51000, "1m"))
	require.Equal(t, 51000.0, s.latestState.LastTrades["BTCUSDT"].Price)
	require.Equal(t, 4000.0, s.latestState.LastTrades["ETHUSDT"].Price)
}

func TestMergeStateReplacesWindowCandle(t *testing.T) {
	s := testServer()

	s.mergeStateLocked(update("BTCUSDT", 50000, "1m"))
	s.mergeStateLocked(update("BTCUSDT", 51000, "1m"))

	candles := s.latestState.Aggregations["BTCUSDT"]["1m"]
	require.Len(t, candles, 1)
	require.Equal(t, 51000.0, candles[0].Close)
}

func TestFilteredSnapshotBySymbol(t *testing.T) {
	s := testServer()
	s.mergeStateLocked(update("BTCUSDT", 50000, "1m"))
	s.mergeStateLocked(update("ETHUSDT", 4000, "1m"))

	snap := s.filteredSnapshot([]string{"BTCUSDT"}, "")
	require.Equal(t, "INITIAL", snap.Type)
	require.Len(t, snap.LastTrades, 1)
	require.Contains(t, snap.LastTrades, "BTCUSDT")
	require.Len(t, snap.Aggregations, 1)
	require.Contains(t, snap.Aggregations, "BTCUSDT")
}

func TestFilteredSnapshotByTimeframe(t *testing.T) {
	s := testServer()
	s.mergeStateLocked(update("BTCUSDT", 50000, "1m"))
	s.mergeStateLocked(update("BTCUSDT", 50000, "5m"))

	snap := s.filteredSnapshot(nil, "5m")
	require.Len(t, snap.Aggregations["BTCUSDT"], 1)
	require.Contains(t, snap.Aggregations["BTCUSDT"], "5m")

	// Unknown timeframe yields no aggregations but still returns trades
	snap = s.filteredSnapshot(nil, "1d")
	require.Empty(t, snap.Aggregations)
	require.Len(t, snap.LastTrades, 1)
}

func TestClientCountTracksHubMembership(t *testing.T) {
	s := testServer()
	go s.handleWebsockets()

	client := &Client{hub: s, send: make(chan *models.MLatestData, 1)}
	s.register <- client
	require.Eventually(t, func() bool {
		return s.clientCount.Load() == 1
	}, time.Second, 5*time.Millisecond)

	s.unregister <- client
	require.Eventually(t, func() bool {
		return s.clientCount.Load() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestFilteredSnapshotEmptyMeansAll(t *testing.T) {
	s := testServer()
	s.mergeStateLocked(update("BTCUSDT", 50000, "1m"))
	s.mergeStateLocked(update("ETHUSDT", 4000, "5m"))

	snap := s.filteredSnapshot(nil, "")
	require.Len(t, snap.LastTrades, 2)
	require.Len(t, snap.Aggregations, 2)
}
