package analysis

import (
	"time"

	"binance-observer/src/analysis/core"
	"binance-observer/src/logger"
	"binance-observer/src/models"
	"binance-observer/src/utils"
)

// -----------------------------------------------------------------------------
// TradeAggregator rolls raw trade ticks into per-window candles. It keeps a
// short history of per-window volumes per symbol so it can flag volume
// anomalies against the recent average.
// -----------------------------------------------------------------------------

type TradeAggregator struct {
	Config *models.MConfig
	Logger *logger.Logger

	// symbol -> window -> recent closed-window volumes
	volumeHistory map[string]map[string][]float64
	// symbol -> window -> close of the previous window
	prevClose map[string]map[string]float64
}

// Closed windows of volume history retained for the anomaly baseline.
const volumeHistoryDepth = 20

// -----------------------------------------------------------------------------

func NewTradeAggregator(cfg *models.MConfig, log *logger.Logger) *TradeAggregator {
	return &TradeAggregator{
		Config:        cfg,
		Logger:        log,
		volumeHistory: make(map[string]map[string][]float64),
		prevClose:     make(map[string]map[string]float64),
	}
}

// -----------------------------------------------------------------------------

// AggregateWindows builds the current candle for every configured window from
// the buffered trades of one symbol. Trades must be oldest-first.
func (a *TradeAggregator) AggregateWindows(symbol string, mem *utils.MemoryManager, nowMs int64) map[string][]models.MAggregation {
	result := make(map[string][]models.MAggregation)

	for _, window := range a.Config.WindowsAgg {
		durMs := utils.WindowDurationMs(window)
		if durMs == 0 {
			a.Logger.Warning("Skipping unknown aggregation window %q", window)
			continue
		}

		startTime := (nowMs / durMs) * durMs
		trades := mem.TradesSince(symbol, startTime)
		if len(trades) == 0 {
			continue
		}

		candle := a.buildCandle(symbol, window, trades, startTime, startTime+durMs)
		result[window] = []models.MAggregation{candle}
	}

	return result
}

// -----------------------------------------------------------------------------

// buildCandle computes OHLCV, VWAP and flow stats over one window's trades.
func (a *TradeAggregator) buildCandle(symbol, window string, trades []models.MTrade, startTime, endTime int64) models.MAggregation {
	open := trades[0].Price
	closePrice := trades[len(trades)-1].Price
	high := open
	low := open

	volume := 0.0
	quoteVolume := 0.0
	makerCount := 0

	for _, t := range trades {
		if t.Price > high {
			high = t.Price
		}
		if t.Price < low {
			low = t.Price
		}
		volume += t.Quantity
		quoteVolume += t.QuoteVolume
		if t.IsBuyerMaker {
			makerCount++
		}
	}

	vwap := 0.0
	if volume > 0 {
		vwap = quoteVolume / volume
	}

	avgVol, _ := core.MeanStd(a.windowVolumeHistory(symbol, window))

	candle := models.MAggregation{
		Symbol:             symbol,
		WindowName:         window,
		Open:               open,
		High:               high,
		Low:                low,
		Close:              closePrice,
		Volume:             volume,
		QuoteVolume:        quoteVolume,
		VWAP:               vwap,
		BuyerMakerRatio:    float64(makerCount) / float64(len(trades)),
		PricePercentChange: core.ChangePercent(closePrice, a.previousClose(symbol, window, open)),
		VolumeAnomalyRatio: core.AnomalyRatio(volume, avgVol),
		StartTime:          startTime,
		EndTime:            endTime,
		TradeCount:         len(trades),
		CreatedAt:          time.Now().UTC(),
	}

	a.recordWindow(symbol, window, candle)
	return candle
}

// -----------------------------------------------------------------------------

func (a *TradeAggregator) windowVolumeHistory(symbol, window string) []float64 {
	if byWindow, ok := a.volumeHistory[symbol]; ok {
		return byWindow[window]
	}
	return nil
}

// -----------------------------------------------------------------------------

func (a *TradeAggregator) previousClose(symbol, window string, fallback float64) float64 {
	if byWindow, ok := a.prevClose[symbol]; ok {
		if prev, ok := byWindow[window]; ok {
			return prev
		}
	}
	return fallback
}

// -----------------------------------------------------------------------------

// recordWindow folds a computed candle into the rolling per-window state.
func (a *TradeAggregator) recordWindow(symbol, window string, candle models.MAggregation) {
	if a.prevClose[symbol] == nil {
		a.prevClose[symbol] = make(map[string]float64)
	}
	a.prevClose[symbol][window] = candle.Close

	if a.volumeHistory[symbol] == nil {
		a.volumeHistory[symbol] = make(map[string][]float64)
	}
	history := append(a.volumeHistory[symbol][window], candle.Volume)
	if len(history) > volumeHistoryDepth {
		history = history[len(history)-volumeHistoryDepth:]
	}
	a.volumeHistory[symbol][window] = history
}
