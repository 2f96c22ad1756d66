package utils

import (
	"runtime"
	"runtime/debug"
	"sync"

	"binance-observer/src/logger"
	"binance-observer/src/models"
)

// -----------------------------------------------------------------------------
// MemoryManager holds the in-memory recent-trade buffers per symbol and keeps
// their total footprint under the configured budget.
// -----------------------------------------------------------------------------

type MemoryManager struct {
	Buffers       map[string]*TradeRing
	MaxMemoryMB   int
	MaxPerSymbol  int
	Logger        *logger.Logger
	checkCounter  int
	mu            sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMemoryManager(maxMemoryMB, maxPerSymbol int) *MemoryManager {
	return &MemoryManager{
		Buffers:      make(map[string]*TradeRing),
		MaxMemoryMB:  maxMemoryMB,
		MaxPerSymbol: maxPerSymbol,
		Logger:       logger.NewLogger("MemoryManager"),
	}
}

// -----------------------------------------------------------------------------

// AddTrade appends one trade tick to its symbol's buffer.
func (mm *MemoryManager) AddTrade(t models.MTrade) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	ring, ok := mm.Buffers[t.Symbol]
	if !ok {
		ring = NewTradeRing(t.Symbol, mm.MaxPerSymbol)
		mm.Buffers[t.Symbol] = ring
	}

	ring.Append(t)

	// Periodic memory check; trade streams are hot, so not on every tick.
	mm.checkCounter++
	if mm.checkCounter%1000 == 0 {
		mm.checkMemoryLimitsLocked()
	}
}

// -----------------------------------------------------------------------------

// LatestTrade returns the most recent trade per symbol.
func (mm *MemoryManager) LatestTrade() map[string]models.MTrade {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	result := make(map[string]models.MTrade, len(mm.Buffers))
	for sym, ring := range mm.Buffers {
		latest := ring.Latest(1)
		if len(latest) > 0 {
			result[sym] = latest[0]
		}
	}
	return result
}

// -----------------------------------------------------------------------------

// RecentTrades returns up to n most recent trades for a symbol, oldest first.
func (mm *MemoryManager) RecentTrades(symbol string, n int) []models.MTrade {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	ring, ok := mm.Buffers[symbol]
	if !ok {
		return []models.MTrade{}
	}
	return ring.Latest(n)
}

// -----------------------------------------------------------------------------

// TradesSince returns buffered trades for a symbol at or after cutoffMs.
func (mm *MemoryManager) TradesSince(symbol string, cutoffMs int64) []models.MTrade {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	ring, ok := mm.Buffers[symbol]
	if !ok {
		return []models.MTrade{}
	}
	return ring.Since(cutoffMs)
}

// -----------------------------------------------------------------------------

// Symbols returns the symbols with buffered trades.
func (mm *MemoryManager) Symbols() []string {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	symbols := make([]string, 0, len(mm.Buffers))
	for sym := range mm.Buffers {
		symbols = append(symbols, sym)
	}
	return symbols
}

// -----------------------------------------------------------------------------

// checkMemoryLimitsLocked shrinks buffers when the process exceeds its budget.
// Caller must hold mm.mu.
func (mm *MemoryManager) checkMemoryLimitsLocked() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	usedMB := int(stats.HeapAlloc / 1024 / 1024)
	if usedMB <= mm.MaxMemoryMB {
		return
	}

	mm.Logger.Warning("Memory usage %dMB exceeds budget %dMB, shrinking trade buffers", usedMB, mm.MaxMemoryMB)

	for sym, ring := range mm.Buffers {
		newCap := ring.Capacity() / 2
		if newCap < 100 {
			newCap = 100
		}
		ring.Resize(newCap)
		mm.Logger.Debug("Shrunk %s buffer to %d entries", sym, newCap)
	}

	debug.FreeOSMemory()
}
