package utils

import (
	"binance-observer/src/models"
)

// -----------------------------------------------------------------------------
// TradeRing is a fixed-size circular buffer of trade feature rows.
// True ring buffer - overwrites oldest entries when full.
// -----------------------------------------------------------------------------

type TradeRing struct {
	symbol   string
	data     [][models.RB_NUM_FEATURES]float64
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewTradeRing creates a new buffer with fixed capacity
func NewTradeRing(symbol string, capacity int) *TradeRing {
	if capacity <= 0 {
		capacity = 1000 // Default reasonable size
	}

	return &TradeRing{
		symbol:   symbol,
		data:     make([][models.RB_NUM_FEATURES]float64, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds one trade tick
func (rb *TradeRing) Append(t models.MTrade) {
	maker := 0.0
	if t.IsBuyerMaker {
		maker = 1.0
	}

	rb.data[rb.index] = [models.RB_NUM_FEATURES]float64{
		float64(t.TradeTime),
		t.Price,
		t.Quantity,
		t.QuoteVolume,
		maker,
		float64(t.TradeID),
	}

	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// row converts one stored feature row back to a trade record.
func (rb *TradeRing) row(idx int) models.MTrade {
	r := rb.data[idx]
	return models.MTrade{
		Symbol:       rb.symbol,
		TradeTime:    int64(r[models.RB_IDX_TRADE_TIME]),
		Price:        r[models.RB_IDX_PRICE],
		Quantity:     r[models.RB_IDX_QUANTITY],
		QuoteVolume:  r[models.RB_IDX_QUOTE_VOL],
		IsBuyerMaker: r[models.RB_IDX_BUYER_MAKER] != 0,
		TradeID:      uint64(r[models.RB_IDX_TRADE_ID]),
	}
}

// -----------------------------------------------------------------------------

// Latest returns the n most recent trades, oldest first.
func (rb *TradeRing) Latest(n int) []models.MTrade {
	if rb.size == 0 || n <= 0 {
		return []models.MTrade{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MTrade, count)
	startIdx := (rb.index - count + rb.capacity) % rb.capacity

	for i := 0; i < count; i++ {
		result[i] = rb.row((startIdx + i) % rb.capacity)
	}

	return result
}

// -----------------------------------------------------------------------------

// Since returns all buffered trades with TradeTime >= cutoff, oldest first.
func (rb *TradeRing) Since(cutoffMs int64) []models.MTrade {
	all := rb.All()

	// Buffered trades are in arrival order; find the first one inside the window.
	lo := 0
	for lo < len(all) && all[lo].TradeTime < cutoffMs {
		lo++
	}
	return all[lo:]
}

// -----------------------------------------------------------------------------

// All returns every buffered trade in insertion order (oldest to newest)
func (rb *TradeRing) All() []models.MTrade {
	if rb.size == 0 {
		return []models.MTrade{}
	}

	result := make([]models.MTrade, rb.size)

	var startIdx int
	if rb.size == rb.capacity {
		// Buffer is full, oldest is at current index (wrap-around)
		startIdx = rb.index
	}

	for i := 0; i < rb.size; i++ {
		result[i] = rb.row((startIdx + i) % rb.capacity)
	}

	return result
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *TradeRing) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *TradeRing) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// Resize changes the capacity, keeping the newest entries when shrinking.
func (rb *TradeRing) Resize(newCapacity int) {
	if newCapacity <= 0 || newCapacity == rb.capacity {
		return
	}

	newData := make([][models.RB_NUM_FEATURES]float64, newCapacity)

	count := rb.size
	if count > newCapacity {
		count = newCapacity
	}

	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		newData[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	rb.data = newData
	rb.capacity = newCapacity
	rb.size = count
	rb.index = count % newCapacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *TradeRing) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *TradeRing) Clear() {
	rb.index = 0
	rb.size = 0
}
