package models

import (
	"time"

	"binance-observer/src/binance"
)

// -----------------------------------------------------------------------------
// MTrade represents one stored trade tick.
// -----------------------------------------------------------------------------

type MTrade struct {
	Symbol       string    `json:"symbol"`
	TradeID      uint64    `json:"trade_id"`
	Price        float64   `json:"price"`
	Quantity     float64   `json:"quantity"`
	QuoteVolume  float64   `json:"quote_volume"`
	IsBuyerMaker bool      `json:"is_buyer_maker"`
	TradeTime    int64     `json:"trade_time"` // epoch millis, exchange clock
	EventTime    int64     `json:"event_time"` // epoch millis, stream clock
	CreatedAt    time.Time `json:"created_at"`
}

// -----------------------------------------------------------------------------

// NewMTradeFromEvent converts a decoded wire trade into the storage record.
func NewMTradeFromEvent(ev *binance.Trade) MTrade {
	return MTrade{
		Symbol:       ev.Symbol,
		TradeID:      ev.TradeID,
		Price:        ev.Price,
		Quantity:     ev.Quantity,
		QuoteVolume:  ev.Price * ev.Quantity,
		IsBuyerMaker: ev.IsBuyerMarketMaker,
		TradeTime:    int64(ev.TradeTime),
		EventTime:    int64(ev.EventTime),
		CreatedAt:    time.Now().UTC(),
	}
}
