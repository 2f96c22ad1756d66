package models

import "time"

// MAggregation represents a calculated candle for a specific time window,
// built from raw trade ticks.
type MAggregation struct {
	Symbol              string    `json:"symbol"`
	WindowName          string    `json:"window_name"` // e.g., "1m", "5m"
	Open                float64   `json:"open"`
	High                float64   `json:"high"`
	Low                 float64   `json:"low"`
	Close               float64   `json:"close"`
	Volume              float64   `json:"volume"`       // base asset
	QuoteVolume         float64   `json:"quote_volume"` // price * quantity
	VWAP                float64   `json:"vwap"`
	BuyerMakerRatio     float64   `json:"buyer_maker_ratio"` // share of maker-side buys
	PricePercentChange  float64   `json:"price_percent_change"`
	VolumeAnomalyRatio  float64   `json:"volume_anomaly_ratio"`
	StartTime           int64     `json:"start_time"`
	EndTime             int64     `json:"end_time"`
	TradeCount          int       `json:"trade_count"`
	CreatedAt           time.Time `json:"created_at"`
}
