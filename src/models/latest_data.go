package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type         string                               `json:"type"` // "INITIAL" or "UPDATE"
	LastTrades   map[string]MTrade                    `json:"last_trades"`
	Aggregations map[string]map[string][]MAggregation `json:"aggregations"`
	Timestamp    int64                                `json:"timestamp"`
	StreamStats  MStreamStats                         `json:"stream_stats"`
}

// -----------------------------------------------------------------------------
// MStreamStats tracks the health of the exchange stream consumer.
// -----------------------------------------------------------------------------

type MStreamStats struct {
	TradesReceived  int64 `json:"trades_received"`
	DecodeErrors    int64 `json:"decode_errors"`
	Reconnects      int64 `json:"reconnects"`
	LastEventTimeMs int64 `json:"last_event_time_ms"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for dashboard client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command   string   `json:"command"`
	Symbols   []string `json:"symbols"`
	Timeframe string   `json:"timeframe"`
}
