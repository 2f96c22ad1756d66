package interfaces

import "binance-observer/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for trade persistence.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveTradesBulk inserts a batch of trades in one transaction.
	SaveTradesBulk(trades []models.MTrade) error

	// -----------------------------------------------------------------------------

	// GetRecentTrades returns up to limit most recent trades for a symbol,
	// oldest first.
	GetRecentTrades(symbol string, limit int) ([]models.MTrade, error)

	// -----------------------------------------------------------------------------

	// SaveAggregations persists calculated candles.
	SaveAggregations(aggs map[string]map[string][]models.MAggregation) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes trades older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
