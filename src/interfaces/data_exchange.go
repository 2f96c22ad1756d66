package interfaces

import "binance-observer/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger shares observer state with external listeners (dashboard).
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// Broadcast pushes a state update to all connected listeners.
	Broadcast(update *models.MLatestData)

	// -----------------------------------------------------------------------------

	// Start the server (blocks)
	Start() error

	// -----------------------------------------------------------------------------

	// Stop the server gracefully
	Stop() error
}
