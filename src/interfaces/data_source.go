package interfaces

import (
	"context"
	"sync"

	"binance-observer/src/models"
)

// -----------------------------------------------------------------------------
// ITradeSource is a live exchange stream consumer. It owns the socket, the
// subscription handshake and the reconnect policy; decoded trades are pushed
// to the output channel in arrival order.
// -----------------------------------------------------------------------------

type ITradeSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// IsRealTime returns true if the source pushes data as it happens
	IsRealTime() bool

	// -----------------------------------------------------------------------------

	// UpdateStreams replaces the set of subscribed stream names. Takes effect
	// on the next (re)connect.
	UpdateStreams(streams []string) error

	// -----------------------------------------------------------------------------

	// Start begins consuming the stream.
	// ctx: controls the lifecycle (cancellation stops the source)
	// outputChan: channel receiving decoded trade batches
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, outputChan chan<- []models.MTrade, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the consumer (cancelling the Start context also works)
	Stop() error

	// -----------------------------------------------------------------------------

	// Stats returns counters describing stream health.
	Stats() models.MStreamStats
}
