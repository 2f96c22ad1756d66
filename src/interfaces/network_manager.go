package interfaces

// -----------------------------------------------------------------------------
// INetworkManager performs REST calls against the exchange API (used for the
// initial trade backfill; the live stream goes over the websocket source).
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// Get performs a GET request with retries and returns the response body.
	Get(url string, params map[string]string) ([]byte, error)
}
