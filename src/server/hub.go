package server

import (
	"encoding/json"
	"net/http"

	"binance-observer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.clientCount.Store(int64(len(s.clients)))
			// Send initial state on connect
			s.stateMutex.RLock()
			if s.latestState != nil {
				client.send <- s.latestState
			}
			s.stateMutex.RUnlock()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				s.clientCount.Store(int64(len(s.clients)))
				close(client.send)
			}

		case message := <-s.broadcast:
			// Update state and broadcast
			s.stateMutex.Lock()
			s.mergeStateLocked(message)
			s.stateMutex.Unlock()

			for client := range s.clients {
				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					s.clientCount.Store(int64(len(s.clients)))
					close(client.send)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a state update for all connected clients.
func (s *FastAPIServer) Broadcast(data *models.MLatestData) {
	if data == nil {
		return
	}
	data.Type = "UPDATE"
	s.broadcast <- data
}

// -----------------------------------------------------------------------------

// mergeStateLocked folds an update into the cached snapshot sent to new
// clients. Updates are partial: symbols absent from the update keep their
// previous trade and aggregations. Callers hold stateMutex.
func (s *FastAPIServer) mergeStateLocked(update *models.MLatestData) {
	if s.latestState.LastTrades == nil {
		s.latestState.LastTrades = make(map[string]models.MTrade)
	}
	for sym, trade := range update.LastTrades {
		s.latestState.LastTrades[sym] = trade
	}

	if s.latestState.Aggregations == nil {
		s.latestState.Aggregations = make(map[string]map[string][]models.MAggregation)
	}
	for sym, windows := range update.Aggregations {
		if s.latestState.Aggregations[sym] == nil {
			s.latestState.Aggregations[sym] = make(map[string][]models.MAggregation)
		}
		for wName, wData := range windows {
			// Latest-only snapshot: one live candle per window.
			s.latestState.Aggregations[sym][wName] = wData
		}
	}

	s.latestState.Timestamp = update.Timestamp
	s.latestState.StreamStats = update.StreamStats
	s.latestState.Type = "UPDATE"
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MLatestData, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	s.stateMutex.RLock()
	response := s.filteredSnapshot(cmd.Symbols, cmd.Timeframe)
	s.stateMutex.RUnlock()

	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- response:
	default:
	}
}

// -----------------------------------------------------------------------------
// Response Filtering
// -----------------------------------------------------------------------------

// filteredSnapshot builds an INITIAL view restricted to the requested symbols
// and timeframe. Empty symbols means all; empty timeframe means all windows.
// Callers hold stateMutex.
func (s *FastAPIServer) filteredSnapshot(symbols []string, timeframe string) *models.MLatestData {
	filteredTrades := make(map[string]models.MTrade)
	if len(symbols) == 0 {
		for sym, trade := range s.latestState.LastTrades {
			filteredTrades[sym] = trade
		}
	} else {
		for _, sym := range symbols {
			if trade, exists := s.latestState.LastTrades[sym]; exists {
				filteredTrades[sym] = trade
			}
		}
	}

	filteredAgg := make(map[string]map[string][]models.MAggregation)
	wanted := symbols
	if len(wanted) == 0 {
		for sym := range s.latestState.Aggregations {
			wanted = append(wanted, sym)
		}
	}

	for _, sym := range wanted {
		windowsMap, exists := s.latestState.Aggregations[sym]
		if !exists {
			continue
		}
		if timeframe != "" {
			if wData, exists := windowsMap[timeframe]; exists {
				filteredAgg[sym] = map[string][]models.MAggregation{timeframe: wData}
			}
		} else {
			filteredAgg[sym] = windowsMap
		}
	}

	return &models.MLatestData{
		Type:         "INITIAL",
		LastTrades:   filteredTrades,
		Aggregations: filteredAgg,
		Timestamp:    s.latestState.Timestamp,
		StreamStats:  s.latestState.StreamStats,
	}
}
