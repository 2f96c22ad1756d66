package binancews

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"binance-observer/src/binance"
	"binance-observer/src/helpers"
	"binance-observer/src/interfaces"
	"binance-observer/src/logger"
	"binance-observer/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// WsSource consumes the exchange's combined websocket trade streams. It owns
// the connection, the SUBSCRIBE handshake and the reconnect policy; every
// frame is decoded through the wire codec and pushed downstream as a typed
// trade.
// -----------------------------------------------------------------------------

const (
	readWait         = 75 * time.Second // exchange pings every ~20s
	writeWait        = 10 * time.Second
	maxReconnectWait = 2 * time.Minute
	restTradeLimit   = 500
)

type WsSource struct {
	Config *models.MConfig
	Logger *logger.Logger
	Rest   interfaces.INetworkManager

	streams    atomic.Value // []string
	nextReqID  atomic.Uint64
	cancelFunc context.CancelFunc
	ctx        context.Context
	outputChan chan<- []models.MTrade
	isRunning  atomic.Bool
	mu         sync.Mutex

	// stream health counters
	tradesReceived atomic.Int64
	decodeErrors   atomic.Int64
	reconnects     atomic.Int64
	lastEventTime  atomic.Int64
}

// -----------------------------------------------------------------------------

func NewWsSource(cfg *models.MConfig, rest interfaces.INetworkManager) *WsSource {
	s := &WsSource{
		Config: cfg,
		Logger: logger.NewLogger("WsSource-" + cfg.Exchange.Name),
		Rest:   rest,
	}
	s.streams.Store(append([]string(nil), cfg.Exchange.Streams...))
	return s
}

// -----------------------------------------------------------------------------

func (s *WsSource) Name() string {
	return s.Config.Exchange.Name
}

// -----------------------------------------------------------------------------

// IsRealTime returns true: trades arrive as the exchange matches them.
func (s *WsSource) IsRealTime() bool {
	return true
}

// -----------------------------------------------------------------------------

// UpdateStreams replaces the subscribed stream set; it takes effect on the
// next (re)connect.
func (s *WsSource) UpdateStreams(streams []string) error {
	if len(streams) == 0 {
		return fmt.Errorf("stream list cannot be empty")
	}
	s.streams.Store(append([]string(nil), streams...))
	s.Logger.Info("Updated stream list. New count: %d", len(streams))
	return nil
}

// -----------------------------------------------------------------------------

func (s *WsSource) Stats() models.MStreamStats {
	return models.MStreamStats{
		TradesReceived:  s.tradesReceived.Load(),
		DecodeErrors:    s.decodeErrors.Load(),
		Reconnects:      s.reconnects.Load(),
		LastEventTimeMs: s.lastEventTime.Load(),
	}
}

// -----------------------------------------------------------------------------

// Start begins consuming the stream.
func (s *WsSource) Start(parentCtx context.Context, outputChan chan<- []models.MTrade, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.ctx = ctx
	s.cancelFunc = cancel
	s.outputChan = outputChan
	s.isRunning.Store(true)

	wg.Add(1)
	go s.runLoop(ctx, wg)
	s.Logger.Info("Started websocket source: %s", s.Name())
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the run loop to exit
func (s *WsSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.Load() {
		return fmt.Errorf("source %s is not running", s.Name())
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning.Store(false)
	s.Logger.Info("Stopped websocket source: %s", s.Name())
	return nil
}

// -----------------------------------------------------------------------------

// runLoop keeps one live connection, reconnecting with exponential backoff.
func (s *WsSource) runLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		err := s.connectAndConsume(ctx)
		if ctx.Err() != nil {
			return
		}

		s.reconnects.Add(1)
		s.Logger.Warning("Stream dropped: %v. Reconnecting in %v", err, backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// -----------------------------------------------------------------------------

// connectAndConsume dials, subscribes, then reads frames until the connection
// fails or the context is cancelled. A successful subscription acknowledgment
// resets the caller's backoff via the returned sentinel-free contract: the
// caller treats any return as a drop.
func (s *WsSource) connectAndConsume(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: time.Duration(s.Config.Network.RequestTimeout) * time.Second,
	}

	header := http.Header{}
	if s.Config.Network.UserAgent != "" {
		header.Set("User-Agent", s.Config.Network.UserAgent)
	}

	conn, _, err := dialer.DialContext(ctx, s.Config.Exchange.WsURL, header)
	if err != nil {
		return helpers.NewConnectionError("dial "+s.Config.Exchange.WsURL, err)
	}
	defer conn.Close()

	// Close the socket promptly when the lifecycle context ends.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(payload string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(websocket.PongMessage, []byte(payload))
	})

	if err := s.subscribe(conn); err != nil {
		return err
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readWait))
		s.handleFrame(ctx, frame)
	}
}

// -----------------------------------------------------------------------------

// subscribe encodes and sends the SUBSCRIBE request for the current stream set.
func (s *WsSource) subscribe(conn *websocket.Conn) error {
	req := binance.NewSubscriptionRequest(s.nextReqID.Add(1))
	for _, stream := range s.getStreams() {
		req.AddStream(stream)
	}

	payload, err := req.Encode()
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		return fmt.Errorf("send subscription: %w", err)
	}

	s.Logger.Info("Subscribed to %d streams (request id %d)", len(req.Params), req.ID)
	return nil
}

// -----------------------------------------------------------------------------

// handleFrame routes one inbound frame by shape to the matching decoder.
func (s *WsSource) handleFrame(ctx context.Context, frame []byte) {
	switch binance.ClassifyFrame(frame) {
	case binance.FrameTrade:
		ev, err := binance.DecodeTrade(frame)
		if err != nil {
			s.decodeErrors.Add(1)
			s.Logger.Debug("Dropped undecodable trade frame: %v", err)
			return
		}

		s.tradesReceived.Add(1)
		s.lastEventTime.Store(int64(ev.EventTime))
		s.push(ctx, []models.MTrade{models.NewMTradeFromEvent(ev)})

	case binance.FrameSubscriptionResponse:
		resp, err := binance.DecodeSubscriptionResponse(frame)
		if err != nil {
			s.decodeErrors.Add(1)
			s.Logger.Warning("Undecodable subscription response: %v", err)
			return
		}
		if resp.Result == nil {
			s.Logger.Info("Subscription %d acknowledged", resp.ID)
		} else {
			s.Logger.Info("Subscription %d returned %d entries", resp.ID, len(resp.Result))
		}

	default:
		s.Logger.Debug("Ignoring frame of unknown shape")
	}
}

// -----------------------------------------------------------------------------

// push sends decoded trades downstream, abandoning them on shutdown.
func (s *WsSource) push(ctx context.Context, trades []models.MTrade) {
	select {
	case s.outputChan <- trades:
	case <-ctx.Done():
	}
}

// -----------------------------------------------------------------------------

func (s *WsSource) getStreams() []string {
	return s.streams.Load().([]string)
}

// -----------------------------------------------------------------------------
// REST Backfill
// -----------------------------------------------------------------------------

// restTrade is the REST recent-trades response row. Prices and quantities are
// decimal strings there too.
type restTrade struct {
	ID           uint64 `json:"id"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	Time         int64  `json:"time"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
}

// -----------------------------------------------------------------------------

// Backfill fetches the most recent trades over REST for every subscribed
// symbol, so dashboards are not empty until the stream warms up.
func (s *WsSource) Backfill() (map[string][]models.MTrade, error) {
	if s.Config.Exchange.RestURL == "" {
		return map[string][]models.MTrade{}, nil
	}

	result := make(map[string][]models.MTrade)

	for _, symbol := range s.Symbols() {
		body, err := s.Rest.Get(s.Config.Exchange.RestURL+"/api/v3/trades", map[string]string{
			"symbol": symbol,
			"limit":  strconv.Itoa(restTradeLimit),
		})
		if err != nil {
			s.Logger.Warning("Backfill failed for %s: %v", symbol, err)
			continue
		}

		var rows []restTrade
		if err := json.Unmarshal(body, &rows); err != nil {
			s.Logger.Warning("Backfill parse failed for %s: %v", symbol, err)
			continue
		}

		trades := make([]models.MTrade, 0, len(rows))
		for _, row := range rows {
			price, perr := strconv.ParseFloat(row.Price, 64)
			qty, qerr := strconv.ParseFloat(row.Qty, 64)
			if perr != nil || qerr != nil {
				continue
			}
			trades = append(trades, models.MTrade{
				Symbol:       symbol,
				TradeID:      row.ID,
				Price:        price,
				Quantity:     qty,
				QuoteVolume:  price * qty,
				IsBuyerMaker: row.IsBuyerMaker,
				TradeTime:    row.Time,
				EventTime:    row.Time,
				CreatedAt:    time.Now().UTC(),
			})
		}

		if len(trades) > 0 {
			result[symbol] = trades
		}
	}

	s.Logger.Info("Backfill fetched trades for %d/%d symbols", len(result), len(s.Symbols()))
	return result, nil
}

// -----------------------------------------------------------------------------

// Symbols derives the upper-cased symbol list from the subscribed stream
// names (e.g. "btcusdt@trade" -> "BTCUSDT"), deduplicated in order.
func (s *WsSource) Symbols() []string {
	seen := make(map[string]struct{})
	var symbols []string

	for _, stream := range s.getStreams() {
		name := stream
		if at := strings.IndexByte(stream, '@'); at >= 0 {
			name = stream[:at]
		}
		symbol := strings.ToUpper(name)
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}
	return symbols
}
