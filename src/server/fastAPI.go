package server

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"binance-observer/src/interfaces"
	"binance-observer/src/logger"
	"binance-observer/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Database interfaces.IDatabase
	engine   *gin.Engine

	// WebSocket clients. The map belongs to the hub loop goroutine alone;
	// other goroutines read the count through clientCount.
	clients     map[*Client]struct{}
	clientCount atomic.Int64
	broadcast   chan *models.MLatestData // Strongly typed and Buffered Queue
	register    chan *Client
	unregister  chan *Client

	// Local cache
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, log *logger.Logger, db interfaces.IDatabase) *FastAPIServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:   cfg,
		Logger:   log,
		Database: db,
		engine:   gin.Default(),
		clients:  make(map[*Client]struct{}),
		// Buffered channel so bursts of updates never block the feed pipeline
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latestState: &models.MLatestData{
			Type:         "INITIAL",
			LastTrades:   make(map[string]models.MTrade),
			Aggregations: make(map[string]map[string][]models.MAggregation),
			Timestamp:    0,
			StreamStats:  models.MStreamStats{},
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/stats", s.getStats)
	s.engine.GET("/api/trades/:symbol", s.getTrades)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop() error {
	// Clean shutdown
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	connections := s.clientCount.Load()

	s.stateMutex.RLock()
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getConfig(c *gin.Context) {
	c.JSON(200, gin.H{
		"exchange":   s.Config.Exchange.Name,
		"streams":    s.Config.Exchange.Streams,
		"timeframes": s.Config.WindowsAgg,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getStats(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	c.JSON(200, s.latestState.StreamStats)
}

// -----------------------------------------------------------------------------

// getTrades serves the most recent persisted trades for one symbol.
func (s *FastAPIServer) getTrades(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 5000 {
			c.JSON(400, gin.H{"error": "limit must be an integer between 1 and 5000"})
			return
		}
		limit = parsed
	}

	trades, err := s.Database.GetRecentTrades(symbol, limit)
	if err != nil {
		s.Logger.Error("Failed to load trades for %s: %v", symbol, err)
		c.JSON(500, gin.H{"error": "storage unavailable"})
		return
	}

	c.JSON(200, gin.H{
		"symbol": symbol,
		"count":  len(trades),
		"trades": trades,
	})
}
