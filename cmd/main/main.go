package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"binance-observer/src/analysis"
	"binance-observer/src/config"
	"binance-observer/src/data_source/binancews"
	"binance-observer/src/helpers"
	"binance-observer/src/interfaces"
	"binance-observer/src/logger"
	"binance-observer/src/models"
	"binance-observer/src/network"
	"binance-observer/src/server"
	"binance-observer/src/storage"
	"binance-observer/src/utils"
)

// How often the live candles are recomputed and pushed to clients.
const broadcastInterval = time.Second

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger.Setup(cfg.LogLevel)
	appLogger := logger.NewLogger(cfg.Name)

	// 1. Storage
	var db interfaces.IDatabase

	switch cfg.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(cfg.MConfig, appLogger)
	default:
		// Default to SQLite
		db, err = storage.NewSQLiteDB(cfg.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	// 2. Exchange source (REST backfill + live websocket stream)
	restManager := network.NewRestManager(cfg.MConfig, appLogger)
	source := binancews.NewWsSource(cfg.MConfig, restManager)

	// 3. Analysis and in-memory buffers
	aggregator := analysis.NewTradeAggregator(cfg.MConfig, appLogger)
	memManager := utils.NewMemoryManager(
		helpers.RecommendedBufferMemoryMB(),
		cfg.Retention.MaxTradesPerSymbol,
	)

	// 4. Initial data load over REST
	appLogger.Info("Fetching initial trades...")
	initialTrades, err := source.Backfill()
	if err != nil {
		appLogger.Warning("Initial fetch failed: %v", err)
	}

	var allInitial []models.MTrade
	for _, trades := range initialTrades {
		allInitial = append(allInitial, trades...)
		for _, t := range trades {
			memManager.AddTrade(t)
		}
	}
	if len(allInitial) > 0 {
		if err := db.SaveTradesBulk(allInitial); err != nil {
			appLogger.Warning("Failed to persist initial trades: %v", err)
		}
	}
	appLogger.Info("Initialization complete. %d trades preloaded", len(allInitial))

	// 5. Server
	srv := server.NewFastAPIServer(cfg.MConfig, appLogger, db)
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// Seed the server snapshot from the backfill
	srv.Broadcast(&models.MLatestData{
		LastTrades:   memManager.LatestTrade(),
		Aggregations: make(map[string]map[string][]models.MAggregation),
		Timestamp:    time.Now().UnixMilli(),
		StreamStats:  source.Stats(),
	})

	// 6. Main Loop (Push Model)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wrapWg := &sync.WaitGroup{}
	tradesChan := make(chan []models.MTrade, 1024)

	if err := source.Start(ctx, tradesChan, wrapWg); err != nil {
		appLogger.Critical("Failed to start source: %v", err)
		return
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	broadcastTicker := time.NewTicker(broadcastInterval)
	defer broadcastTicker.Stop()

	cleanupTicker := time.NewTicker(time.Duration(cfg.Retention.CleanupIntervalMinutes) * time.Minute)
	defer cleanupTicker.Stop()

	// Symbols with new trades since the last broadcast
	dirty := make(map[string]struct{})
	var pendingSave []models.MTrade

	appLogger.Info("Starting trade loop (Push Model)...")

	for {
		select {
		case trades, ok := <-tradesChan:
			if !ok {
				appLogger.Info("Trade source closed channel.")
				return
			}

			for _, t := range trades {
				memManager.AddTrade(t)
				dirty[t.Symbol] = struct{}{}
			}
			pendingSave = append(pendingSave, trades...)

		case <-broadcastTicker.C:
			if len(dirty) == 0 {
				continue
			}

			// Persist the accumulated ticks in one transaction
			if err := db.SaveTradesBulk(pendingSave); err != nil {
				appLogger.Error("Failed to persist trades: %v", err)
			}
			pendingSave = pendingSave[:0]

			// Recompute live candles for symbols that moved
			nowMs := time.Now().UnixMilli()
			accumulatedAggs := make(map[string]map[string][]models.MAggregation)

			for symbol := range dirty {
				aggs := aggregator.AggregateWindows(symbol, memManager, nowMs)
				if len(aggs) > 0 {
					accumulatedAggs[symbol] = aggs
				}
				delete(dirty, symbol)
			}

			if err := db.SaveAggregations(accumulatedAggs); err != nil {
				appLogger.Error("Failed to persist aggregations: %v", err)
			}

			srv.Broadcast(&models.MLatestData{
				LastTrades:   memManager.LatestTrade(),
				Aggregations: accumulatedAggs,
				Timestamp:    nowMs,
				StreamStats:  source.Stats(),
			})

		case <-cleanupTicker.C:
			if err := db.CleanupOldData(); err != nil {
				appLogger.Error("Retention cleanup failed: %v", err)
			}

		case <-quit:
			appLogger.Info("Shutting down...")
			cancel()      // Signal source to stop
			wrapWg.Wait() // Wait for source to close
			srv.Stop()
			return
		}
	}
}
