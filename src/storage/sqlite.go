package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"binance-observer/src/logger"
	"binance-observer/src/models"

	_ "modernc.org/sqlite"
)

// SQLite batch constants
const (
	sqliteMaxVars   = 32000
	paramsPerTrade  = 8
	sqliteBatchSize = sqliteMaxVars / paramsPerTrade // ~4000 rows
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) createTables() error {
	// Trades survive restarts; retention cleanup prunes them instead of a
	// drop-and-recreate at startup.
	query := `
		CREATE TABLE IF NOT EXISTS trades (
			symbol TEXT,
			trade_id INTEGER,
			price REAL,
			quantity REAL,
			quote_volume REAL,
			is_buyer_maker INTEGER,
			trade_time INTEGER,
			event_time INTEGER,
			PRIMARY KEY (symbol, trade_id)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trades: %w", err)
	}

	if _, err := d.DB.Exec("CREATE INDEX IF NOT EXISTS idx_trades_time ON trades (symbol, trade_time);"); err != nil {
		return fmt.Errorf("failed to create trade index: %w", err)
	}

	for _, w := range d.Config.WindowsAgg {
		aggTable := fmt.Sprintf("aggregations_%s", w)
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				symbol TEXT,
				start_time INTEGER,
				end_time INTEGER,
				open REAL,
				high REAL,
				low REAL,
				close REAL,
				volume REAL,
				quote_volume REAL,
				vwap REAL,
				buyer_maker_ratio REAL,
				price_percent_change REAL,
				volume_anomaly_ratio REAL,
				trade_count INTEGER,
				PRIMARY KEY (symbol, start_time)
			);
		`, aggTable)
		if _, err := d.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create %s: %w", aggTable, err)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveTradesBulk(trades []models.MTrade) error {
	if len(trades) == 0 {
		return nil
	}

	for start := 0; start < len(trades); start += sqliteBatchSize {
		end := start + sqliteBatchSize
		if end > len(trades) {
			end = len(trades)
		}
		if err := d.saveTradeBatch(trades[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) saveTradeBatch(trades []models.MTrade) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// OR IGNORE: reconnect replays may deliver the same trade twice.
	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO trades (symbol, trade_id, price, quantity, quote_volume, is_buyer_maker, trade_time, event_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.Exec(t.Symbol, t.TradeID, t.Price, t.Quantity, t.QuoteVolume, boolToInt(t.IsBuyerMaker), t.TradeTime, t.EventTime)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) GetRecentTrades(symbol string, limit int) ([]models.MTrade, error) {
	rows, err := d.DB.Query(`
		SELECT symbol, trade_id, price, quantity, quote_volume, is_buyer_maker, trade_time, event_time
		FROM trades WHERE symbol = ?
		ORDER BY trade_time DESC, trade_id DESC LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []models.MTrade
	for rows.Next() {
		var t models.MTrade
		var maker int
		if err := rows.Scan(&t.Symbol, &t.TradeID, &t.Price, &t.Quantity, &t.QuoteVolume, &maker, &t.TradeTime, &t.EventTime); err != nil {
			return nil, err
		}
		t.IsBuyerMaker = maker != 0
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}
	return trades, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) SaveAggregations(aggs map[string]map[string][]models.MAggregation) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, windows := range aggs {
		for wName, candles := range windows {
			stmt, err := tx.Prepare(fmt.Sprintf(`
				INSERT OR REPLACE INTO aggregations_%s
				(symbol, start_time, end_time, open, high, low, close, volume, quote_volume, vwap, buyer_maker_ratio, price_percent_change, volume_anomaly_ratio, trade_count)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, wName))
			if err != nil {
				return err
			}

			for _, a := range candles {
				_, err := stmt.Exec(a.Symbol, a.StartTime, a.EndTime, a.Open, a.High, a.Low, a.Close,
					a.Volume, a.QuoteVolume, a.VWAP, a.BuyerMakerRatio, a.PricePercentChange, a.VolumeAnomalyRatio, a.TradeCount)
				if err != nil {
					stmt.Close()
					return err
				}
			}
			stmt.Close()
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) CleanupOldData() error {
	cutoff := time.Now().AddDate(0, 0, -d.Config.Retention.DataRetentionDays).UnixMilli()

	res, err := d.DB.Exec("DELETE FROM trades WHERE trade_time < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup trades: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		d.Logger.Info("Cleanup removed %d trades older than %d days", n, d.Config.Retention.DataRetentionDays)
	}

	for _, w := range d.Config.WindowsAgg {
		if _, err := d.DB.Exec(fmt.Sprintf("DELETE FROM aggregations_%s WHERE end_time < ?", w), cutoff); err != nil {
			return fmt.Errorf("failed to cleanup aggregations_%s: %w", w, err)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// -----------------------------------------------------------------------------

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
