package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"binance-observer/src/helpers"
	"binance-observer/src/logger"
	"binance-observer/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	// One schema per observer instance, named after the configured app name.
	schema := sanitizeIdentifier(cfg.Name)
	if schema == "" {
		return nil, fmt.Errorf("cannot derive schema name from app name %q", cfg.Name)
	}

	return &PostgresDB{
		Config: cfg,
		Schema: schema,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return helpers.NewDatabaseError("failed to open postgres connection", err)
	}

	// The database may still be starting; retry the first contact.
	err = helpers.RetryWithBackoff(context.Background(), d.Logger, "postgres ping",
		d.Config.Network.MaxRetries+1, time.Second, db.Ping)
	if err != nil {
		return helpers.NewDatabaseError("postgres unreachable", err)
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".trades (
			symbol TEXT,
			trade_id BIGINT,
			price DOUBLE PRECISION,
			quantity DOUBLE PRECISION,
			quote_volume DOUBLE PRECISION,
			is_buyer_maker BOOLEAN,
			trade_time BIGINT,
			event_time BIGINT,
			PRIMARY KEY (symbol, trade_id)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trades: %w", err)
	}

	query = fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_trades_time ON "%s".trades (symbol, trade_time);`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create trade index: %w", err)
	}

	for _, w := range d.Config.WindowsAgg {
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS "%s".aggregations_%s (
				symbol TEXT,
				start_time BIGINT,
				end_time BIGINT,
				open DOUBLE PRECISION,
				high DOUBLE PRECISION,
				low DOUBLE PRECISION,
				close DOUBLE PRECISION,
				volume DOUBLE PRECISION,
				quote_volume DOUBLE PRECISION,
				vwap DOUBLE PRECISION,
				buyer_maker_ratio DOUBLE PRECISION,
				price_percent_change DOUBLE PRECISION,
				volume_anomaly_ratio DOUBLE PRECISION,
				trade_count INTEGER,
				PRIMARY KEY (symbol, start_time)
			);
		`, d.Schema, w)
		if _, err := d.DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create aggregations_%s: %w", w, err)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveTradesBulk(trades []models.MTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO "%s".trades (symbol, trade_id, price, quantity, quote_volume, is_buyer_maker, trade_time, event_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, trade_id) DO NOTHING
	`, d.Schema))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.Exec(t.Symbol, t.TradeID, t.Price, t.Quantity, t.QuoteVolume, t.IsBuyerMaker, t.TradeTime, t.EventTime)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) GetRecentTrades(symbol string, limit int) ([]models.MTrade, error) {
	rows, err := d.DB.Query(fmt.Sprintf(`
		SELECT symbol, trade_id, price, quantity, quote_volume, is_buyer_maker, trade_time, event_time
		FROM "%s".trades WHERE symbol = $1
		ORDER BY trade_time DESC, trade_id DESC LIMIT $2
	`, d.Schema), symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []models.MTrade
	for rows.Next() {
		var t models.MTrade
		if err := rows.Scan(&t.Symbol, &t.TradeID, &t.Price, &t.Quantity, &t.QuoteVolume, &t.IsBuyerMaker, &t.TradeTime, &t.EventTime); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}
	return trades, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveAggregations(aggs map[string]map[string][]models.MAggregation) error {
	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, windows := range aggs {
		for wName, candles := range windows {
			stmt, err := tx.Prepare(fmt.Sprintf(`
				INSERT INTO "%s".aggregations_%s
				(symbol, start_time, end_time, open, high, low, close, volume, quote_volume, vwap, buyer_maker_ratio, price_percent_change, volume_anomaly_ratio, trade_count)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
				ON CONFLICT (symbol, start_time) DO UPDATE SET
					end_time = EXCLUDED.end_time,
					open = EXCLUDED.open,
					high = EXCLUDED.high,
					low = EXCLUDED.low,
					close = EXCLUDED.close,
					volume = EXCLUDED.volume,
					quote_volume = EXCLUDED.quote_volume,
					vwap = EXCLUDED.vwap,
					buyer_maker_ratio = EXCLUDED.buyer_maker_ratio,
					price_percent_change = EXCLUDED.price_percent_change,
					volume_anomaly_ratio = EXCLUDED.volume_anomaly_ratio,
					trade_count = EXCLUDED.trade_count
			`, d.Schema, wName))
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

func (d *PostgresDB) CleanupOldData() error {
	cutoff := time.Now().AddDate(0, 0, -d.Config.Retention.DataRetentionDays).UnixMilli()

	res, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s".trades WHERE trade_time < $1`, d.Schema), cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup trades: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		d.Logger.Info("Cleanup removed %d trades older than %d days", n, d.Config.Retention.DataRetentionDays)
	}

	for _, w := range d.Config.WindowsAgg {
		if _, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s".aggregations_%s WHERE end_time < $1`, d.Schema, w), cutoff); err != nil {
			return fmt.Errorf("failed to cleanup aggregations_%s: %w", w, err)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// -----------------------------------------------------------------------------

// sanitizeIdentifier keeps only characters safe for an unquoted-ish SQL
// identifier; table names for windows come from validated config.
func sanitizeIdentifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == '-' || r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
