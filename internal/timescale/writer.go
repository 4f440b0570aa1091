// Package timescale streams equity-curve points and executed trades into a
// TimescaleDB instance for dashboards. Writes are asynchronous and lossy
// under backpressure: a full queue drops the point rather than stalling the
// trading loop.
package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"grid-hedge-bot/internal/config"
	"grid-hedge-bot/internal/strategy"
)

const writeTimeout = 3 * time.Second

// EquityPoint is one bar of account state for the equity_curve table.
type EquityPoint struct {
	Time          time.Time
	Symbol        string
	Price         float64
	Equity        float64
	Balance       float64
	SpotQty       float64
	FuturesQty    float64
	FuturesMargin float64
	TotalFees     float64
	FundingPaid   float64
	CenterPrice   float64
}

// TradeRow is one executed ledger entry for the trades table.
type TradeRow struct {
	Symbol string
	Trade  strategy.Trade
}

type Writer struct {
	db        *sql.DB
	log       *zap.Logger
	schema    string
	equity    chan EquityPoint
	trades    chan TradeRow
	started   atomic.Bool
	dropEq    atomic.Uint64
	dropTrade atomic.Uint64
}

func New(cfg config.TimescaleConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:     db,
		log:    log,
		schema: schema,
		equity: make(chan EquityPoint, queueSize),
		trades: make(chan TradeRow, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) EnqueueEquity(point EquityPoint) {
	if w == nil {
		return
	}
	select {
	case w.equity <- point:
		return
	default:
		if w.dropEq.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale equity queue full")
		}
	}
}

func (w *Writer) EnqueueTrade(row TradeRow) {
	if w == nil {
		return
	}
	select {
	case w.trades <- row:
		return
	default:
		if w.dropTrade.Add(1) == 1 && w.log != nil {
			w.log.Warn("timescale trade queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case point := <-w.equity:
			w.writeEquity(ctx, point)
		case row := <-w.trades:
			w.writeTrade(ctx, row)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("timescale db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		equity DOUBLE PRECISION NOT NULL,
		balance DOUBLE PRECISION NOT NULL,
		spot_qty DOUBLE PRECISION NOT NULL,
		futures_short_qty DOUBLE PRECISION NOT NULL,
		futures_margin DOUBLE PRECISION NOT NULL,
		total_fees DOUBLE PRECISION NOT NULL,
		funding_paid DOUBLE PRECISION NOT NULL,
		center_price DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (ts, symbol)
	)`, w.table("equity_curve"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		type TEXT NOT NULL,
		level INTEGER NOT NULL DEFAULT 0,
		layer DOUBLE PRECISION NOT NULL DEFAULT 0,
		price DOUBLE PRECISION NOT NULL DEFAULT 0,
		qty DOUBLE PRECISION NOT NULL DEFAULT 0,
		fee DOUBLE PRECISION NOT NULL DEFAULT 0,
		profit DOUBLE PRECISION NOT NULL DEFAULT 0,
		net_pnl DOUBLE PRECISION NOT NULL DEFAULT 0,
		balance DOUBLE PRECISION NOT NULL DEFAULT 0
	)`, w.table("trades"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("equity_curve"))); err != nil && w.log != nil {
		w.log.Warn("timescale equity_curve hypertable create failed", zap.Error(err))
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("trades"))); err != nil && w.log != nil {
		w.log.Warn("timescale trades hypertable create failed", zap.Error(err))
	}
	return nil
}

func (w *Writer) writeEquity(ctx context.Context, point EquityPoint) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, price, equity, balance, spot_qty, futures_short_qty,
		futures_margin, total_fees, funding_paid, center_price
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
	)
	ON CONFLICT (ts, symbol) DO UPDATE SET
		price = EXCLUDED.price,
		equity = EXCLUDED.equity,
		balance = EXCLUDED.balance,
		spot_qty = EXCLUDED.spot_qty,
		futures_short_qty = EXCLUDED.futures_short_qty,
		futures_margin = EXCLUDED.futures_margin,
		total_fees = EXCLUDED.total_fees,
		funding_paid = EXCLUDED.funding_paid,
		center_price = EXCLUDED.center_price`, w.table("equity_curve"))
	if _, err := w.db.ExecContext(ctx, query,
		point.Time,
		point.Symbol,
		point.Price,
		point.Equity,
		point.Balance,
		point.SpotQty,
		point.FuturesQty,
		point.FuturesMargin,
		point.TotalFees,
		point.FundingPaid,
		point.CenterPrice,
	); err != nil && w.log != nil {
		w.log.Warn("timescale equity insert failed", zap.Error(err))
	}
}

func (w *Writer) writeTrade(ctx context.Context, row TradeRow) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, type, level, layer, price, qty, fee, profit, net_pnl, balance
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
	)`, w.table("trades"))
	t := row.Trade
	if _, err := w.db.ExecContext(ctx, query,
		t.Timestamp,
		row.Symbol,
		string(t.Type),
		t.Level,
		t.Layer,
		t.Price,
		t.Qty,
		t.Fee,
		t.Profit,
		t.NetPnL,
		t.Balance,
	); err != nil && w.log != nil {
		w.log.Warn("timescale trade insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
