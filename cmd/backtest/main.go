package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"grid-hedge-bot/internal/backtest"
	"grid-hedge-bot/internal/binance"
	"grid-hedge-bot/internal/config"
	"grid-hedge-bot/internal/logging"
	"grid-hedge-bot/internal/market"
	"grid-hedge-bot/internal/perf"
	"grid-hedge-bot/internal/state"
	"grid-hedge-bot/internal/state/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	csvPath := flag.String("csv", "", "load candles from a CSV file instead of the exchange")
	symbol := flag.String("symbol", "", "symbol override")
	interval := flag.String("interval", "", "candle interval override")
	days := flag.Int("days", 30, "number of days to backtest")
	preset := flag.String("preset", "", "strategy preset override")
	record := flag.Bool("record", false, "persist the final snapshot and trades to the sqlite store")
	flag.Parse()

	if err := config.LoadEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *symbol != "" {
		cfg.Live.Symbol = *symbol
	}
	if *interval != "" {
		cfg.Live.CandleInterval = *interval
	}
	if *preset != "" {
		base, err := config.Preset(*preset)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v (known: %v)\n", err, config.PresetNames())
			os.Exit(1)
		}
		base.HedgeCloseFeeOnce = cfg.Strategy.HedgeCloseFeeOnce
		cfg.Strategy = base
	}

	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	candles, err := loadCandles(ctx, cfg, *csvPath, *days, log)
	if err != nil {
		log.Error("failed to load candles", zap.Error(err))
		os.Exit(1)
	}

	engine := backtest.New(*cfg, candles, log)
	result, err := engine.Run()
	if err != nil {
		log.Error("backtest failed", zap.Error(err))
		os.Exit(1)
	}

	backtestDays := float64(*days)
	if n := len(candles); n > 1 {
		backtestDays = candles[n-1].OpenTime.Sub(candles[0].OpenTime).Hours() / 24
	}
	metrics := perf.Analyze(result, backtestDays)
	fmt.Print(perf.Report(result, metrics, backtestDays))

	if *record {
		if err := recordRun(ctx, cfg, result, log); err != nil {
			log.Error("failed to record run", zap.Error(err))
			os.Exit(1)
		}
	}
}

// recordRun persists the final snapshot and the full trade ledger so a run
// can be inspected later with the same tooling the live bot uses.
func recordRun(ctx context.Context, cfg *config.Config, result *backtest.Result, log *zap.Logger) error {
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, trade := range result.FinalState.Trades {
		if err := store.AppendTrade(ctx, trade); err != nil {
			return err
		}
	}
	if err := state.SaveSnapshot(ctx, store, cfg.Live.Symbol, result.FinalState); err != nil {
		return err
	}
	log.Info("run recorded",
		zap.String("path", cfg.State.SQLitePath),
		zap.Int("trades", len(result.FinalState.Trades)))
	return nil
}

func loadCandles(ctx context.Context, cfg *config.Config, csvPath string, days int, log *zap.Logger) ([]market.Candle, error) {
	if csvPath != "" {
		candles, err := market.LoadCSV(csvPath)
		if err != nil {
			return nil, err
		}
		log.Info("candles loaded from csv", zap.String("path", csvPath), zap.Int("bars", len(candles)))
		return candles, nil
	}

	client := binance.New(cfg.Exchange, log)
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)
	candles, err := client.Klines(ctx, cfg.Live.Symbol, cfg.Live.CandleInterval, start, end)
	if err != nil {
		return nil, err
	}
	log.Info("candles downloaded",
		zap.String("symbol", cfg.Live.Symbol),
		zap.String("interval", cfg.Live.CandleInterval),
		zap.Int("bars", len(candles)))
	return candles, nil
}
