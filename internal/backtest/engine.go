// Package backtest drives the strategy over historical candles, tracking the
// equity curve and enforcing the drawdown and margin-call stops.
package backtest

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"grid-hedge-bot/internal/config"
	"grid-hedge-bot/internal/indicators"
	"grid-hedge-bot/internal/market"
	"grid-hedge-bot/internal/strategy"
)

// StopReason reports why the run ended before bars were exhausted.
type StopReason string

const (
	StopNone        StopReason = ""
	StopMaxDrawdown StopReason = "max_drawdown"
	StopMarginCall  StopReason = "margin_call"
)

// EquityPoint is one bar of the equity curve.
type EquityPoint struct {
	Timestamp     time.Time
	Price         float64
	Equity        float64
	Balance       float64
	SpotQty       float64
	SpotPnL       float64
	FuturesQty    float64
	FuturesPnL    float64
	FuturesMargin float64
	TotalFees     float64
	FundingPaid   float64
	CenterPrice   float64
	EMA           float64
}

// Result is the complete outcome of one run.
type Result struct {
	EquityCurve    []EquityPoint
	FinalState     strategy.Snapshot
	FinalEquity    float64
	FinalPrice     float64
	InitialCapital float64
	PeakEquity     float64
	BarsProcessed  int
	StopReason     StopReason
}

type Engine struct {
	cfg  config.Config
	data []market.Candle
	log  *zap.Logger
}

func New(cfg config.Config, data []market.Candle, log *zap.Logger) *Engine {
	return &Engine{cfg: cfg, data: data, log: log}
}

// Run executes the strategy bar-by-bar. Indicators are precomputed over the
// full series; the run stops early when equity breaches the configured
// drawdown from its peak or falls under the margin-call floor.
func (e *Engine) Run() (*Result, error) {
	if len(e.data) == 0 {
		return nil, errors.New("no candles to backtest")
	}

	closes := market.Closes(e.data)
	emaValues := indicators.EMA(closes, e.cfg.Strategy.EMAPeriod)
	atrValues := indicators.ATR(market.Highs(e.data), market.Lows(e.data), closes, e.cfg.Strategy.ATRPeriod)

	strat := strategy.New(e.cfg.Strategy)
	res := &Result{
		InitialCapital: e.cfg.Strategy.InitialCapital,
		PeakEquity:     e.cfg.Strategy.InitialCapital,
		EquityCurve:    make([]EquityPoint, 0, len(e.data)),
	}

	e.log.Info("backtest starting",
		zap.Int("bars", len(e.data)),
		zap.Time("from", e.data[0].OpenTime),
		zap.Time("to", e.data[len(e.data)-1].OpenTime))

	var lastPrice float64
	for _, candle := range e.data {
		idx := res.BarsProcessed
		strat.Execute(candle.Close, emaValues[idx], atrValues[idx], candle.OpenTime)

		equity := strat.Equity(candle.Close)
		spotPnL, futuresPnL := strat.UnrealizedPnL(candle.Close)
		snap := strat.Snapshot()

		res.EquityCurve = append(res.EquityCurve, EquityPoint{
			Timestamp:     candle.OpenTime,
			Price:         candle.Close,
			Equity:        equity,
			Balance:       snap.Balance,
			SpotQty:       snap.SpotQty,
			SpotPnL:       spotPnL,
			FuturesQty:    snap.FuturesShortQty,
			FuturesPnL:    futuresPnL,
			FuturesMargin: snap.FuturesMargin,
			TotalFees:     snap.TotalFees,
			FundingPaid:   snap.TotalFunding,
			CenterPrice:   snap.CenterPrice,
			EMA:           emaValues[idx],
		})
		res.BarsProcessed++
		lastPrice = candle.Close

		if equity > res.PeakEquity {
			res.PeakEquity = equity
		}
		drawdown := (equity - res.PeakEquity) / res.PeakEquity
		if drawdown < -e.cfg.Risk.MaxDrawdown {
			e.log.Warn("max drawdown reached", zap.Float64("drawdown", drawdown))
			res.StopReason = StopMaxDrawdown
			break
		}
		if equity < e.cfg.Strategy.InitialCapital*e.cfg.Risk.MarginCallThreshold {
			e.log.Warn("margin call threshold reached", zap.Float64("equity", equity))
			res.StopReason = StopMarginCall
			break
		}
	}

	res.FinalPrice = lastPrice
	res.FinalEquity = strat.Equity(lastPrice)
	res.FinalState = strat.Snapshot()

	e.log.Info("backtest completed",
		zap.Int("bars_processed", res.BarsProcessed),
		zap.Int("trades", len(res.FinalState.Trades)),
		zap.Float64("final_equity", res.FinalEquity))
	return res, nil
}
