package perf

import (
	"math"
	"strings"
	"testing"
	"time"

	"grid-hedge-bot/internal/backtest"
	"grid-hedge-bot/internal/strategy"
)

func curveFromEquities(equities []float64) []backtest.EquityPoint {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]backtest.EquityPoint, len(equities))
	for i, e := range equities {
		out[i] = backtest.EquityPoint{Timestamp: t0.Add(time.Duration(i) * time.Hour), Equity: e}
	}
	return out
}

func TestAnalyzeROIAndTradeStats(t *testing.T) {
	res := &backtest.Result{
		InitialCapital: 10_000,
		FinalEquity:    11_000,
		EquityCurve:    curveFromEquities([]float64{10_000, 10_500, 11_000}),
		FinalState: strategy.Snapshot{
			Trades: []strategy.Trade{
				{Type: strategy.TradeGridBuy},
				{Type: strategy.TradeGridBuy},
				{Type: strategy.TradeGridSell, Profit: 60},
				{Type: strategy.TradeGridSell, Profit: -10},
				{Type: strategy.TradeHedgeOpen},
				{Type: strategy.TradeHedgeCloseAll, NetPnL: 25},
			},
			TotalFees:    12.5,
			TotalFunding: 1.5,
		},
	}

	m := Analyze(res, 15)
	if math.Abs(m.ROI-10) > 1e-9 {
		t.Fatalf("roi = %v, want 10", m.ROI)
	}
	if math.Abs(m.ROIMonthly-20) > 1e-9 {
		t.Fatalf("monthly roi = %v, want 20", m.ROIMonthly)
	}
	if m.GridBuys != 2 || m.GridSells != 2 {
		t.Fatalf("trade counts: %+v", m)
	}
	if math.Abs(m.GridProfit-50) > 1e-9 {
		t.Fatalf("grid profit = %v", m.GridProfit)
	}
	if math.Abs(m.WinRate-50) > 1e-9 {
		t.Fatalf("win rate = %v", m.WinRate)
	}
	if m.HedgeOpens != 1 || m.HedgeCloses != 1 || m.HedgePnL != 25 {
		t.Fatalf("hedge stats: %+v", m)
	}
	if m.TotalFees != 12.5 || m.TotalFunding != 1.5 {
		t.Fatalf("cost stats: %+v", m)
	}
}

func TestMaxDrawdown(t *testing.T) {
	curve := curveFromEquities([]float64{10_000, 12_000, 9_000, 11_000})
	got := maxDrawdown(curve)
	want := (9_000.0 - 12_000.0) / 12_000.0 * 100
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("max drawdown = %v, want %v", got, want)
	}
}

func TestMaxDrawdownMonotonicGrowthIsZero(t *testing.T) {
	curve := curveFromEquities([]float64{10_000, 10_100, 10_200})
	if got := maxDrawdown(curve); got != 0 {
		t.Fatalf("max drawdown = %v, want 0", got)
	}
}

func TestSharpeZeroForConstantEquity(t *testing.T) {
	curve := curveFromEquities([]float64{10_000, 10_000, 10_000})
	if got := sharpe(curve); got != 0 {
		t.Fatalf("sharpe = %v, want 0", got)
	}
}

func TestSharpeSignFollowsReturns(t *testing.T) {
	up := curveFromEquities([]float64{10_000, 10_100, 10_150, 10_300})
	if got := sharpe(up); got <= 0 {
		t.Fatalf("sharpe of rising curve = %v, want > 0", got)
	}
	down := curveFromEquities([]float64{10_300, 10_150, 10_100, 10_000})
	if got := sharpe(down); got >= 0 {
		t.Fatalf("sharpe of falling curve = %v, want < 0", got)
	}
}

func TestReportMentionsKeySections(t *testing.T) {
	res := &backtest.Result{
		InitialCapital: 10_000,
		FinalEquity:    10_500,
		EquityCurve:    curveFromEquities([]float64{10_000, 10_500}),
		StopReason:     backtest.StopMaxDrawdown,
		BarsProcessed:  2,
	}
	m := Analyze(res, 7)
	report := Report(res, m, 7)

	for _, want := range []string{"CAPITAL & RETURNS", "GRID TRADING", "HEDGE TRADING", "COSTS", "max_drawdown"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}
