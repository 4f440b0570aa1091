// Package perf computes performance metrics over a finished backtest and
// renders the text report.
package perf

import (
	"fmt"
	"math"
	"strings"

	"grid-hedge-bot/internal/backtest"
	"grid-hedge-bot/internal/strategy"
)

// Metrics summarizes one backtest run. Percentages are expressed as
// percents, not fractions.
type Metrics struct {
	ROI          float64
	ROIMonthly   float64
	MaxDrawdown  float64
	SharpeRatio  float64
	GridBuys     int
	GridSells    int
	GridProfit   float64
	WinRate      float64
	HedgeOpens   int
	HedgeCloses  int
	HedgePnL     float64
	TotalFees    float64
	TotalFunding float64
}

// Analyze computes the metrics for a run spanning the given number of days.
func Analyze(res *backtest.Result, backtestDays float64) Metrics {
	m := Metrics{
		TotalFees:    res.FinalState.TotalFees,
		TotalFunding: res.FinalState.TotalFunding,
	}

	if res.InitialCapital > 0 {
		m.ROI = (res.FinalEquity - res.InitialCapital) / res.InitialCapital * 100
	}
	if backtestDays > 0 {
		m.ROIMonthly = m.ROI / backtestDays * 30
	}

	m.MaxDrawdown = maxDrawdown(res.EquityCurve)
	m.SharpeRatio = sharpe(res.EquityCurve)

	var winTrades int
	for _, tr := range res.FinalState.Trades {
		switch tr.Type {
		case strategy.TradeGridBuy:
			m.GridBuys++
		case strategy.TradeGridSell:
			m.GridSells++
			m.GridProfit += tr.Profit
			if tr.Profit > 0 {
				winTrades++
			}
		case strategy.TradeHedgeOpen:
			m.HedgeOpens++
		case strategy.TradeHedgeCloseAll:
			m.HedgeCloses++
			m.HedgePnL += tr.NetPnL
		}
	}
	if m.GridSells > 0 {
		m.WinRate = float64(winTrades) / float64(m.GridSells) * 100
	}
	return m
}

// maxDrawdown returns the worst peak-to-trough drop in percent (negative).
func maxDrawdown(curve []backtest.EquityPoint) float64 {
	var worst, peak float64
	for i, p := range curve {
		if i == 0 || p.Equity > peak {
			peak = p.Equity
		}
		if peak == 0 {
			continue
		}
		dd := (p.Equity - peak) / peak * 100
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// sharpe annualizes the per-bar return ratio assuming hourly bars.
func sharpe(curve []backtest.EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	if len(returns) > 1 {
		variance /= float64(len(returns) - 1)
	}
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return math.Sqrt(24*365) * mean / std
}

// Report renders the human-readable summary.
func Report(res *backtest.Result, m Metrics, backtestDays float64) string {
	var b strings.Builder
	line := strings.Repeat("=", 70)

	fmt.Fprintf(&b, "%s\nGRID + HEDGE STRATEGY PERFORMANCE REPORT\n%s\n", line, line)

	fmt.Fprintf(&b, "\nCAPITAL & RETURNS\n")
	fmt.Fprintf(&b, "  Initial Capital:    $%.2f\n", res.InitialCapital)
	fmt.Fprintf(&b, "  Final Equity:       $%.2f\n", res.FinalEquity)
	fmt.Fprintf(&b, "  Net P&L:            $%.2f\n", res.FinalEquity-res.InitialCapital)
	fmt.Fprintf(&b, "  ROI (%.0f days):      %.2f%%\n", backtestDays, m.ROI)
	fmt.Fprintf(&b, "  ROI (30 days proj): %.2f%%\n", m.ROIMonthly)
	fmt.Fprintf(&b, "  Max Drawdown:       %.2f%%\n", m.MaxDrawdown)
	fmt.Fprintf(&b, "  Sharpe Ratio:       %.2f\n", m.SharpeRatio)

	fmt.Fprintf(&b, "\nPOSITIONS\n")
	fmt.Fprintf(&b, "  Spot Qty:           %.6f\n", res.FinalState.SpotQty)
	fmt.Fprintf(&b, "  Futures Short:      %.6f\n", res.FinalState.FuturesShortQty)
	fmt.Fprintf(&b, "  Futures Margin:     $%.2f\n", res.FinalState.FuturesMargin)
	fmt.Fprintf(&b, "  Cash Balance:       $%.2f\n", res.FinalState.Balance)
	fmt.Fprintf(&b, "  Center Price:       $%.2f\n", res.FinalState.CenterPrice)

	fmt.Fprintf(&b, "\nGRID TRADING\n")
	fmt.Fprintf(&b, "  Buy Orders:         %d\n", m.GridBuys)
	fmt.Fprintf(&b, "  Sell Orders:        %d\n", m.GridSells)
	fmt.Fprintf(&b, "  Win Rate:           %.1f%%\n", m.WinRate)
	fmt.Fprintf(&b, "  Grid Profit:        $%.2f\n", m.GridProfit)

	fmt.Fprintf(&b, "\nHEDGE TRADING\n")
	fmt.Fprintf(&b, "  Hedge Opens:        %d\n", m.HedgeOpens)
	fmt.Fprintf(&b, "  Hedge Closes:       %d\n", m.HedgeCloses)
	fmt.Fprintf(&b, "  Hedge P&L:          $%.2f\n", m.HedgePnL)
	fmt.Fprintf(&b, "  Active Layers:      %v\n", res.FinalState.HedgeLayers)

	fmt.Fprintf(&b, "\nCOSTS\n")
	fmt.Fprintf(&b, "  Trading Fees:       $%.2f\n", m.TotalFees)
	fmt.Fprintf(&b, "  Funding Paid:       $%.2f\n", m.TotalFunding)
	fmt.Fprintf(&b, "  Total Costs:        $%.2f\n", m.TotalFees+m.TotalFunding)
	if res.InitialCapital > 0 {
		fmt.Fprintf(&b, "  Cost %% of Capital:  %.2f%%\n", (m.TotalFees+m.TotalFunding)/res.InitialCapital*100)
	}

	if res.StopReason != backtest.StopNone {
		fmt.Fprintf(&b, "\nRUN STOPPED EARLY: %s after %d bars\n", res.StopReason, res.BarsProcessed)
	}
	b.WriteString(line + "\n")
	return b.String()
}
