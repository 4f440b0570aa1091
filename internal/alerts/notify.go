package alerts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"grid-hedge-bot/internal/strategy"
)

// Notifier formats bot lifecycle and trade events and delivers them over
// telegram. Delivery failures are logged, never propagated: alerting must
// not interrupt trading.
type Notifier struct {
	tg  *Telegram
	log *zap.Logger
}

func NewNotifier(tg *Telegram, log *zap.Logger) *Notifier {
	return &Notifier{tg: tg, log: log}
}

func (n *Notifier) send(ctx context.Context, message string) {
	if err := n.tg.Send(ctx, message); err != nil {
		n.log.Warn("telegram notification failed", zap.Error(err))
	}
}

func (n *Notifier) Start(ctx context.Context, symbol string, capital float64, preset string) {
	n.send(ctx, fmt.Sprintf("<b>Trading bot started</b>\nSymbol: <code>%s</code>\nCapital: <code>$%.2f</code>\nStrategy: <code>%s</code>",
		symbol, capital, preset))
}

func (n *Notifier) Stop(ctx context.Context, symbol string, startEquity, finalEquity float64, totalTrades int) {
	roi := 0.0
	if startEquity > 0 {
		roi = (finalEquity - startEquity) / startEquity * 100
	}
	n.send(ctx, fmt.Sprintf("<b>Trading bot stopped</b>\nSymbol: <code>%s</code>\nStart Equity: <code>$%.2f</code>\nFinal Equity: <code>$%.2f</code>\nROI: <code>%+.2f%%</code>\nTotal Trades: <code>%d</code>",
		symbol, startEquity, finalEquity, roi, totalTrades))
}

func (n *Notifier) Trade(ctx context.Context, symbol string, trade strategy.Trade) {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s %s</b>\n", trade.Type, symbol)
	switch trade.Type {
	case strategy.TradeGridBuy:
		fmt.Fprintf(&b, "Level: <code>%d</code>\nQuantity: <code>%.6f</code>\nPrice: <code>$%.2f</code>", trade.Level, trade.Qty, trade.Price)
	case strategy.TradeGridSell:
		fmt.Fprintf(&b, "Quantity: <code>%.6f</code>\nExit: <code>$%.2f</code>\nProfit: <code>$%+.2f</code>", trade.Qty, trade.ExitPrice, trade.Profit)
	case strategy.TradeHedgeOpen:
		fmt.Fprintf(&b, "Layer: <code>%.1f</code>\nQuantity: <code>%.6f</code>\nPrice: <code>$%.2f</code>", trade.Layer, trade.Qty, trade.Price)
	case strategy.TradeHedgeCloseAll:
		fmt.Fprintf(&b, "Quantity: <code>%.6f</code>\nExit: <code>$%.2f</code>\nNet P&amp;L: <code>$%+.2f</code>", trade.Qty, trade.ExitPrice, trade.NetPnL)
	case strategy.TradeGridRebalance:
		fmt.Fprintf(&b, "Center: <code>$%.2f -> $%.2f</code>", trade.OldCenter, trade.NewCenter)
	}
	n.send(ctx, b.String())
}

func (n *Notifier) Status(ctx context.Context, symbol string, equity, roi float64, openLots, totalTrades int) {
	n.send(ctx, fmt.Sprintf("<b>Bot status</b>\nSymbol: <code>%s</code>\nEquity: <code>$%.2f</code>\nROI: <code>%+.2f%%</code>\nOpen Lots: <code>%d</code>\nTotal Trades: <code>%d</code>",
		symbol, equity, roi, openLots, totalTrades))
}

func (n *Notifier) Error(ctx context.Context, msg string) {
	n.send(ctx, fmt.Sprintf("<b>Bot error</b>\n<code>%s</code>", msg))
}
