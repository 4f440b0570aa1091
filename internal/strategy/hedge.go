package strategy

import (
	"math"
	"time"
)

// evaluateHedge opens tiered short layers as price diverges below center and
// closes the whole short once price recovers. The trigger metric is the
// ATR-normalized distance from the grid center.
func (s *Strategy) evaluateHedge(price, atrValue float64, ts time.Time) {
	l := s.ledger
	if atrValue == 0 || l.CenterPrice == 0 {
		return
	}

	distance := math.Abs(price-l.CenterPrice) / atrValue
	equity := l.Equity(price)
	leverage := s.cfg.HedgeLeverage

	for idx, threshold := range s.cfg.HedgeATRThresholds {
		if distance <= threshold || l.hasHedgeLayer(threshold) {
			continue
		}
		// The hedge only protects against downside moves.
		if price >= l.CenterPrice {
			continue
		}

		size := s.cfg.HedgeSizes[idx]
		hedgeValue := equity * size
		qty := (hedgeValue * leverage) / price
		fee := qty * price * FuturesTaker
		marginRequired := (qty * price) / leverage

		// Cap reserved margin at 30% of free cash.
		if marginRequired >= l.Balance*0.3 {
			continue
		}

		totalQty := l.FuturesShortQty + qty
		if l.FuturesShortQty > 0 {
			l.FuturesEntryPrice = (l.FuturesEntryPrice*l.FuturesShortQty + price*qty) / totalQty
		} else {
			l.FuturesEntryPrice = price
		}
		l.FuturesShortQty = totalQty
		l.FuturesMargin += marginRequired
		l.Balance -= fee
		l.TotalFuturesFees += fee
		l.HedgeLayers = append(l.HedgeLayers, threshold)

		s.append(Trade{
			Timestamp:   ts,
			Type:        TradeHedgeOpen,
			Layer:       threshold,
			Price:       price,
			Qty:         qty,
			Leverage:    leverage,
			Margin:      marginRequired,
			Fee:         fee,
			DistanceATR: distance,
		})
	}

	if len(l.HedgeLayers) > 0 && distance < minThreshold(s.cfg.HedgeATRThresholds)-0.5 {
		s.closeHedge(price, ts)
	}
}

// closeHedge flattens the entire short at once; there is no partial close.
func (s *Strategy) closeHedge(price float64, ts time.Time) {
	l := s.ledger
	if l.FuturesShortQty <= 0 {
		return
	}

	pnl := (l.FuturesEntryPrice - price) * l.FuturesShortQty
	fee := l.FuturesShortQty * price * FuturesTaker
	netPnL := pnl - fee

	if s.cfg.HedgeCloseFeeOnce {
		l.Balance += netPnL + l.FuturesMargin
	} else {
		// Historical behavior: the fee is debited a second time on top of
		// the one already inside netPnL.
		l.Balance += netPnL + l.FuturesMargin - fee
	}
	l.TotalFuturesFees += fee

	s.append(Trade{
		Timestamp:  ts,
		Type:       TradeHedgeCloseAll,
		ExitPrice:  price,
		Qty:        l.FuturesShortQty,
		EntryPrice: l.FuturesEntryPrice,
		PnL:        pnl,
		Fee:        fee,
		NetPnL:     netPnL,
	})

	l.FuturesShortQty = 0
	l.FuturesEntryPrice = 0
	l.FuturesMargin = 0
	l.HedgeLayers = l.HedgeLayers[:0]
}

func minThreshold(thresholds []float64) float64 {
	min := thresholds[0]
	for _, t := range thresholds[1:] {
		if t < min {
			min = t
		}
	}
	return min
}
