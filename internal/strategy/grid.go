package strategy

import (
	"math"
	"time"
)

// initializeGrid centers the grid and recomputes its bounds. Called on the
// first bar and on every rebalance.
func (s *Strategy) initializeGrid(center float64) {
	step := s.cfg.GridStep
	levels := float64(s.cfg.GridLevels)

	s.ledger.CenterPrice = center
	s.ledger.GridLowerBound = center * (1 - step*levels/2)
	s.ledger.GridUpperBound = center * (1 + step*levels/2)
}

func (s *Strategy) shouldRebalance(price float64) bool {
	distance := math.Abs(price-s.ledger.CenterPrice) / s.ledger.CenterPrice
	return distance > s.cfg.RebalanceThreshold
}

// rebalanceGrid re-centers the grid without touching open lots. All grid
// levels become eligible again even though existing lots stay open at their
// original entry prices.
func (s *Strategy) rebalanceGrid(newCenter float64, ts time.Time) {
	oldCenter := s.ledger.CenterPrice
	s.initializeGrid(newCenter)
	s.ledger.GridLevelsBought = make(map[int]bool)

	s.append(Trade{
		Timestamp: ts,
		Type:      TradeGridRebalance,
		OldCenter: oldCenter,
		NewCenter: newCenter,
		SpotQty:   s.ledger.SpotQty,
		Note:      "grid rebalanced without closing positions",
	})
}

// gridBuy scans levels closest-to-center first and fills at most one per bar.
// A level whose total cost exceeds the balance is skipped without being
// marked, so scanning continues to the next level down.
func (s *Strategy) gridBuy(price float64, ts time.Time) bool {
	l := s.ledger
	for i := 1; i <= s.cfg.GridLevels; i++ {
		buyPrice := l.CenterPrice * (1 - float64(i)*s.cfg.GridStep)
		if l.GridLevelsBought[i] || price > buyPrice || l.Balance <= 0 {
			continue
		}

		riskCash := l.Balance * s.cfg.GridRiskPerOrder
		qty := riskCash / price
		fee := qty * price * SpotTakerFee
		totalCost := qty*price + fee
		if totalCost > l.Balance {
			continue
		}

		l.SpotQty += qty
		l.Balance -= totalCost
		l.SpotEntries = append(l.SpotEntries, Lot{Price: price, Qty: qty})
		l.GridLevelsBought[i] = true
		l.TotalSpotFees += fee

		s.append(Trade{
			Timestamp: ts,
			Type:      TradeGridBuy,
			Level:     i,
			Price:     price,
			Qty:       qty,
			Cost:      qty * price,
			Fee:       fee,
			Balance:   l.Balance,
		})
		return true
	}
	return false
}

// gridSell closes every lot whose take-profit price is reached. Unlike buys,
// multiple lots may close in the same bar. The originating grid level stays
// blocked until the next rebalance.
func (s *Strategy) gridSell(price float64, ts time.Time) bool {
	l := s.ledger
	sold := false

	kept := l.SpotEntries[:0]
	for _, lot := range l.SpotEntries {
		if price < lot.Price*(1+s.cfg.GridTakeProfit) {
			kept = append(kept, lot)
			continue
		}

		revenue := lot.Qty * price
		fee := revenue * SpotTakerFee
		netRevenue := revenue - fee
		profit := netRevenue - lot.Qty*lot.Price

		l.Balance += netRevenue
		l.SpotQty -= lot.Qty
		l.TotalSpotFees += fee

		s.append(Trade{
			Timestamp:  ts,
			Type:       TradeGridSell,
			EntryPrice: lot.Price,
			ExitPrice:  price,
			Qty:        lot.Qty,
			Revenue:    revenue,
			Fee:        fee,
			Profit:     profit,
			Balance:    l.Balance,
		})
		sold = true
	}
	l.SpotEntries = kept
	return sold
}
