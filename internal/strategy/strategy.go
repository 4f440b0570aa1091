// Package strategy implements the spot-grid + futures-hedge state machine.
// One call to Execute per price bar mutates the owned ledger and appends
// audit entries; everything else reads derived views of that ledger.
package strategy

import (
	"time"

	"grid-hedge-bot/internal/config"
)

type Strategy struct {
	cfg    config.StrategyConfig
	ledger *Ledger
}

func New(cfg config.StrategyConfig) *Strategy {
	return &Strategy{
		cfg:    cfg,
		ledger: NewLedger(cfg.InitialCapital),
	}
}

// Execute advances the state machine by one bar. Phase order matters:
// funding precedes hedge sizing (it affects equity) and a rebalance precedes
// grid decisions (fresh geometry). The returned slice holds the ledger
// entries appended during this bar, oldest first, for hosts that translate
// them into real orders.
func (s *Strategy) Execute(price, emaValue, atrValue float64, ts time.Time) []Trade {
	if s.ledger.CenterPrice == 0 {
		s.initializeGrid(emaValue)
	}

	before := len(s.ledger.Trades)

	s.applyFunding(ts, price)
	if s.shouldRebalance(price) {
		s.rebalanceGrid(emaValue, ts)
	}
	s.gridBuy(price, ts)
	s.gridSell(price, ts)
	s.evaluateHedge(price, atrValue, ts)

	return append([]Trade(nil), s.ledger.Trades[before:]...)
}

// Snapshot returns a read-only copy of the current ledger state.
func (s *Strategy) Snapshot() Snapshot {
	return s.ledger.snapshot()
}

// Equity marks the account to the given price.
func (s *Strategy) Equity(price float64) float64 {
	return s.ledger.Equity(price)
}

// UnrealizedPnL reports open spot and futures PnL at the given price.
func (s *Strategy) UnrealizedPnL(price float64) (spotPnL, futuresPnL float64) {
	return s.ledger.UnrealizedPnL(price)
}

func (s *Strategy) append(t Trade) {
	s.ledger.Trades = append(s.ledger.Trades, t)
}
