package strategy

import "time"

type TradeType string

const (
	TradeGridBuy       TradeType = "GRID_BUY"
	TradeGridSell      TradeType = "GRID_SELL"
	TradeGridRebalance TradeType = "GRID_REBALANCE"
	TradeHedgeOpen     TradeType = "HEDGE_OPEN"
	TradeHedgeCloseAll TradeType = "HEDGE_CLOSE_ALL"
)

// Trade is one entry in the audit ledger. Only the fields relevant to the
// entry's type are populated; the rest stay zero.
type Trade struct {
	Timestamp time.Time `json:"timestamp"`
	Type      TradeType `json:"type"`

	// GRID_BUY
	Level int     `json:"level,omitempty"`
	Cost  float64 `json:"cost,omitempty"`

	// GRID_SELL
	EntryPrice float64 `json:"entry_price,omitempty"`
	ExitPrice  float64 `json:"exit_price,omitempty"`
	Revenue    float64 `json:"revenue,omitempty"`
	Profit     float64 `json:"profit,omitempty"`

	// HEDGE_OPEN
	Layer       float64 `json:"layer,omitempty"`
	Leverage    float64 `json:"leverage,omitempty"`
	Margin      float64 `json:"margin,omitempty"`
	DistanceATR float64 `json:"distance_atr,omitempty"`

	// HEDGE_CLOSE_ALL
	PnL    float64 `json:"pnl,omitempty"`
	NetPnL float64 `json:"net_pnl,omitempty"`

	// GRID_REBALANCE
	OldCenter float64 `json:"old_center,omitempty"`
	NewCenter float64 `json:"new_center,omitempty"`
	Note      string  `json:"note,omitempty"`

	// Shared
	Price   float64 `json:"price,omitempty"`
	Qty     float64 `json:"qty,omitempty"`
	Fee     float64 `json:"fee,omitempty"`
	Balance float64 `json:"balance,omitempty"`
	SpotQty float64 `json:"spot_qty,omitempty"`
}
