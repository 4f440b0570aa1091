package strategy

import "time"

// Lot is one open spot purchase. Lots close in full, never partially.
type Lot struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

// Ledger is the single mutable aggregate behind a strategy run: cash, spot
// lots, the short hedge, grid bookkeeping, and the trade history. It is owned
// exclusively by one Strategy and carries no locking; a multi-goroutine host
// must serialize access itself.
type Ledger struct {
	Balance        float64
	InitialBalance float64

	SpotQty          float64
	SpotEntries      []Lot
	GridLevelsBought map[int]bool

	FuturesShortQty   float64
	FuturesEntryPrice float64
	FuturesMargin     float64
	HedgeLayers       []float64

	Trades           []Trade
	TotalSpotFees    float64
	TotalFuturesFees float64
	TotalFundingPaid float64
	LastFundingTime  time.Time

	CenterPrice    float64
	GridUpperBound float64
	GridLowerBound float64
}

func NewLedger(balance float64) *Ledger {
	return &Ledger{
		Balance:          balance,
		InitialBalance:   balance,
		GridLevelsBought: make(map[int]bool),
	}
}

// Equity marks the whole account to the given price: cash plus spot value
// plus unrealized hedge PnL, minus the margin reserved for the short. Margin
// is never deducted from Balance when a layer opens, so this subtraction is
// the only place it affects reported equity.
func (l *Ledger) Equity(price float64) float64 {
	spotValue := l.SpotQty * price
	futuresPnL := 0.0
	if l.FuturesShortQty > 0 {
		futuresPnL = (l.FuturesEntryPrice - price) * l.FuturesShortQty
	}
	return l.Balance + spotValue + futuresPnL - l.FuturesMargin
}

// UnrealizedPnL reports the spot and futures unrealized PnL separately.
func (l *Ledger) UnrealizedPnL(price float64) (spotPnL, futuresPnL float64) {
	for _, lot := range l.SpotEntries {
		spotPnL += (price - lot.Price) * lot.Qty
	}
	if l.FuturesShortQty > 0 {
		futuresPnL = (l.FuturesEntryPrice - price) * l.FuturesShortQty
	}
	return spotPnL, futuresPnL
}

func (l *Ledger) hasHedgeLayer(threshold float64) bool {
	for _, open := range l.HedgeLayers {
		if open == threshold {
			return true
		}
	}
	return false
}

// Snapshot is a read-only view of the ledger for reporting. Slices are
// copied so callers cannot mutate live state.
type Snapshot struct {
	Balance           float64   `json:"balance"`
	InitialBalance    float64   `json:"initial_balance"`
	SpotQty           float64   `json:"spot_qty"`
	OpenLots          int       `json:"open_lots"`
	FuturesShortQty   float64   `json:"futures_short_qty"`
	FuturesEntryPrice float64   `json:"futures_entry_price"`
	FuturesMargin     float64   `json:"futures_margin"`
	HedgeLayers       []float64 `json:"hedge_layers"`
	Trades            []Trade   `json:"trades"`
	TotalFees         float64   `json:"total_fees"`
	TotalSpotFees     float64   `json:"total_spot_fees"`
	TotalFuturesFees  float64   `json:"total_futures_fees"`
	TotalFunding      float64   `json:"total_funding"`
	CenterPrice       float64   `json:"center_price"`
}

func (l *Ledger) snapshot() Snapshot {
	return Snapshot{
		Balance:           l.Balance,
		InitialBalance:    l.InitialBalance,
		SpotQty:           l.SpotQty,
		OpenLots:          len(l.SpotEntries),
		FuturesShortQty:   l.FuturesShortQty,
		FuturesEntryPrice: l.FuturesEntryPrice,
		FuturesMargin:     l.FuturesMargin,
		HedgeLayers:       append([]float64(nil), l.HedgeLayers...),
		Trades:            append([]Trade(nil), l.Trades...),
		TotalFees:         l.TotalSpotFees + l.TotalFuturesFees,
		TotalSpotFees:     l.TotalSpotFees,
		TotalFuturesFees:  l.TotalFuturesFees,
		TotalFunding:      l.TotalFundingPaid,
		CenterPrice:       l.CenterPrice,
	}
}
