package strategy

import "time"

// Binance fee schedule. Spot fills are modeled as taker on both sides; the
// hedge leg uses the futures taker rate. Funding accrues per 8h interval on
// the open short notional.
const (
	SpotMakerFee  = 0.001
	SpotTakerFee  = 0.001
	FuturesMaker  = 0.0002
	FuturesTaker  = 0.0005
	FundingRate   = 0.0001
	FundingPeriod = 8 * time.Hour
)
