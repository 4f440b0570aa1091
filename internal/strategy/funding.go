package strategy

import "time"

// applyFunding debits the short position once the funding interval has
// elapsed between bar timestamps. The timer is driven by data cadence, not
// wall-clock time, and only advances when a charge is actually taken.
func (s *Strategy) applyFunding(ts time.Time, price float64) {
	l := s.ledger
	if l.LastFundingTime.IsZero() {
		l.LastFundingTime = ts
		return
	}

	if ts.Sub(l.LastFundingTime) < FundingPeriod {
		return
	}
	if l.FuturesShortQty <= 0 {
		return
	}

	positionValue := l.FuturesShortQty * price
	funding := positionValue * FundingRate

	// Shorts pay funding under the base-rate assumption.
	l.Balance -= funding
	l.TotalFundingPaid += funding
	l.LastFundingTime = ts
}
