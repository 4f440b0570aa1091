package metrics

type Counter interface {
	Inc()
}

type Gauge interface {
	Set(v float64)
}

type Metrics struct {
	GridBuys        Counter
	GridSells       Counter
	HedgeOpens      Counter
	HedgeCloses     Counter
	Rebalances      Counter
	FundingPayments Counter
	OrdersPlaced    Counter
	OrdersFailed    Counter
	Equity          Gauge
	SpotQty         Gauge
}

type noopCounter struct{}

func (noopCounter) Inc() {}

type noopGauge struct{}

func (noopGauge) Set(float64) {}

func NewNoop() *Metrics {
	n := noopCounter{}
	g := noopGauge{}
	return &Metrics{
		GridBuys:        n,
		GridSells:       n,
		HedgeOpens:      n,
		HedgeCloses:     n,
		Rebalances:      n,
		FundingPayments: n,
		OrdersPlaced:    n,
		OrdersFailed:    n,
		Equity:          g,
		SpotQty:         g,
	}
}
