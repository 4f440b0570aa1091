package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "grid_hedge_bot"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type promGauge struct {
	gauge prometheus.Gauge
}

func (p promGauge) Set(v float64) {
	p.gauge.Set(v)
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()

	newCounter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(c)
		return c
	}
	newGauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(g)
		return g
	}

	m := &Metrics{
		GridBuys:        promCounter{newCounter("grid_buys_total", "Total number of grid buy fills.")},
		GridSells:       promCounter{newCounter("grid_sells_total", "Total number of grid take-profit closes.")},
		HedgeOpens:      promCounter{newCounter("hedge_opens_total", "Total number of hedge layers opened.")},
		HedgeCloses:     promCounter{newCounter("hedge_closes_total", "Total number of full hedge closes.")},
		Rebalances:      promCounter{newCounter("rebalances_total", "Total number of grid rebalances.")},
		FundingPayments: promCounter{newCounter("funding_payments_total", "Total number of funding charges.")},
		OrdersPlaced:    promCounter{newCounter("orders_placed_total", "Total number of exchange orders placed.")},
		OrdersFailed:    promCounter{newCounter("orders_failed_total", "Total number of order placement failures.")},
		Equity:          promGauge{newGauge("equity", "Current marked-to-market equity.")},
		SpotQty:         promGauge{newGauge("spot_qty", "Current spot position quantity.")},
	}

	return &Prometheus{
		Metrics:  m,
		registry: registry,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
