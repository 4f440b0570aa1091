package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheusCountersAndGauges(t *testing.T) {
	prom := NewPrometheus()
	prom.Metrics.GridBuys.Inc()
	prom.Metrics.GridBuys.Inc()
	prom.Metrics.GridSells.Inc()
	prom.Metrics.HedgeOpens.Inc()
	prom.Metrics.Rebalances.Inc()
	prom.Metrics.Equity.Set(10_500.25)
	prom.Metrics.SpotQty.Set(0.75)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	prom.Handler().ServeHTTP(rec, req)
	body := rec.Body.String()

	for _, want := range []string{
		"grid_hedge_bot_grid_buys_total 2",
		"grid_hedge_bot_grid_sells_total 1",
		"grid_hedge_bot_hedge_opens_total 1",
		"grid_hedge_bot_rebalances_total 1",
		"grid_hedge_bot_equity 10500.25",
		"grid_hedge_bot_spot_qty 0.75",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestNoopMetricsAreSafe(t *testing.T) {
	m := NewNoop()
	m.GridBuys.Inc()
	m.Equity.Set(1)
	m.SpotQty.Set(2)
}
