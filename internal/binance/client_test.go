package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"grid-hedge-bot/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(config.ExchangeConfig{
		BaseURL:   srv.URL,
		Timeout:   5 * time.Second,
		APIKey:    "test-key",
		APISecret: "test-secret",
	}, zap.NewNop())
	c.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return c
}

func TestKlinesParsesRows(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %q", got)
		}
		fmt.Fprint(w, `[
			[1700000000000,"42000.0","42500.0","41800.0","42400.0","10.5",1700003599999,"0",1,"0","0","0"],
			[1700003600000,"42400.0","42600.0","42100.0","42200.0","8.2",1700007199999,"0",1,"0","0","0"]
		]`)
	})

	start := time.UnixMilli(1700000000000)
	candles, err := c.Klines(context.Background(), "BTCUSDT", "1h", start, start.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("klines failed: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if candles[0].Open != 42000 || candles[0].Close != 42400 {
		t.Fatalf("unexpected first candle: %+v", candles[0])
	}
	if !candles[1].OpenTime.Equal(time.UnixMilli(1700003600000).UTC()) {
		t.Fatalf("unexpected open time: %v", candles[1].OpenTime)
	}
}

func TestTickerPrice(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"symbol":"BTCUSDT","price":"42123.45"}`)
	})
	price, err := c.TickerPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("ticker failed: %v", err)
	}
	if price != 42123.45 {
		t.Fatalf("price = %v", price)
	}
}

func TestSignedRequestCarriesSignatureAndKey(t *testing.T) {
	var gotQuery, gotKey string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-MBX-APIKEY")
		fmt.Fprint(w, `{"balances":[]}`)
	})

	if _, err := c.Balances(context.Background()); err != nil {
		t.Fatalf("balances failed: %v", err)
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if !strings.Contains(gotQuery, "timestamp=1700000000000") {
		t.Fatalf("missing timestamp in %q", gotQuery)
	}

	idx := strings.Index(gotQuery, "&signature=")
	if idx < 0 {
		t.Fatalf("missing signature in %q", gotQuery)
	}
	payload := gotQuery[:idx]
	wantSig := sign("test-secret", payload)
	if got := gotQuery[idx+len("&signature="):]; got != wantSig {
		t.Fatalf("signature = %q, want %q", got, wantSig)
	}
}

func TestBalancesSkipsZeroEntries(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"balances":[
			{"asset":"BTC","free":"0.5","locked":"0.1"},
			{"asset":"DUST","free":"0","locked":"0"},
			{"asset":"USDT","free":"1000","locked":"0"}
		]}`)
	})
	balances, err := c.Balances(context.Background())
	if err != nil {
		t.Fatalf("balances failed: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %+v", balances)
	}
	if balances[0].Asset != "BTC" || balances[0].Free != 0.5 || balances[0].Locked != 0.1 {
		t.Fatalf("unexpected balance: %+v", balances[0])
	}
}

func TestMarketOrderSendsParams(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		q := r.URL.Query()
		if q.Get("type") != "MARKET" || q.Get("side") != "BUY" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("quantity") != "0.25" {
			t.Errorf("quantity = %q", q.Get("quantity"))
		}
		if q.Get("newClientOrderId") != "cloid-1" {
			t.Errorf("client order id = %q", q.Get("newClientOrderId"))
		}
		fmt.Fprint(w, `{"orderId":42,"clientOrderId":"cloid-1","status":"FILLED","executedQty":"0.25"}`)
	})

	res, err := c.MarketOrder(context.Background(), "BTCUSDT", "BUY", 0.25, "cloid-1")
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}
	if res.OrderID != 42 || res.Status != "FILLED" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestErrorIncludesBodySnippet(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":-1013,"msg":"Invalid quantity."}`)
	})
	_, err := c.TickerPrice(context.Background(), "BTCUSDT")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "-1013") {
		t.Fatalf("error should carry body snippet, got %v", err)
	}
}
