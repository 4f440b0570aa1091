package market

import (
	"context"
	"testing"
	"time"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memStore) Close() error { return nil }

func TestAppendReplacesFormingBar(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	window := []Candle{{OpenTime: t0, Close: 100}}

	window = Append(window, Candle{OpenTime: t0, Close: 101}, 10)
	if len(window) != 1 || window[0].Close != 101 {
		t.Fatalf("same open time must update in place, got %+v", window)
	}

	window = Append(window, Candle{OpenTime: t0.Add(time.Hour), Close: 102}, 10)
	if len(window) != 2 {
		t.Fatalf("new open time must append, got %d entries", len(window))
	}
}

func TestAppendTrimsWindow(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var window []Candle
	for i := 0; i < 5; i++ {
		window = Append(window, Candle{OpenTime: t0.Add(time.Duration(i) * time.Hour), Close: float64(i)}, 3)
	}
	if len(window) != 3 {
		t.Fatalf("expected window of 3, got %d", len(window))
	}
	if window[0].Close != 2 {
		t.Fatalf("expected oldest entries dropped, got %+v", window)
	}
}

func TestSeriesExtraction(t *testing.T) {
	candles := []Candle{
		{Open: 1, High: 2, Low: 0.5, Close: 1.5},
		{Open: 1.5, High: 3, Low: 1, Close: 2.5},
	}
	if got := Closes(candles); got[0] != 1.5 || got[1] != 2.5 {
		t.Fatalf("closes = %v", got)
	}
	if got := Highs(candles); got[0] != 2 || got[1] != 3 {
		t.Fatalf("highs = %v", got)
	}
	if got := Lows(candles); got[0] != 0.5 || got[1] != 1 {
		t.Fatalf("lows = %v", got)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache(newMemStore())
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "BTCUSDT", "1h")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Fatalf("expected empty cache")
	}

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []Candle{
		{OpenTime: t0, Open: 100, High: 105, Low: 99, Close: 104, Volume: 12.5},
		{OpenTime: t0.Add(time.Hour), Open: 104, High: 106, Low: 103, Close: 105, Volume: 8},
	}
	if err := cache.Put(ctx, "BTCUSDT", "1h", candles); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, ok, err := cache.Get(ctx, "BTCUSDT", "1h")
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || !got[0].OpenTime.Equal(t0) || got[1].Close != 105 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if err := cache.Invalidate(ctx, "BTCUSDT", "1h"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "BTCUSDT", "1h"); ok {
		t.Fatalf("expected cache cleared")
	}
}

func TestParseKlineEvent(t *testing.T) {
	raw := []byte(`{"e":"kline","E":1700000000000,"s":"BTCUSDT","k":{` +
		`"t":1700000000000,"T":1700003599999,"s":"BTCUSDT","i":"1h",` +
		`"o":"42000.10","h":"42500.00","l":"41800.50","c":"42400.00","v":"123.45","x":true}}`)

	update, ok, err := parseKlineEvent(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected kline event")
	}
	if update.Symbol != "BTCUSDT" || !update.Closed {
		t.Fatalf("unexpected update: %+v", update)
	}
	if update.Candle.Open != 42000.10 || update.Candle.Close != 42400.00 {
		t.Fatalf("unexpected candle: %+v", update.Candle)
	}
	if !update.Candle.OpenTime.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Fatalf("unexpected open time: %v", update.Candle.OpenTime)
	}
}

func TestParseSkipsNonKlineMessages(t *testing.T) {
	_, ok, err := parseKlineEvent([]byte(`{"result":null,"id":1}`))
	if err != nil {
		t.Fatalf("ack must not be an error: %v", err)
	}
	if ok {
		t.Fatalf("ack must be skipped")
	}

	if _, _, err := parseKlineEvent([]byte(`not json`)); err == nil {
		t.Fatalf("malformed payload must error")
	}
}
