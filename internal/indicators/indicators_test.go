package indicators

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEMASeedsWithFirstValue(t *testing.T) {
	values := []float64{10, 11, 12, 13}
	out := EMA(values, 3)
	if out[0] != 10 {
		t.Fatalf("ema[0] = %v, want first value", out[0])
	}

	// alpha = 2/(3+1) = 0.5
	want := 0.5*11 + 0.5*10
	if !almostEqual(out[1], want) {
		t.Fatalf("ema[1] = %v, want %v", out[1], want)
	}
}

func TestEMAConstantSeries(t *testing.T) {
	values := []float64{42, 42, 42, 42, 42}
	for _, v := range EMA(values, 4) {
		if v != 42 {
			t.Fatalf("ema of constant series must stay constant, got %v", v)
		}
	}
}

func TestATRWarmupIsZero(t *testing.T) {
	high := []float64{11, 12, 13, 14, 15}
	low := []float64{9, 10, 11, 12, 13}
	close := []float64{10, 11, 12, 13, 14}
	out := ATR(high, low, close, 3)

	for i := 0; i < 2; i++ {
		if out[i] != 0 {
			t.Fatalf("atr[%d] = %v, want 0 before the window fills", i, out[i])
		}
	}
	// All true ranges are 2 (high-low dominates).
	for i := 2; i < len(out); i++ {
		if !almostEqual(out[i], 2) {
			t.Fatalf("atr[%d] = %v, want 2", i, out[i])
		}
	}
}

func TestATRUsesGapToPreviousClose(t *testing.T) {
	// Second bar gaps far above the prior close: true range is
	// high - prev_close, not high - low.
	high := []float64{11, 20, 21}
	low := []float64{9, 19, 19}
	close := []float64{10, 19.5, 20}
	out := ATR(high, low, close, 2)

	tr0 := 11.0 - 9.0
	tr1 := 20.0 - 10.0
	if !almostEqual(out[1], (tr0+tr1)/2) {
		t.Fatalf("atr[1] = %v, want %v", out[1], (tr0+tr1)/2)
	}
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	out := SMA(values, 3)
	if out[0] != 0 || out[1] != 0 {
		t.Fatalf("sma warm-up must be zero, got %v %v", out[0], out[1])
	}
	if !almostEqual(out[2], 2) || !almostEqual(out[4], 4) {
		t.Fatalf("sma = %v", out)
	}
}

func TestRSIExtremes(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6, 7}
	out := RSI(up, 3)
	if out[len(out)-1] != 100 {
		t.Fatalf("monotonic gains must read 100, got %v", out[len(out)-1])
	}

	down := []float64{7, 6, 5, 4, 3, 2, 1}
	out = RSI(down, 3)
	if out[len(out)-1] != 0 {
		t.Fatalf("monotonic losses must read 0, got %v", out[len(out)-1])
	}
}

func TestMACDHistogramIsLineMinusSignal(t *testing.T) {
	values := []float64{10, 12, 11, 13, 15, 14, 16, 18, 17, 19}
	macd, signal, hist := MACD(values, 3, 6, 2)
	for i := range values {
		if !almostEqual(hist[i], macd[i]-signal[i]) {
			t.Fatalf("histogram[%d] = %v, want %v", i, hist[i], macd[i]-signal[i])
		}
	}
}

func TestEmptyInputs(t *testing.T) {
	if got := EMA(nil, 5); len(got) != 0 {
		t.Fatalf("expected empty ema, got %v", got)
	}
	if got := ATR(nil, nil, nil, 5); len(got) != 0 {
		t.Fatalf("expected empty atr, got %v", got)
	}
	if got := RSI([]float64{1}, 5); len(got) != 1 || got[0] != 0 {
		t.Fatalf("single-point rsi must be zero, got %v", got)
	}
}
