package timescale

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"grid-hedge-bot/internal/config"
)

func TestDisabledWriterIsNil(t *testing.T) {
	w, err := New(config.TimescaleConfig{Enabled: false}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != nil {
		t.Fatalf("expected nil writer when disabled")
	}
}

func TestEnabledWriterRequiresDSN(t *testing.T) {
	if _, err := New(config.TimescaleConfig{Enabled: true}, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing dsn")
	}
}

func TestNilWriterMethodsAreSafe(t *testing.T) {
	var w *Writer
	w.Start(context.Background())
	w.EnqueueEquity(EquityPoint{})
	w.EnqueueTrade(TradeRow{})
	if err := w.Close(); err != nil {
		t.Fatalf("close on nil writer: %v", err)
	}
}
