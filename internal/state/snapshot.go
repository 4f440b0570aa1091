package state

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"grid-hedge-bot/internal/strategy"
)

func snapshotKey(symbol string) string {
	return "run_snapshot/" + symbol
}

// SaveSnapshot persists the latest ledger snapshot for a symbol so a
// restarted host can report the last known state.
func SaveSnapshot(ctx context.Context, store Store, symbol string, snap strategy.Snapshot) error {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return store.Set(ctx, snapshotKey(symbol), data)
}

// LoadSnapshot returns the stored snapshot for a symbol, if any.
func LoadSnapshot(ctx context.Context, store Store, symbol string) (strategy.Snapshot, bool, error) {
	data, ok, err := store.Get(ctx, snapshotKey(symbol))
	if err != nil || !ok {
		return strategy.Snapshot{}, false, err
	}
	var snap strategy.Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return strategy.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}
