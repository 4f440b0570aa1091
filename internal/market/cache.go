package market

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"grid-hedge-bot/internal/state"
)

// Cache persists candle windows in the local store so a restart does not
// have to re-download history before the indicator warm-up completes.
type Cache struct {
	store state.Store
}

func NewCache(store state.Store) *Cache {
	return &Cache{store: store}
}

func cacheKey(symbol, interval string) string {
	return "candles/" + symbol + "/" + interval
}

func (c *Cache) Put(ctx context.Context, symbol, interval string, candles []Candle) error {
	data, err := msgpack.Marshal(candles)
	if err != nil {
		return fmt.Errorf("encode candles: %w", err)
	}
	return c.store.Set(ctx, cacheKey(symbol, interval), data)
}

func (c *Cache) Get(ctx context.Context, symbol, interval string) ([]Candle, bool, error) {
	data, ok, err := c.store.Get(ctx, cacheKey(symbol, interval))
	if err != nil || !ok {
		return nil, false, err
	}
	var candles []Candle
	if err := msgpack.Unmarshal(data, &candles); err != nil {
		return nil, false, fmt.Errorf("decode candles: %w", err)
	}
	return candles, true, nil
}

func (c *Cache) Invalidate(ctx context.Context, symbol, interval string) error {
	return c.store.Delete(ctx, cacheKey(symbol, interval))
}
