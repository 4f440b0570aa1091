package exec

import (
	"context"
	"strconv"

	"grid-hedge-bot/internal/binance"
)

// BinanceBroker adapts the spot REST client to the Broker interface.
type BinanceBroker struct {
	client *binance.Client
}

func NewBinanceBroker(client *binance.Client) *BinanceBroker {
	return &BinanceBroker{client: client}
}

func (b *BinanceBroker) PlaceOrder(ctx context.Context, order Order) (string, error) {
	var res *binance.OrderResult
	var err error
	if order.LimitPrice > 0 {
		res, err = b.client.LimitOrder(ctx, order.Symbol, string(order.Side), order.Qty, order.LimitPrice, order.ClientOrderID)
	} else {
		res, err = b.client.MarketOrder(ctx, order.Symbol, string(order.Side), order.Qty, order.ClientOrderID)
	}
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(res.OrderID, 10), nil
}

func (b *BinanceBroker) CancelOrder(ctx context.Context, symbol, orderID string) error {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return err
	}
	return b.client.CancelOrder(ctx, symbol, id)
}
