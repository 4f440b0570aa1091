// Package binance is a minimal spot REST client covering the endpoints the
// bot needs: market data, account balances, and order management.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"grid-hedge-bot/internal/config"
	"grid-hedge-bot/internal/market"
)

type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	log       *zap.Logger

	// now is swappable for deterministic request signing in tests.
	now func() time.Time
}

func New(cfg config.ExchangeConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
		now: time.Now,
	}
}

const klinesMaxLimit = 1000

// Klines downloads candles in [start, end), paging through the API limit
// until the range is covered.
func (c *Client) Klines(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Candle, error) {
	var out []market.Candle
	cursor := start
	for cursor.Before(end) {
		params := url.Values{}
		params.Set("symbol", symbol)
		params.Set("interval", interval)
		params.Set("startTime", strconv.FormatInt(cursor.UnixMilli(), 10))
		params.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
		params.Set("limit", strconv.Itoa(klinesMaxLimit))

		var rows [][]json.RawMessage
		if err := c.get(ctx, "/api/v3/klines", params, false, &rows); err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			candle, err := parseKlineRow(row)
			if err != nil {
				return nil, err
			}
			out = append(out, candle)
		}
		last := out[len(out)-1].OpenTime
		next := last.Add(time.Millisecond)
		if !next.After(cursor) {
			break
		}
		cursor = next
		if len(rows) < klinesMaxLimit {
			break
		}
	}
	return out, nil
}

// TickerPrice returns the latest trade price for a symbol.
func (c *Client) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var resp struct {
		Price string `json:"price"`
	}
	if err := c.get(ctx, "/api/v3/ticker/price", params, false, &resp); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(resp.Price, 64)
}

// Balance is one asset balance from the account endpoint.
type Balance struct {
	Asset  string
	Free   float64
	Locked float64
}

// Balances returns the non-zero balances of the account.
func (c *Client) Balances(ctx context.Context) ([]Balance, error) {
	var resp struct {
		Balances []struct {
			Asset  string `json:"asset"`
			Free   string `json:"free"`
			Locked string `json:"locked"`
		} `json:"balances"`
	}
	if err := c.get(ctx, "/api/v3/account", url.Values{}, true, &resp); err != nil {
		return nil, err
	}
	var out []Balance
	for _, b := range resp.Balances {
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil {
			return nil, fmt.Errorf("parse balance %s: %w", b.Asset, err)
		}
		locked, err := strconv.ParseFloat(b.Locked, 64)
		if err != nil {
			return nil, fmt.Errorf("parse balance %s: %w", b.Asset, err)
		}
		if free == 0 && locked == 0 {
			continue
		}
		out = append(out, Balance{Asset: b.Asset, Free: free, Locked: locked})
	}
	return out, nil
}

// OrderResult is the subset of the order response the executor consumes.
type OrderResult struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Status        string `json:"status"`
	ExecutedQty   string `json:"executedQty"`
}

// MarketOrder submits a market order. Side is BUY or SELL.
func (c *Client) MarketOrder(ctx context.Context, symbol, side string, qty float64, clientOrderID string) (*OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(qty, 'f', -1, 64))
	if clientOrderID != "" {
		params.Set("newClientOrderId", clientOrderID)
	}
	var resp OrderResult
	if err := c.post(ctx, "/api/v3/order", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LimitOrder submits a GTC limit order.
func (c *Client) LimitOrder(ctx context.Context, symbol, side string, qty, price float64, clientOrderID string) (*OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("quantity", strconv.FormatFloat(qty, 'f', -1, 64))
	params.Set("price", strconv.FormatFloat(price, 'f', -1, 64))
	if clientOrderID != "" {
		params.Set("newClientOrderId", clientOrderID)
	}
	var resp OrderResult
	if err := c.post(ctx, "/api/v3/order", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelOrder cancels an open order by exchange order id.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))
	return c.request(ctx, http.MethodDelete, "/api/v3/order", params, true, nil)
}

// OpenOrders lists the open orders for a symbol.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var resp []OrderResult
	if err := c.get(ctx, "/api/v3/openOrders", params, true, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, signed bool, out any) error {
	return c.request(ctx, http.MethodGet, path, params, signed, out)
}

func (c *Client) post(ctx context.Context, path string, params url.Values, out any) error {
	return c.request(ctx, http.MethodPost, path, params, true, out)
}

func (c *Client) request(ctx context.Context, method, path string, params url.Values, signed bool, out any) error {
	if signed {
		params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	}
	query := params.Encode()
	if signed {
		query += "&signature=" + sign(c.apiSecret, query)
	}
	reqURL := c.baseURL + path
	if query != "" {
		reqURL += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return err
	}
	if signed || c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// parseKlineRow decodes one kline array row: open time, then OHLCV as
// strings.
func parseKlineRow(row []json.RawMessage) (market.Candle, error) {
	if len(row) < 6 {
		return market.Candle{}, fmt.Errorf("kline row has %d fields", len(row))
	}
	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return market.Candle{}, err
	}
	candle := market.Candle{OpenTime: time.UnixMilli(openTime).UTC()}
	for i, dst := range []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume} {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return market.Candle{}, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Candle{}, err
		}
		*dst = v
	}
	return candle, nil
}
