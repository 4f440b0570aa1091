// Package app hosts the live trading loop: it keeps a rolling candle window
// fed by the kline stream, advances the strategy on every closed bar, and
// turns the resulting ledger entries into exchange orders, alerts, metrics,
// and persisted state.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"grid-hedge-bot/internal/alerts"
	"grid-hedge-bot/internal/binance"
	"grid-hedge-bot/internal/config"
	"grid-hedge-bot/internal/exec"
	"grid-hedge-bot/internal/indicators"
	"grid-hedge-bot/internal/market"
	"grid-hedge-bot/internal/metrics"
	"grid-hedge-bot/internal/state"
	"grid-hedge-bot/internal/state/sqlite"
	"grid-hedge-bot/internal/strategy"
	"grid-hedge-bot/internal/timescale"
)

type App struct {
	cfg *config.Config
	log *zap.Logger

	client   *binance.Client
	executor *exec.Executor
	store    *sqlite.Store
	cache    *market.Cache
	stream   *market.Stream
	notifier *alerts.Notifier
	metrics  *metrics.Metrics
	prom     *metrics.Prometheus
	writer   *timescale.Writer

	strat  *strategy.Strategy
	window []market.Candle

	peakEquity  float64
	fundingPaid float64
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	client := binance.New(cfg.Exchange, log)

	m := metrics.NewNoop()
	var prom *metrics.Prometheus
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	}

	writer, err := timescale.New(cfg.Timescale, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open timescale writer: %w", err)
	}

	return &App{
		cfg:        cfg,
		log:        log,
		client:     client,
		executor:   exec.New(exec.NewBinanceBroker(client), store, log),
		store:      store,
		cache:      market.NewCache(store),
		stream:     market.NewStream(cfg.Exchange, log),
		notifier:   alerts.NewNotifier(alerts.NewTelegram(cfg.Telegram, log), log),
		metrics:    m,
		prom:       prom,
		writer:     writer,
		strat:      strategy.New(cfg.Strategy),
		peakEquity: cfg.Strategy.InitialCapital,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.close()

	if err := a.loadHistory(ctx); err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if a.prom != nil {
		a.serveMetrics(ctx)
	}
	a.writer.Start(ctx)

	symbol := a.cfg.Live.Symbol
	a.notifier.Start(ctx, symbol, a.cfg.Strategy.InitialCapital, a.cfg.Strategy.Preset)
	a.log.Info("live loop starting",
		zap.String("symbol", symbol),
		zap.String("interval", a.cfg.Live.CandleInterval),
		zap.Int("history_bars", len(a.window)))

	updates := make(chan market.KlineUpdate, 16)
	streamErr := make(chan error, 1)
	go func() {
		if err := a.stream.Connect(ctx); err != nil {
			streamErr <- err
			return
		}
		if err := a.stream.SubscribeKlines(ctx, symbol, a.cfg.Live.CandleInterval); err != nil {
			streamErr <- err
			return
		}
		streamErr <- a.stream.Run(ctx, func(u market.KlineUpdate) {
			select {
			case updates <- u:
			case <-ctx.Done():
			}
		})
	}()

	statusTicker := time.NewTicker(a.cfg.Live.StatusInterval)
	defer statusTicker.Stop()
	pollTicker := time.NewTicker(a.cfg.Live.PollInterval)
	defer pollTicker.Stop()

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		case err := <-streamErr:
			if errors.Is(err, context.Canceled) {
				runErr = err
				break loop
			}
			runErr = fmt.Errorf("kline stream: %w", err)
			break loop
		case u := <-updates:
			if u.Symbol != symbol {
				continue
			}
			if !u.Closed {
				a.markPrice(u.Candle.Close)
				continue
			}
			if err := a.onClosedBar(ctx, u.Candle); err != nil {
				runErr = err
				break loop
			}
		case <-pollTicker.C:
			price, err := a.client.TickerPrice(ctx, symbol)
			if err != nil {
				a.log.Warn("ticker poll failed", zap.Error(err))
				continue
			}
			a.markPrice(price)
		case <-statusTicker.C:
			a.sendStatus(ctx)
		}
	}

	a.notifyStop(symbol)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		a.notifier.Error(context.Background(), runErr.Error())
	}
	return runErr
}

// loadHistory seeds the candle window from the local cache, topping up from
// the REST API when the cache is cold or stale.
func (a *App) loadHistory(ctx context.Context) error {
	symbol := a.cfg.Live.Symbol
	interval := a.cfg.Live.CandleInterval

	cached, ok, err := a.cache.Get(ctx, symbol, interval)
	if err != nil {
		a.log.Warn("candle cache read failed", zap.Error(err))
	} else if ok && len(cached) >= a.cfg.Strategy.EMAPeriod {
		a.window = cached
		a.log.Info("candle window restored from cache", zap.Int("bars", len(cached)))
		return nil
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -a.cfg.Live.HistoryDays)
	candles, err := a.client.Klines(ctx, symbol, interval, start, end)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		return errors.New("no historical candles returned")
	}
	if len(candles) > a.cfg.Live.MaxHistory {
		candles = candles[len(candles)-a.cfg.Live.MaxHistory:]
	}
	a.window = candles
	if err := a.cache.Put(ctx, symbol, interval, a.window); err != nil {
		a.log.Warn("candle cache write failed", zap.Error(err))
	}
	a.log.Info("historical candles downloaded", zap.Int("bars", len(candles)))
	return nil
}

// onClosedBar advances the strategy by one bar and fans the resulting ledger
// entries out to orders, alerts, metrics, and storage.
func (a *App) onClosedBar(ctx context.Context, candle market.Candle) error {
	symbol := a.cfg.Live.Symbol
	a.window = market.Append(a.window, candle, a.cfg.Live.MaxHistory)
	if err := a.cache.Put(ctx, symbol, a.cfg.Live.CandleInterval, a.window); err != nil {
		a.log.Warn("candle cache write failed", zap.Error(err))
	}

	closes := market.Closes(a.window)
	idx := len(closes) - 1
	emaValue := indicators.EMA(closes, a.cfg.Strategy.EMAPeriod)[idx]
	atrValue := indicators.ATR(market.Highs(a.window), market.Lows(a.window), closes, a.cfg.Strategy.ATRPeriod)[idx]

	intents := a.strat.Execute(candle.Close, emaValue, atrValue, candle.OpenTime)
	for _, trade := range intents {
		a.handleIntent(ctx, trade)
	}

	snap := a.strat.Snapshot()
	equity := a.strat.Equity(candle.Close)
	a.metrics.Equity.Set(equity)
	a.metrics.SpotQty.Set(snap.SpotQty)
	// Funding debits do not produce ledger entries, so track the running total.
	if snap.TotalFunding > a.fundingPaid {
		a.metrics.FundingPayments.Inc()
		a.fundingPaid = snap.TotalFunding
	}

	if err := state.SaveSnapshot(ctx, a.store, symbol, snap); err != nil {
		a.log.Warn("snapshot persist failed", zap.Error(err))
	}
	a.writer.EnqueueEquity(timescale.EquityPoint{
		Time:          candle.OpenTime,
		Symbol:        symbol,
		Price:         candle.Close,
		Equity:        equity,
		Balance:       snap.Balance,
		SpotQty:       snap.SpotQty,
		FuturesQty:    snap.FuturesShortQty,
		FuturesMargin: snap.FuturesMargin,
		TotalFees:     snap.TotalFees,
		FundingPaid:   snap.TotalFunding,
		CenterPrice:   snap.CenterPrice,
	})

	a.log.Info("bar processed",
		zap.Time("bar", candle.OpenTime),
		zap.Float64("price", candle.Close),
		zap.Float64("equity", equity),
		zap.Int("intents", len(intents)))

	return a.checkRiskLimits(ctx, equity)
}

// handleIntent mirrors one ledger entry to the exchange and side channels.
// Grid entries become real spot orders; hedge entries are surfaced through
// alerts and metrics only, since the live host trades the spot leg.
func (a *App) handleIntent(ctx context.Context, trade strategy.Trade) {
	symbol := a.cfg.Live.Symbol

	switch trade.Type {
	case strategy.TradeGridBuy:
		a.metrics.GridBuys.Inc()
		a.placeOrder(ctx, exec.Order{
			Symbol:        symbol,
			Side:          exec.Buy,
			Qty:           trade.Qty,
			ClientOrderID: fmt.Sprintf("gb-%d-%d", trade.Level, trade.Timestamp.UnixMilli()),
		})
	case strategy.TradeGridSell:
		a.metrics.GridSells.Inc()
		a.placeOrder(ctx, exec.Order{
			Symbol:        symbol,
			Side:          exec.Sell,
			Qty:           trade.Qty,
			ClientOrderID: fmt.Sprintf("gs-%d", trade.Timestamp.UnixMilli()),
		})
	case strategy.TradeHedgeOpen:
		a.metrics.HedgeOpens.Inc()
	case strategy.TradeHedgeCloseAll:
		a.metrics.HedgeCloses.Inc()
	case strategy.TradeGridRebalance:
		a.metrics.Rebalances.Inc()
	}

	if err := a.store.AppendTrade(ctx, trade); err != nil {
		a.log.Warn("trade audit write failed", zap.Error(err))
	}
	a.writer.EnqueueTrade(timescale.TradeRow{Symbol: symbol, Trade: trade})
	a.notifier.Trade(ctx, symbol, trade)
}

func (a *App) placeOrder(ctx context.Context, order exec.Order) {
	orderID, err := a.executor.PlaceOrder(ctx, order)
	if err != nil {
		a.metrics.OrdersFailed.Inc()
		a.log.Error("order placement failed",
			zap.String("side", string(order.Side)),
			zap.Float64("qty", order.Qty),
			zap.Error(err))
		a.notifier.Error(ctx, fmt.Sprintf("order failed: %v", err))
		return
	}
	a.metrics.OrdersPlaced.Inc()
	a.log.Info("order placed",
		zap.String("order_id", orderID),
		zap.String("side", string(order.Side)),
		zap.Float64("qty", order.Qty))
}

// markPrice refreshes the equity gauge between closed bars.
func (a *App) markPrice(price float64) {
	a.metrics.Equity.Set(a.strat.Equity(price))
}

func (a *App) checkRiskLimits(ctx context.Context, equity float64) error {
	if equity > a.peakEquity {
		a.peakEquity = equity
	}
	drawdown := (equity - a.peakEquity) / a.peakEquity
	if drawdown < -a.cfg.Risk.MaxDrawdown {
		msg := fmt.Sprintf("max drawdown breached: %.2f%%", drawdown*100)
		a.notifier.Error(ctx, msg)
		return errors.New(msg)
	}
	if equity < a.cfg.Strategy.InitialCapital*a.cfg.Risk.MarginCallThreshold {
		msg := fmt.Sprintf("margin call threshold breached: equity %.2f", equity)
		a.notifier.Error(ctx, msg)
		return errors.New(msg)
	}
	return nil
}

func (a *App) sendStatus(ctx context.Context) {
	if len(a.window) == 0 {
		return
	}
	price := a.window[len(a.window)-1].Close
	snap := a.strat.Snapshot()
	equity := a.strat.Equity(price)
	roi := 0.0
	if snap.InitialBalance > 0 {
		roi = (equity - snap.InitialBalance) / snap.InitialBalance * 100
	}
	a.notifier.Status(ctx, a.cfg.Live.Symbol, equity, roi, snap.OpenLots, len(snap.Trades))
	a.log.Info("status",
		zap.Float64("equity", equity),
		zap.Float64("roi_pct", roi),
		zap.Int("open_lots", snap.OpenLots))
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, a.prom.Handler())
	srv := &http.Server{Addr: a.cfg.Metrics.Address, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func (a *App) notifyStop(symbol string) {
	if len(a.window) == 0 {
		return
	}
	price := a.window[len(a.window)-1].Close
	snap := a.strat.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.notifier.Stop(ctx, symbol, snap.InitialBalance, a.strat.Equity(price), len(snap.Trades))
}

func (a *App) close() {
	if err := a.writer.Close(); err != nil {
		a.log.Warn("timescale close failed", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("state store close failed", zap.Error(err))
	}
}
