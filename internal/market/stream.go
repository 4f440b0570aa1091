package market

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"grid-hedge-bot/internal/config"
)

// Stream consumes Binance kline events over websocket and delivers each
// update as a Candle. The Closed flag marks bar-final events.
type Stream struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	subs   []string
	nextID int
}

// KlineUpdate is one kline event. Closed reports whether the bar is final.
type KlineUpdate struct {
	Symbol string
	Candle Candle
	Closed bool
}

func NewStream(cfg config.ExchangeConfig, log *zap.Logger) *Stream {
	return &Stream{
		url:            cfg.WSURL,
		reconnectDelay: cfg.ReconnectDelay,
		pingInterval:   cfg.PingInterval,
		log:            log,
	}
}

func (s *Stream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(1 << 20)
	s.conn = conn
	return nil
}

// SubscribeKlines registers a kline stream for the symbol and interval. The
// subscription is replayed after every reconnect.
func (s *Stream) SubscribeKlines(ctx context.Context, symbol, interval string) error {
	stream := strings.ToLower(symbol) + "@kline_" + interval
	s.mu.Lock()
	s.subs = append(s.subs, stream)
	conn := s.conn
	s.nextID++
	id := s.nextID
	s.mu.Unlock()
	if conn == nil {
		return errors.New("ws not connected")
	}
	return writeJSON(ctx, conn, subscribeMessage{Method: "SUBSCRIBE", Params: []string{stream}, ID: id})
}

// Run reads events until the context is canceled, reconnecting and replaying
// subscriptions on read failures.
func (s *Stream) Run(ctx context.Context, handler func(KlineUpdate)) error {
	for {
		if err := s.ensureConnected(ctx); err != nil {
			return err
		}
		pingCtx, cancel := context.WithCancel(ctx)
		pingDone := make(chan struct{})
		go func() {
			defer close(pingDone)
			s.pingLoop(pingCtx)
		}()
		err := s.readLoop(ctx, handler)
		cancel()
		<-pingDone
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logReadLoopError(err)
			s.resetConn()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.reconnectDelay):
			}
			continue
		}
	}
}

func (s *Stream) ensureConnected(ctx context.Context) error {
	if err := s.Connect(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	conn := s.conn
	subs := append([]string(nil), s.subs...)
	s.nextID++
	id := s.nextID
	s.mu.Unlock()
	if len(subs) == 0 {
		return nil
	}
	return writeJSON(ctx, conn, subscribeMessage{Method: "SUBSCRIBE", Params: subs, ID: id})
}

func (s *Stream) readLoop(ctx context.Context, handler func(KlineUpdate)) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return errors.New("ws not connected")
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		update, ok, err := parseKlineEvent(data)
		if err != nil {
			if s.log != nil {
				s.log.Warn("ws kline parse failed", zap.Error(err))
			}
			continue
		}
		if ok && handler != nil {
			handler(update)
		}
	}
}

func (s *Stream) pingLoop(ctx context.Context) {
	s.mu.Lock()
	conn := s.conn
	interval := s.pingInterval
	s.mu.Unlock()
	if conn == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}

func (s *Stream) logReadLoopError(err error) {
	if s.log == nil {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		s.log.Info("ws read loop ended", zap.Error(err))
		return
	}
	s.log.Warn("ws read loop ended", zap.Error(err))
}

func (s *Stream) resetConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close(websocket.StatusNormalClosure, "reset")
		s.conn = nil
	}
}

type subscribeMessage struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

type klineEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Kline     struct {
		OpenTime  int64  `json:"t"`
		CloseTime int64  `json:"T"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Volume    string `json:"v"`
		Final     bool   `json:"x"`
	} `json:"k"`
}

// parseKlineEvent decodes a raw ws message. Non-kline messages (subscription
// acks, other events) are skipped, not errors.
func parseKlineEvent(data []byte) (KlineUpdate, bool, error) {
	var ev klineEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return KlineUpdate{}, false, err
	}
	if ev.EventType != "kline" {
		return KlineUpdate{}, false, nil
	}

	candle := Candle{OpenTime: time.UnixMilli(ev.Kline.OpenTime).UTC()}
	fields := []struct {
		dst *float64
		src string
	}{
		{&candle.Open, ev.Kline.Open},
		{&candle.High, ev.Kline.High},
		{&candle.Low, ev.Kline.Low},
		{&candle.Close, ev.Kline.Close},
		{&candle.Volume, ev.Kline.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return KlineUpdate{}, false, err
		}
		*f.dst = v
	}
	return KlineUpdate{Symbol: ev.Symbol, Candle: candle, Closed: ev.Kline.Final}, true, nil
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
