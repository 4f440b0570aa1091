package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	State     StateConfig     `yaml:"state"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Risk      RiskConfig      `yaml:"risk"`
	Live      LiveConfig      `yaml:"live"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Timescale TimescaleConfig `yaml:"timescale"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ExchangeConfig struct {
	BaseURL        string        `yaml:"base_url"`
	WSURL          string        `yaml:"ws_url"`
	Timeout        time.Duration `yaml:"timeout"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	Testnet        bool          `yaml:"testnet"`
	APIKey         string        `yaml:"api_key"`
	APISecret      string        `yaml:"api_secret"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// StrategyConfig is the full parameter set of the grid + hedge engine.
// Zero fields are filled from the named preset (default "adaptive"), so a
// config file only needs to override what it cares about.
type StrategyConfig struct {
	Preset             string    `yaml:"preset"`
	InitialCapital     float64   `yaml:"initial_capital"`
	GridLevels         int       `yaml:"grid_levels"`
	GridStep           float64   `yaml:"grid_step"`
	GridTakeProfit     float64   `yaml:"grid_take_profit"`
	GridRiskPerOrder   float64   `yaml:"grid_risk_per_order"`
	RebalanceThreshold float64   `yaml:"rebalance_threshold"`
	HedgeATRThresholds []float64 `yaml:"hedge_atr_thresholds"`
	HedgeSizes         []float64 `yaml:"hedge_sizes"`
	HedgeLeverage      float64   `yaml:"hedge_leverage"`
	HedgeCloseFeeOnce  bool      `yaml:"hedge_close_fee_once"`
	EMAPeriod          int       `yaml:"ema_period"`
	ATRPeriod          int       `yaml:"atr_period"`
}

// RiskConfig holds the stop conditions evaluated by the driver, not the
// strategy core.
type RiskConfig struct {
	MaxDrawdown         float64 `yaml:"max_drawdown"`
	MarginCallThreshold float64 `yaml:"margin_call_threshold"`
}

type LiveConfig struct {
	Symbol         string        `yaml:"symbol"`
	CandleInterval string        `yaml:"candle_interval"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	HistoryDays    int           `yaml:"history_days"`
	MaxHistory     int           `yaml:"max_history"`
	StatusInterval time.Duration `yaml:"status_interval"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) error {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Exchange.BaseURL == "" {
		if cfg.Exchange.Testnet {
			cfg.Exchange.BaseURL = "https://testnet.binance.vision"
		} else {
			cfg.Exchange.BaseURL = "https://api.binance.com"
		}
	}
	if cfg.Exchange.WSURL == "" {
		if cfg.Exchange.Testnet {
			cfg.Exchange.WSURL = "wss://testnet.binance.vision/ws"
		} else {
			cfg.Exchange.WSURL = "wss://stream.binance.com:9443/ws"
		}
	}
	if cfg.Exchange.Timeout == 0 {
		cfg.Exchange.Timeout = 10 * time.Second
	}
	if cfg.Exchange.ReconnectDelay == 0 {
		cfg.Exchange.ReconnectDelay = 3 * time.Second
	}
	if cfg.Exchange.PingInterval == 0 {
		cfg.Exchange.PingInterval = 30 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/grid-hedge-bot.db"
	}
	if err := applyStrategyPreset(&cfg.Strategy); err != nil {
		return err
	}
	if cfg.Risk.MaxDrawdown == 0 {
		cfg.Risk.MaxDrawdown = 0.29
	}
	if cfg.Risk.MarginCallThreshold == 0 {
		cfg.Risk.MarginCallThreshold = 0.35
	}
	if cfg.Live.Symbol == "" {
		cfg.Live.Symbol = "BTCUSDT"
	}
	if cfg.Live.CandleInterval == "" {
		cfg.Live.CandleInterval = "1h"
	}
	if cfg.Live.PollInterval == 0 {
		cfg.Live.PollInterval = time.Minute
	}
	if cfg.Live.HistoryDays == 0 {
		cfg.Live.HistoryDays = 7
	}
	if cfg.Live.MaxHistory == 0 {
		cfg.Live.MaxHistory = 200
	}
	if cfg.Live.StatusInterval == 0 {
		cfg.Live.StatusInterval = time.Hour
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = "127.0.0.1:9001"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Timescale.Schema == "" {
		cfg.Timescale.Schema = "public"
	}
	if cfg.Timescale.QueueSize == 0 {
		cfg.Timescale.QueueSize = 256
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("BINANCE_API_KEY")); v != "" {
		cfg.Exchange.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("BINANCE_API_SECRET")); v != "" {
		cfg.Exchange.APISecret = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")); v != "" {
		cfg.Telegram.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		cfg.Telegram.ChatID = v
	}
}

func validate(cfg *Config) error {
	if err := validateStrategy(&cfg.Strategy); err != nil {
		return err
	}
	if cfg.Risk.MaxDrawdown <= 0 || cfg.Risk.MaxDrawdown >= 1 {
		return errors.New("risk.max_drawdown must be in (0, 1)")
	}
	if cfg.Risk.MarginCallThreshold <= 0 || cfg.Risk.MarginCallThreshold >= 1 {
		return errors.New("risk.margin_call_threshold must be in (0, 1)")
	}
	if cfg.Live.Symbol == "" {
		return errors.New("live.symbol is required")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if cfg.Telegram.Enabled && (cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	if cfg.Timescale.Enabled && strings.TrimSpace(cfg.Timescale.DSN) == "" {
		return errors.New("timescale.dsn is required when timescale is enabled")
	}
	return nil
}

func validateStrategy(s *StrategyConfig) error {
	if s.InitialCapital <= 0 {
		return errors.New("strategy.initial_capital must be > 0")
	}
	if s.GridLevels <= 0 {
		return errors.New("strategy.grid_levels must be > 0")
	}
	if s.GridStep <= 0 {
		return errors.New("strategy.grid_step must be > 0")
	}
	if s.GridTakeProfit <= 0 {
		return errors.New("strategy.grid_take_profit must be > 0")
	}
	if s.GridRiskPerOrder <= 0 || s.GridRiskPerOrder > 1 {
		return errors.New("strategy.grid_risk_per_order must be in (0, 1]")
	}
	if s.RebalanceThreshold <= 0 {
		return errors.New("strategy.rebalance_threshold must be > 0")
	}
	if len(s.HedgeATRThresholds) == 0 {
		return errors.New("strategy.hedge_atr_thresholds must not be empty")
	}
	if len(s.HedgeATRThresholds) != len(s.HedgeSizes) {
		return fmt.Errorf("strategy.hedge_atr_thresholds and strategy.hedge_sizes must have equal length: %d != %d",
			len(s.HedgeATRThresholds), len(s.HedgeSizes))
	}
	for i, size := range s.HedgeSizes {
		if size <= 0 || size >= 1 {
			return fmt.Errorf("strategy.hedge_sizes[%d] must be in (0, 1)", i)
		}
	}
	if s.HedgeLeverage < 1 {
		return errors.New("strategy.hedge_leverage must be >= 1")
	}
	if s.EMAPeriod <= 0 {
		return errors.New("strategy.ema_period must be > 0")
	}
	if s.ATRPeriod <= 0 {
		return errors.New("strategy.atr_period must be > 0")
	}
	return nil
}
