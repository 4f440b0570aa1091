package config

import (
	"os"
	"path/filepath"
	"testing"
)

func baseConfig() *Config {
	return &Config{}
}

func TestDefaultsUseAdaptivePreset(t *testing.T) {
	cfg := baseConfig()
	if err := applyDefaults(cfg); err != nil {
		t.Fatalf("applyDefaults: %v", err)
	}
	if cfg.Strategy.Preset != "adaptive" {
		t.Fatalf("expected adaptive preset, got %q", cfg.Strategy.Preset)
	}
	if cfg.Strategy.GridLevels != 16 {
		t.Fatalf("expected 16 grid levels, got %d", cfg.Strategy.GridLevels)
	}
	if cfg.Strategy.InitialCapital != 10_000 {
		t.Fatalf("expected 10000 initial capital, got %v", cfg.Strategy.InitialCapital)
	}
	if len(cfg.Strategy.HedgeATRThresholds) != 3 {
		t.Fatalf("expected 3 hedge tiers, got %d", len(cfg.Strategy.HedgeATRThresholds))
	}
	if err := validate(cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestPresetOverride(t *testing.T) {
	cfg := &Config{Strategy: StrategyConfig{Preset: "aggressive", GridLevels: 7}}
	if err := applyDefaults(cfg); err != nil {
		t.Fatalf("applyDefaults: %v", err)
	}
	if cfg.Strategy.GridLevels != 7 {
		t.Fatalf("explicit grid_levels should win over preset, got %d", cfg.Strategy.GridLevels)
	}
	if cfg.Strategy.HedgeLeverage != 3 {
		t.Fatalf("expected aggressive leverage 3, got %v", cfg.Strategy.HedgeLeverage)
	}
}

func TestUnknownPresetRejected(t *testing.T) {
	cfg := &Config{Strategy: StrategyConfig{Preset: "yolo"}}
	if err := applyDefaults(cfg); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
}

func TestValidateRejectsMismatchedHedgeTiers(t *testing.T) {
	cfg := baseConfig()
	if err := applyDefaults(cfg); err != nil {
		t.Fatalf("applyDefaults: %v", err)
	}
	cfg.Strategy.HedgeSizes = []float64{0.1}
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for mismatched hedge tier lengths")
	}
}

func TestValidateRejectsOutOfRangeRisk(t *testing.T) {
	cfg := baseConfig()
	if err := applyDefaults(cfg); err != nil {
		t.Fatalf("applyDefaults: %v", err)
	}
	cfg.Risk.MaxDrawdown = 1.5
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for max_drawdown >= 1")
	}
}

func TestValidateRejectsTelegramWithoutCredentials(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	cfg := baseConfig()
	cfg.Telegram.Enabled = true
	if err := applyDefaults(cfg); err != nil {
		t.Fatalf("applyDefaults: %v", err)
	}
	applyEnvOverrides(cfg)
	if err := validate(cfg); err == nil {
		t.Fatalf("expected error for telegram without token/chat_id")
	}
}

func TestEnvOverridesExchangeKeys(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "env-key")
	t.Setenv("BINANCE_API_SECRET", "env-secret")
	cfg := baseConfig()
	cfg.Exchange.APIKey = "file-key"
	if err := applyDefaults(cfg); err != nil {
		t.Fatalf("applyDefaults: %v", err)
	}
	applyEnvOverrides(cfg)
	if cfg.Exchange.APIKey != "env-key" {
		t.Fatalf("expected env api key override, got %q", cfg.Exchange.APIKey)
	}
	if cfg.Exchange.APISecret != "env-secret" {
		t.Fatalf("expected env api secret override, got %q", cfg.Exchange.APISecret)
	}
}

func TestTestnetBaseURLs(t *testing.T) {
	cfg := &Config{Exchange: ExchangeConfig{Testnet: true}}
	if err := applyDefaults(cfg); err != nil {
		t.Fatalf("applyDefaults: %v", err)
	}
	if cfg.Exchange.BaseURL != "https://testnet.binance.vision" {
		t.Fatalf("expected testnet base url, got %q", cfg.Exchange.BaseURL)
	}
	if cfg.Exchange.WSURL != "wss://testnet.binance.vision/ws" {
		t.Fatalf("expected testnet ws url, got %q", cfg.Exchange.WSURL)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
strategy:
  preset: conservative
  initial_capital: 5000
live:
  symbol: ETHUSDT
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Strategy.InitialCapital != 5000 {
		t.Fatalf("expected initial capital 5000, got %v", cfg.Strategy.InitialCapital)
	}
	if cfg.Strategy.GridStep != 0.025 {
		t.Fatalf("expected conservative grid step, got %v", cfg.Strategy.GridStep)
	}
	if cfg.Live.Symbol != "ETHUSDT" {
		t.Fatalf("expected symbol ETHUSDT, got %q", cfg.Live.Symbol)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	data := []byte("TEST_GRIDBOT_KEY=abc\n# comment\nTEST_GRIDBOT_QUOTED='q v'\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("TEST_GRIDBOT_KEY", "")
	_ = os.Unsetenv("TEST_GRIDBOT_KEY")
	_ = os.Unsetenv("TEST_GRIDBOT_QUOTED")
	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("TEST_GRIDBOT_KEY"); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	if got := os.Getenv("TEST_GRIDBOT_QUOTED"); got != "q v" {
		t.Fatalf("expected quoted value, got %q", got)
	}
}
