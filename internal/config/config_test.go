package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GOVW_PROVIDER_WS_URL", "ws://localhost:8546")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.App.Name != "govwallet" {
		t.Errorf("App.Name = %q, want govwallet", cfg.App.Name)
	}
	if cfg.Network.ChainID != 1115 {
		t.Errorf("Network.ChainID = %d, want 1115", cfg.Network.ChainID)
	}
	if cfg.Network.Currency.Symbol != "tCORE" {
		t.Errorf("Network.Currency.Symbol = %q, want tCORE", cfg.Network.Currency.Symbol)
	}
	if cfg.Network.SwitchPollAttempts != 10 {
		t.Errorf("SwitchPollAttempts = %d, want 10", cfg.Network.SwitchPollAttempts)
	}
	if cfg.Network.SwitchPollInterval != 500*time.Millisecond {
		t.Errorf("SwitchPollInterval = %v, want 500ms", cfg.Network.SwitchPollInterval)
	}
	if cfg.Connection.MaxAttempts != 3 {
		t.Errorf("Connection.MaxAttempts = %d, want 3", cfg.Connection.MaxAttempts)
	}
	if cfg.Connection.Cooldown != time.Minute {
		t.Errorf("Connection.Cooldown = %v, want 1m", cfg.Connection.Cooldown)
	}
	if cfg.Balance.TTL != 30*time.Second {
		t.Errorf("Balance.TTL = %v, want 30s", cfg.Balance.TTL)
	}
	if cfg.Gas.BufferPercent != 20 {
		t.Errorf("Gas.BufferPercent = %d, want 20", cfg.Gas.BufferPercent)
	}
	if cfg.Monitor.ProgressInterval != 1500*time.Millisecond {
		t.Errorf("Monitor.ProgressInterval = %v, want 1.5s", cfg.Monitor.ProgressInterval)
	}
	if cfg.Monitor.HistorySize != 100 {
		t.Errorf("Monitor.HistorySize = %d, want 100", cfg.Monitor.HistorySize)
	}
	if cfg.Monitor.ReplaceMultiplierBps != 12000 {
		t.Errorf("Monitor.ReplaceMultiplierBps = %d, want 12000", cfg.Monitor.ReplaceMultiplierBps)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GOVW_PROVIDER_WS_URL", "ws://localhost:8546")
	t.Setenv("GOVW_CHAIN_ID", "1")
	t.Setenv("GOVW_CHAIN_NAME", "Ethereum Mainnet")
	t.Setenv("GOVW_CONNECT_MAX_ATTEMPTS", "5")
	t.Setenv("GOVW_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Network.ChainID != 1 {
		t.Errorf("Network.ChainID = %d, want 1", cfg.Network.ChainID)
	}
	if cfg.Network.Name != "Ethereum Mainnet" {
		t.Errorf("Network.Name = %q, want Ethereum Mainnet", cfg.Network.Name)
	}
	if cfg.Connection.MaxAttempts != 5 {
		t.Errorf("Connection.MaxAttempts = %d, want 5", cfg.Connection.MaxAttempts)
	}
	if cfg.App.LogLevel != "debug" {
		t.Errorf("App.LogLevel = %q, want debug", cfg.App.LogLevel)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
provider:
  websocket_url: ws://localhost:8546
network:
  chain_id: 1116
  name: Core Blockchain Mainnet
  rpc_url: https://rpc.coredao.org
governance:
  contract_address: "0x52908400098527886E0F7030069857D2E4169EE7"
monitor:
  timeout: 90s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Network.ChainID != 1116 {
		t.Errorf("Network.ChainID = %d, want 1116", cfg.Network.ChainID)
	}
	if cfg.Monitor.Timeout != 90*time.Second {
		t.Errorf("Monitor.Timeout = %v, want 90s", cfg.Monitor.Timeout)
	}
	want := "0x52908400098527886E0F7030069857D2E4169EE7"
	if got := cfg.Governance.ContractAddressHex().Hex(); got != want {
		t.Errorf("ContractAddressHex() = %s, want %s", got, want)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Provider: ProviderConfig{WebSocketURL: "ws://localhost:8546"},
			Network: NetworkConfig{
				ChainID:            1115,
				RPCURL:             "https://rpc.test.btcs.network",
				SwitchPollAttempts: 10,
			},
			Connection: ConnectionConfig{MaxAttempts: 3, Cooldown: time.Minute},
			Monitor:    MonitorConfig{HistorySize: 100, ReplaceMultiplierBps: 12000},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no provider endpoint", func(c *Config) { c.Provider.WebSocketURL = "" }, true},
		{"http fallback ok", func(c *Config) {
			c.Provider.WebSocketURL = ""
			c.Provider.HTTPURL = "http://localhost:8545"
		}, false},
		{"zero chain id", func(c *Config) { c.Network.ChainID = 0 }, true},
		{"missing rpc url", func(c *Config) { c.Network.RPCURL = "" }, true},
		{"zero poll attempts", func(c *Config) { c.Network.SwitchPollAttempts = 0 }, true},
		{"zero max attempts", func(c *Config) { c.Connection.MaxAttempts = 0 }, true},
		{"negative gas buffer", func(c *Config) { c.Gas.BufferPercent = -1 }, true},
		{"zero history size", func(c *Config) { c.Monitor.HistorySize = 0 }, true},
		{"multiplier at parity", func(c *Config) { c.Monitor.ReplaceMultiplierBps = 10000 }, true},
		{"bad governance address", func(c *Config) { c.Governance.ContractAddress = "not-an-address" }, true},
		{"good governance address", func(c *Config) {
			c.Governance.ContractAddress = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTelemetryConfig_OTLPHeaderMap(t *testing.T) {
	cfg := TelemetryConfig{OTLPHeaders: "x-api-key=secret, team = core ,malformed"}

	got := cfg.OTLPHeaderMap()
	if len(got) != 2 {
		t.Fatalf("OTLPHeaderMap() returned %d entries, want 2", len(got))
	}
	if got["x-api-key"] != "secret" {
		t.Errorf("x-api-key = %q, want secret", got["x-api-key"])
	}
	if got["team"] != "core" {
		t.Errorf("team = %q, want core", got["team"])
	}

	if n := len((&TelemetryConfig{}).OTLPHeaderMap()); n != 0 {
		t.Errorf("empty header list produced %d entries", n)
	}
}

func TestGasConfig_MaxGasPriceWei(t *testing.T) {
	cfg := GasConfig{MaxGasPriceGwei: 0}
	if got := cfg.MaxGasPriceWei(); got != nil {
		t.Errorf("MaxGasPriceWei() with no ceiling = %v, want nil", got)
	}

	cfg = GasConfig{MaxGasPriceGwei: 100}
	want := new(big.Int).Mul(big.NewInt(100), big.NewInt(1_000_000_000))
	if got := cfg.MaxGasPriceWei(); got.Cmp(want) != 0 {
		t.Errorf("MaxGasPriceWei() = %s, want %s", got, want)
	}

	cfg = GasConfig{MaxGasPriceGwei: 1.5}
	want = big.NewInt(1_500_000_000)
	if got := cfg.MaxGasPriceWei(); got.Cmp(want) != 0 {
		t.Errorf("MaxGasPriceWei() = %s, want %s", got, want)
	}
}
