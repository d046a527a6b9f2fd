// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Provider   ProviderConfig   `mapstructure:"provider"`
	Network    NetworkConfig    `mapstructure:"network"`
	Connection ConnectionConfig `mapstructure:"connection"`
	Balance    BalanceConfig    `mapstructure:"balance"`
	Gas        GasConfig        `mapstructure:"gas"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Governance GovernanceConfig `mapstructure:"governance"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ProviderConfig holds the wallet provider endpoint configuration.
type ProviderConfig struct {
	WebSocketURL   string        `mapstructure:"websocket_url"`
	HTTPURL        string        `mapstructure:"http_url"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimitRPM   int           `mapstructure:"rate_limit_rpm"`
}

// NetworkConfig describes the chain the client targets. When the wallet
// reports a different chain, the network service switches to this one,
// registering it with the wallet first if the wallet does not know it.
type NetworkConfig struct {
	ChainID     uint64         `mapstructure:"chain_id"`
	Name        string         `mapstructure:"name"`
	RPCURL      string         `mapstructure:"rpc_url"`
	ExplorerURL string         `mapstructure:"explorer_url"`
	Currency    CurrencyConfig `mapstructure:"currency"`

	SwitchPollAttempts int           `mapstructure:"switch_poll_attempts"`
	SwitchPollInterval time.Duration `mapstructure:"switch_poll_interval"`
}

// CurrencyConfig describes the native currency of the target chain.
type CurrencyConfig struct {
	Name     string `mapstructure:"name"`
	Symbol   string `mapstructure:"symbol"`
	Decimals uint8  `mapstructure:"decimals"`
}

// ConnectionConfig bounds the wallet connection retry budget.
type ConnectionConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
}

// BalanceConfig controls balance caching.
type BalanceConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// GasConfig holds gas estimation settings.
type GasConfig struct {
	BufferPercent   int64         `mapstructure:"buffer_percent"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	MaxGasPriceGwei float64       `mapstructure:"max_gas_price_gwei"`
}

// MaxGasPriceWei returns the gas price ceiling in wei. Zero means no ceiling.
func (c *GasConfig) MaxGasPriceWei() *big.Int {
	if c.MaxGasPriceGwei <= 0 {
		return nil
	}
	gwei := decimal.NewFromFloat(c.MaxGasPriceGwei)
	return gwei.Mul(decimal.New(1, 9)).BigInt()
}

// MonitorConfig holds transaction monitoring settings.
type MonitorConfig struct {
	Confirmations        uint64        `mapstructure:"confirmations"`
	Timeout              time.Duration `mapstructure:"timeout"`
	ProgressInterval     time.Duration `mapstructure:"progress_interval"`
	HistorySize          int           `mapstructure:"history_size"`
	ReplaceMultiplierBps int64         `mapstructure:"replace_multiplier_bps"`
}

// GovernanceConfig holds the governance contract address.
type GovernanceConfig struct {
	ContractAddress string `mapstructure:"contract_address"`
}

// ContractAddressHex returns the governance contract address as common.Address.
func (c *GovernanceConfig) ContractAddressHex() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// OTLPHeaderMap parses the comma-separated key=value header list used
// by OTLP exporters. Malformed pairs are skipped.
func (t *TelemetryConfig) OTLPHeaderMap() map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(t.OTLPHeaders, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return headers
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("GOVW")
	v.AutomaticEnv()

	// Bind env vars to config keys
	bindEnvVars(v)

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "GOVW_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "GOVW_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "GOVW_LOG_LEVEL", "LOG_LEVEL")

	// Provider
	v.BindEnv("provider.websocket_url", "GOVW_PROVIDER_WS_URL", "PROVIDER_WS_URL")
	v.BindEnv("provider.http_url", "GOVW_PROVIDER_HTTP_URL", "PROVIDER_HTTP_URL")
	v.BindEnv("provider.rate_limit_rpm", "GOVW_PROVIDER_RATE_LIMIT_RPM")

	// Network
	v.BindEnv("network.chain_id", "GOVW_CHAIN_ID", "CHAIN_ID")
	v.BindEnv("network.name", "GOVW_CHAIN_NAME", "CHAIN_NAME")
	v.BindEnv("network.rpc_url", "GOVW_CHAIN_RPC_URL", "CHAIN_RPC_URL")
	v.BindEnv("network.explorer_url", "GOVW_CHAIN_EXPLORER_URL")

	// Connection
	v.BindEnv("connection.max_attempts", "GOVW_CONNECT_MAX_ATTEMPTS")
	v.BindEnv("connection.cooldown", "GOVW_CONNECT_COOLDOWN")

	// Governance
	v.BindEnv("governance.contract_address", "GOVW_GOVERNANCE_CONTRACT", "GOVERNANCE_CONTRACT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "GOVW_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "GOVW_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "GOVW_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "govwallet")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Provider defaults
	v.SetDefault("provider.max_reconnects", 0) // infinite
	v.SetDefault("provider.initial_backoff", "1s")
	v.SetDefault("provider.max_backoff", "30s")
	v.SetDefault("provider.request_timeout", "30s")
	v.SetDefault("provider.rate_limit_rpm", 600)

	// Network defaults: Core blockchain testnet
	v.SetDefault("network.chain_id", 1115)
	v.SetDefault("network.name", "Core Blockchain Testnet")
	v.SetDefault("network.rpc_url", "https://rpc.test.btcs.network")
	v.SetDefault("network.explorer_url", "https://scan.test.btcs.network")
	v.SetDefault("network.currency.name", "Core")
	v.SetDefault("network.currency.symbol", "tCORE")
	v.SetDefault("network.currency.decimals", 18)
	v.SetDefault("network.switch_poll_attempts", 10)
	v.SetDefault("network.switch_poll_interval", "500ms")

	// Connection defaults
	v.SetDefault("connection.max_attempts", 3)
	v.SetDefault("connection.cooldown", "60s")

	// Balance defaults
	v.SetDefault("balance.ttl", "30s")

	// Gas defaults
	v.SetDefault("gas.buffer_percent", 20)
	v.SetDefault("gas.cache_ttl", "15s")
	v.SetDefault("gas.max_gas_price_gwei", 0) // no ceiling

	// Monitor defaults
	v.SetDefault("monitor.confirmations", 1)
	v.SetDefault("monitor.timeout", "120s")
	v.SetDefault("monitor.progress_interval", "1500ms")
	v.SetDefault("monitor.history_size", 100)
	v.SetDefault("monitor.replace_multiplier_bps", 12000) // 1.2x

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "govwallet")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Provider.WebSocketURL == "" && c.Provider.HTTPURL == "" {
		return fmt.Errorf("provider.websocket_url or provider.http_url is required")
	}
	if c.Network.ChainID == 0 {
		return fmt.Errorf("network.chain_id is required")
	}
	if c.Network.RPCURL == "" {
		return fmt.Errorf("network.rpc_url is required")
	}
	if c.Network.SwitchPollAttempts <= 0 {
		return fmt.Errorf("network.switch_poll_attempts must be positive")
	}
	if c.Connection.MaxAttempts <= 0 {
		return fmt.Errorf("connection.max_attempts must be positive")
	}
	if c.Gas.BufferPercent < 0 {
		return fmt.Errorf("gas.buffer_percent cannot be negative")
	}
	if c.Monitor.HistorySize <= 0 {
		return fmt.Errorf("monitor.history_size must be positive")
	}
	if c.Monitor.ReplaceMultiplierBps <= 10000 {
		return fmt.Errorf("monitor.replace_multiplier_bps must exceed 10000")
	}
	if c.Governance.ContractAddress != "" && !common.IsHexAddress(c.Governance.ContractAddress) {
		return fmt.Errorf("invalid governance.contract_address: %s", c.Governance.ContractAddress)
	}
	return nil
}
