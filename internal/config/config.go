// Package config loads analyzer settings from the environment and an optional .env file
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Liquidity and holder data sources
const (
	LiquiditySourceCoinGecko   = "coingecko"
	LiquiditySourceDexScreener = "dexscreener"

	HolderSourceExplorer = "explorer"
	HolderSourceHoneypot = "honeypot"
)

const (
	DefaultEtherscanBaseURL   = "https://api.etherscan.io/v2/api"
	DefaultAdvisoryBaseURL    = "https://api.openai.com/v1"
	DefaultAdvisoryModel      = "gpt-4o-mini"
	DefaultCoinGeckoBaseURL   = "https://api.coingecko.com/api/v3"
	DefaultDexScreenerBaseURL = "https://api.dexscreener.com/latest/dex/tokens"
	DefaultHoneypotBaseURL    = "https://api.honeypot.is"
	DefaultEthereumRPCURL     = "https://eth.llamarpc.com"
	DefaultPolygonRPCURL      = "https://polygon-rpc.com"
	DefaultBSCRPCURL          = "https://bsc-dataseed.binance.org"
	DefaultNetwork            = "ethereum"
	DefaultPort               = "8080"
	DefaultEnv                = "development"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"

	DefaultFetchTimeout        = 10 * time.Second
	DefaultAdvisoryTimeout     = 30 * time.Second
	DefaultTransactionPageSize = 100
	DefaultHolderPageSize      = 10
	DefaultBreakerThreshold    = 5
	DefaultBreakerOpenDuration = 30 * time.Second

	maxPageSize = 10_000
)

// Config holds all analyzer configuration
type Config struct {
	// Block explorer
	EtherscanAPIKey  string
	EtherscanBaseURL string

	// Advisory service (OpenAI-compatible). Empty key disables the call.
	AdvisoryAPIKey  string
	AdvisoryBaseURL string
	AdvisoryModel   string

	// Market data
	CoinGeckoBaseURL   string
	DexScreenerBaseURL string
	HoneypotBaseURL    string
	LiquiditySource    string
	HolderSource       string

	// RPC endpoints by network name
	RPCURLs        map[string]string
	DefaultNetwork string

	// Fetch behavior
	FetchTimeout        time.Duration
	AdvisoryTimeout     time.Duration
	TransactionPageSize int
	HolderPageSize      int
	BreakerThreshold    int
	BreakerOpenDuration time.Duration

	// Server
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Optional infrastructure, disabled when empty
	DatabaseURL  string
	NATSURL      string
	OTLPEndpoint string
}

// Load reads configuration from environment variables, loading .env if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from the current environment without validating it
func FromEnv() *Config {
	return &Config{
		EtherscanAPIKey:  os.Getenv("ETHERSCAN_API_KEY"),
		EtherscanBaseURL: getEnv("ETHERSCAN_BASE_URL", DefaultEtherscanBaseURL),

		AdvisoryAPIKey:  os.Getenv("OPENAI_API_KEY"),
		AdvisoryBaseURL: getEnv("ADVISORY_BASE_URL", DefaultAdvisoryBaseURL),
		AdvisoryModel:   getEnv("ADVISORY_MODEL", DefaultAdvisoryModel),

		CoinGeckoBaseURL:   getEnv("COINGECKO_BASE_URL", DefaultCoinGeckoBaseURL),
		DexScreenerBaseURL: getEnv("DEXSCREENER_BASE_URL", DefaultDexScreenerBaseURL),
		HoneypotBaseURL:    getEnv("HONEYPOT_BASE_URL", DefaultHoneypotBaseURL),
		LiquiditySource:    strings.ToLower(getEnv("LIQUIDITY_SOURCE", LiquiditySourceCoinGecko)),
		HolderSource:       strings.ToLower(getEnv("HOLDER_SOURCE", HolderSourceExplorer)),

		RPCURLs: map[string]string{
			"ethereum": getEnv("ETHEREUM_RPC_URL", DefaultEthereumRPCURL),
			"polygon":  getEnv("POLYGON_RPC_URL", DefaultPolygonRPCURL),
			"bsc":      getEnv("BSC_RPC_URL", DefaultBSCRPCURL),
		},
		DefaultNetwork: strings.ToLower(getEnv("DEFAULT_NETWORK", DefaultNetwork)),

		FetchTimeout:        getEnvDuration("FETCH_TIMEOUT", DefaultFetchTimeout),
		AdvisoryTimeout:     getEnvDuration("ADVISORY_TIMEOUT", DefaultAdvisoryTimeout),
		TransactionPageSize: getEnvInt("TRANSACTION_PAGE_SIZE", DefaultTransactionPageSize),
		HolderPageSize:      getEnvInt("HOLDER_PAGE_SIZE", DefaultHolderPageSize),
		BreakerThreshold:    getEnvInt("BREAKER_THRESHOLD", DefaultBreakerThreshold),
		BreakerOpenDuration: getEnvDuration("BREAKER_OPEN_DURATION", DefaultBreakerOpenDuration),

		Port:      getEnv("PORT", DefaultPort),
		Env:       getEnv("ENV", DefaultEnv),
		LogLevel:  getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat: getEnv("LOG_FORMAT", DefaultLogFormat),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		NATSURL:      os.Getenv("NATS_URL"),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

// Validate checks that required settings are present and enumerations are known
func (c *Config) Validate() error {
	if c.EtherscanAPIKey == "" {
		return fmt.Errorf("ETHERSCAN_API_KEY is required")
	}

	switch c.LiquiditySource {
	case LiquiditySourceCoinGecko, LiquiditySourceDexScreener:
	default:
		return fmt.Errorf("LIQUIDITY_SOURCE must be %q or %q, got %q",
			LiquiditySourceCoinGecko, LiquiditySourceDexScreener, c.LiquiditySource)
	}

	switch c.HolderSource {
	case HolderSourceExplorer, HolderSourceHoneypot:
	default:
		return fmt.Errorf("HOLDER_SOURCE must be %q or %q, got %q",
			HolderSourceExplorer, HolderSourceHoneypot, c.HolderSource)
	}

	if _, ok := c.RPCURLs[c.DefaultNetwork]; !ok {
		return fmt.Errorf("DEFAULT_NETWORK %q is not supported", c.DefaultNetwork)
	}

	if c.TransactionPageSize <= 0 || c.TransactionPageSize > maxPageSize {
		return fmt.Errorf("TRANSACTION_PAGE_SIZE must be between 1 and %d", maxPageSize)
	}
	if c.HolderPageSize <= 0 || c.HolderPageSize > maxPageSize {
		return fmt.Errorf("HOLDER_PAGE_SIZE must be between 1 and %d", maxPageSize)
	}

	if c.FetchTimeout <= 0 || c.AdvisoryTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT and ADVISORY_TIMEOUT must be positive")
	}

	return nil
}

// AdvisoryEnabled reports whether an advisory API key is configured
func (c *Config) AdvisoryEnabled() bool {
	return c.AdvisoryAPIKey != ""
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

// getEnvDuration accepts Go duration strings ("15s") or plain seconds ("15")
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs := getEnvFloat(key, -1); secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultVal
}
