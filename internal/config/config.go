package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the bot
type Config struct {
	// Telegram
	TelegramToken string

	// Mode
	Debug bool

	// Chain
	NodeURL         string
	ContractAddress string
	UsdcAsset       string
	SponsorKey      string
	MaxGasAmount    int
	GasUnitPrice    int
	TxnExpiry       time.Duration

	// Markets API
	MarketsAPIURL         string
	MarketRefreshInterval time.Duration

	// Explorer
	ExplorerURL     string
	ExplorerNetwork string

	// Custodial signer
	SignerBaseURL        string
	SignerOrganizationID string
	SignerAPIPublicKey   string
	SignerAPIPrivateKey  string

	// Trading
	MinTradeBalance        decimal.Decimal
	MaintenanceMarginRatio decimal.Decimal
	MintAmount             int

	// Conversation state
	StateTTL time.Duration

	// Database
	DatabasePath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Telegram
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		Debug:         getEnvBool("DEBUG", false),

		// Chain
		NodeURL:         getEnv("CHAIN_NODE_URL", "https://fullnode.testnet.aptoslabs.com"),
		ContractAddress: os.Getenv("CONTRACT_ADDRESS"),
		UsdcAsset:       getEnv("USDC_ASSET", "0x6555ba01030b366f91c999ac943325096495b339d81e216a2af45e1023609f02"),
		SponsorKey:      os.Getenv("SPONSOR_PRIVATE_KEY"),
		MaxGasAmount:    getEnvInt("MAX_GAS_AMOUNT", 5000),
		GasUnitPrice:    getEnvInt("GAS_UNIT_PRICE", 100),
		TxnExpiry:       getEnvDuration("TXN_EXPIRY", 30*time.Second),

		// Markets API
		MarketsAPIURL:         getEnv("MARKETS_API_URL", "https://api.testnet.decibel.trade"),
		MarketRefreshInterval: getEnvDuration("MARKET_REFRESH_INTERVAL", 5*time.Minute),

		// Explorer
		ExplorerURL:     getEnv("EXPLORER_URL", "https://explorer.aptoslabs.com"),
		ExplorerNetwork: getEnv("EXPLORER_NETWORK", "testnet"),

		// Custodial signer
		SignerBaseURL:        getEnv("SIGNER_BASE_URL", "https://api.turnkey.com"),
		SignerOrganizationID: os.Getenv("SIGNER_ORGANIZATION_ID"),
		SignerAPIPublicKey:   os.Getenv("SIGNER_API_PUBLIC_KEY"),
		SignerAPIPrivateKey:  os.Getenv("SIGNER_API_PRIVATE_KEY"),

		// Trading
		MinTradeBalance:        getEnvDecimal("MIN_TRADE_BALANCE", decimal.NewFromInt(10)),
		MaintenanceMarginRatio: getEnvDecimal("MAINTENANCE_MARGIN_RATIO", decimal.NewFromFloat(0.01)),
		MintAmount:             getEnvInt("MINT_AMOUNT", 10_000_000),

		// Conversation state; 0 means pending prompts never expire
		StateTTL: getEnvDuration("STATE_TTL", 0),

		// Database
		DatabasePath: getEnv("DATABASE_PATH", "data/pacebot.db"),
	}

	// Validate required fields
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("CONTRACT_ADDRESS is required")
	}
	if cfg.SponsorKey == "" {
		return nil, fmt.Errorf("SPONSOR_PRIVATE_KEY is required")
	}
	if cfg.SignerOrganizationID == "" || cfg.SignerAPIPublicKey == "" || cfg.SignerAPIPrivateKey == "" {
		return nil, fmt.Errorf("SIGNER_ORGANIZATION_ID, SIGNER_API_PUBLIC_KEY and SIGNER_API_PRIVATE_KEY are required")
	}

	return cfg, nil
}

// ExplorerTxnURL builds the explorer link for a transaction hash.
func (c *Config) ExplorerTxnURL(hash string) string {
	return fmt.Sprintf("%s/txn/%s?network=%s", c.ExplorerURL, hash, c.ExplorerNetwork)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
