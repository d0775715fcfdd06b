package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

// Config holds all application configuration
type Config struct {
	Ledger     LedgerConfig
	Chain      ChainConfig
	Pinning    PinningConfig
	Auth       AuthConfig
	Payments   PaymentsConfig
	WorkerPool WorkerPoolConfig
	Server     ServerConfig
}

// LedgerConfig holds the local SQLite ledger settings
type LedgerConfig struct {
	Path string
}

// ChainConfig holds blockchain client settings
type ChainConfig struct {
	RPCURL          string
	ChainID         int64
	ContractAddress string
	MinterKeyHex    string
}

// PinningConfig holds the content-addressable storage (IPFS pinning) settings
type PinningConfig struct {
	BaseURL string
	APIKey  string
}

// AuthConfig holds merchant dashboard authentication settings
type AuthConfig struct {
	JWTSecret         string
	DashboardPassword string
}

// PaymentsConfig holds Stripe webhook settings
type PaymentsConfig struct {
	StripeWebhookSecret string
}

// WorkerPoolConfig holds worker pool configuration for mint processing
type WorkerPoolConfig struct {
	MintWorkers int // Number of workers running the minting pipeline
	QueueSize   int // Buffered mint job queue size
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port      int
	WebAppURI string
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			return nil, fmt.Errorf("failed to load env.local: %w", err)
		}
	}

	cfg := &Config{}

	// Ledger configuration
	cfg.Ledger.Path = getEnvWithDefault("LEDGER_PATH", "data/ledger.db")

	// Chain configuration
	var err error
	if cfg.Chain.RPCURL, err = requireEnv("CHAIN_RPC_URL"); err != nil {
		return nil, err
	}
	chainID, err := requireEnv("CHAIN_ID")
	if err != nil {
		return nil, err
	}
	cfg.Chain.ChainID, err = strconv.ParseInt(chainID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CHAIN_ID: %w", err)
	}
	if cfg.Chain.ContractAddress, err = requireEnv("CONTRACT_ADDRESS"); err != nil {
		return nil, err
	}
	if cfg.Chain.MinterKeyHex, err = requireEnv("MINTER_PRIVATE_KEY"); err != nil {
		return nil, err
	}

	// Pinning service configuration
	cfg.Pinning.BaseURL = getEnvWithDefault("PINNING_API_URL", "https://api.pinata.cloud")
	if cfg.Pinning.APIKey, err = requireEnv("PINNING_API_KEY"); err != nil {
		return nil, err
	}

	// Auth configuration
	if cfg.Auth.JWTSecret, err = requireEnv("JWT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.Auth.DashboardPassword, err = requireEnv("DASHBOARD_PASSWORD"); err != nil {
		return nil, err
	}

	// Payments configuration
	if cfg.Payments.StripeWebhookSecret, err = requireEnv("STRIPE_WEBHOOK_SECRET"); err != nil {
		return nil, err
	}

	// Worker pool configuration
	mintWorkers := getEnvWithDefault("MINT_WORKERS", "4")
	cfg.WorkerPool.MintWorkers, err = strconv.Atoi(mintWorkers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MINT_WORKERS: %w", err)
	}
	queueSize := getEnvWithDefault("MINT_QUEUE_SIZE", "64")
	cfg.WorkerPool.QueueSize, err = strconv.Atoi(queueSize)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MINT_QUEUE_SIZE: %w", err)
	}

	// Server configuration
	serverPort := getEnvWithDefault("SERVER_PORT", "8080")
	cfg.Server.Port, err = strconv.Atoi(serverPort)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SERVER_PORT: %w", err)
	}
	cfg.Server.WebAppURI = getEnvWithDefault("WEBAPP_URI", "http://localhost:3000")

	return cfg, nil
}

// requireEnv returns the value of an environment variable or an error if unset.
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyEnvironmentVariable, key)
	}
	return value, nil
}

// getEnvWithDefault returns the value of an environment variable or a default.
func getEnvWithDefault(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}
