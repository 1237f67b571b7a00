package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// ChainID is the EVM chain the service constructs transactions for.
	ChainID int

	// WebPort is the HTTP listen port.
	WebPort string

	// StrategyCacheTTL is how long a normalized strategy list stays fresh
	// for one filter signature.
	StrategyCacheTTL time.Duration
	// BalanceCacheTTL is how long wallet balance lookups stay fresh.
	BalanceCacheTTL time.Duration

	// DefaultTokenDecimals is assumed for tokens absent from the decimals
	// registry. Gnosis assets are 18-decimal unless registered otherwise.
	DefaultTokenDecimals int
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Endpoints and tunables have defaults; only deliberately unset values fail.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	ChainID, err = getEnvAsIntWithDefault("CHAIN_ID", 100)
	if err != nil {
		return err
	}

	WebPort = getEnvWithDefault("WEB_PORT", "8080")

	strategyTTLMs, err := getEnvAsIntWithDefault("STRATEGY_CACHE_TTL_MS", 300_000)
	if err != nil {
		return err
	}
	StrategyCacheTTL = time.Duration(strategyTTLMs) * time.Millisecond

	balanceTTLMs, err := getEnvAsIntWithDefault("BALANCE_CACHE_TTL_MS", 60_000)
	if err != nil {
		return err
	}
	BalanceCacheTTL = time.Duration(balanceTTLMs) * time.Millisecond

	DefaultTokenDecimals, err = getEnvAsIntWithDefault("DEFAULT_TOKEN_DECIMALS", 18)
	if err != nil {
		return err
	}

	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Int("ChainID", ChainID).
		Str("WebPort", WebPort).
		Dur("StrategyCacheTTL", StrategyCacheTTL).
		Dur("BalanceCacheTTL", BalanceCacheTTL).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnvWithDefault retrieves a string environment variable, falling back
// to the provided default when unset.
func getEnvWithDefault(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsIntWithDefault retrieves an environment variable as an int,
// falling back to the provided default when unset. Set-but-invalid values
// are an error, not a silent fallback.
func getEnvAsIntWithDefault(key string, fallback int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}
