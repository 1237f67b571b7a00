package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/defipilot/pilot/internal/cache"
	"github.com/defipilot/pilot/internal/config"
	"github.com/defipilot/pilot/internal/datafetcher"
	"github.com/defipilot/pilot/internal/logger"
	"github.com/defipilot/pilot/internal/pilot"
	"github.com/defipilot/pilot/internal/state"
	"github.com/defipilot/pilot/internal/txbuilder"
	"github.com/defipilot/pilot/internal/web"
)

// main is the entry point for the pilot service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Int("chainID", config.ChainID).Msg("Pilot service starting...")

	// Initialize the optional transaction audit store. Without DB_HOST
	// the service runs with auditing disabled.
	auditEnabled := false
	if os.Getenv("DB_HOST") != "" {
		dbCfg := state.DBConfig{
			Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
			User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
			DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
		}
		if err := state.InitDB(dbCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
		auditEnabled = true
	} else {
		log.Info().Msg("DB_HOST not set, transaction auditing disabled")
	}

	// --- 2. Client and Pipeline Construction ---
	feedClient := datafetcher.NewYieldFeedClient(config.YieldFeedAPI, "Gnosis")
	balanceClient := datafetcher.NewBalanceClient(config.BalanceAPI)
	subgraphClient := datafetcher.NewSubgraphClient(config.AgaveSubgraph, config.HoneyswapSubgraph)

	strategyCache := cache.New("strategies", config.StrategyCacheTTL)
	balanceCache := cache.New("balances", config.BalanceCacheTTL)

	builder := txbuilder.NewBuilder(config.ChainID)

	service := pilot.NewService(
		feedClient,
		balanceClient,
		subgraphClient,
		strategyCache,
		balanceCache,
		builder,
		auditEnabled,
	)

	// --- 3. Serve ---
	webServer := web.NewWebServer(service, config.WebPort)
	log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting pilot web server")
	if err := webServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Web server failed")
	}
}

func mustAtoi(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	value, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return value
}
