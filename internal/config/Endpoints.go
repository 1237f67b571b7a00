package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// YieldFeedAPI is the pools endpoint of the yield aggregator feed.
	YieldFeedAPI string
	// BalanceAPI is the wallet balance provider endpoint.
	BalanceAPI string
	// AgaveSubgraph is the GraphQL endpoint for Agave lending reserves.
	AgaveSubgraph string
	// HoneyswapSubgraph is the GraphQL endpoint for Honeyswap pair data.
	HoneyswapSubgraph string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	YieldFeedAPI = getEnvWithDefault("YIELD_FEED_API", "https://yields.llama.fi/pools")
	BalanceAPI = getEnvWithDefault("BALANCE_API", "https://safe-transaction-gnosis-chain.safe.global/api/v1")
	AgaveSubgraph = getEnvWithDefault("AGAVE_SUBGRAPH", "https://api.thegraph.com/subgraphs/name/agave-dao/agave-gnosis")
	HoneyswapSubgraph = getEnvWithDefault("HONEYSWAP_SUBGRAPH", "https://api.thegraph.com/subgraphs/name/1hive/honeyswap-gnosis")

	log.Debug().
		Str("YieldFeedAPI", YieldFeedAPI).
		Str("BalanceAPI", BalanceAPI).
		Str("AgaveSubgraph", AgaveSubgraph).
		Str("HoneyswapSubgraph", HoneyswapSubgraph).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
