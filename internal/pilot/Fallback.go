/*

Static fallback strategy list served when the yield feed is unreachable.
The listing endpoints stay available during an upstream outage; callers
can tell fallback data from live data by the source marker on the
response.

Figures here are conservative snapshots, not live numbers.

*/

package pilot

import (
	"time"

	"github.com/defipilot/pilot/internal/config"
	"github.com/defipilot/pilot/internal/types"
)

const (
	// SourceLive marks responses built from a live feed fetch.
	SourceLive = "live"
	// SourceFallback marks responses built from the static list below.
	SourceFallback = "fallback"
)

const fallbackSourceID = "static-fallback"

// Gnosis token addresses used by the fallback entries.
const (
	tokenGNO  = "0x9C58BAcC331c9aa871AFD802DB6379a98e80CEdb"
	tokenUSDC = "0xDDAfbb505ad214D7b80b1f830fcCc89B60fb7A83"
	tokenUSDT = "0x4ECaBa5870353805a9F068101A40E0f32ed605C6"
)

// fallbackStrategies returns a fresh copy of the static list. Callers
// may annotate and reorder the copy freely.
func fallbackStrategies() []types.Strategy {
	now := time.Now().UTC()
	return []types.Strategy{
		{
			ID:               "agave-xdai",
			Name:             "Agave xDAI Lending",
			ProtocolName:     "agave",
			AssetLabel:       "XDAI",
			StrategyType:     types.StrategyLending,
			ApyPercent:       3.1,
			RiskLevel:        types.RiskLow,
			TvlUSD:           4_200_000,
			TvlFormatted:     "$4.2M",
			ExposureType:     "single",
			UnderlyingTokens: []string{config.NativeTokenSentinel},
			SourceID:         fallbackSourceID,
			LastUpdatedAt:    now,
		},
		{
			ID:               "agave-usdc",
			Name:             "Agave USDC Lending",
			ProtocolName:     "agave",
			AssetLabel:       "USDC",
			StrategyType:     types.StrategyLending,
			ApyPercent:       2.7,
			RiskLevel:        types.RiskLow,
			TvlUSD:           3_100_000,
			TvlFormatted:     "$3.1M",
			ExposureType:     "single",
			UnderlyingTokens: []string{tokenUSDC},
			SourceID:         fallbackSourceID,
			LastUpdatedAt:    now,
		},
		{
			ID:               "honeyswap-usdc-wxdai",
			Name:             "Honeyswap USDC-WXDAI LP",
			ProtocolName:     "honeyswap",
			AssetLabel:       "USDC-WXDAI",
			StrategyType:     types.StrategyLiquidityProviding,
			ApyPercent:       6.4,
			RiskLevel:        types.RiskMedium,
			TvlUSD:           850_000,
			TvlFormatted:     "$850.0K",
			ExposureType:     "multi",
			UnderlyingTokens: []string{tokenUSDC, config.WrappedNativeToken},
			SourceID:         fallbackSourceID,
			LastUpdatedAt:    now,
		},
		{
			ID:               "balancer-gno-wxdai",
			Name:             "Balancer GNO-WXDAI Pool",
			ProtocolName:     "balancer",
			AssetLabel:       "GNO-WXDAI",
			StrategyType:     types.StrategyLiquidityProviding,
			ApyPercent:       9.8,
			RiskLevel:        types.RiskMedium,
			TvlUSD:           1_600_000,
			TvlFormatted:     "$1.6M",
			ExposureType:     "multi",
			UnderlyingTokens: []string{tokenGNO, config.WrappedNativeToken},
			SourceID:         fallbackSourceID,
			LastUpdatedAt:    now,
		},
		{
			ID:               "curve-wxdai-usdc-usdt",
			Name:             "Curve 3pool",
			ProtocolName:     "curve",
			AssetLabel:       "WXDAI-USDC-USDT",
			StrategyType:     types.StrategyStableSwap,
			ApyPercent:       4.2,
			RiskLevel:        types.RiskLow,
			TvlUSD:           2_400_000,
			TvlFormatted:     "$2.4M",
			ExposureType:     "multi",
			UnderlyingTokens: []string{config.WrappedNativeToken, tokenUSDC, tokenUSDT},
			SourceID:         fallbackSourceID,
			LastUpdatedAt:    now,
		},
	}
}
