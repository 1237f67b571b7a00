/*

This file converts every external schema into the canonical Strategy
record: yield feed pools, Agave lending reserves, and Honeyswap pairs.

Normalization is a pure transform with skip-and-continue semantics: a
malformed record is logged and dropped, never aborting the batch. The
aggregate list staying available matters more than any single record.

*/

package normalizer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/defipilot/pilot/internal/datafetcher"
	"github.com/defipilot/pilot/internal/logger"
	"github.com/defipilot/pilot/internal/types"
)

var normalizerLogger = logger.GetForComponent("normalizer")

var ErrUnusableRecord = errors.New("record unusable for normalization")

// lendingProtocols are protocol names classified as Lending regardless of
// other keywords.
var lendingProtocols = map[string]bool{
	"agave":   true,
	"aave":    true,
	"aave-v2": true,
	"aave-v3": true,
	"spark":   true,
}

const (
	highRiskApyThreshold = 20.0
	ilRiskNone           = "no"
	ilRiskHigh           = "high"
	outlookBad           = "bad"
)

// ClassifyRisk buckets a strategy by a deterministic rule:
// low iff the pool is a stablecoin pool with no impermanent-loss risk;
// high iff APY exceeds 20%, IL risk is "high", or the outlook is "bad";
// medium otherwise. The low rule is checked first so a stablecoin pool
// with no IL risk is never classified high.
func ClassifyRisk(apyPercent float64, ilRisk, outlook string, stablecoin bool) types.RiskLevel {
	ilRisk = strings.ToLower(strings.TrimSpace(ilRisk))
	outlook = strings.ToLower(strings.TrimSpace(outlook))

	if stablecoin && ilRisk == ilRiskNone {
		return types.RiskLow
	}
	if apyPercent > highRiskApyThreshold || ilRisk == ilRiskHigh || outlook == outlookBad {
		return types.RiskHigh
	}
	return types.RiskMedium
}

// ClassifyStrategyType derives the on-chain shape of a strategy from
// protocol-name and symbol keywords.
func ClassifyStrategyType(project, symbol string) types.StrategyType {
	project = strings.ToLower(strings.TrimSpace(project))
	symbol = strings.ToLower(strings.TrimSpace(symbol))

	if lendingProtocols[project] || strings.Contains(project, "lend") {
		return types.StrategyLending
	}
	if strings.Contains(project, "curve") || strings.Contains(project, "stableswap") {
		return types.StrategyStableSwap
	}
	if strings.ContainsAny(symbol, "-/") {
		return types.StrategyLiquidityProviding
	}
	if strings.Contains(project, "stake") || strings.Contains(project, "vault") {
		return types.StrategyStaking
	}
	return types.StrategyYieldFarming
}

// FormatTVL renders a USD amount as a human-readable magnitude string.
// Display only: filtering and sorting always use the numeric value.
func FormatTVL(tvlUSD float64) string {
	switch {
	case tvlUSD >= 1e9:
		return fmt.Sprintf("$%.1fB", tvlUSD/1e9)
	case tvlUSD >= 1e6:
		return fmt.Sprintf("$%.1fM", tvlUSD/1e6)
	case tvlUSD >= 1e3:
		return fmt.Sprintf("$%.1fK", tvlUSD/1e3)
	default:
		return fmt.Sprintf("$%.0f", tvlUSD)
	}
}

// NormalizeFeedPools converts raw yield feed records into canonical
// strategies. Malformed records are skipped, never fatal.
func NormalizeFeedPools(pools []datafetcher.FeedPool) []types.Strategy {
	strategies := make([]types.Strategy, 0, len(pools))
	seen := make(map[string]bool, len(pools))
	skipped := 0

	for _, pool := range pools {
		strategy, err := normalizeFeedPool(pool)
		if err != nil {
			normalizerLogger.Warn().
				Err(err).
				Str("pool", pool.Pool).
				Str("project", pool.Project).
				Msg("Skipping feed record")
			skipped++
			continue
		}

		// IDs must be unique within one normalization pass. On collision,
		// disambiguate with the upstream pool id.
		if seen[strategy.ID] {
			strategy.ID = disambiguate(strategy.ID, strategy.SourceID)
		}
		seen[strategy.ID] = true
		strategies = append(strategies, strategy)
	}

	normalizerLogger.Info().
		Int("input", len(pools)).
		Int("normalized", len(strategies)).
		Int("skipped", skipped).
		Msg("Feed pool normalization complete")

	return strategies
}

func normalizeFeedPool(pool datafetcher.FeedPool) (types.Strategy, error) {
	if strings.TrimSpace(pool.Project) == "" || strings.TrimSpace(pool.Symbol) == "" {
		return types.Strategy{}, fmt.Errorf("%w: missing project or symbol", ErrUnusableRecord)
	}
	if math.IsNaN(pool.Apy) || math.IsInf(pool.Apy, 0) {
		return types.Strategy{}, fmt.Errorf("%w: apy not finite", ErrUnusableRecord)
	}
	if math.IsNaN(pool.TvlUsd) || math.IsInf(pool.TvlUsd, 0) || pool.TvlUsd < 0 {
		return types.Strategy{}, fmt.Errorf("%w: invalid tvl", ErrUnusableRecord)
	}

	protocol := strings.ToLower(strings.TrimSpace(pool.Project))
	assetLabel := strings.ToUpper(strings.TrimSpace(pool.Symbol))

	strategy := types.Strategy{
		ID:               strategyID(protocol, assetLabel, pool.Pool),
		Name:             fmt.Sprintf("%s %s", titleCase(protocol), assetLabel),
		ProtocolName:     protocol,
		AssetLabel:       assetLabel,
		StrategyType:     ClassifyStrategyType(pool.Project, pool.Symbol),
		ApyPercent:       pool.Apy,
		RiskLevel:        ClassifyRisk(pool.Apy, pool.IlRisk, pool.Outlook, pool.Stablecoin),
		TvlUSD:           pool.TvlUsd,
		TvlFormatted:     FormatTVL(pool.TvlUsd),
		ExposureType:     pool.Exposure,
		ApyMean30d:       pool.ApyMean30d,
		UnderlyingTokens: pool.UnderlyingTokens,
		RewardTokens:     pool.RewardTokens,
		SourceID:         pool.Pool,
		LastUpdatedAt:    time.Now().UTC(),
	}

	if pool.Predictions != nil && pool.Predictions.PredictedClass != "" {
		strategy.Prediction = &types.PredictionMetadata{
			PredictedClass:       pool.Predictions.PredictedClass,
			PredictedProbability: pool.Predictions.PredictedProbability,
		}
	}

	return strategy, nil
}

// NormalizeAgaveReserves converts lending reserves into strategies. The
// supply rate arrives ray-encoded and is converted to a percentage APY.
func NormalizeAgaveReserves(reserves []datafetcher.AgaveReserve) []types.Strategy {
	strategies := make([]types.Strategy, 0, len(reserves))
	skipped := 0

	for _, reserve := range reserves {
		if strings.TrimSpace(reserve.Symbol) == "" || strings.TrimSpace(reserve.UnderlyingAsset) == "" {
			normalizerLogger.Warn().Str("asset", reserve.UnderlyingAsset).Msg("Skipping reserve without symbol or asset")
			skipped++
			continue
		}

		apy, err := datafetcher.RayToAPY(reserve.LiquidityRate)
		if err != nil {
			normalizerLogger.Warn().Err(err).Str("symbol", reserve.Symbol).Msg("Skipping reserve with bad liquidity rate")
			skipped++
			continue
		}

		assetLabel := strings.ToUpper(reserve.Symbol)
		stablecoin := isStableSymbol(assetLabel)

		strategies = append(strategies, types.Strategy{
			ID:               strategyID("agave", assetLabel, reserve.UnderlyingAsset),
			Name:             fmt.Sprintf("Agave %s Lending", assetLabel),
			ProtocolName:     "agave",
			AssetLabel:       assetLabel,
			StrategyType:     types.StrategyLending,
			ApyPercent:       apy,
			RiskLevel:        ClassifyRisk(apy, ilRiskNone, "", stablecoin),
			UnderlyingTokens: []string{reserve.UnderlyingAsset},
			SourceID:         reserve.UnderlyingAsset,
			LastUpdatedAt:    time.Now().UTC(),
		})
	}

	normalizerLogger.Info().
		Int("input", len(reserves)).
		Int("normalized", len(strategies)).
		Int("skipped", skipped).
		Msg("Agave reserve normalization complete")

	return strategies
}

// NormalizeHoneyswapPairs converts DEX pair records into liquidity
// strategies. Pairs carry no APY; they surface for matching and
// transaction construction with the feed supplying yield numbers when a
// matching feed record exists.
func NormalizeHoneyswapPairs(pairs []datafetcher.HoneyswapPair) []types.Strategy {
	strategies := make([]types.Strategy, 0, len(pairs))
	skipped := 0

	for _, pair := range pairs {
		if pair.Token0.Symbol == "" || pair.Token1.Symbol == "" {
			normalizerLogger.Warn().Str("pair", pair.ID).Msg("Skipping pair without token symbols")
			skipped++
			continue
		}

		tvl, err := strconv.ParseFloat(pair.ReserveUSD, 64)
		if err != nil || math.IsNaN(tvl) || math.IsInf(tvl, 0) || tvl < 0 {
			normalizerLogger.Warn().Str("pair", pair.ID).Str("reserveUSD", pair.ReserveUSD).Msg("Skipping pair with bad reserve value")
			skipped++
			continue
		}

		assetLabel := strings.ToUpper(pair.Token0.Symbol + "-" + pair.Token1.Symbol)
		stablecoin := isStableSymbol(pair.Token0.Symbol) && isStableSymbol(pair.Token1.Symbol)
		ilRisk := ilRiskNone
		if !stablecoin {
			ilRisk = "yes"
		}

		strategies = append(strategies, types.Strategy{
			ID:               strategyID("honeyswap", assetLabel, pair.ID),
			Name:             fmt.Sprintf("Honeyswap %s Pool", assetLabel),
			ProtocolName:     "honeyswap",
			AssetLabel:       assetLabel,
			StrategyType:     types.StrategyLiquidityProviding,
			RiskLevel:        ClassifyRisk(0, ilRisk, "", stablecoin),
			TvlUSD:           tvl,
			TvlFormatted:     FormatTVL(tvl),
			UnderlyingTokens: []string{pair.Token0.ID, pair.Token1.ID},
			SourceID:         pair.ID,
			LastUpdatedAt:    time.Now().UTC(),
		})
	}

	normalizerLogger.Info().
		Int("input", len(pairs)).
		Int("normalized", len(strategies)).
		Int("skipped", skipped).
		Msg("Honeyswap pair normalization complete")

	return strategies
}

// strategyID derives the stable key from protocol and asset, falling back
// to the source pool id when the label is unusable.
func strategyID(protocol, assetLabel, sourceID string) string {
	slug := strings.ToLower(strings.TrimSpace(assetLabel))
	slug = strings.NewReplacer("/", "-", " ", "-").Replace(slug)
	if slug == "" {
		return protocol + "-" + shortID(sourceID)
	}
	return protocol + "-" + slug
}

func disambiguate(id, sourceID string) string {
	return id + "-" + shortID(sourceID)
}

func shortID(sourceID string) string {
	sourceID = strings.TrimPrefix(strings.ToLower(sourceID), "0x")
	if len(sourceID) > 8 {
		return sourceID[:8]
	}
	if sourceID == "" {
		return "unknown"
	}
	return sourceID
}

func isStableSymbol(symbol string) bool {
	switch strings.ToUpper(strings.TrimSpace(symbol)) {
	case "USDC", "USDT", "DAI", "WXDAI", "XDAI", "LUSD", "GUSD", "EURE", "SDAI":
		return true
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
