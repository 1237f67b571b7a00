/*

This file cross-references a wallet's holdings against strategy asset
lists, producing the match score and recommendation text that drive
portfolio-aware ordering of strategy listings.

*/

package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/defipilot/pilot/internal/logger"
	"github.com/defipilot/pilot/internal/types"
)

var matcherLogger = logger.GetForComponent("portfolio_matcher")

const (
	matchScorePerToken      = 10.0
	portfolioWeightScoreCap = 50.0
)

// riskMatchBonus rewards lower-risk strategies in the match score.
func riskMatchBonus(level types.RiskLevel) float64 {
	switch level {
	case types.RiskLow:
		return 15
	case types.RiskMedium:
		return 10
	case types.RiskHigh:
		return 5
	default:
		return 0
	}
}

// apyMatchBonus rewards higher-yield strategies in the match score.
func apyMatchBonus(apyPercent float64) float64 {
	switch {
	case apyPercent > 20:
		return 15
	case apyPercent > 10:
		return 10
	case apyPercent > 5:
		return 5
	default:
		return 0
	}
}

// AnnotatePortfolioMatches attaches a PortfolioMatch to every strategy
// whose asset set intersects the wallet's holdings. Strategies without an
// intersection are returned unannotated. The input order is preserved.
func AnnotatePortfolioMatches(strategies []types.Strategy, portfolio *types.Portfolio) []types.Strategy {
	if portfolio == nil || len(portfolio.Balances) == 0 {
		return strategies
	}

	// Index wallet holdings by symbol and by token address for
	// case-insensitive lookups.
	holdingsBySymbol := make(map[string]types.WalletBalance, len(portfolio.Balances))
	holdingsByAddress := make(map[string]types.WalletBalance, len(portfolio.Balances))
	for _, balance := range portfolio.Balances {
		holdingsBySymbol[strings.ToUpper(balance.Token.Symbol)] = balance
		if balance.Token.Address != "" {
			holdingsByAddress[strings.ToLower(balance.Token.Address)] = balance
		}
	}

	annotated := make([]types.Strategy, len(strategies))
	matchedCount := 0

	for i, strategy := range strategies {
		annotated[i] = strategy

		matched := matchTokens(strategy, holdingsBySymbol, holdingsByAddress)
		if len(matched) == 0 {
			continue
		}

		matchedValueUSD := 0.0
		symbols := make([]string, 0, len(matched))
		for symbol, balance := range matched {
			symbols = append(symbols, symbol)
			matchedValueUSD += balance.UsdValue
		}
		sort.Strings(symbols)

		portfolioWeight := 0.0
		if portfolio.TotalValueUSD > 0 {
			portfolioWeight = matchedValueUSD / portfolio.TotalValueUSD * 100
		}

		score := matchScorePerToken*float64(len(matched)) +
			riskMatchBonus(strategy.RiskLevel) +
			apyMatchBonus(strategy.ApyPercent) +
			math.Min(portfolioWeightScoreCap, portfolioWeight)

		annotated[i].PortfolioMatch = &types.PortfolioMatch{
			MatchingTokens:       symbols,
			MatchScore:           score,
			RecommendationReason: recommendationReason(strategy, symbols, portfolioWeight),
		}
		matchedCount++
	}

	matcherLogger.Debug().
		Int("strategies", len(strategies)).
		Int("matched", matchedCount).
		Str("address", portfolio.Address).
		Msg("Portfolio matching complete")

	return annotated
}

// matchTokens collects wallet balances whose symbol appears in the
// strategy's asset label or whose address appears in the underlying list.
func matchTokens(strategy types.Strategy, bySymbol, byAddress map[string]types.WalletBalance) map[string]types.WalletBalance {
	matched := make(map[string]types.WalletBalance)

	for _, part := range strings.FieldsFunc(strategy.AssetLabel, func(r rune) bool {
		return r == '-' || r == '/'
	}) {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if balance, ok := bySymbol[symbol]; ok {
			matched[symbol] = balance
		}
	}

	for _, address := range strategy.UnderlyingTokens {
		if balance, ok := byAddress[strings.ToLower(address)]; ok {
			matched[strings.ToUpper(balance.Token.Symbol)] = balance
		}
	}

	return matched
}

func recommendationReason(strategy types.Strategy, symbols []string, portfolioWeight float64) string {
	holdings := strings.Join(symbols, ", ")
	if portfolioWeight >= 10 {
		return fmt.Sprintf("You hold %s (%.0f%% of your portfolio), which this %s strategy on %s puts to work at %.1f%% APY.",
			holdings, portfolioWeight, strategy.StrategyType, strategy.ProtocolName, strategy.ApyPercent)
	}
	return fmt.Sprintf("You already hold %s, which can earn %.1f%% APY in this %s strategy on %s.",
		holdings, strategy.ApyPercent, strategy.StrategyType, strategy.ProtocolName)
}

// SortStrategies orders a strategy list for presentation. With a wallet
// present, matched strategies sort before unmatched ones and by
// descending match score within the matched group; both groups fall back
// to descending APY. Without a wallet, ordering is purely descending APY.
// Sorting is stable: equal keys preserve discovery order.
func SortStrategies(strategies []types.Strategy, walletPresent bool) {
	sort.SliceStable(strategies, func(i, j int) bool {
		a, b := strategies[i], strategies[j]
		if walletPresent {
			aMatched := a.PortfolioMatch != nil
			bMatched := b.PortfolioMatch != nil
			if aMatched != bMatched {
				return aMatched
			}
			if aMatched && bMatched && a.PortfolioMatch.MatchScore != b.PortfolioMatch.MatchScore {
				return a.PortfolioMatch.MatchScore > b.PortfolioMatch.MatchScore
			}
		}
		return a.ApyPercent > b.ApyPercent
	})
}
