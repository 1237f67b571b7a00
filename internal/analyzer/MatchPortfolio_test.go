package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defipilot/pilot/internal/types"
)

func testPortfolio() *types.Portfolio {
	return &types.Portfolio{
		Address: "0x1111111111111111111111111111111111111111",
		Balances: []types.WalletBalance{
			{Token: types.TokenInfo{Symbol: "GNO", Address: "0x9C58BAcC331c9aa871AFD802DB6379a98e80CEdb"}, UsdValue: 600},
			{Token: types.TokenInfo{Symbol: "USDC", Address: "0xDDAfbb505ad214D7b80b1f830fcCc89B60fb7A83"}, UsdValue: 400},
		},
		TotalValueUSD: 1000,
	}
}

func TestAnnotatePortfolioMatchesScore(t *testing.T) {
	strategies := []types.Strategy{
		{
			ID:         "honeyswap-gno-usdc",
			AssetLabel: "GNO-USDC",
			RiskLevel:  types.RiskMedium,
			ApyPercent: 12,
		},
	}

	annotated := AnnotatePortfolioMatches(strategies, testPortfolio())

	require.NotNil(t, annotated[0].PortfolioMatch)
	match := annotated[0].PortfolioMatch
	assert.Equal(t, []string{"GNO", "USDC"}, match.MatchingTokens)
	// 10×2 tokens + 10 medium risk + 10 apy>10 + 50 cap on the full-portfolio weight.
	assert.InDelta(t, 90.0, match.MatchScore, 1e-9)
	assert.NotEmpty(t, match.RecommendationReason)
}

func TestAnnotatePortfolioMatchesByAddress(t *testing.T) {
	strategies := []types.Strategy{
		{
			ID:               "agave-usdc",
			AssetLabel:       "AUSDC", // label does not carry the wallet symbol
			RiskLevel:        types.RiskLow,
			ApyPercent:       3,
			UnderlyingTokens: []string{"0xddafbb505ad214d7b80b1f830fccc89b60fb7a83"},
		},
	}

	annotated := AnnotatePortfolioMatches(strategies, testPortfolio())

	require.NotNil(t, annotated[0].PortfolioMatch)
	assert.Equal(t, []string{"USDC"}, annotated[0].PortfolioMatch.MatchingTokens)
}

func TestAnnotatePortfolioMatchesNoOverlap(t *testing.T) {
	strategies := []types.Strategy{
		{ID: "curve-eure", AssetLabel: "EURE", RiskLevel: types.RiskLow, ApyPercent: 4},
	}

	annotated := AnnotatePortfolioMatches(strategies, testPortfolio())

	assert.Nil(t, annotated[0].PortfolioMatch)
}

func TestAnnotatePortfolioMatchesNilPortfolio(t *testing.T) {
	strategies := []types.Strategy{{ID: "a", AssetLabel: "GNO"}}
	annotated := AnnotatePortfolioMatches(strategies, nil)
	assert.Nil(t, annotated[0].PortfolioMatch)
}

func TestSortStrategiesWithWallet(t *testing.T) {
	strategies := []types.Strategy{
		{ID: "unmatched-high-apy", ApyPercent: 30},
		{ID: "matched-low-score", ApyPercent: 4, PortfolioMatch: &types.PortfolioMatch{MatchScore: 20}},
		{ID: "matched-high-score", ApyPercent: 8, PortfolioMatch: &types.PortfolioMatch{MatchScore: 60}},
		{ID: "unmatched-low-apy", ApyPercent: 2},
	}

	SortStrategies(strategies, true)

	assert.Equal(t, "matched-high-score", strategies[0].ID)
	assert.Equal(t, "matched-low-score", strategies[1].ID)
	assert.Equal(t, "unmatched-high-apy", strategies[2].ID)
	assert.Equal(t, "unmatched-low-apy", strategies[3].ID)
}

func TestSortStrategiesWithoutWallet(t *testing.T) {
	strategies := []types.Strategy{
		{ID: "a", ApyPercent: 4},
		{ID: "b", ApyPercent: 22},
		{ID: "c", ApyPercent: 9},
	}

	SortStrategies(strategies, false)

	assert.Equal(t, "b", strategies[0].ID)
	assert.Equal(t, "c", strategies[1].ID)
	assert.Equal(t, "a", strategies[2].ID)
}

func TestSortStrategiesStableOnTies(t *testing.T) {
	strategies := []types.Strategy{
		{ID: "first", ApyPercent: 5},
		{ID: "second", ApyPercent: 5},
		{ID: "third", ApyPercent: 5},
	}

	SortStrategies(strategies, false)

	assert.Equal(t, "first", strategies[0].ID)
	assert.Equal(t, "second", strategies[1].ID)
	assert.Equal(t, "third", strategies[2].ID)
}
