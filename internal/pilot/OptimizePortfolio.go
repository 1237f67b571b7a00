/*

The portfolio optimization pipeline: fetch the wallet's holdings and the
candidate strategy set concurrently, then hand the candidates to the
allocation optimizer and report the result next to the wallet's current
composition.

*/

package pilot

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/defipilot/pilot/internal/analyzer"
	"github.com/defipilot/pilot/internal/types"
)

// optimizerCandidateLimit caps how many top-ranked strategies feed the
// optimizer. More candidates than this add noise, not signal.
const optimizerCandidateLimit = 10

// CurrentHolding is one line of the wallet's present composition.
type CurrentHolding struct {
	Symbol   string  `json:"symbol"`
	UsdValue float64 `json:"usd_value"`
	Percent  float64 `json:"percent"`
}

// OptimizationResponse is the full optimize-portfolio payload.
type OptimizationResponse struct {
	OptimizedAllocation   types.OptimizationResult `json:"optimized_allocation"`
	CurrentAllocation     []CurrentHolding         `json:"current_allocation"`
	RecommendedStrategies []types.Strategy         `json:"recommended_strategies"`
}

// OptimizePortfolio computes recommended allocations for a wallet.
// investmentOverride replaces the portfolio's total USD value when
// positive.
func (s *Service) OptimizePortfolio(ctx context.Context, address string, profile types.RiskProfile, investmentOverride float64) (*OptimizationResponse, error) {
	if math.IsNaN(investmentOverride) || math.IsInf(investmentOverride, 0) || investmentOverride < 0 {
		return nil, fmt.Errorf("%w: investment amount must be a non-negative number", types.ErrValidation)
	}

	var (
		portfolio  *types.Portfolio
		candidates *StrategiesResult
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		portfolio, err = s.getPortfolioCached(groupCtx, address)
		return err
	})
	group.Go(func() error {
		var err error
		candidates, err = s.GetStrategies(groupCtx, StrategyFilters{Address: address, Limit: optimizerCandidateLimit})
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	totalInvestment := investmentOverride
	if totalInvestment == 0 {
		totalInvestment = portfolio.TotalValueUSD
	}
	if totalInvestment <= 0 {
		return nil, fmt.Errorf("%w: portfolio has no value and no investment amount was given", types.ErrValidation)
	}

	result, err := analyzer.OptimizeAllocation(candidates.Strategies, profile, totalInvestment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrValidation, err)
	}

	serviceLogger.Info().
		Str("address", address).
		Str("riskProfile", string(profile)).
		Float64("totalInvestmentUSD", totalInvestment).
		Int("recommendations", len(result.Recommendations)).
		Msg("Portfolio optimization completed")

	return &OptimizationResponse{
		OptimizedAllocation:   result,
		CurrentAllocation:     currentAllocation(portfolio),
		RecommendedStrategies: candidates.Strategies,
	}, nil
}

// currentAllocation renders the wallet's present composition as percent
// of total value.
func currentAllocation(portfolio *types.Portfolio) []CurrentHolding {
	holdings := make([]CurrentHolding, 0, len(portfolio.Balances))
	for _, balance := range portfolio.Balances {
		holding := CurrentHolding{
			Symbol:   balance.Token.Symbol,
			UsdValue: balance.UsdValue,
		}
		if portfolio.TotalValueUSD > 0 {
			holding.Percent = balance.UsdValue / portfolio.TotalValueUSD * 100
		}
		holdings = append(holdings, holding)
	}
	return holdings
}
