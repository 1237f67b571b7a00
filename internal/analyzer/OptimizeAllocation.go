/*

This file computes recommended percentage allocations across a strategy
set for a given risk profile.

The procedure is a heuristic risk-adjusted weighting, not a full
mean-variance optimization: each risk bucket maps to an assumed
volatility constant, weights start from a pseudo-Sharpe ratio, a
tolerance-driven boost tilts the vector toward return or safety, and
hard profile constraints clamp the result.

*/

package analyzer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/defipilot/pilot/internal/logger"
	"github.com/defipilot/pilot/internal/types"
)

var optimizerLogger = logger.GetForComponent("allocation_optimizer")

var ErrNoStrategies = errors.New("no strategies provided for optimization")
var ErrInvalidInvestment = errors.New("total investment must be positive and finite")
var ErrInvalidRiskProfile = errors.New("unknown risk profile")

const (
	// Assumed annualized volatility per risk bucket.
	volatilityLow    = 0.05
	volatilityMedium = 0.15
	volatilityHigh   = 0.30

	// Tolerance scalars per profile; 5 is neutral.
	toleranceLow     = 2.0
	toleranceMedium  = 5.0
	toleranceHigh    = 10.0
	toleranceNeutral = 5.0

	boostCount        = 3
	boostMassPerPoint = 0.05
	boostMassCap      = 0.3

	// Aggregate high-risk weight ceiling for the medium profile.
	mediumHighRiskCap = 0.20

	// Recommendations below this percentage are dropped from the output.
	minAllocationPercent = 0.5
)

func assumedVolatility(level types.RiskLevel) float64 {
	switch level {
	case types.RiskLow:
		return volatilityLow
	case types.RiskHigh:
		return volatilityHigh
	default:
		return volatilityMedium
	}
}

func riskTolerance(profile types.RiskProfile) (float64, error) {
	switch profile {
	case types.ProfileLow:
		return toleranceLow, nil
	case types.ProfileMedium:
		return toleranceMedium, nil
	case types.ProfileHigh:
		return toleranceHigh, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRiskProfile, profile)
	}
}

// OptimizeAllocation computes allocation recommendations for a strategy
// set, a risk profile, and a total investment in USD.
//
// Inputs:
//   - strategies: the candidate strategy set (order defines tie-breaks).
//   - profile: the caller's risk appetite (low, medium, high).
//   - totalInvestmentUSD: the amount to allocate.
//
// Output:
//   - An OptimizationResult whose allocation percentages sum to at most
//     100 (equality when no sub-threshold entries are dropped).
//   - An error for empty input, a non-positive investment, or an unknown
//     profile.
func OptimizeAllocation(strategies []types.Strategy, profile types.RiskProfile, totalInvestmentUSD float64) (types.OptimizationResult, error) {
	if len(strategies) == 0 {
		return types.OptimizationResult{}, ErrNoStrategies
	}
	if math.IsNaN(totalInvestmentUSD) || math.IsInf(totalInvestmentUSD, 0) || totalInvestmentUSD <= 0 {
		return types.OptimizationResult{}, fmt.Errorf("%w: %f", ErrInvalidInvestment, totalInvestmentUSD)
	}
	tolerance, err := riskTolerance(profile)
	if err != nil {
		return types.OptimizationResult{}, err
	}

	// Step 1+2: pseudo-Sharpe weights, floored at zero and normalized.
	weights := make([]float64, len(strategies))
	sum := 0.0
	for i, strategy := range strategies {
		if math.IsNaN(strategy.ApyPercent) || math.IsInf(strategy.ApyPercent, 0) {
			return types.OptimizationResult{}, fmt.Errorf("strategy %s has non-finite APY", strategy.ID)
		}
		sharpe := strategy.ApyPercent / assumedVolatility(strategy.RiskLevel)
		weights[i] = math.Max(0, sharpe)
		sum += weights[i]
	}
	if sum <= 0 {
		// Nothing yields: fall back to equal weights rather than divide
		// by a zero sum.
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}
		sum = 1.0
	}
	for i := range weights {
		weights[i] /= sum
	}

	// Step 3: tolerance shift. Above neutral chases return, below neutral
	// chases safety. Boost mass scales with distance from neutral, capped
	// per strategy.
	distance := math.Abs(tolerance - toleranceNeutral)
	if distance > 0 {
		boost := math.Min(boostMassCap, boostMassPerPoint*distance)
		for _, idx := range boostTargets(strategies, tolerance) {
			weights[idx] += boost
		}
		renormalize(weights)
	}

	preConstraint := make([]float64, len(weights))
	copy(preConstraint, weights)

	// Step 4: hard profile constraints.
	applyProfileConstraints(strategies, weights, profile)

	// Step 5: renormalize, falling back to the pre-constraint vector if
	// the constraints zeroed everything.
	if !renormalize(weights) {
		optimizerLogger.Warn().
			Str("profile", string(profile)).
			Msg("Profile constraints zeroed all weights, falling back to pre-constraint vector")
		copy(weights, preConstraint)
		renormalize(weights)
	}

	// Step 6: build recommendations, dropping dust allocations.
	recommendations := make([]types.AllocationRecommendation, 0, len(strategies))
	expectedYield := 0.0
	for i := range strategies {
		percent := weights[i] * 100
		if percent < minAllocationPercent {
			continue
		}
		expectedYield += weights[i] * strategies[i].ApyPercent
		recommendations = append(recommendations, types.AllocationRecommendation{
			Strategy:            &strategies[i],
			AllocationPercent:   percent,
			AllocationAmountUSD: weights[i] * totalInvestmentUSD,
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].AllocationPercent > recommendations[j].AllocationPercent
	})

	optimizerLogger.Info().
		Str("profile", string(profile)).
		Int("candidates", len(strategies)).
		Int("recommendations", len(recommendations)).
		Float64("expectedYieldPercent", expectedYield).
		Float64("totalInvestmentUSD", totalInvestmentUSD).
		Msg("Allocation optimization complete")

	return types.OptimizationResult{
		Recommendations:      recommendations,
		ExpectedYieldPercent: expectedYield,
		TotalInvestmentUSD:   totalInvestmentUSD,
		RiskProfile:          profile,
	}, nil
}

// boostTargets returns the indexes to boost: the top strategies by APY
// when tolerance is above neutral, the lowest-volatility ones when below.
func boostTargets(strategies []types.Strategy, tolerance float64) []int {
	indexes := make([]int, len(strategies))
	for i := range indexes {
		indexes[i] = i
	}

	if tolerance > toleranceNeutral {
		sort.SliceStable(indexes, func(a, b int) bool {
			return strategies[indexes[a]].ApyPercent > strategies[indexes[b]].ApyPercent
		})
	} else {
		sort.SliceStable(indexes, func(a, b int) bool {
			return assumedVolatility(strategies[indexes[a]].RiskLevel) < assumedVolatility(strategies[indexes[b]].RiskLevel)
		})
	}

	count := boostCount
	if count > len(indexes) {
		count = len(indexes)
	}
	return indexes[:count]
}

// applyProfileConstraints clamps weights in place per the hard profile
// rules: the low profile forbids high-risk strategies entirely and halves
// medium-risk weight; the medium profile caps aggregate high-risk weight;
// the high profile applies no constraint.
func applyProfileConstraints(strategies []types.Strategy, weights []float64, profile types.RiskProfile) {
	switch profile {
	case types.ProfileLow:
		for i, strategy := range strategies {
			switch strategy.RiskLevel {
			case types.RiskHigh:
				weights[i] = 0
			case types.RiskMedium:
				weights[i] /= 2
			}
		}
	case types.ProfileMedium:
		highRiskMass := 0.0
		otherMass := 0.0
		for i, strategy := range strategies {
			if strategy.RiskLevel == types.RiskHigh {
				highRiskMass += weights[i]
			} else {
				otherMass += weights[i]
			}
		}
		if highRiskMass > mediumHighRiskCap {
			// Move the excess to the remaining strategies so the cap
			// still holds after renormalization. With no other
			// strategies to absorb it the cap cannot hold and the
			// vector is left unchanged.
			if otherMass <= 0 {
				return
			}
			scaleDown := mediumHighRiskCap / highRiskMass
			scaleUp := (otherMass + highRiskMass - mediumHighRiskCap) / otherMass
			for i, strategy := range strategies {
				if strategy.RiskLevel == types.RiskHigh {
					weights[i] *= scaleDown
				} else {
					weights[i] *= scaleUp
				}
			}
		}
	}
}

// renormalize scales weights to sum 1 in place. Returns false when the
// sum is zero or not finite, leaving the slice untouched.
func renormalize(weights []float64) bool {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return false
	}
	for i := range weights {
		weights[i] /= sum
	}
	return true
}
