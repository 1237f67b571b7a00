/*

This is the canonical type for yield strategies. Every upstream schema
(yield feed, subgraph reserves, DEX pair data) is normalized into this
one record before filtering, scoring, or transaction construction.

*/

package types

import "time"

// RiskLevel classifies a strategy's risk bucket.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// StrategyType describes the on-chain shape of a yield opportunity.
// It drives transaction construction: each type maps to a different
// protocol call family.
type StrategyType string

const (
	StrategyLending            StrategyType = "lending"
	StrategyLiquidityProviding StrategyType = "liquidity_providing"
	StrategyStaking            StrategyType = "staking"
	StrategyYieldFarming       StrategyType = "yield_farming"
	StrategyStableSwap         StrategyType = "stable_swap"
)

// PredictionMetadata carries the upstream feed's APY outlook, when present.
type PredictionMetadata struct {
	PredictedClass       string  `json:"predicted_class"`        // e.g. "Stable/Up", "Down"
	PredictedProbability float64 `json:"predicted_probability"`  // confidence, 0-100
}

// PortfolioMatch annotates a strategy with its relevance to a specific
// wallet's holdings. Attached only when at least one token overlaps.
type PortfolioMatch struct {
	MatchingTokens       []string `json:"matching_tokens"`
	MatchScore           float64  `json:"match_score"`
	RecommendationReason string   `json:"recommendation_reason"`
}

// Strategy is the canonical, normalized representation of a yield
// opportunity. Constructed fresh on every normalization pass; never
// mutated afterwards except to attach a PortfolioMatch annotation.
type Strategy struct {
	ID            string       `json:"id"`             // stable key, protocol+asset or source pool id
	Name          string       `json:"name"`           // display name, e.g. "Agave xDAI Lending"
	ProtocolName  string       `json:"protocol"`       // e.g. "agave"
	AssetLabel    string       `json:"asset"`          // e.g. "GNO-XDAI"
	StrategyType  StrategyType `json:"strategy_type"`
	ApyPercent    float64      `json:"apy"`            // e.g. 4.8 for 4.8%
	RiskLevel     RiskLevel    `json:"risk_level"`
	TvlUSD        float64      `json:"tvl_usd"`        // numeric, for filtering and sorting
	TvlFormatted  string       `json:"tvl_formatted"`  // display only, e.g. "$1.2M"
	ExposureType  string       `json:"exposure,omitempty"`
	ApyMean30d    float64      `json:"apy_mean_30d,omitempty"`

	// First element is the primary token for transaction construction.
	// May be empty for strategies that only support listing.
	UnderlyingTokens []string `json:"underlying_tokens,omitempty"`
	RewardTokens     []string `json:"reward_tokens,omitempty"`

	Prediction     *PredictionMetadata `json:"prediction,omitempty"`
	PortfolioMatch *PortfolioMatch     `json:"portfolio_match,omitempty"`

	SourceID      string    `json:"source_id"` // upstream pool identifier
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// PrimaryToken returns the first underlying token address, or empty when
// the strategy carries no token data.
func (s *Strategy) PrimaryToken() string {
	if len(s.UnderlyingTokens) == 0 {
		return ""
	}
	return s.UnderlyingTokens[0]
}

// HasTokenData reports whether the strategy carries the token addresses
// required for transaction construction.
func (s *Strategy) HasTokenData() bool {
	return len(s.UnderlyingTokens) > 0 && s.UnderlyingTokens[0] != ""
}
