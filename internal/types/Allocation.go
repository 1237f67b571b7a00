package types

// RiskProfile is the caller-selected appetite used by the allocation
// optimizer. Distinct from RiskLevel, which classifies strategies.
type RiskProfile string

const (
	ProfileLow    RiskProfile = "low"
	ProfileMedium RiskProfile = "medium"
	ProfileHigh   RiskProfile = "high"
)

// AllocationRecommendation is one line of an optimized portfolio. Derived
// and ephemeral; computed per request and never stored.
type AllocationRecommendation struct {
	Strategy            *Strategy `json:"strategy"`
	AllocationPercent   float64   `json:"allocation_percent"`
	AllocationAmountUSD float64   `json:"allocation_amount_usd"`
}

// OptimizationResult is the full optimizer output for one request.
type OptimizationResult struct {
	Recommendations      []AllocationRecommendation `json:"recommendations"`
	ExpectedYieldPercent float64                    `json:"expected_yield_percent"`
	TotalInvestmentUSD   float64                    `json:"total_investment_usd"`
	RiskProfile          RiskProfile                `json:"risk_profile"`
}
