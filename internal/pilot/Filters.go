/*

Filter parameters for the strategy listing pipeline, plus the cache-key
derivation. Every non-pagination parameter participates in the key so
distinct filter combinations never share a cache entry; pagination is
applied after the cache, over the full filtered list.

*/

package pilot

import (
	"fmt"
	"strings"

	"github.com/defipilot/pilot/internal/types"
)

// StrategyFilters is the full filter surface of the strategy listing.
// Nil numeric bounds mean "unset"; empty strings mean "unset".
type StrategyFilters struct {
	RiskLevel      string
	Protocol       string
	Asset          string
	Exposure       string
	PredictedClass string
	Address        string

	MinApy        *float64
	MaxApy        *float64
	MinApyMean30d *float64
	MaxApyMean30d *float64

	Limit     int
	Offset    int
	SkipCache bool
}

// CacheKey composes every filter parameter except pagination and the
// cache-bypass flag into a deterministic key.
func (f StrategyFilters) CacheKey() string {
	return strings.Join([]string{
		"strategies",
		strings.ToLower(f.RiskLevel),
		strings.ToLower(f.Protocol),
		strings.ToLower(f.Asset),
		strings.ToLower(f.Exposure),
		strings.ToLower(f.PredictedClass),
		strings.ToLower(f.Address),
		boundKey(f.MinApy),
		boundKey(f.MaxApy),
		boundKey(f.MinApyMean30d),
		boundKey(f.MaxApyMean30d),
	}, "|")
}

func boundKey(bound *float64) string {
	if bound == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *bound)
}

// matches applies every non-pagination filter to one strategy.
func (f StrategyFilters) matches(strategy types.Strategy) bool {
	if f.RiskLevel != "" && !strings.EqualFold(string(strategy.RiskLevel), f.RiskLevel) {
		return false
	}
	if f.Protocol != "" && !strings.EqualFold(strategy.ProtocolName, f.Protocol) {
		return false
	}
	if f.Asset != "" && !strings.Contains(strings.ToLower(strategy.AssetLabel), strings.ToLower(f.Asset)) {
		return false
	}
	if f.Exposure != "" && !strings.EqualFold(strategy.ExposureType, f.Exposure) {
		return false
	}
	if f.PredictedClass != "" {
		if strategy.Prediction == nil || !strings.EqualFold(strategy.Prediction.PredictedClass, f.PredictedClass) {
			return false
		}
	}
	if f.MinApy != nil && strategy.ApyPercent < *f.MinApy {
		return false
	}
	if f.MaxApy != nil && strategy.ApyPercent > *f.MaxApy {
		return false
	}
	if f.MinApyMean30d != nil && strategy.ApyMean30d < *f.MinApyMean30d {
		return false
	}
	if f.MaxApyMean30d != nil && strategy.ApyMean30d > *f.MaxApyMean30d {
		return false
	}
	return true
}
