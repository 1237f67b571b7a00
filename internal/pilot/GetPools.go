/*

Raw pool listing over the yield feed's own schema, for callers that
want the upstream shape rather than the normalized strategy model. The
risk filter is computed with the same classification rule the
normalizer uses, so the two surfaces never disagree on a pool's bucket.

*/

package pilot

import (
	"context"
	"strings"

	"github.com/defipilot/pilot/internal/datafetcher"
	"github.com/defipilot/pilot/internal/normalizer"
)

// PoolFilters is the filter surface of the raw pool listing. Nil
// pointers mean "unset".
type PoolFilters struct {
	Protocol string
	IlRisk   string
	Risk     string

	MinApy     *float64
	MaxApy     *float64
	MinTvl     *float64
	MaxTvl     *float64
	Stablecoin *bool
}

func (f PoolFilters) matches(pool datafetcher.FeedPool) bool {
	if f.Protocol != "" && !strings.EqualFold(pool.Project, f.Protocol) {
		return false
	}
	if f.IlRisk != "" && !strings.EqualFold(pool.IlRisk, f.IlRisk) {
		return false
	}
	if f.Stablecoin != nil && pool.Stablecoin != *f.Stablecoin {
		return false
	}
	if f.MinApy != nil && pool.Apy < *f.MinApy {
		return false
	}
	if f.MaxApy != nil && pool.Apy > *f.MaxApy {
		return false
	}
	if f.MinTvl != nil && pool.TvlUsd < *f.MinTvl {
		return false
	}
	if f.MaxTvl != nil && pool.TvlUsd > *f.MaxTvl {
		return false
	}
	if f.Risk != "" {
		level := normalizer.ClassifyRisk(pool.Apy, pool.IlRisk, pool.Outlook, pool.Stablecoin)
		if !strings.EqualFold(string(level), f.Risk) {
			return false
		}
	}
	return true
}

// GetPools returns yield-feed pool records matching the filters.
func (s *Service) GetPools(ctx context.Context, filters PoolFilters) ([]datafetcher.FeedPool, error) {
	pools, err := s.feed.GetPools(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]datafetcher.FeedPool, 0, len(pools))
	for _, pool := range pools {
		if filters.matches(pool) {
			filtered = append(filtered, pool)
		}
	}

	serviceLogger.Debug().Int("upstream", len(pools)).Int("filtered", len(filtered)).Msg("Raw pool list assembled")
	return filtered, nil
}
