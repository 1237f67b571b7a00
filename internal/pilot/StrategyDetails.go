package pilot

import (
	"context"
	"fmt"
	"strings"

	"github.com/defipilot/pilot/internal/config"
	"github.com/defipilot/pilot/internal/types"
)

// StrategyDetails returns one strategy by ID, or ErrNotFound.
func (s *Service) StrategyDetails(ctx context.Context, id string) (*types.Strategy, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: strategy id is required", types.ErrValidation)
	}
	return s.lookupStrategy(ctx, id)
}

// lookupStrategy resolves a strategy ID against the unfiltered list,
// going through the same cache the listing pipeline uses.
func (s *Service) lookupStrategy(ctx context.Context, id string) (*types.Strategy, error) {
	filters := StrategyFilters{}
	key := filters.CacheKey()

	var strategies []types.Strategy
	if entry, found := s.strategyCache.Get(key); found {
		if list, ok := entry.(cachedStrategyList); ok {
			strategies = list.strategies
		}
	}
	if strategies == nil {
		assembled, source, err := s.assembleStrategies(ctx, filters)
		if err != nil {
			return nil, err
		}
		s.strategyCache.Set(key, cachedStrategyList{strategies: assembled, source: source}, config.StrategyCacheTTL)
		strategies = assembled
	}

	for i := range strategies {
		if strings.EqualFold(strategies[i].ID, id) {
			strategy := strategies[i]
			return &strategy, nil
		}
	}
	return nil, fmt.Errorf("%w: strategy %q", types.ErrNotFound, id)
}
