package pilot

import (
	"context"

	"github.com/defipilot/pilot/internal/types"
)

const defaultSuggestionLimit = 5

// SuggestPools returns strategies most relevant to a wallet: matched
// strategies first, topped up with the highest-APY unmatched ones when
// the wallet's holdings overlap fewer than limit strategies.
func (s *Service) SuggestPools(ctx context.Context, address string, limit int) ([]types.Strategy, error) {
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}

	result, err := s.GetStrategies(ctx, StrategyFilters{Address: address, Limit: limit * 4})
	if err != nil {
		return nil, err
	}

	suggestions := make([]types.Strategy, 0, limit)
	for _, strategy := range result.Strategies {
		if strategy.PortfolioMatch != nil {
			suggestions = append(suggestions, strategy)
			if len(suggestions) == limit {
				return suggestions, nil
			}
		}
	}
	for _, strategy := range result.Strategies {
		if strategy.PortfolioMatch == nil {
			suggestions = append(suggestions, strategy)
			if len(suggestions) == limit {
				break
			}
		}
	}
	return suggestions, nil
}
