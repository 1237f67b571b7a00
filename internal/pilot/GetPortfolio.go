package pilot

import (
	"context"
	"strings"

	"github.com/defipilot/pilot/internal/config"
	"github.com/defipilot/pilot/internal/types"
)

// GetPortfolio returns a wallet's token balances, served from the
// short-lived balance cache when fresh.
func (s *Service) GetPortfolio(ctx context.Context, address string) (*types.Portfolio, error) {
	return s.getPortfolioCached(ctx, address)
}

func (s *Service) getPortfolioCached(ctx context.Context, address string) (*types.Portfolio, error) {
	key := "portfolio|" + strings.ToLower(strings.TrimSpace(address))

	if entry, found := s.balanceCache.Get(key); found {
		if portfolio, ok := entry.(*types.Portfolio); ok {
			return portfolio, nil
		}
	}

	portfolio, err := s.balances.GetPortfolio(ctx, address)
	if err != nil {
		return nil, err
	}

	s.balanceCache.Set(key, portfolio, config.BalanceCacheTTL)
	return portfolio, nil
}
