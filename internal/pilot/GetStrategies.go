/*

The strategy listing pipeline: concurrent upstream fetch, normalization,
merge, filter, portfolio annotation, sort, cache, paginate.

The cache holds the full filtered-and-sorted list for one filter
signature; pagination slices the cached list per request, so any
limit/offset window over the same filters sees one consistent snapshot.

*/

package pilot

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/defipilot/pilot/internal/analyzer"
	"github.com/defipilot/pilot/internal/config"
	"github.com/defipilot/pilot/internal/datafetcher"
	"github.com/defipilot/pilot/internal/normalizer"
	"github.com/defipilot/pilot/internal/types"
)

const defaultPageLimit = 50

// StrategiesResult is the listing pipeline output.
type StrategiesResult struct {
	Strategies []types.Strategy `json:"strategies"`
	Total      int              `json:"total"`
	Cached     bool             `json:"cached"`
	Source     string           `json:"source"`
}

// cachedStrategyList is the value stored per filter signature: the full
// pre-pagination list plus its provenance.
type cachedStrategyList struct {
	strategies []types.Strategy
	source     string
}

// GetStrategies runs the listing pipeline for one filter set.
func (s *Service) GetStrategies(ctx context.Context, filters StrategyFilters) (*StrategiesResult, error) {
	key := filters.CacheKey()

	if !filters.SkipCache {
		if entry, found := s.strategyCache.Get(key); found {
			if list, ok := entry.(cachedStrategyList); ok {
				serviceLogger.Debug().Str("key", key).Int("total", len(list.strategies)).Msg("Strategy list served from cache")
				return paginate(list, filters, true), nil
			}
		}
	}

	strategies, source, err := s.assembleStrategies(ctx, filters)
	if err != nil {
		return nil, err
	}

	list := cachedStrategyList{strategies: strategies, source: source}
	s.strategyCache.Set(key, list, config.StrategyCacheTTL)

	return paginate(list, filters, false), nil
}

// assembleStrategies fetches all upstream sources concurrently and
// produces the full filtered-and-sorted list. A feed outage degrades to
// the static fallback list; subgraph and balance failures degrade to
// plain feed data.
func (s *Service) assembleStrategies(ctx context.Context, filters StrategyFilters) ([]types.Strategy, string, error) {
	var (
		feedPools []datafetcher.FeedPool
		reserves  []datafetcher.AgaveReserve
		pairs     []datafetcher.HoneyswapPair
		portfolio *types.Portfolio

		feedErr error
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		feedPools, feedErr = s.feed.GetPools(groupCtx)
		return nil
	})

	if s.subgraphs != nil {
		group.Go(func() error {
			var err error
			if reserves, err = s.subgraphs.AgaveReserves(groupCtx); err != nil {
				serviceLogger.Warn().Err(err).Msg("Agave subgraph unavailable, continuing without lending enrichment")
			}
			return nil
		})
		group.Go(func() error {
			var err error
			if pairs, err = s.subgraphs.HoneyswapPairs(groupCtx); err != nil {
				serviceLogger.Warn().Err(err).Msg("Honeyswap subgraph unavailable, continuing without pair enrichment")
			}
			return nil
		})
	}

	if filters.Address != "" {
		group.Go(func() error {
			var err error
			if portfolio, err = s.getPortfolioCached(groupCtx, filters.Address); err != nil {
				serviceLogger.Warn().Err(err).Str("address", filters.Address).Msg("Balance lookup failed, continuing without portfolio matching")
				portfolio = nil
			}
			return nil
		})
	}

	// Closures never return errors; degradation is handled per source.
	_ = group.Wait()

	source := SourceLive
	var strategies []types.Strategy
	if feedErr != nil {
		serviceLogger.Error().Err(feedErr).Msg("Yield feed unavailable, serving static fallback list")
		strategies = fallbackStrategies()
		source = SourceFallback
	} else {
		strategies = normalizer.NormalizeFeedPools(feedPools)
	}

	strategies = mergeStrategies(strategies, normalizer.NormalizeAgaveReserves(reserves))
	strategies = mergeStrategies(strategies, normalizer.NormalizeHoneyswapPairs(pairs))

	filtered := make([]types.Strategy, 0, len(strategies))
	for _, strategy := range strategies {
		if filters.matches(strategy) {
			filtered = append(filtered, strategy)
		}
	}

	if portfolio != nil {
		filtered = analyzer.AnnotatePortfolioMatches(filtered, portfolio)
	}
	analyzer.SortStrategies(filtered, portfolio != nil)

	serviceLogger.Info().
		Int("upstream", len(strategies)).
		Int("filtered", len(filtered)).
		Str("source", source).
		Bool("portfolioMatching", portfolio != nil).
		Msg("Strategy list assembled")

	return filtered, source, nil
}

// mergeStrategies appends additions whose IDs are not already present.
// The primary source wins on ID collisions.
func mergeStrategies(primary, additions []types.Strategy) []types.Strategy {
	if len(additions) == 0 {
		return primary
	}
	seen := make(map[string]bool, len(primary))
	for _, strategy := range primary {
		seen[strategy.ID] = true
	}
	for _, strategy := range additions {
		if !seen[strategy.ID] {
			primary = append(primary, strategy)
			seen[strategy.ID] = true
		}
	}
	return primary
}

// paginate slices the full list per the request window. Total always
// reflects the full filtered list, independent of the window.
func paginate(list cachedStrategyList, filters StrategyFilters, cached bool) *StrategiesResult {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	total := len(list.strategies)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]types.Strategy, end-offset)
	copy(page, list.strategies[offset:end])

	return &StrategiesResult{
		Strategies: page,
		Total:      total,
		Cached:     cached,
		Source:     list.source,
	}
}
