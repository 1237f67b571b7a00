/*

Service is the orchestration layer between the HTTP handlers and the
data pipeline. Each public method runs one logical pipeline to
completion: fetch (through the caches), normalize, filter, annotate,
and hand the result back for serialization.

External clients are injected through narrow interfaces so the handlers
can be tested against stubs without any network.

*/

package pilot

import (
	"context"

	"github.com/defipilot/pilot/internal/cache"
	"github.com/defipilot/pilot/internal/datafetcher"
	"github.com/defipilot/pilot/internal/logger"
	"github.com/defipilot/pilot/internal/txbuilder"
	"github.com/defipilot/pilot/internal/types"
)

var serviceLogger = logger.GetForComponent("pilot_service")

// YieldFeed supplies raw pool records from the yield aggregator.
type YieldFeed interface {
	GetPools(ctx context.Context) ([]datafetcher.FeedPool, error)
}

// BalanceProvider supplies wallet token balances.
type BalanceProvider interface {
	GetPortfolio(ctx context.Context, address string) (*types.Portfolio, error)
}

// SubgraphProvider supplies protocol-specific records from subgraph
// indexers. Optional: a nil provider disables subgraph enrichment.
type SubgraphProvider interface {
	AgaveReserves(ctx context.Context) ([]datafetcher.AgaveReserve, error)
	HoneyswapPairs(ctx context.Context) ([]datafetcher.HoneyswapPair, error)
}

// Service wires the data clients, caches and transaction builder into
// the request pipelines the HTTP layer exposes.
type Service struct {
	feed      YieldFeed
	balances  BalanceProvider
	subgraphs SubgraphProvider

	strategyCache cache.Store
	balanceCache  cache.Store

	builder      *txbuilder.Builder
	auditEnabled bool
}

// NewService constructs the service. subgraphs may be nil; auditEnabled
// controls whether constructed batches are recorded to the database.
func NewService(
	feed YieldFeed,
	balances BalanceProvider,
	subgraphs SubgraphProvider,
	strategyCache cache.Store,
	balanceCache cache.Store,
	builder *txbuilder.Builder,
	auditEnabled bool,
) *Service {
	return &Service{
		feed:          feed,
		balances:      balances,
		subgraphs:     subgraphs,
		strategyCache: strategyCache,
		balanceCache:  balanceCache,
		builder:       builder,
		auditEnabled:  auditEnabled,
	}
}
