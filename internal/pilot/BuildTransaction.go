/*

Transaction construction entry point: resolve the strategy by ID, hand
it to the builder, and record the resulting batch to the audit table
when auditing is enabled. The batch is always unsigned; no key material
is accepted or produced anywhere in this path.

*/

package pilot

import (
	"context"
	"fmt"
	"strings"

	"github.com/defipilot/pilot/internal/state"
	"github.com/defipilot/pilot/internal/types"
)

// BuildRequest carries the create-transaction parameters.
type BuildRequest struct {
	StrategyID  string  `json:"strategyId"`
	Action      string  `json:"action"`
	Amount      float64 `json:"amount"`
	UserAddress string  `json:"userAddress"`

	// SlippageTolerance is accepted and echoed back but not applied to
	// the constructed calls. Zero minimums remain in effect.
	SlippageTolerance float64 `json:"slippageTolerance,omitempty"`
}

// BuildResult pairs the constructed batch with the resolved strategy so
// the handler can shape the response without a second lookup.
type BuildResult struct {
	Batch             *types.TransactionBatch
	Strategy          *types.Strategy
	SlippageTolerance float64
}

// BuildTransaction resolves a strategy and constructs its unsigned
// transaction batch.
func (s *Service) BuildTransaction(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	if strings.TrimSpace(req.StrategyID) == "" {
		return nil, fmt.Errorf("%w: strategyId is required", types.ErrValidation)
	}
	if strings.TrimSpace(req.Action) == "" {
		return nil, fmt.Errorf("%w: action is required", types.ErrValidation)
	}

	strategy, err := s.lookupStrategy(ctx, req.StrategyID)
	if err != nil {
		return nil, err
	}

	batch, err := s.builder.Build(strategy, req.Action, req.Amount, req.UserAddress)
	if err != nil {
		return nil, err
	}

	if s.auditEnabled {
		if _, auditErr := state.RecordTransactionBatch(batch, req.UserAddress, req.Amount); auditErr != nil {
			// Auditing is best effort; the caller still gets the batch.
			serviceLogger.Error().Err(auditErr).Str("strategyID", batch.StrategyID).Msg("Failed to record transaction batch")
		}
	}

	return &BuildResult{
		Batch:             batch,
		Strategy:          strategy,
		SlippageTolerance: req.SlippageTolerance,
	}, nil
}

// RecentTransactions returns the newest recorded batches from the audit
// table. Requires auditing to be enabled.
func (s *Service) RecentTransactions(ctx context.Context, limit int) ([]state.BatchRecord, error) {
	if !s.auditEnabled {
		return nil, fmt.Errorf("%w: transaction auditing is not enabled", types.ErrValidation)
	}

	records, err := state.GetRecentBatches(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent transaction batches: %w", err)
	}
	return records, nil
}
