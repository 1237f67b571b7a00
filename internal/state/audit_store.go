// ./internal/state/audit_store.go
package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/defipilot/pilot/internal/types"
)

// BatchRecord is a persisted row describing one constructed transaction
// batch. Nothing here is ever signed; the table is an audit trail of what
// the service handed out.
type BatchRecord struct {
	BatchID       int64                   `json:"batch_id"`
	CreatedAt     time.Time               `json:"created_at"`
	StrategyID    string                  `json:"strategy_id"`
	Protocol      string                  `json:"protocol"`
	StrategyType  string                  `json:"strategy_type"`
	Action        string                  `json:"action"`
	ChainID       int                     `json:"chain_id"`
	UserAddress   string                  `json:"user_address"`
	AmountDecimal float64                 `json:"amount_decimal"`
	Steps         []types.TransactionStep `json:"steps"`
}

// RecordTransactionBatch saves one constructed batch to the audit table.
func RecordTransactionBatch(batch *types.TransactionBatch, userAddress string, amountDecimal float64) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	stepsJSON, err := json.Marshal(batch.Steps)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		INSERT INTO transaction_batches (
			strategy_id, protocol, strategy_type, action, chain_id,
			user_address, amount_decimal, step_count, steps
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING batch_id;
	`

	var batchID int64
	err = DB.QueryRow(
		query,
		batch.StrategyID, batch.Protocol, string(batch.StrategyType), batch.Action, batch.ChainID,
		userAddress, amountDecimal, len(batch.Steps), stepsJSON,
	).Scan(&batchID)

	if err != nil {
		return 0, fmt.Errorf("failed to save transaction batch: %w", err)
	}

	log.Info().
		Int64("batch_id", batchID).
		Str("strategy_id", batch.StrategyID).
		Int("step_count", len(batch.Steps)).
		Msg("Transaction batch recorded to database")

	return batchID, nil
}

// GetRecentBatches retrieves the most recent audit rows, newest first.
func GetRecentBatches(limit int) ([]BatchRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT batch_id, created_at, strategy_id, protocol, strategy_type,
		       action, chain_id, user_address, amount_decimal, steps
		FROM transaction_batches
		ORDER BY created_at DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction batches: %w", err)
	}
	defer rows.Close()

	var records []BatchRecord
	for rows.Next() {
		var record BatchRecord
		var stepsJSON []byte
		err = rows.Scan(
			&record.BatchID, &record.CreatedAt, &record.StrategyID, &record.Protocol, &record.StrategyType,
			&record.Action, &record.ChainID, &record.UserAddress, &record.AmountDecimal, &stepsJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction batch row: %w", err)
		}
		if err := json.Unmarshal(stepsJSON, &record.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps for batch %d: %w", record.BatchID, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction batch rows: %w", err)
	}

	return records, nil
}
