/*

Unsigned transaction types. The service only ever constructs call
descriptors; signing and broadcasting happen client side.

*/

package types

// StepKind distinguishes ERC-20 approvals from the protocol call they
// authorize.
type StepKind string

const (
	StepApproval     StepKind = "approval"
	StepProtocolCall StepKind = "protocol_call"
)

// TransactionStep is one unsigned call descriptor. ValueWei is non-zero
// only for native-token-denominated calls.
type TransactionStep struct {
	TargetAddress string   `json:"to"`
	CallData      string   `json:"data"`  // 0x-prefixed ABI-encoded calldata
	ValueWei      string   `json:"value"` // decimal string, "0" for token calls
	Kind          StepKind `json:"kind"`
	Description   string   `json:"description,omitempty"`
}

// TransactionBatch is an ordered sequence of steps, executed by the
// caller's wallet in array order. Approvals always precede the protocol
// call they authorize.
type TransactionBatch struct {
	Steps        []TransactionStep `json:"steps"`
	StrategyID   string            `json:"strategy_id"`
	Protocol     string            `json:"protocol"`
	StrategyType StrategyType      `json:"strategy_type"`
	Action       string            `json:"action"`
	ChainID      int               `json:"chain_id"`
}
