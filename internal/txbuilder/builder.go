/*

This file maps a strategy + action + amount triple into an ordered
sequence of unsigned call descriptors: any required ERC-20 approvals
followed by the protocol entry call, ABI-encoded per protocol family.

The output is always unsigned. Signing and broadcasting are the wallet's
job; no key material ever enters this package.

*/

package txbuilder

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/defipilot/pilot/internal/config"
	"github.com/defipilot/pilot/internal/logger"
	"github.com/defipilot/pilot/internal/types"
)

var builderLogger = logger.GetForComponent("tx_builder")

var (
	ErrMissingTokenData      = fmt.Errorf("%w: strategy has no underlying token addresses", types.ErrDataIntegrity)
	ErrInsufficientTokenData = fmt.Errorf("%w: liquidity strategy requires a second underlying token", types.ErrDataIntegrity)
	ErrNotImplemented        = fmt.Errorf("%w: action not implemented for this strategy", types.ErrUnsupportedOperation)
	ErrUnknownAction         = fmt.Errorf("%w: unknown action", types.ErrValidation)
	ErrInvalidAmount         = fmt.Errorf("%w: amount must be positive and finite", types.ErrValidation)
	ErrInvalidUserAddress    = fmt.Errorf("%w: user address is not a valid hex address", types.ErrValidation)
)

// Accepted action verbs. Only the entry-equivalent and stake paths are
// implemented; the rest are declared intents that fail loudly instead of
// emitting an incorrect call.
const (
	ActionEnter           = "enter"
	ActionDeposit         = "deposit"
	ActionExit            = "exit"
	ActionWithdraw        = "withdraw"
	ActionAddLiquidity    = "addLiquidity"
	ActionRemoveLiquidity = "removeLiquidity"
	ActionStake           = "stake"
	ActionUnstake         = "unstake"
)

const liquidityDeadline = time.Hour

// Builder constructs unsigned transaction batches for strategy actions.
type Builder struct {
	chainID int
}

// NewBuilder creates a transaction builder for one chain.
func NewBuilder(chainID int) *Builder {
	return &Builder{chainID: chainID}
}

// Build resolves the strategy's router, determines approval requirements
// and native-token handling, and emits the ordered call batch for the
// requested action.
//
// Inputs:
//   - strategy: a normalized strategy carrying underlying token addresses.
//   - action: one of the accepted action verbs.
//   - amountDecimal: the human-readable amount of the primary token.
//   - userAddress: the wallet that will sign and execute the batch.
//
// Output:
//   - A TransactionBatch whose approvals precede the protocol call.
//   - A typed error: unsupported protocol, missing token data, invalid
//     parameters, or an unimplemented action.
func (b *Builder) Build(strategy *types.Strategy, action string, amountDecimal float64, userAddress string) (*types.TransactionBatch, error) {
	if strategy == nil {
		return nil, fmt.Errorf("%w: strategy is nil", types.ErrValidation)
	}
	if !common.IsHexAddress(userAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUserAddress, userAddress)
	}
	if math.IsNaN(amountDecimal) || math.IsInf(amountDecimal, 0) || amountDecimal <= 0 {
		return nil, fmt.Errorf("%w: %f", ErrInvalidAmount, amountDecimal)
	}

	entry, staking, err := resolveAction(action)
	if err != nil {
		return nil, err
	}

	router, isSharedVault, err := resolveRouter(strategy.ProtocolName)
	if err != nil {
		return nil, err
	}

	if !strategy.HasTokenData() {
		return nil, fmt.Errorf("%w: %s", ErrMissingTokenData, strategy.ID)
	}

	primary := strategy.PrimaryToken()
	isNative := config.IsNativeToken(primary)

	// ERC-20-style arguments always reference a real token contract; the
	// native amount travels in the transaction value instead.
	callToken := primary
	if isNative {
		callToken = config.WrappedNativeToken
	}

	amountWei, err := ToMinorUnits(amountDecimal, config.DecimalsFor(callToken))
	if err != nil {
		return nil, err
	}

	user := common.HexToAddress(userAddress)
	batch := &types.TransactionBatch{
		StrategyID:   strategy.ID,
		Protocol:     strings.ToLower(strategy.ProtocolName),
		StrategyType: strategy.StrategyType,
		Action:       action,
		ChainID:      b.chainID,
	}

	if !isNative {
		batch.Steps = append(batch.Steps, approvalStep(primary, router, strategy))
	}

	var mainStep types.TransactionStep
	switch {
	case staking:
		mainStep, err = b.stakeStep(router, amountWei, isNative)
	case entry && strategy.StrategyType == types.StrategyLending:
		mainStep, err = b.lendingStep(strategy, router, callToken, user, amountWei, isNative)
	case entry && strategy.StrategyType == types.StrategyLiquidityProviding && isSharedVault:
		mainStep, err = b.balancerJoinStep(strategy, router, user, amountWei, isNative)
	case entry && strategy.StrategyType == types.StrategyLiquidityProviding:
		return b.ammLiquidityBatch(batch, strategy, router, user, amountWei, isNative)
	case entry && strategy.StrategyType == types.StrategyStaking:
		mainStep, err = b.stakeStep(router, amountWei, isNative)
	case entry:
		// Unclassified types get the generic vault deposit.
		mainStep, err = b.genericDepositStep(router, amountWei, isNative)
	default:
		return nil, fmt.Errorf("%w: %q on %s strategy", ErrNotImplemented, action, strategy.StrategyType)
	}
	if err != nil {
		return nil, err
	}

	batch.Steps = append(batch.Steps, mainStep)

	builderLogger.Info().
		Str("strategyID", strategy.ID).
		Str("protocol", batch.Protocol).
		Str("action", action).
		Int("steps", len(batch.Steps)).
		Bool("native", isNative).
		Str("router", router.Hex()).
		Msg("Transaction batch constructed")

	return batch, nil
}

// resolveAction classifies the action verb. Accepted-but-unimplemented
// verbs return ErrNotImplemented; unknown verbs are a validation error.
func resolveAction(action string) (entry bool, staking bool, err error) {
	switch action {
	case ActionEnter, ActionDeposit:
		return true, false, nil
	case ActionStake:
		return false, true, nil
	case ActionExit, ActionWithdraw, ActionAddLiquidity, ActionRemoveLiquidity, ActionUnstake:
		return false, false, fmt.Errorf("%w: %q", ErrNotImplemented, action)
	default:
		return false, false, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func approvalStep(token string, spender common.Address, strategy *types.Strategy) types.TransactionStep {
	callData, err := encodeApprove(spender)
	if err != nil {
		// The approve fragment is static; a pack failure here is a
		// programming error.
		panic(fmt.Sprintf("txbuilder: encoding approve: %v", err))
	}
	return types.TransactionStep{
		TargetAddress: common.HexToAddress(token).Hex(),
		CallData:      hexutil.Encode(callData),
		ValueWei:      "0",
		Kind:          types.StepApproval,
		Description:   fmt.Sprintf("Approve %s router to spend token", strategy.ProtocolName),
	}
}

func (b *Builder) lendingStep(strategy *types.Strategy, router common.Address, callToken string, user common.Address, amountWei *big.Int, isNative bool) (types.TransactionStep, error) {
	// Agave kept the pre-rename "deposit" spelling; argument order is
	// identical but the selector differs, so it must be encoded under its
	// own name.
	functionName := "supply"
	if strings.EqualFold(strategy.ProtocolName, "agave") {
		functionName = "deposit"
	}

	callData, err := encodeLendingDeposit(functionName, common.HexToAddress(callToken), user, amountWei)
	if err != nil {
		return types.TransactionStep{}, fmt.Errorf("encoding %s call: %w", functionName, err)
	}
	return types.TransactionStep{
		TargetAddress: router.Hex(),
		CallData:      hexutil.Encode(callData),
		ValueWei:      stepValue(amountWei, isNative),
		Kind:          types.StepProtocolCall,
		Description:   fmt.Sprintf("Supply %s to %s", strategy.AssetLabel, strategy.ProtocolName),
	}, nil
}

// ammLiquidityBatch finishes the batch for a classic two-token AMM
// router. Both legs get an approval when neither is native; a native leg
// drops its approval and switches to the ETH-variant call.
func (b *Builder) ammLiquidityBatch(batch *types.TransactionBatch, strategy *types.Strategy, router common.Address, user common.Address, amountWei *big.Int, primaryNative bool) (*types.TransactionBatch, error) {
	if len(strategy.UnderlyingTokens) < 2 || strategy.UnderlyingTokens[1] == "" {
		return nil, fmt.Errorf("%w: %s", ErrInsufficientTokenData, strategy.ID)
	}

	primary := strategy.PrimaryToken()
	secondary := strategy.UnderlyingTokens[1]
	secondaryNative := config.IsNativeToken(secondary)
	deadline := big.NewInt(time.Now().Add(liquidityDeadline).Unix())

	// No slippage protection is modeled: both desired amounts equal the
	// requested amount with zero minimums. Known simplification.
	switch {
	case primaryNative:
		callData, err := encodeAddLiquidityETH(common.HexToAddress(secondary), user, amountWei, deadline)
		if err != nil {
			return nil, fmt.Errorf("encoding addLiquidityETH call: %w", err)
		}
		batch.Steps = append(batch.Steps, approvalStep(secondary, router, strategy), types.TransactionStep{
			TargetAddress: router.Hex(),
			CallData:      hexutil.Encode(callData),
			ValueWei:      amountWei.String(),
			Kind:          types.StepProtocolCall,
			Description:   fmt.Sprintf("Add %s liquidity on %s", strategy.AssetLabel, strategy.ProtocolName),
		})
	case secondaryNative:
		callData, err := encodeAddLiquidityETH(common.HexToAddress(primary), user, amountWei, deadline)
		if err != nil {
			return nil, fmt.Errorf("encoding addLiquidityETH call: %w", err)
		}
		// The primary approval is already in place from Build.
		batch.Steps = append(batch.Steps, types.TransactionStep{
			TargetAddress: router.Hex(),
			CallData:      hexutil.Encode(callData),
			ValueWei:      amountWei.String(),
			Kind:          types.StepProtocolCall,
			Description:   fmt.Sprintf("Add %s liquidity on %s", strategy.AssetLabel, strategy.ProtocolName),
		})
	default:
		callData, err := encodeAddLiquidity(common.HexToAddress(primary), common.HexToAddress(secondary), user, amountWei, deadline)
		if err != nil {
			return nil, fmt.Errorf("encoding addLiquidity call: %w", err)
		}
		batch.Steps = append(batch.Steps, approvalStep(secondary, router, strategy), types.TransactionStep{
			TargetAddress: router.Hex(),
			CallData:      hexutil.Encode(callData),
			ValueWei:      "0",
			Kind:          types.StepProtocolCall,
			Description:   fmt.Sprintf("Add %s liquidity on %s", strategy.AssetLabel, strategy.ProtocolName),
		})
	}

	builderLogger.Info().
		Str("strategyID", strategy.ID).
		Str("protocol", batch.Protocol).
		Int("steps", len(batch.Steps)).
		Msg("AMM liquidity batch constructed")

	return batch, nil
}

func (b *Builder) balancerJoinStep(strategy *types.Strategy, vault common.Address, user common.Address, amountWei *big.Int, isNative bool) (types.TransactionStep, error) {
	poolID, err := resolveBalancerPoolID(strategy)
	if err != nil {
		return types.TransactionStep{}, err
	}

	assets := make([]common.Address, len(strategy.UnderlyingTokens))
	maxAmountsIn := make([]*big.Int, len(strategy.UnderlyingTokens))
	for i, token := range strategy.UnderlyingTokens {
		if config.IsNativeToken(token) {
			// The vault's native joinPool variant uses the zero address
			// as the asset entry and takes the amount as call value.
			assets[i] = common.Address{}
		} else {
			assets[i] = common.HexToAddress(token)
		}
		// Only the primary token is funded.
		if i == 0 {
			maxAmountsIn[i] = amountWei
		} else {
			maxAmountsIn[i] = big.NewInt(0)
		}
	}

	callData, err := encodeJoinPool(poolID, user, assets, maxAmountsIn)
	if err != nil {
		return types.TransactionStep{}, fmt.Errorf("encoding joinPool call: %w", err)
	}
	return types.TransactionStep{
		TargetAddress: vault.Hex(),
		CallData:      hexutil.Encode(callData),
		ValueWei:      stepValue(amountWei, isNative),
		Kind:          types.StepProtocolCall,
		Description:   fmt.Sprintf("Join %s pool %s", strategy.ProtocolName, strategy.AssetLabel),
	}, nil
}

func (b *Builder) stakeStep(router common.Address, amountWei *big.Int, isNative bool) (types.TransactionStep, error) {
	callData, err := encodeStake(amountWei)
	if err != nil {
		return types.TransactionStep{}, fmt.Errorf("encoding stake call: %w", err)
	}
	return types.TransactionStep{
		TargetAddress: router.Hex(),
		CallData:      hexutil.Encode(callData),
		ValueWei:      stepValue(amountWei, isNative),
		Kind:          types.StepProtocolCall,
		Description:   "Stake tokens",
	}, nil
}

func (b *Builder) genericDepositStep(router common.Address, amountWei *big.Int, isNative bool) (types.TransactionStep, error) {
	callData, err := encodeGenericDeposit(amountWei)
	if err != nil {
		return types.TransactionStep{}, fmt.Errorf("encoding deposit call: %w", err)
	}
	return types.TransactionStep{
		TargetAddress: router.Hex(),
		CallData:      hexutil.Encode(callData),
		ValueWei:      stepValue(amountWei, isNative),
		Kind:          types.StepProtocolCall,
		Description:   "Deposit tokens",
	}, nil
}

func stepValue(amountWei *big.Int, isNative bool) string {
	if isNative {
		return amountWei.String()
	}
	return "0"
}

// ToMinorUnits converts a human-readable token amount to minor units at
// the given decimals. The conversion goes through the decimal string
// rendering to avoid binary floating point surprises.
func ToMinorUnits(amount float64, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > 36 {
		return nil, fmt.Errorf("%w: decimals %d out of range", types.ErrValidation, decimals)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, fmt.Errorf("%w: %f", ErrInvalidAmount, amount)
	}

	rendered := strings.TrimLeft(fmt.Sprintf("%.*f", decimals, amount), "0")
	rendered = strings.Replace(rendered, ".", "", 1)
	if rendered == "" {
		return nil, fmt.Errorf("%w: %f rounds to zero at %d decimals", ErrInvalidAmount, amount, decimals)
	}

	value, ok := new(big.Int).SetString(rendered, 10)
	if !ok {
		return nil, fmt.Errorf("%w: unparseable amount %f", ErrInvalidAmount, amount)
	}
	return value, nil
}
