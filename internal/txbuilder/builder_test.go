package txbuilder

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defipilot/pilot/internal/config"
	"github.com/defipilot/pilot/internal/types"
)

const (
	testUser      = "0x1111111111111111111111111111111111111111"
	testTokenA    = "0xDDAfbb505ad214D7b80b1f830fcCc89B60fb7A83" // USDC on Gnosis
	testTokenB    = "0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d" // WXDAI
	testGnosisID  = 100
	hundredErc20  = "100000000"              // 100 at 6 decimals
	hundredNative = "100000000000000000000" // 100 at 18 decimals
)

func lendingStrategy(protocol string) *types.Strategy {
	return &types.Strategy{
		ID:               protocol + "-usdc",
		Name:             "USDC Lending",
		ProtocolName:     protocol,
		AssetLabel:       "USDC",
		StrategyType:     types.StrategyLending,
		UnderlyingTokens: []string{testTokenA},
	}
}

func TestBuildLendingDeposit(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	batch, err := builder.Build(lendingStrategy("agave"), ActionEnter, 100, testUser)
	require.NoError(t, err)

	require.Len(t, batch.Steps, 2)
	assert.Equal(t, types.StepApproval, batch.Steps[0].Kind)
	assert.Equal(t, testTokenA, batch.Steps[0].TargetAddress)
	assert.Equal(t, "0", batch.Steps[0].ValueWei)
	assert.Equal(t, types.StepProtocolCall, batch.Steps[1].Kind)
	assert.Equal(t, "0", batch.Steps[1].ValueWei)
	assert.Equal(t, testGnosisID, batch.ChainID)
	assert.Equal(t, "agave", batch.Protocol)
}

func TestBuildAgaveUsesDepositSelector(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	batch, err := builder.Build(lendingStrategy("agave"), ActionDeposit, 100, testUser)
	require.NoError(t, err)

	// Agave kept the pre-rename "deposit" name; the batch selector must
	// match it, not the renamed "supply".
	asset := common.HexToAddress(testTokenA)
	user := common.HexToAddress(testUser)
	amount, _ := ToMinorUnits(100, 6)
	expected, err := encodeLendingDeposit("deposit", asset, user, amount)
	require.NoError(t, err)
	renamed, err := encodeLendingDeposit("supply", asset, user, amount)
	require.NoError(t, err)

	callData := batch.Steps[1].CallData
	assert.True(t, strings.HasPrefix(callData, hexutil.Encode(expected[:4])))
	assert.False(t, strings.HasPrefix(callData, hexutil.Encode(renamed[:4])))
}

func TestBuildNativeLendingIsSingleStep(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	strategy := lendingStrategy("agave")
	strategy.AssetLabel = "XDAI"
	strategy.UnderlyingTokens = []string{config.NativeTokenSentinel}

	batch, err := builder.Build(strategy, ActionEnter, 100, testUser)
	require.NoError(t, err)

	// Native deposits carry the amount as call value and need no
	// approval step.
	require.Len(t, batch.Steps, 1)
	assert.Equal(t, types.StepProtocolCall, batch.Steps[0].Kind)
	assert.Equal(t, hundredNative, batch.Steps[0].ValueWei)
}

func TestBuildZeroAddressTreatedAsNative(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	strategy := lendingStrategy("agave")
	strategy.UnderlyingTokens = []string{config.ZeroAddress}

	batch, err := builder.Build(strategy, ActionEnter, 1, testUser)
	require.NoError(t, err)
	require.Len(t, batch.Steps, 1)
	assert.NotEqual(t, "0", batch.Steps[0].ValueWei)
}

func TestBuildAmmLiquidityStepOrder(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	strategy := &types.Strategy{
		ID:               "honeyswap-usdc-wxdai",
		ProtocolName:     "honeyswap",
		AssetLabel:       "USDC-WXDAI",
		StrategyType:     types.StrategyLiquidityProviding,
		UnderlyingTokens: []string{testTokenA, testTokenB},
	}

	batch, err := builder.Build(strategy, ActionEnter, 100, testUser)
	require.NoError(t, err)

	require.Len(t, batch.Steps, 3)
	assert.Equal(t, types.StepApproval, batch.Steps[0].Kind)
	assert.Equal(t, testTokenA, batch.Steps[0].TargetAddress)
	assert.Equal(t, types.StepApproval, batch.Steps[1].Kind)
	assert.Equal(t, testTokenB, batch.Steps[1].TargetAddress)
	assert.Equal(t, types.StepProtocolCall, batch.Steps[2].Kind)
	assert.Equal(t, "0", batch.Steps[2].ValueWei)
}

func TestBuildAmmLiquidityNativeLeg(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	strategy := &types.Strategy{
		ID:               "honeyswap-xdai-usdc",
		ProtocolName:     "honeyswap",
		AssetLabel:       "XDAI-USDC",
		StrategyType:     types.StrategyLiquidityProviding,
		UnderlyingTokens: []string{config.NativeTokenSentinel, testTokenA},
	}

	batch, err := builder.Build(strategy, ActionEnter, 100, testUser)
	require.NoError(t, err)

	// One approval for the ERC-20 leg, then the ETH-variant call with
	// value attached.
	require.Len(t, batch.Steps, 2)
	assert.Equal(t, types.StepApproval, batch.Steps[0].Kind)
	assert.Equal(t, testTokenA, batch.Steps[0].TargetAddress)
	assert.Equal(t, types.StepProtocolCall, batch.Steps[1].Kind)
	assert.Equal(t, hundredNative, batch.Steps[1].ValueWei)
}

func TestBuildAmmLiquiditySecondTokenMissing(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	strategy := &types.Strategy{
		ID:               "honeyswap-usdc",
		ProtocolName:     "honeyswap",
		AssetLabel:       "USDC",
		StrategyType:     types.StrategyLiquidityProviding,
		UnderlyingTokens: []string{testTokenA},
	}

	_, err := builder.Build(strategy, ActionEnter, 100, testUser)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDataIntegrity)
}

func TestBuildBalancerJoin(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	strategy := &types.Strategy{
		ID:               "balancer-gno-wxdai",
		ProtocolName:     "balancer",
		AssetLabel:       "GNO-WXDAI",
		StrategyType:     types.StrategyLiquidityProviding,
		UnderlyingTokens: []string{testTokenB, testTokenA},
	}

	batch, err := builder.Build(strategy, ActionEnter, 50, testUser)
	require.NoError(t, err)

	require.Len(t, batch.Steps, 2)
	assert.Equal(t, types.StepApproval, batch.Steps[0].Kind)
	call := batch.Steps[1]
	assert.Equal(t, types.StepProtocolCall, call.Kind)
	assert.Equal(t, config.BalancerVault, call.TargetAddress)
	assert.Equal(t, "0", call.ValueWei)
}

func TestBuildStake(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	strategy := &types.Strategy{
		ID:               "agave-stkagve",
		ProtocolName:     "agave",
		AssetLabel:       "STKAGVE",
		StrategyType:     types.StrategyStaking,
		UnderlyingTokens: []string{testTokenA},
	}

	batch, err := builder.Build(strategy, ActionStake, 25, testUser)
	require.NoError(t, err)

	require.Len(t, batch.Steps, 2)
	assert.Equal(t, types.StepProtocolCall, batch.Steps[1].Kind)
	assert.True(t, strings.HasPrefix(batch.Steps[1].CallData, "0x"))
}

func TestBuildUnsupportedProtocol(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	strategy := lendingStrategy("unknown-farm")
	_, err := builder.Build(strategy, ActionEnter, 100, testUser)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnsupportedOperation)
}

func TestBuildUnimplementedActions(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	for _, action := range []string{ActionExit, ActionWithdraw, ActionAddLiquidity, ActionRemoveLiquidity, ActionUnstake} {
		_, err := builder.Build(lendingStrategy("agave"), action, 100, testUser)
		require.Error(t, err, action)
		assert.ErrorIs(t, err, types.ErrUnsupportedOperation, action)
	}
}

func TestBuildUnknownAction(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	_, err := builder.Build(lendingStrategy("agave"), "compound", 100, testUser)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestBuildInvalidInputs(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	_, err := builder.Build(lendingStrategy("agave"), ActionEnter, -5, testUser)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = builder.Build(lendingStrategy("agave"), ActionEnter, 100, "not-an-address")
	assert.ErrorIs(t, err, types.ErrValidation)

	noTokens := lendingStrategy("agave")
	noTokens.UnderlyingTokens = nil
	_, err = builder.Build(noTokens, ActionEnter, 100, testUser)
	assert.ErrorIs(t, err, types.ErrDataIntegrity)
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		decimals int
		want     string
	}{
		{"whole tokens 18 decimals", 100, 18, hundredNative},
		{"whole tokens 6 decimals", 100, 6, hundredErc20},
		{"fractional", 0.5, 18, "500000000000000000"},
		{"small fraction 6 decimals", 0.000001, 6, "1"},
		{"zero decimals", 42, 0, "42"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToMinorUnits(tc.amount, tc.decimals)
			require.NoError(t, err)
			want, ok := new(big.Int).SetString(tc.want, 10)
			require.True(t, ok)
			assert.Zero(t, got.Cmp(want))
		})
	}
}

func TestToMinorUnitsRejectsBadInput(t *testing.T) {
	_, err := ToMinorUnits(0, 18)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = ToMinorUnits(-1, 18)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = ToMinorUnits(1, 40)
	assert.ErrorIs(t, err, types.ErrValidation)

	// Below representable precision at the token's decimals.
	_, err = ToMinorUnits(0.0000001, 6)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestApprovalIsUnlimited(t *testing.T) {
	builder := NewBuilder(testGnosisID)

	batch, err := builder.Build(lendingStrategy("agave"), ActionEnter, 100, testUser)
	require.NoError(t, err)

	approval := batch.Steps[0].CallData
	// approve(address,uint256) with MaxUint256 ends in 64 f's.
	assert.True(t, strings.HasSuffix(approval, strings.Repeat("f", 64)))
}
