/*

ABI fragments and encoding helpers for every protocol call family the
builder emits. Fragments are parsed once at package init; a parse failure
is a programming error and panics immediately rather than surfacing as a
runtime encoding error.

*/

package txbuilder

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const lendingABIJSON = `[
	{"name":"supply","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"asset","type":"address"},{"name":"amount","type":"uint256"},
		{"name":"onBehalfOf","type":"address"},{"name":"referralCode","type":"uint16"}],"outputs":[]},
	{"name":"deposit","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"asset","type":"address"},{"name":"amount","type":"uint256"},
		{"name":"onBehalfOf","type":"address"},{"name":"referralCode","type":"uint16"}],"outputs":[]}
]`

const ammRouterABIJSON = `[
	{"name":"addLiquidity","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},
		{"name":"amountADesired","type":"uint256"},{"name":"amountBDesired","type":"uint256"},
		{"name":"amountAMin","type":"uint256"},{"name":"amountBMin","type":"uint256"},
		{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
		"outputs":[{"name":"amountA","type":"uint256"},{"name":"amountB","type":"uint256"},{"name":"liquidity","type":"uint256"}]},
	{"name":"addLiquidityETH","type":"function","stateMutability":"payable","inputs":[
		{"name":"token","type":"address"},{"name":"amountTokenDesired","type":"uint256"},
		{"name":"amountTokenMin","type":"uint256"},{"name":"amountETHMin","type":"uint256"},
		{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],
		"outputs":[{"name":"amountToken","type":"uint256"},{"name":"amountETH","type":"uint256"},{"name":"liquidity","type":"uint256"}]}
]`

const balancerVaultABIJSON = `[
	{"name":"joinPool","type":"function","stateMutability":"payable","inputs":[
		{"name":"poolId","type":"bytes32"},
		{"name":"sender","type":"address"},
		{"name":"recipient","type":"address"},
		{"name":"request","type":"tuple","components":[
			{"name":"assets","type":"address[]"},
			{"name":"maxAmountsIn","type":"uint256[]"},
			{"name":"userData","type":"bytes"},
			{"name":"fromInternalBalance","type":"bool"}]}],"outputs":[]}
]`

const stakingABIJSON = `[
	{"name":"stake","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"amount","type":"uint256"}],"outputs":[]}
]`

const genericVaultABIJSON = `[
	{"name":"deposit","type":"function","stateMutability":"nonpayable","inputs":[
		{"name":"amount","type":"uint256"}],"outputs":[]}
]`

var (
	erc20ABI        abi.ABI
	lendingABI      abi.ABI
	ammRouterABI    abi.ABI
	balancerABI     abi.ABI
	stakingABI      abi.ABI
	genericVaultABI abi.ABI

	// MaxUint256 is the unlimited-approval amount: approvals always use
	// the maximum representable value, never the requested amount, so
	// subsequent calls to the same router need no fresh approval.
	MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	// joinKindExactTokensIn is the Balancer join kind for supplying exact
	// token amounts for pool shares.
	joinKindExactTokensIn = big.NewInt(1)
)

func init() {
	erc20ABI = mustParseABI("erc20", erc20ABIJSON)
	lendingABI = mustParseABI("lending", lendingABIJSON)
	ammRouterABI = mustParseABI("amm_router", ammRouterABIJSON)
	balancerABI = mustParseABI("balancer_vault", balancerVaultABIJSON)
	stakingABI = mustParseABI("staking", stakingABIJSON)
	genericVaultABI = mustParseABI("generic_vault", genericVaultABIJSON)
}

func mustParseABI(name, fragment string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(fragment))
	if err != nil {
		panic(fmt.Sprintf("txbuilder: parsing %s ABI fragment: %v", name, err))
	}
	return parsed
}

// encodeApprove encodes an unlimited ERC-20 approval for spender.
func encodeApprove(spender common.Address) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, MaxUint256)
}

// encodeLendingDeposit encodes a lending-pool supply call. Agave keeps
// the pre-rename "deposit" spelling with identical argument order, so the
// function name is caller-selected.
func encodeLendingDeposit(functionName string, asset, onBehalfOf common.Address, amount *big.Int) ([]byte, error) {
	return lendingABI.Pack(functionName, asset, amount, onBehalfOf, uint16(0))
}

// encodeAddLiquidity encodes a two-token AMM liquidity add with equal
// desired amounts and zero minimums.
func encodeAddLiquidity(tokenA, tokenB, to common.Address, amount, deadline *big.Int) ([]byte, error) {
	zero := big.NewInt(0)
	return ammRouterABI.Pack("addLiquidity", tokenA, tokenB, amount, amount, zero, zero, to, deadline)
}

// encodeAddLiquidityETH encodes the native-leg AMM liquidity add; the
// native amount travels in the transaction value, not the arguments.
func encodeAddLiquidityETH(token, to common.Address, tokenAmount, deadline *big.Int) ([]byte, error) {
	zero := big.NewInt(0)
	return ammRouterABI.Pack("addLiquidityETH", token, tokenAmount, zero, zero, to, deadline)
}

// joinPoolRequest mirrors the Balancer vault's JoinPoolRequest tuple.
type joinPoolRequest struct {
	Assets              []common.Address
	MaxAmountsIn        []*big.Int
	UserData            []byte
	FromInternalBalance bool
}

// encodeJoinPool encodes a Balancer vault joinPool call funding only the
// primary token.
func encodeJoinPool(poolID [32]byte, sender common.Address, assets []common.Address, maxAmountsIn []*big.Int) ([]byte, error) {
	userData, err := encodeJoinUserData(maxAmountsIn)
	if err != nil {
		return nil, fmt.Errorf("encoding join user data: %w", err)
	}
	request := joinPoolRequest{
		Assets:              assets,
		MaxAmountsIn:        maxAmountsIn,
		UserData:            userData,
		FromInternalBalance: false,
	}
	return balancerABI.Pack("joinPool", poolID, sender, sender, request)
}

// encodeJoinUserData encodes the EXACT_TOKENS_IN_FOR_BPT_OUT user data:
// (joinKind, amountsIn, minimumBPT).
func encodeJoinUserData(amountsIn []*big.Int) ([]byte, error) {
	uint256Type, err := abi.NewType("uint256", "", nil)
	if err != nil {
		return nil, err
	}
	uint256ArrayType, err := abi.NewType("uint256[]", "", nil)
	if err != nil {
		return nil, err
	}
	arguments := abi.Arguments{
		{Type: uint256Type},
		{Type: uint256ArrayType},
		{Type: uint256Type},
	}
	return arguments.Pack(joinKindExactTokensIn, amountsIn, big.NewInt(0))
}

// encodeStake encodes a bare stake(amount) call.
func encodeStake(amount *big.Int) ([]byte, error) {
	return stakingABI.Pack("stake", amount)
}

// encodeGenericDeposit encodes the fallback deposit(amount) call used for
// unclassified strategy types.
func encodeGenericDeposit(amount *big.Int) ([]byte, error) {
	return genericVaultABI.Pack("deposit", amount)
}
