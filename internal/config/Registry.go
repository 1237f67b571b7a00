/*

Static on-chain address data for Gnosis Chain.

Protocol routers, the shared Balancer vault, native-token sentinels and
token decimals live here as loaded tables, not scattered literals. Adding
a protocol is an addition to data, not code.

Addresses are checksummed where upstream documentation provides them.

*/

package config

import "strings"

const (
	// NativeTokenSentinel is the reserved ERC-20-style placeholder for the
	// chain's native token (xDAI).
	NativeTokenSentinel = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"
	// ZeroAddress is treated as an alternate native placeholder by some feeds.
	ZeroAddress = "0x0000000000000000000000000000000000000000"
	// WrappedNativeToken is WXDAI, substituted for the sentinel in
	// ERC-20-style calls.
	WrappedNativeToken = "0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d"
	// BalancerVault is the single shared vault all Balancer-family
	// protocols (Balancer, Aura) route through.
	BalancerVault = "0xBA12222222228d8Ba445958a75a0704d566BF2C8"
)

// ProtocolRouters maps a lowercased protocol name to its router or
// lending-pool contract. Balancer-family protocols are absent on purpose:
// they always resolve to BalancerVault.
var ProtocolRouters = map[string]string{
	"agave":     "0x5E15d5E33d318dCEd84Bfe3F4EACe07909bE6d9c",
	"honeyswap": "0x1C232F01118CB8B424793ae03F870aa7D0ac7f77",
	"sushiswap": "0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506",
	"curve":     "0x7f90122BF0700F9E7e1F688fe926940E8839F353",
	"symmetric": "0x9b8Dbd2d8fC6B8a1b435E95b7c93653D412BaB30",
}

// BalancerFamilyProtocols are the protocols that deposit through the
// shared vault via joinPool instead of a per-protocol router.
var BalancerFamilyProtocols = map[string]bool{
	"balancer":    true,
	"balancer-v2": true,
	"aura":        true,
}

// BalancerPoolIDs maps a canonical protocol+asset key to the bytes32 pool
// identifier used in joinPool calls. Keys are lowercased
// "<protocol>:<asset-label>".
var BalancerPoolIDs = map[string]string{
	"balancer:gno-wxdai":       "0x66f33ae36dd80327744207a48122f874634b3ada000100000000000000000013",
	"balancer:wxdai-usdc-usdt": "0x2086f52651837600180de173b09470f54ef7491000000000000000000000001d",
	"balancer:gno-weth":        "0x21d4c792ea7e38e0d0819c2011a2b1cb7252bd9900020000000000000000001a",
	"aura:gno-wxdai":           "0x66f33ae36dd80327744207a48122f874634b3ada000100000000000000000013",
}

// TokenDecimals records decimals for tokens that deviate from the
// 18-decimal default.
var TokenDecimals = map[string]int{
	"0xDDAfbb505ad214D7b80b1f830fcCc89B60fb7A83": 6, // USDC
	"0x4ECaBa5870353805a9F068101A40E0f32ed605C6": 6, // USDT
	"0x8e5bBbb09Ed1ebdE8674Cda39A0c169401db4252": 8, // WBTC
}

// IsNativeToken reports whether an address is a native-token placeholder.
func IsNativeToken(address string) bool {
	return strings.EqualFold(address, NativeTokenSentinel) || strings.EqualFold(address, ZeroAddress)
}

// DecimalsFor returns the registered decimals for a token address, or the
// configured default when unknown.
func DecimalsFor(address string) int {
	for registered, decimals := range TokenDecimals {
		if strings.EqualFold(registered, address) {
			return decimals
		}
	}
	if DefaultTokenDecimals > 0 {
		return DefaultTokenDecimals
	}
	return 18
}
