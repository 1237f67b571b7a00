/*

Protocol resolution: routers, the shared Balancer vault, and pool
identifiers. The address data itself lives in the config tables; this
file is the lookup logic on top of it.

*/

package txbuilder

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/defipilot/pilot/internal/config"
	"github.com/defipilot/pilot/internal/types"
)

var ErrUnsupportedProtocol = fmt.Errorf("%w: no router registered for protocol", types.ErrUnsupportedOperation)
var ErrUnknownPoolID = fmt.Errorf("%w: no pool id registered for strategy", types.ErrDataIntegrity)

// resolveRouter returns the contract a protocol's entry calls target.
// Balancer-family protocols (Balancer, Aura) always resolve to the single
// shared vault, never a per-protocol router.
func resolveRouter(protocol string) (common.Address, bool, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))

	if config.BalancerFamilyProtocols[protocol] {
		return common.HexToAddress(config.BalancerVault), true, nil
	}
	if router, ok := config.ProtocolRouters[protocol]; ok {
		return common.HexToAddress(router), false, nil
	}
	return common.Address{}, false, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol)
}

// resolveBalancerPoolID finds the bytes32 pool identifier for a
// Balancer-family strategy. The registry is keyed by protocol and asset
// label; when no exact key matches, a substring match over the strategy's
// display name is attempted as a best-effort fallback.
func resolveBalancerPoolID(strategy *types.Strategy) ([32]byte, error) {
	protocol := strings.ToLower(strings.TrimSpace(strategy.ProtocolName))

	key := protocol + ":" + strings.ToLower(strings.TrimSpace(strategy.AssetLabel))
	if hexID, ok := config.BalancerPoolIDs[key]; ok {
		return poolIDFromHex(hexID)
	}

	// Fallback: match a registered asset label inside the strategy name.
	// Fragile by nature; the registry key is always preferred.
	name := strings.ToLower(strategy.Name)
	for registryKey, hexID := range config.BalancerPoolIDs {
		parts := strings.SplitN(registryKey, ":", 2)
		if len(parts) != 2 || parts[0] != protocol {
			continue
		}
		if strings.Contains(name, parts[1]) {
			return poolIDFromHex(hexID)
		}
	}

	return [32]byte{}, fmt.Errorf("%w: %s (%s)", ErrUnknownPoolID, strategy.ID, strategy.AssetLabel)
}

func poolIDFromHex(hexID string) ([32]byte, error) {
	raw := common.FromHex(hexID)
	if len(raw) != 32 {
		return [32]byte{}, fmt.Errorf("%w: pool id %q is not 32 bytes", types.ErrDataIntegrity, hexID)
	}
	var id [32]byte
	copy(id[:], raw)
	return id, nil
}
