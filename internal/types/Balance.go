/*

Wallet balance types. These are supplied entirely by the external
balance provider and treated as read-only inputs.

*/

package types

// TokenInfo describes one token as reported by the balance provider.
type TokenInfo struct {
	Symbol   string  `json:"symbol"`
	Address  string  `json:"address"`
	Decimals int     `json:"decimals"`
	ChainID  int     `json:"chain_id"`
	PriceUSD float64 `json:"price_usd"`
}

// WalletBalance is one token position held by a wallet.
type WalletBalance struct {
	Token            TokenInfo `json:"token"`
	RawBalance       string    `json:"raw_balance"`       // minor units, decimal string
	FormattedBalance float64   `json:"formatted_balance"` // human-readable amount
	UsdValue         float64   `json:"usd_value"`
}

// Portfolio is the full balance set for one wallet address.
type Portfolio struct {
	Address       string          `json:"address"`
	Balances      []WalletBalance `json:"balances"`
	TotalValueUSD float64         `json:"total_value_usd"`
}
