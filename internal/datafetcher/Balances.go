/*

This file fetches wallet token balances from the external balance
provider. Balances are read-only inputs: the service never derives or
corrects them, only validates that they are usable.

*/

package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/defipilot/pilot/internal/logger"
	"github.com/defipilot/pilot/internal/types"
)

var balanceLogger = logger.GetForComponent("balance_provider")

var ErrBalanceUnavailable = fmt.Errorf("%w: balance provider unavailable", types.ErrUpstream)
var ErrInvalidAddress = fmt.Errorf("%w: invalid wallet address", types.ErrValidation)

const balanceTimeout = 10 * time.Second

// BalanceClient fetches wallet token balances for one chain.
type BalanceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBalanceClient creates a balance provider client.
func NewBalanceClient(baseURL string) *BalanceClient {
	return &BalanceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: balanceTimeout},
	}
}

// GetPortfolio fetches all token balances for a wallet address and the
// aggregate USD value.
func (c *BalanceClient) GetPortfolio(ctx context.Context, address string) (*types.Portfolio, error) {
	if !looksLikeAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	endpoint := fmt.Sprintf("%s/balances?address=%s", strings.TrimRight(c.baseURL, "/"), url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBalanceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		balanceLogger.Error().Err(err).Str("address", address).Msg("Balance provider request failed")
		return nil, fmt.Errorf("%w: %w", ErrBalanceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		balanceLogger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Balance provider returned non-200 status")
		return nil, fmt.Errorf("%w: status %d", ErrBalanceUnavailable, resp.StatusCode)
	}

	var portfolio types.Portfolio
	if err := json.NewDecoder(resp.Body).Decode(&portfolio); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBalanceUnavailable, err)
	}
	portfolio.Address = address

	// Drop entries the rest of the pipeline cannot price; one bad token
	// must not hide the rest of the wallet.
	valid := make([]types.WalletBalance, 0, len(portfolio.Balances))
	total := 0.0
	for _, balance := range portfolio.Balances {
		if err := validateBalance(balance); err != nil {
			balanceLogger.Warn().
				Err(err).
				Str("symbol", balance.Token.Symbol).
				Msg("Skipping invalid balance entry")
			continue
		}
		valid = append(valid, balance)
		total += balance.UsdValue
	}
	portfolio.Balances = valid
	portfolio.TotalValueUSD = total

	balanceLogger.Info().
		Str("address", address).
		Int("tokens", len(valid)).
		Float64("totalValueUSD", total).
		Msg("Portfolio fetched")

	return &portfolio, nil
}

func validateBalance(balance types.WalletBalance) error {
	if strings.TrimSpace(balance.Token.Symbol) == "" {
		return errors.New("token symbol is empty")
	}
	if math.IsNaN(balance.UsdValue) || math.IsInf(balance.UsdValue, 0) || balance.UsdValue < 0 {
		return errors.New("usd value is invalid")
	}
	if math.IsNaN(balance.FormattedBalance) || math.IsInf(balance.FormattedBalance, 0) || balance.FormattedBalance < 0 {
		return errors.New("formatted balance is invalid")
	}
	return nil
}

// looksLikeAddress checks the 0x-prefixed 40-hex-char shape without
// pulling in a full checksum validation.
func looksLikeAddress(address string) bool {
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return false
	}
	for _, r := range address[2:] {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
