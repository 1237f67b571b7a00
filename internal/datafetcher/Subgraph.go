/*

This file queries protocol subgraphs for data the yield feed does not
carry: Agave lending reserves and Honeyswap pair metrics.

Subgraph data is an enrichment source. A failed subgraph query degrades
to feed-only strategies; it never fails a listing request.

*/

package datafetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/defipilot/pilot/internal/logger"
	"github.com/defipilot/pilot/internal/types"
)

var subgraphLogger = logger.GetForComponent("subgraph")

var ErrSubgraphUnavailable = fmt.Errorf("%w: subgraph unavailable", types.ErrUpstream)

const (
	subgraphTimeout       = 15 * time.Second
	subgraphRatePerSecond = 1
	subgraphRateBurst     = 2

	agaveReservesQuery = `{
  reserves(where: {isActive: true, isFrozen: false}) {
    underlyingAsset
    symbol
    decimals
    liquidityRate
    totalLiquidity
    price { priceInEth }
  }
}`

	honeyswapPairsQuery = `{
  pairs(first: 100, orderBy: reserveUSD, orderDirection: desc) {
    id
    token0 { id symbol }
    token1 { id symbol }
    reserveUSD
    volumeUSD
  }
}`
)

// AgaveReserve is one lending reserve from the Agave subgraph.
type AgaveReserve struct {
	UnderlyingAsset string `json:"underlyingAsset"`
	Symbol          string `json:"symbol"`
	Decimals        int    `json:"decimals"`
	// LiquidityRate is the supply rate in ray units (1e27), per Aave
	// subgraph conventions.
	LiquidityRate  string `json:"liquidityRate"`
	TotalLiquidity string `json:"totalLiquidity"`
}

// PairToken is one side of a DEX pair.
type PairToken struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

// HoneyswapPair is one AMM pair from the Honeyswap subgraph.
type HoneyswapPair struct {
	ID         string    `json:"id"`
	Token0     PairToken `json:"token0"`
	Token1     PairToken `json:"token1"`
	ReserveUSD string    `json:"reserveUSD"`
	VolumeUSD  string    `json:"volumeUSD"`
}

// SubgraphClient issues GraphQL queries against protocol subgraphs.
type SubgraphClient struct {
	agaveURL     string
	honeyswapURL string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// NewSubgraphClient creates a subgraph client for the configured protocol
// endpoints.
func NewSubgraphClient(agaveURL, honeyswapURL string) *SubgraphClient {
	return &SubgraphClient{
		agaveURL:     agaveURL,
		honeyswapURL: honeyswapURL,
		httpClient:   &http.Client{Timeout: subgraphTimeout},
		limiter:      rate.NewLimiter(rate.Limit(subgraphRatePerSecond), subgraphRateBurst),
	}
}

// AgaveReserves fetches active lending reserves from the Agave subgraph.
func (c *SubgraphClient) AgaveReserves(ctx context.Context) ([]AgaveReserve, error) {
	var result struct {
		Reserves []AgaveReserve `json:"reserves"`
	}
	if err := c.query(ctx, c.agaveURL, agaveReservesQuery, &result); err != nil {
		return nil, err
	}
	subgraphLogger.Info().Int("reserves", len(result.Reserves)).Msg("Agave reserves fetched")
	return result.Reserves, nil
}

// HoneyswapPairs fetches the top AMM pairs by reserve from the Honeyswap
// subgraph.
func (c *SubgraphClient) HoneyswapPairs(ctx context.Context) ([]HoneyswapPair, error) {
	var result struct {
		Pairs []HoneyswapPair `json:"pairs"`
	}
	if err := c.query(ctx, c.honeyswapURL, honeyswapPairsQuery, &result); err != nil {
		return nil, err
	}
	subgraphLogger.Info().Int("pairs", len(result.Pairs)).Msg("Honeyswap pairs fetched")
	return result.Pairs, nil
}

// query posts a GraphQL document and decodes the data envelope into out.
func (c *SubgraphClient) query(ctx context.Context, endpoint, document string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter wait aborted: %w", ErrSubgraphUnavailable, err)
	}

	payload, err := json.Marshal(map[string]string{"query": document})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubgraphUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubgraphUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		subgraphLogger.Error().Err(err).Str("endpoint", endpoint).Msg("Subgraph request failed")
		return fmt.Errorf("%w: %w", ErrSubgraphUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		subgraphLogger.Error().
			Int("status", resp.StatusCode).
			Str("endpoint", endpoint).
			Str("body", string(body)).
			Msg("Subgraph returned non-200 status")
		return fmt.Errorf("%w: status %d", ErrSubgraphUnavailable, resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: %w", ErrSubgraphUnavailable, err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("%w: graphql error: %s", ErrSubgraphUnavailable, envelope.Errors[0].Message)
	}
	if len(envelope.Data) == 0 {
		return fmt.Errorf("%w: empty data envelope", ErrSubgraphUnavailable)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrSubgraphUnavailable, err)
	}
	return nil
}

// RayToAPY converts an Aave-style ray-encoded liquidity rate (1e27 = 100%)
// to a percentage APY. Returns an error for unparseable or non-finite input.
func RayToAPY(liquidityRate string) (float64, error) {
	ray, ok := new(big.Float).SetString(liquidityRate)
	if !ok {
		return 0, fmt.Errorf("unparseable liquidity rate: %q", liquidityRate)
	}
	scale := new(big.Float).SetFloat64(1e27)
	apy, _ := new(big.Float).Quo(ray, scale).Float64()
	apy *= 100
	if math.IsNaN(apy) || math.IsInf(apy, 0) || apy < 0 {
		return 0, fmt.Errorf("liquidity rate out of range: %q", liquidityRate)
	}
	return apy, nil
}
