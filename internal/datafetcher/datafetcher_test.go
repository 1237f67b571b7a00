package datafetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defipilot/pilot/internal/types"
)

const testAddress = "0x1111111111111111111111111111111111111111"

func TestYieldFeedGetPoolsFiltersByChain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "success",
			"data": [
				{"chain": "Gnosis", "project": "agave", "symbol": "USDC", "tvlUsd": 3100000, "apy": 4.8, "pool": "p1"},
				{"chain": "Ethereum", "project": "aave-v3", "symbol": "USDC", "tvlUsd": 9000000, "apy": 3.1, "pool": "p2"},
				{"chain": "gnosis", "project": "honeyswap", "symbol": "GNO-WXDAI", "tvlUsd": 640000, "apy": 12, "pool": "p3"}
			]
		}`))
	}))
	defer server.Close()

	client := NewYieldFeedClient(server.URL, "Gnosis")
	pools, err := client.GetPools(context.Background())

	require.NoError(t, err)
	require.Len(t, pools, 2, "chain comparison is case-insensitive")
	assert.Equal(t, "p1", pools[0].Pool)
	assert.Equal(t, "p3", pools[1].Pool)
}

func TestYieldFeedGetPoolsSkipsInvalidRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"status": "success",
			"data": [
				{"chain": "Gnosis", "project": "agave", "symbol": "USDC", "tvlUsd": 3100000, "apy": 4.8, "pool": "p1"},
				{"chain": "Gnosis", "project": "agave", "symbol": "GNO", "tvlUsd": 100, "apy": 2, "pool": ""}
			]
		}`))
	}))
	defer server.Close()

	client := NewYieldFeedClient(server.URL, "Gnosis")
	pools, err := client.GetPools(context.Background())

	require.NoError(t, err)
	require.Len(t, pools, 1)
}

func TestYieldFeedGetPoolsUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewYieldFeedClient(server.URL, "Gnosis")
	_, err := client.GetPools(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUpstream)
}

func TestYieldFeedGetPoolsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error"}`))
	}))
	defer server.Close()

	client := NewYieldFeedClient(server.URL, "Gnosis")
	_, err := client.GetPools(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUpstream)
}

func TestBalanceGetPortfolio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testAddress, r.URL.Query().Get("address"))
		w.Write([]byte(`{
			"balances": [
				{"token": {"symbol": "GNO", "address": "0x9C58BAcC331c9aa871AFD802DB6379a98e80CEdb", "decimals": 18}, "formatted_balance": 5, "usd_value": 600},
				{"token": {"symbol": ""}, "formatted_balance": 1, "usd_value": 100},
				{"token": {"symbol": "USDC"}, "formatted_balance": 400, "usd_value": -1}
			],
			"total_value_usd": 9999
		}`))
	}))
	defer server.Close()

	client := NewBalanceClient(server.URL)
	portfolio, err := client.GetPortfolio(context.Background(), testAddress)

	require.NoError(t, err)
	assert.Equal(t, testAddress, portfolio.Address)
	// Invalid entries are dropped and the total recomputed, never trusted
	// from upstream.
	require.Len(t, portfolio.Balances, 1)
	assert.Equal(t, 600.0, portfolio.TotalValueUSD)
}

func TestBalanceGetPortfolioRejectsBadAddress(t *testing.T) {
	client := NewBalanceClient("http://localhost:0")

	for _, address := range []string{"", "abc", "0x123", "0x" + "zz11111111111111111111111111111111111111"} {
		_, err := client.GetPortfolio(context.Background(), address)
		require.Error(t, err, address)
		assert.ErrorIs(t, err, types.ErrValidation, address)
	}
}

func TestSubgraphQueries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"data": {
				"reserves": [
					{"underlyingAsset": "0xabc", "symbol": "USDC", "decimals": 6, "liquidityRate": "10000000000000000000000000", "totalLiquidity": "1000000"}
				]
			}
		}`))
	}))
	defer server.Close()

	client := NewSubgraphClient(server.URL, server.URL)
	reserves, err := client.AgaveReserves(context.Background())

	require.NoError(t, err)
	require.Len(t, reserves, 1)
	assert.Equal(t, "USDC", reserves[0].Symbol)
}

func TestSubgraphErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "indexing error"}]}`))
	}))
	defer server.Close()

	client := NewSubgraphClient(server.URL, server.URL)
	_, err := client.AgaveReserves(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUpstream)
}

func TestRayToAPY(t *testing.T) {
	apy, err := RayToAPY("10000000000000000000000000")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, apy, 1e-9)

	apy, err = RayToAPY("0")
	require.NoError(t, err)
	assert.Zero(t, apy)

	_, err = RayToAPY("not-a-number")
	assert.Error(t, err)

	_, err = RayToAPY("-10000000000000000000000000")
	assert.Error(t, err)
}
