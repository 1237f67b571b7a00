package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defipilot/pilot/internal/cache"
	"github.com/defipilot/pilot/internal/datafetcher"
	"github.com/defipilot/pilot/internal/pilot"
	"github.com/defipilot/pilot/internal/txbuilder"
	"github.com/defipilot/pilot/internal/types"
)

const testWallet = "0x1111111111111111111111111111111111111111"

type stubFeed struct {
	pools []datafetcher.FeedPool
	err   error
	calls int
}

func (s *stubFeed) GetPools(ctx context.Context) ([]datafetcher.FeedPool, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.pools, nil
}

type stubBalances struct {
	portfolio *types.Portfolio
	err       error
}

func (s *stubBalances) GetPortfolio(ctx context.Context, address string) (*types.Portfolio, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.portfolio, nil
}

func testFeedPools() []datafetcher.FeedPool {
	return []datafetcher.FeedPool{
		{Chain: "Gnosis", Project: "agave", Symbol: "USDC", Apy: 4.8, TvlUsd: 3_100_000, Stablecoin: true, IlRisk: "no", Pool: "pool-usdc",
			UnderlyingTokens: []string{"0xDDAfbb505ad214D7b80b1f830fcCc89B60fb7A83"}},
		{Chain: "Gnosis", Project: "honeyswap", Symbol: "GNO-WETH", Apy: 22, TvlUsd: 400_000, IlRisk: "yes", Pool: "pool-gno-weth",
			UnderlyingTokens: []string{"0x9C58BAcC331c9aa871AFD802DB6379a98e80CEdb", "0x6A023CCd1ff6F2045C3309768eAd9E68F978f6e1"}},
		{Chain: "Gnosis", Project: "honeyswap", Symbol: "USDC-WXDAI", Apy: 6.4, TvlUsd: 850_000, Stablecoin: true, IlRisk: "no", Pool: "pool-usdc-wxdai",
			UnderlyingTokens: []string{"0xDDAfbb505ad214D7b80b1f830fcCc89B60fb7A83", "0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d"}},
		{Chain: "Gnosis", Project: "curve", Symbol: "WXDAI-USDC-USDT", Apy: 4.2, TvlUsd: 2_400_000, Stablecoin: true, IlRisk: "no", Pool: "pool-3pool",
			UnderlyingTokens: []string{"0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d"}},
	}
}

func newTestServer(t *testing.T, feed pilot.YieldFeed, balances pilot.BalanceProvider) *WebServer {
	t.Helper()
	if balances == nil {
		balances = &stubBalances{portfolio: &types.Portfolio{Address: testWallet}}
	}
	service := pilot.NewService(
		feed,
		balances,
		nil,
		cache.New("strategies-test", time.Minute),
		cache.New("balances-test", time.Minute),
		txbuilder.NewBuilder(100),
		false,
	)
	return NewWebServer(service, "0")
}

func doRequest(t *testing.T, ws *WebServer, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	recorder := httptest.NewRecorder()
	ws.Handler().ServeHTTP(recorder, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body), recorder.Body.String())
	return recorder, body
}

func TestGetStrategiesLowRiskMinApy(t *testing.T) {
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, nil)

	recorder, body := doRequest(t, ws, "GET", "/api/pilot/get-strategies?riskLevel=low&minApy=3")

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "live", body["source"])

	strategies := body["strategies"].([]interface{})
	ids := make([]string, 0, len(strategies))
	for _, raw := range strategies {
		strategy := raw.(map[string]interface{})
		assert.Equal(t, "low", strategy["risk_level"])
		assert.GreaterOrEqual(t, strategy["apy"].(float64), 3.0)
		ids = append(ids, strategy["id"].(string))
	}
	// The 22% volatile pool classifies high and must be filtered out.
	assert.NotContains(t, ids, "honeyswap-gno-weth")
	assert.Contains(t, ids, "agave-usdc")
	assert.Contains(t, ids, "honeyswap-usdc-wxdai")
}

func TestGetStrategiesPaginationInvariant(t *testing.T) {
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, nil)

	_, full := doRequest(t, ws, "GET", "/api/pilot/get-strategies?limit=50")
	fullList := full["strategies"].([]interface{})
	total := int(full["total"].(float64))
	require.Equal(t, len(fullList), total)

	_, page := doRequest(t, ws, "GET", "/api/pilot/get-strategies?limit=2&offset=1")
	pageList := page["strategies"].([]interface{})

	assert.Equal(t, total, int(page["total"].(float64)), "total must be window-independent")
	require.Len(t, pageList, 2)
	for i, raw := range pageList {
		expected := fullList[i+1].(map[string]interface{})
		got := raw.(map[string]interface{})
		assert.Equal(t, expected["id"], got["id"])
	}
}

func TestGetStrategiesCachedFlag(t *testing.T) {
	feed := &stubFeed{pools: testFeedPools()}
	ws := newTestServer(t, feed, nil)

	_, first := doRequest(t, ws, "GET", "/api/pilot/get-strategies?riskLevel=low")
	assert.Equal(t, false, first["cached"])

	_, second := doRequest(t, ws, "GET", "/api/pilot/get-strategies?riskLevel=low")
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, first["strategies"], second["strategies"])
	assert.Equal(t, 1, feed.calls, "second request must not refetch")

	// A different filter value must not share the cache entry.
	_, third := doRequest(t, ws, "GET", "/api/pilot/get-strategies?riskLevel=medium")
	assert.Equal(t, false, third["cached"])
	assert.Equal(t, 2, feed.calls)
}

func TestGetStrategiesSkipCache(t *testing.T) {
	feed := &stubFeed{pools: testFeedPools()}
	ws := newTestServer(t, feed, nil)

	doRequest(t, ws, "GET", "/api/pilot/get-strategies")
	_, second := doRequest(t, ws, "GET", "/api/pilot/get-strategies?skipCache=true")

	assert.Equal(t, false, second["cached"])
	assert.Equal(t, 2, feed.calls)
}

func TestGetStrategiesFeedOutageFallback(t *testing.T) {
	ws := newTestServer(t, &stubFeed{err: errors.New("connection refused")}, nil)

	recorder, body := doRequest(t, ws, "GET", "/api/pilot/get-strategies")

	require.Equal(t, http.StatusOK, recorder.Code, "listing must stay available during an outage")
	assert.Equal(t, "fallback", body["source"])
	assert.NotEmpty(t, body["strategies"])
}

func TestGetStrategiesBadParam(t *testing.T) {
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, nil)

	recorder, body := doRequest(t, ws, "GET", "/api/pilot/get-strategies?minApy=abc")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, body["error"], "minApy")
}

func TestGetStrategiesBadPaginationParams(t *testing.T) {
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, nil)

	recorder, body := doRequest(t, ws, "GET", "/api/pilot/get-strategies?limit=abc")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, body["error"], "limit")

	recorder, body = doRequest(t, ws, "GET", "/api/pilot/get-strategies?offset=1.5")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, body["error"], "offset")
}

func TestStrategyDetails(t *testing.T) {
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, nil)

	recorder, body := doRequest(t, ws, "GET", "/api/pilot/strategy-details?id=agave-usdc")
	require.Equal(t, http.StatusOK, recorder.Code)
	strategy := body["strategy"].(map[string]interface{})
	assert.Equal(t, "agave-usdc", strategy["id"])

	recorder, _ = doRequest(t, ws, "GET", "/api/pilot/strategy-details?id=no-such-strategy")
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder, _ = doRequest(t, ws, "GET", "/api/pilot/strategy-details")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCreateTransactionNativeLending(t *testing.T) {
	// Feed down: the fallback list carries the native xDAI lending entry.
	ws := newTestServer(t, &stubFeed{err: errors.New("down")}, nil)

	target := fmt.Sprintf("/api/pilot/create-transaction?strategyId=agave-xdai&action=enter&amount=100&userAddress=%s", testWallet)
	recorder, body := doRequest(t, ws, "GET", target)

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	signRequest := body["signRequest"].(map[string]interface{})
	steps := signRequest["safeTransactionData"].([]interface{})
	require.Len(t, steps, 1, "native deposits need no approval")

	step := steps[0].(map[string]interface{})
	assert.Equal(t, "100000000000000000000", step["value"])
	assert.Equal(t, "protocol_call", step["kind"])
	assert.True(t, strings.HasPrefix(step["data"].(string), "0x"))

	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, "agave-xdai", meta["strategyId"])
	assert.Equal(t, float64(100), meta["chainId"])
}

func TestCreateTransactionAmmThreeSteps(t *testing.T) {
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, nil)

	target := fmt.Sprintf("/api/pilot/create-transaction?strategyId=honeyswap-usdc-wxdai&action=enter&amount=50&userAddress=%s", testWallet)
	recorder, body := doRequest(t, ws, "GET", target)

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	steps := body["signRequest"].(map[string]interface{})["safeTransactionData"].([]interface{})
	require.Len(t, steps, 3)
	assert.Equal(t, "approval", steps[0].(map[string]interface{})["kind"])
	assert.Equal(t, "approval", steps[1].(map[string]interface{})["kind"])
	assert.Equal(t, "protocol_call", steps[2].(map[string]interface{})["kind"])
}

func TestCreateTransactionUnimplementedAction(t *testing.T) {
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, nil)

	target := fmt.Sprintf("/api/pilot/create-transaction?strategyId=agave-usdc&action=exit&amount=10&userAddress=%s", testWallet)
	recorder, _ := doRequest(t, ws, "GET", target)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCreateTransactionMissingParams(t *testing.T) {
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, nil)

	recorder, body := doRequest(t, ws, "GET", "/api/pilot/create-transaction?action=enter")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, body["error"], "strategyId")
}

func TestExecuteStrategyAlias(t *testing.T) {
	ws := newTestServer(t, &stubFeed{err: errors.New("down")}, nil)

	target := fmt.Sprintf("/api/pilot/execute-strategy?strategyId=agave-xdai&action=enter&amount=1&userAddress=%s", testWallet)
	recorder, _ := doRequest(t, ws, "GET", target)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestGetPortfolio(t *testing.T) {
	balances := &stubBalances{portfolio: &types.Portfolio{
		Address: testWallet,
		Balances: []types.WalletBalance{
			{Token: types.TokenInfo{Symbol: "GNO"}, UsdValue: 600},
		},
		TotalValueUSD: 600,
	}}
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, balances)

	recorder, body := doRequest(t, ws, "GET", "/api/pilot/get-portfolio?address="+testWallet)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 600.0, body["total_value_usd"])

	recorder, _ = doRequest(t, ws, "GET", "/api/pilot/get-portfolio")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestOptimizePortfolioProfiles(t *testing.T) {
	balances := &stubBalances{portfolio: &types.Portfolio{
		Address: testWallet,
		Balances: []types.WalletBalance{
			{Token: types.TokenInfo{Symbol: "USDC", Address: "0xDDAfbb505ad214D7b80b1f830fcCc89B60fb7A83"}, UsdValue: 1000},
		},
		TotalValueUSD: 1000,
	}}
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, balances)

	recorder, body := doRequest(t, ws, "GET", "/api/pilot/optimize-portfolio?address="+testWallet+"&riskProfile=high")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	optimized := body["optimized_allocation"].(map[string]interface{})
	recommendations := optimized["recommendations"].([]interface{})
	assert.NotEmpty(t, recommendations)

	// The low profile must exclude high-risk strategies entirely.
	_, lowBody := doRequest(t, ws, "GET", "/api/pilot/optimize-portfolio?address="+testWallet+"&riskProfile=low")
	lowOptimized := lowBody["optimized_allocation"].(map[string]interface{})
	for _, raw := range lowOptimized["recommendations"].([]interface{}) {
		rec := raw.(map[string]interface{})
		strategy := rec["strategy"].(map[string]interface{})
		assert.NotEqual(t, "high", strategy["risk_level"])
	}

	recorder, _ = doRequest(t, ws, "GET", "/api/pilot/optimize-portfolio")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetPoolsFilters(t *testing.T) {
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, nil)

	recorder, body := doRequest(t, ws, "GET", "/api/pools?stablecoin=true&minTvl=1000000")
	require.Equal(t, http.StatusOK, recorder.Code)

	pools := body["pools"].([]interface{})
	require.Len(t, pools, 2)
	for _, raw := range pools {
		pool := raw.(map[string]interface{})
		assert.Equal(t, true, pool["stablecoin"])
		assert.GreaterOrEqual(t, pool["tvlUsd"].(float64), 1_000_000.0)
	}
}

func TestSuggestPools(t *testing.T) {
	balances := &stubBalances{portfolio: &types.Portfolio{
		Address: testWallet,
		Balances: []types.WalletBalance{
			{Token: types.TokenInfo{Symbol: "USDC", Address: "0xDDAfbb505ad214D7b80b1f830fcCc89B60fb7A83"}, UsdValue: 1000},
		},
		TotalValueUSD: 1000,
	}}
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, balances)

	recorder, body := doRequest(t, ws, "GET", "/api/pilot/suggest-pools?address="+testWallet+"&limit=2")
	require.Equal(t, http.StatusOK, recorder.Code)

	suggestions := body["suggestions"].([]interface{})
	require.Len(t, suggestions, 2)
	// USDC-bearing strategies must lead the suggestions.
	first := suggestions[0].(map[string]interface{})
	assert.NotNil(t, first["portfolio_match"])

	recorder, _ = doRequest(t, ws, "GET", "/api/pilot/suggest-pools")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHealth(t *testing.T) {
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, nil)

	recorder, body := doRequest(t, ws, "GET", "/health")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ok", body["status"])

	system, ok := body["system"].(map[string]interface{})
	require.True(t, ok, "health response missing system block")
	assert.Contains(t, system["version"], "go")
	assert.Greater(t, system["goroutines_count"], float64(0))
}

func TestRecentTransactionsAuditingDisabled(t *testing.T) {
	ws := newTestServer(t, &stubFeed{pools: testFeedPools()}, nil)

	recorder, body := doRequest(t, ws, "GET", "/api/pilot/recent-transactions")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, body["error"], "auditing")

	recorder, body = doRequest(t, ws, "GET", "/api/pilot/recent-transactions?limit=abc")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, body["error"], "limit")
}
