/*

This file fetches pool records from the yield aggregator feed.

The feed is the primary strategy source: one large JSON array of pool
records across chains, filtered down to the configured chain before
normalization. Responses are validated strictly; a malformed feed is an
upstream error, never a silent empty result.

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
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/defipilot/pilot/internal/logger"
	"github.com/defipilot/pilot/internal/types"
)

var feedLogger = logger.GetForComponent("yield_feed")

var ErrFeedUnavailable = fmt.Errorf("%w: yield feed unavailable", types.ErrUpstream)
var ErrFeedMalformed = fmt.Errorf("%w: yield feed returned malformed data", types.ErrUpstream)

const (
	feedTimeout = 15 * time.Second
	// One request every two seconds with a small burst.
	feedRatePerSecond = 0.5
	feedRateBurst     = 2
)

// FeedPrediction is the feed's APY outlook block, when present.
type FeedPrediction struct {
	PredictedClass       string  `json:"predictedClass"`
	PredictedProbability float64 `json:"predictedProbability"`
}

// FeedPool is one raw pool record as returned by the yield feed.
type FeedPool struct {
	Chain            string          `json:"chain"`
	Project          string          `json:"project"`
	Symbol           string          `json:"symbol"`
	TvlUsd           float64         `json:"tvlUsd"`
	Apy              float64         `json:"apy"`
	ApyBase          float64         `json:"apyBase"`
	ApyReward        float64         `json:"apyReward"`
	ApyMean30d       float64         `json:"apyMean30d"`
	Pool             string          `json:"pool"`
	Stablecoin       bool            `json:"stablecoin"`
	IlRisk           string          `json:"ilRisk"`
	Exposure         string          `json:"exposure"`
	Outlook          string          `json:"outlook"`
	Predictions      *FeedPrediction `json:"predictions,omitempty"`
	UnderlyingTokens []string        `json:"underlyingTokens"`
	RewardTokens     []string        `json:"rewardTokens"`
}

type feedResponse struct {
	Status string     `json:"status"`
	Data   []FeedPool `json:"data"`
}

// YieldFeedClient fetches pool records from the yield feed API.
type YieldFeedClient struct {
	baseURL    string
	chain      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewYieldFeedClient creates a feed client scoped to one chain.
func NewYieldFeedClient(baseURL, chain string) *YieldFeedClient {
	return &YieldFeedClient{
		baseURL:    baseURL,
		chain:      chain,
		httpClient: &http.Client{Timeout: feedTimeout},
		limiter:    rate.NewLimiter(rate.Limit(feedRatePerSecond), feedRateBurst),
	}
}

// GetPools fetches all feed pools for the client's chain.
func (c *YieldFeedClient) GetPools(ctx context.Context) ([]FeedPool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter wait aborted: %w", ErrFeedUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		feedLogger.Error().Err(err).Str("url", c.baseURL).Msg("Yield feed request failed")
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		feedLogger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("Yield feed returned non-200 status")
		return nil, fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var decoded feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedMalformed, err)
	}
	if decoded.Status != "" && decoded.Status != "success" {
		return nil, fmt.Errorf("%w: feed status %q", ErrFeedMalformed, decoded.Status)
	}

	pools := make([]FeedPool, 0, len(decoded.Data))
	skipped := 0
	for _, pool := range decoded.Data {
		if !strings.EqualFold(pool.Chain, c.chain) {
			continue
		}
		if err := validateFeedPool(pool); err != nil {
			// One bad record must not poison the batch.
			feedLogger.Warn().
				Err(err).
				Str("pool", pool.Pool).
				Str("project", pool.Project).
				Msg("Skipping invalid feed pool record")
			skipped++
			continue
		}
		pools = append(pools, pool)
	}

	feedLogger.Info().
		Int("totalRecords", len(decoded.Data)).
		Int("chainPools", len(pools)).
		Int("skipped", skipped).
		Str("chain", c.chain).
		Msg("Yield feed fetch complete")

	return pools, nil
}

// validateFeedPool rejects records unusable for financial calculations.
func validateFeedPool(pool FeedPool) error {
	if strings.TrimSpace(pool.Pool) == "" {
		return errors.New("pool id is empty")
	}
	if strings.TrimSpace(pool.Project) == "" {
		return errors.New("project is empty")
	}
	if strings.TrimSpace(pool.Symbol) == "" {
		return errors.New("symbol is empty")
	}
	if math.IsNaN(pool.Apy) || math.IsInf(pool.Apy, 0) {
		return errors.New("apy is not finite")
	}
	if math.IsNaN(pool.TvlUsd) || math.IsInf(pool.TvlUsd, 0) || pool.TvlUsd < 0 {
		return errors.New("tvl is invalid")
	}
	return nil
}
