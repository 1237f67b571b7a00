/*

API handlers: parameter parsing and response shaping for the pilot
pipelines. All domain logic lives in the service; handlers only
translate between HTTP and the pipeline contracts.

*/

package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/defipilot/pilot/internal/pilot"
	"github.com/defipilot/pilot/internal/types"
)

// handleGetStrategies serves the normalized, filtered strategy listing.
func (ws *WebServer) handleGetStrategies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := pilot.StrategyFilters{
		RiskLevel:      query.Get("riskLevel"),
		Protocol:       query.Get("protocol"),
		Asset:          query.Get("asset"),
		Exposure:       query.Get("exposure"),
		PredictedClass: query.Get("predictedClass"),
		Address:        query.Get("address"),
		SkipCache:      parseBool(query.Get("skipCache")),
	}

	var err error
	if filters.MinApy, err = parseFloatParam(query, "minApy"); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.MaxApy, err = parseFloatParam(query, "maxApy"); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.MinApyMean30d, err = parseFloatParam(query, "minApyMean30d"); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.MaxApyMean30d, err = parseFloatParam(query, "maxApyMean30d"); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.Limit, err = parseIntParam(query, "limit", 50); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.Offset, err = parseIntParam(query, "offset", 0); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := ws.service.GetStrategies(r.Context(), filters)
	if err != nil {
		ws.writeServiceError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"strategies": result.Strategies,
		"total":      result.Total,
		"cached":     result.Cached,
		"source":     result.Source,
	})
}

// handleGetPools serves raw feed pool records.
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := pilot.PoolFilters{
		Protocol: query.Get("protocol"),
		IlRisk:   query.Get("ilRisk"),
		Risk:     query.Get("risk"),
	}

	var err error
	if filters.MinApy, err = parseFloatParam(query, "minApy"); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.MaxApy, err = parseFloatParam(query, "maxApy"); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.MinTvl, err = parseFloatParam(query, "minTvl"); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.MaxTvl, err = parseFloatParam(query, "maxTvl"); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if raw := query.Get("stablecoin"); raw != "" {
		value := parseBool(raw)
		filters.Stablecoin = &value
	}

	pools, err := ws.service.GetPools(r.Context(), filters)
	if err != nil {
		ws.writeServiceError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"pools": pools})
}

// handleOptimizePortfolio serves allocation recommendations for a wallet.
func (ws *WebServer) handleOptimizePortfolio(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	address := query.Get("address")
	if address == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "address parameter is required")
		return
	}

	profile := types.RiskProfile(strings.ToLower(query.Get("riskProfile")))
	if profile == "" {
		profile = types.ProfileMedium
	}

	var investmentAmount float64
	if raw := query.Get("investmentAmount"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, "investmentAmount must be a number")
			return
		}
		investmentAmount = parsed
	}

	response, err := ws.service.OptimizePortfolio(r.Context(), address, profile, investmentAmount)
	if err != nil {
		ws.writeServiceError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleStrategyDetails serves one strategy by ID.
func (ws *WebServer) handleStrategyDetails(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "id parameter is required")
		return
	}

	strategy, err := ws.service.StrategyDetails(r.Context(), id)
	if err != nil {
		ws.writeServiceError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"strategy": strategy})
}

// handleCreateTransaction constructs an unsigned transaction batch.
// Parameters arrive as a JSON body on POST or query parameters on GET.
func (ws *WebServer) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req pilot.BuildRequest

	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	} else {
		query := r.URL.Query()
		req.StrategyID = query.Get("strategyId")
		req.Action = query.Get("action")
		req.UserAddress = query.Get("userAddress")
		if raw := query.Get("amount"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				ws.writeErrorResponse(w, http.StatusBadRequest, "amount must be a number")
				return
			}
			req.Amount = parsed
		}
		if raw := query.Get("slippageTolerance"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				ws.writeErrorResponse(w, http.StatusBadRequest, "slippageTolerance must be a number")
				return
			}
			req.SlippageTolerance = parsed
		}
	}

	result, err := ws.service.BuildTransaction(r.Context(), req)
	if err != nil {
		ws.writeServiceError(w, err)
		return
	}

	batch := result.Batch
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Constructed %d unsigned transaction step(s) for %s; sign and execute client-side in array order", len(batch.Steps), result.Strategy.Name),
		"signRequest": map[string]interface{}{
			"safeTransactionData": batch.Steps,
		},
		"meta": map[string]interface{}{
			"strategyId":        batch.StrategyID,
			"protocol":          batch.Protocol,
			"strategyType":      batch.StrategyType,
			"action":            batch.Action,
			"chainId":           batch.ChainID,
			"stepCount":         len(batch.Steps),
			"slippageTolerance": result.SlippageTolerance,
		},
	})
}

// handleGetPortfolio serves a wallet's token balances.
func (ws *WebServer) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "address parameter is required")
		return
	}

	portfolio, err := ws.service.GetPortfolio(r.Context(), address)
	if err != nil {
		ws.writeServiceError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, portfolio)
}

// handleSuggestPools serves wallet-relevant strategy suggestions.
func (ws *WebServer) handleSuggestPools(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	address := query.Get("address")
	if address == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "address parameter is required")
		return
	}
	limit, err := parseIntParam(query, "limit", 0)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	suggestions, err := ws.service.SuggestPools(r.Context(), address, limit)
	if err != nil {
		ws.writeServiceError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

// handleRecentTransactions serves the audit trail of constructed batches.
func (ws *WebServer) handleRecentTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query(), "limit", 20)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := ws.service.RecentTransactions(r.Context(), limit)
	if err != nil {
		ws.writeServiceError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"transactions": records})
}

// parseFloatParam parses an optional float query parameter, returning
// nil when absent.
func parseFloatParam(query url.Values, name string) (*float64, error) {
	raw := query.Get(name)
	if raw == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &parsed, nil
}

// parseIntParam parses an optional integer query parameter, returning
// the fallback when absent.
func parseIntParam(query url.Values, name string, fallback int) (int, error) {
	raw := query.Get(name)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return parsed, nil
}

func parseBool(raw string) bool {
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return parsed
}
