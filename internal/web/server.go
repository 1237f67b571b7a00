package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"

	"github.com/defipilot/pilot/internal/logger"
	"github.com/defipilot/pilot/internal/pilot"
	"github.com/defipilot/pilot/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles the HTTP surface of the pilot service
type WebServer struct {
	router  *mux.Router
	service *pilot.Service
	port    string
}

// NewWebServer creates a new web server instance
func NewWebServer(service *pilot.Service, port string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:  mux.NewRouter(),
		service: service,
		port:    port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// Raw pool listing over the feed's own schema
	ws.router.HandleFunc("/api/pools", ws.handleGetPools).Methods("GET")

	// Pilot API endpoints
	api := ws.router.PathPrefix("/api/pilot").Subrouter()
	api.HandleFunc("/get-strategies", ws.handleGetStrategies).Methods("GET")
	api.HandleFunc("/get-pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/optimize-portfolio", ws.handleOptimizePortfolio).Methods("GET")
	api.HandleFunc("/strategy-details", ws.handleStrategyDetails).Methods("GET")
	api.HandleFunc("/create-transaction", ws.handleCreateTransaction).Methods("GET", "POST")
	api.HandleFunc("/execute-strategy", ws.handleCreateTransaction).Methods("GET", "POST")
	api.HandleFunc("/get-portfolio", ws.handleGetPortfolio).Methods("GET")
	api.HandleFunc("/suggest-pools", ws.handleSuggestPools).Methods("GET")
	api.HandleFunc("/recent-transactions", ws.handleRecentTransactions).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Handler exposes the configured router, mainly for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status with runtime statistics
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":            runtime.Version(),
			"goroutines_count":   runtime.NumGoroutine(),
			"total_alloc_bytes":  memStats.TotalAlloc,
			"heap_objects_count": memStats.HeapObjects,
			"gc_cycles_count":    memStats.NumGC,
		},
	})
}

// corsMiddleware adds CORS headers to all responses
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper captures the status code for logging
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rww *responseWriterWrapper) WriteHeader(statusCode int) {
	rww.statusCode = statusCode
	rww.ResponseWriter.WriteHeader(statusCode)
}

// writeJSONResponse writes a JSON response with the given status code
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes a uniform error body
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	ws.writeJSONResponse(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps a pipeline error to its HTTP status
func (ws *WebServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrUnsupportedOperation):
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNotFound):
		ws.writeErrorResponse(w, http.StatusNotFound, err.Error())
	default:
		// Upstream and data-integrity failures surface as internal errors.
		ws.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
	}
}
