package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/alexboumb/SuperSimpleStocks2/internal/api/handlers"
	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

// KindRateLimited is reported when the trade rate limit is exceeded
const KindRateLimited contracts.ErrorKind = "RATE_LIMITED"

// Handlers groups the endpoint handlers served by the router
type Handlers struct {
	Stocks    *handlers.StockHandler
	Trading   *handlers.TradingHandler
	Index     *handlers.IndexHandler
	Scheduler *handlers.SchedulerHandler
	Stream    http.Handler // websocket trade stream, optional
}

// NewRouter creates and configures the HTTP router.
// limiter throttles trade recording; nil disables it.
func NewRouter(h Handlers, limiter *rate.Limiter, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}

	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Catalogue
	api.HandleFunc("/stocks", h.Stocks.List).Methods("GET")
	api.HandleFunc("/stocks", h.Stocks.Register).Methods("POST")
	api.HandleFunc("/stocks/{symbol}", h.Stocks.Get).Methods("GET")

	// Valuation
	api.HandleFunc("/stocks/{symbol}/dividend-yield", h.Stocks.DividendYield).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/pe-ratio", h.Stocks.PERatio).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/vwsp", h.Stocks.VolumeWeightedPrice).Methods("GET")

	// Trades
	record := http.Handler(http.HandlerFunc(h.Trading.Record))
	if limiter != nil {
		record = rateLimitMiddleware(limiter, log)(record)
	}
	api.Handle("/stocks/{symbol}/trades", record).Methods("POST")
	api.HandleFunc("/stocks/{symbol}/trades", h.Trading.List).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/last", h.Trading.Last).Methods("GET")
	api.HandleFunc("/trades/last", h.Trading.LastMany).Methods("GET")
	api.HandleFunc("/cache/stats", h.Trading.CacheStats).Methods("GET")

	// Index
	api.HandleFunc("/index", h.Index.Get).Methods("GET")
	api.HandleFunc("/index/history", h.Index.History).Methods("GET")

	// Scheduler
	api.HandleFunc("/scheduler/jobs", h.Scheduler.Jobs).Methods("GET")
	api.HandleFunc("/scheduler/jobs/{name}/history", h.Scheduler.History).Methods("GET")
	api.HandleFunc("/scheduler/jobs/{name}/run", h.Scheduler.Run).Methods("POST")

	if h.Stream != nil {
		r.Handle("/ws/trades", h.Stream).Methods("GET")
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "super-simple-stocks-api",
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working through the middleware
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware rejects requests once limiter runs dry
func rateLimitMiddleware(limiter *rate.Limiter, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.WithField("path", r.URL.Path).Warn("Trade rate limit exceeded")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(handlers.ErrorResponse{
					Error: "too many trades, slow down",
					Kind:  KindRateLimited,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
