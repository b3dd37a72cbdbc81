package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/alexboumb/SuperSimpleStocks2/internal/api"
	"github.com/alexboumb/SuperSimpleStocks2/internal/api/handlers"
	"github.com/alexboumb/SuperSimpleStocks2/internal/realtime"
	"github.com/alexboumb/SuperSimpleStocks2/internal/realtime/cache"
	"github.com/alexboumb/SuperSimpleStocks2/internal/scheduler"
	"github.com/alexboumb/SuperSimpleStocks2/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API, the websocket trade stream and the index
snapshot scheduler.

Endpoints:
  GET  /health
  GET  /api/stocks                           - catalogue
  POST /api/stocks                           - register a stock
  GET  /api/stocks/{symbol}
  GET  /api/stocks/{symbol}/dividend-yield   - ?price=N
  GET  /api/stocks/{symbol}/pe-ratio         - ?price=N
  POST /api/stocks/{symbol}/trades           - record a trade
  GET  /api/stocks/{symbol}/trades
  GET  /api/stocks/{symbol}/vwsp
  GET  /api/stocks/{symbol}/last
  GET  /api/trades/last                      - ?symbols=TEA,GIN
  GET  /api/cache/stats
  GET  /api/index
  GET  /api/index/history
  GET  /api/scheduler/jobs
  GET  /api/scheduler/jobs/{name}/history
  POST /api/scheduler/jobs/{name}/run
  GET  /ws/trades                            - websocket trade stream

Example:
  go run ./cmd/stocks api
  go run ./cmd/stocks api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default from PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}

	cfg := a.cfg
	log := a.log

	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port":   cfg.Port,
		"env":    cfg.Env,
		"stocks": a.catalogue.Len(),
		"window": cfg.Market.VWSPWindow.String(),
	}).Info("Initializing API server")

	// 1. Engine and trade listeners
	engine := a.newEngine()
	tradeCache := cache.NewTradeCache(cfg.Market.LastTradeTTL, log)
	hub := realtime.NewHub(log)
	engine.Subscribe(tradeCache.Observe)
	engine.Subscribe(hub.Publish)

	// 2. Scheduler
	history := jobs.NewIndexHistory(cfg.Scheduler.HistorySize)
	sched := scheduler.New(log, scheduler.WithRetry(cfg.Scheduler.MaxRetries, cfg.Scheduler.RetryDelay))
	if cfg.Scheduler.Enabled {
		if err := sched.AddJob(jobs.NewIndexSnapshotJob(engine, history, cfg.Scheduler.IndexSchedule, log)); err != nil {
			return fmt.Errorf("schedule index snapshot: %w", err)
		}
		if err := sched.AddJob(jobs.NewCacheCleanupJob(tradeCache, log)); err != nil {
			return fmt.Errorf("schedule cache cleanup: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 3. Router and server
	var limiter *rate.Limiter
	if cfg.API.TradeRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.API.TradeRateLimit), cfg.API.TradeRateBurst)
	}

	router := api.NewRouter(api.Handlers{
		Stocks:    handlers.NewStockHandler(engine, log),
		Trading:   handlers.NewTradingHandler(engine, tradeCache, log),
		Index:     handlers.NewIndexHandler(engine, history, log),
		Scheduler: handlers.NewSchedulerHandler(sched, log),
		Stream:    http.HandlerFunc(hub.ServeWS),
	}, limiter, log)

	server := api.New(cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	PrintSuccess(out, fmt.Sprintf("Server running on http://localhost%s", server.Addr()))
	PrintKeyValue(out, "Stocks", strconv.Itoa(a.catalogue.Len()), 10)
	PrintKeyValue(out, "Window", cfg.Market.VWSPWindow.String(), 10)
	jobNames := "none"
	if names := sched.GetAllJobs(); len(names) > 0 {
		jobNames = strings.Join(names, ", ")
	}
	PrintKeyValue(out, "Jobs", jobNames, 10)
	PrintInfo(out, "Press Ctrl+C to stop")

	// Wait for interrupt signal or a failed start
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}

	log.Info("Shutting down server...")
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
