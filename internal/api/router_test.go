package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/alexboumb/SuperSimpleStocks2/internal/api/handlers"
	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/internal/realtime"
	"github.com/alexboumb/SuperSimpleStocks2/internal/realtime/cache"
	"github.com/alexboumb/SuperSimpleStocks2/internal/scheduler"
	"github.com/alexboumb/SuperSimpleStocks2/internal/scheduler/jobs"
	"github.com/alexboumb/SuperSimpleStocks2/internal/stock"
	"github.com/alexboumb/SuperSimpleStocks2/internal/valuation"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

type fixture struct {
	engine  *valuation.Engine
	history *jobs.IndexHistory
	hub     *realtime.Hub
	sched   *scheduler.Scheduler
	router  http.Handler
}

func newFixture(t *testing.T, limiter *rate.Limiter) *fixture {
	t.Helper()

	engine := valuation.New(stock.DefaultCatalogue())
	tradeCache := cache.NewTradeCache(5*time.Minute, nil)
	history := jobs.NewIndexHistory(10)
	hub := realtime.NewHub(nil)
	t.Cleanup(hub.Close)

	engine.Subscribe(tradeCache.Observe)
	engine.Subscribe(hub.Publish)

	sched := scheduler.New(nil, scheduler.WithRetry(0, 0))
	require.NoError(t, sched.AddJob(jobs.NewIndexSnapshotJob(engine, history, "@every 1h", nil)))

	router := NewRouter(Handlers{
		Stocks:    handlers.NewStockHandler(engine, nil),
		Trading:   handlers.NewTradingHandler(engine, tradeCache, nil),
		Index:     handlers.NewIndexHandler(engine, history, nil),
		Scheduler: handlers.NewSchedulerHandler(sched, nil),
		Stream:    http.HandlerFunc(hub.ServeWS),
	}, limiter, nil)

	return &fixture{
		engine:  engine,
		history: history,
		hub:     hub,
		sched:   sched,
		router:  router,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func trade(quantity, price int, direction string) handlers.TradeRequest {
	return handlers.TradeRequest{Quantity: quantity, Price: price, Direction: direction}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestStocks_List(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/stocks", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int                      `json:"count"`
		Stocks []handlers.StockResponse `json:"stocks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 5, body.Count)
	require.Len(t, body.Stocks, 5)
	assert.Equal(t, "TEA", body.Stocks[0].Symbol)
	assert.Equal(t, "GIN", body.Stocks[3].Symbol)
	assert.Equal(t, contracts.StockKindPreferred, body.Stocks[3].Type)
	assert.Equal(t, 0.02, body.Stocks[3].FixedDividend)
}

func TestStocks_Get(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/stocks/ALE", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(23), decode(t, rec)["last_dividend"])

	rec = f.do(t, http.MethodGet, "/api/stocks/NAN", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStocks_Register(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/stocks", handlers.RegisterStockRequest{
		Symbol: "BUN", Type: "common", LastDividend: 5, ParValue: 50,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "COMMON", decode(t, rec)["type"])

	rec = f.do(t, http.MethodGet, "/api/stocks/BUN/dividend-yield?price=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.5, decode(t, rec)["value"], 1e-9)

	tests := []struct {
		name   string
		req    handlers.RegisterStockRequest
		status int
		kind   contracts.ErrorKind
	}{
		{"duplicate", handlers.RegisterStockRequest{Symbol: "TEA", Type: "COMMON", ParValue: 100}, http.StatusConflict, contracts.KindDuplicateStock},
		{"duplicate with whitespace", handlers.RegisterStockRequest{Symbol: " TEA ", Type: "COMMON", ParValue: 100}, http.StatusConflict, contracts.KindDuplicateStock},
		{"bad type", handlers.RegisterStockRequest{Symbol: "XYZ", Type: "bond", ParValue: 100}, http.StatusBadRequest, contracts.KindInvalidKind},
		{"empty symbol", handlers.RegisterStockRequest{Symbol: "", Type: "COMMON", ParValue: 100}, http.StatusBadRequest, contracts.KindInvalidSymbol},
		{"zero par value", handlers.RegisterStockRequest{Symbol: "XYZ", Type: "COMMON"}, http.StatusBadRequest, contracts.KindInvalidParValue},
		{"negative fixed dividend", handlers.RegisterStockRequest{Symbol: "XYZ", Type: "PREFERRED", FixedDividend: -1, ParValue: 100}, http.StatusBadRequest, contracts.KindInvalidFixedDividend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/stocks", tt.req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, string(tt.kind), decode(t, rec)["kind"])
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/stocks", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode(t, rec)["error"])
}

func TestValuation_Endpoints(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name   string
		path   string
		status int
		value  float64
		kind   contracts.ErrorKind
		msg    string
	}{
		{"POP yield", "/api/stocks/POP/dividend-yield?price=64", http.StatusOK, 0.125, "", ""},
		{"GIN yield", "/api/stocks/GIN/dividend-yield?price=50", http.StatusOK, 0.04, "", ""},
		{"ALE P/E", "/api/stocks/ALE/pe-ratio?price=69", http.StatusOK, 3, "", ""},
		{"TEA P/E", "/api/stocks/TEA/pe-ratio?price=100", http.StatusUnprocessableEntity, 0, contracts.KindDividendZero, "impossible to calculate P/E ratio: dividend is zero"},
		{"unknown stock", "/api/stocks/NAN/dividend-yield?price=100", http.StatusNotFound, 0, contracts.KindNoSuchStock, "no stock found: NAN"},
		{"zero price", "/api/stocks/TEA/dividend-yield?price=0", http.StatusBadRequest, 0, contracts.KindInvalidPrice, "price cannot be negative or zero"},
		{"missing price", "/api/stocks/TEA/pe-ratio", http.StatusBadRequest, 0, contracts.KindInvalidPrice, "price cannot be negative or zero"},
		{"non numeric price", "/api/stocks/TEA/pe-ratio?price=abc", http.StatusBadRequest, 0, contracts.KindInvalidPrice, "price cannot be negative or zero"},
		{"never traded", "/api/stocks/TEA/vwsp", http.StatusNotFound, 0, contracts.KindNoDataForStock, "no data found for stock TEA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.path, nil)
			require.Equal(t, tt.status, rec.Code)

			body := decode(t, rec)
			if tt.status == http.StatusOK {
				assert.InDelta(t, tt.value, body["value"], 1e-9)
				return
			}
			assert.Equal(t, string(tt.kind), body["kind"])
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestTrades_RecordAndQuery(t *testing.T) {
	f := newFixture(t, nil)

	for _, step := range []struct {
		symbol string
		req    handlers.TradeRequest
	}{
		{"TEA", trade(20, 60, "sell")},
		{"TEA", trade(30, 120, "BUY")},
		{"GIN", trade(10, 60, "buy")},
		{"GIN", trade(20, 150, "SELL")},
	} {
		rec := f.do(t, http.MethodPost, "/api/stocks/"+step.symbol+"/trades", step.req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.NotEmpty(t, decode(t, rec)["id"])
	}

	rec := f.do(t, http.MethodGet, "/api/stocks/TEA/vwsp", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.InDelta(t, 96, body["value"], 1e-9)
	assert.Equal(t, "5m0s", body["window"])

	rec = f.do(t, http.MethodGet, "/api/stocks/TEA/trades", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), decode(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/api/stocks/GIN/last", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, float64(150), body["price"])
	assert.Equal(t, "SELL", body["direction"])

	rec = f.do(t, http.MethodGet, "/api/index", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.InDelta(t, math.Sqrt(96*120), body["value"], 1e-9)
	assert.Equal(t, []interface{}{"GIN", "TEA"}, body["traded_stocks"])
}

func TestTrades_Rejected(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name   string
		path   string
		req    handlers.TradeRequest
		status int
		kind   contracts.ErrorKind
	}{
		{"unknown stock", "/api/stocks/NAN/trades", trade(20, 60, "SELL"), http.StatusNotFound, contracts.KindNoSuchStock},
		{"zero quantity", "/api/stocks/TEA/trades", trade(0, 60, "SELL"), http.StatusBadRequest, contracts.KindInvalidQuantity},
		{"negative price", "/api/stocks/TEA/trades", trade(20, -1, "SELL"), http.StatusBadRequest, contracts.KindInvalidPrice},
		{"bad direction", "/api/stocks/TEA/trades", trade(20, 60, "HOLD"), http.StatusBadRequest, contracts.KindInvalidDirection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, tt.req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, string(tt.kind), decode(t, rec)["kind"])
		})
	}

	assert.Equal(t, 0, f.engine.TradeCount("TEA"))

	rec := f.do(t, http.MethodGet, "/api/stocks/TEA/last", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(contracts.KindNoDataForStock), decode(t, rec)["kind"])

	rec = f.do(t, http.MethodGet, "/api/stocks/NAN/trades", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrades_RateLimited(t *testing.T) {
	f := newFixture(t, rate.NewLimiter(0, 1))

	rec := f.do(t, http.MethodPost, "/api/stocks/TEA/trades", trade(20, 60, "SELL"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/stocks/TEA/trades", trade(20, 60, "SELL"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, string(KindRateLimited), decode(t, rec)["kind"])

	// reads are never throttled
	rec = f.do(t, http.MethodGet, "/api/stocks/TEA/trades", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.engine.TradeCount("TEA"))
}

func TestIndex_EmptyAndHistory(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/index", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["value"])

	f.history.Append(jobs.IndexSnapshot{Time: time.Now(), Value: 107.33, TradedStocks: 2})

	rec = f.do(t, http.MethodGet, "/api/index/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count     int                  `json:"count"`
		Snapshots []jobs.IndexSnapshot `json:"snapshots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, 107.33, body.Snapshots[0].Value)
	assert.Equal(t, 2, body.Snapshots[0].TradedStocks)
}

func TestTradeStream(t *testing.T) {
	f := newFixture(t, nil)

	server := httptest.NewServer(f.router)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/trades"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return f.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	_, err = f.engine.Trade("JOE", 7, 250, contracts.DirectionBuy)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event realtime.TradeEvent
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, "JOE", event.Symbol)
	assert.Equal(t, 7, event.Quantity)
	assert.Equal(t, 250, event.Price)
	assert.Equal(t, contracts.DirectionBuy, event.Direction)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind contracts.ErrorKind
		want int
	}{
		{contracts.KindInvalidSymbol, http.StatusBadRequest},
		{contracts.KindInvalidPrice, http.StatusBadRequest},
		{contracts.KindInvalidQuantity, http.StatusBadRequest},
		{contracts.KindNoSuchStock, http.StatusNotFound},
		{contracts.KindNoDataForStock, http.StatusNotFound},
		{contracts.KindDividendZero, http.StatusUnprocessableEntity},
		{contracts.KindDuplicateStock, http.StatusConflict},
		{contracts.KindResultOutOfRange, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, handlers.StatusFor(tt.kind), string(tt.kind))
	}
}

func TestTrades_LargeValues(t *testing.T) {
	f := newFixture(t, nil)

	// price*quantity is past math.MaxInt64
	const big = 3037000500
	rec := f.do(t, http.MethodPost, "/api/stocks/TEA/trades", trade(big, big, "BUY"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/stocks/TEA/vwsp", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, float64(big), decode(t, rec)["value"], 1e-3)

	rec = f.do(t, http.MethodPost, "/api/stocks/GIN/trades", trade(10, 60, "BUY"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/index", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Body.String())
	assert.InDelta(t, math.Sqrt(float64(big)*60), decode(t, rec)["value"], 1e-3)
}

func TestValuation_ResultOutOfRange(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/stocks", handlers.RegisterStockRequest{
		Symbol: "BIG", Type: "PREFERRED", FixedDividend: math.MaxFloat64, ParValue: 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/stocks/BIG/dividend-yield?price=1", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, string(contracts.KindResultOutOfRange), body["kind"])
	assert.Equal(t, "result is out of range: BIG", body["error"])
}

func TestCache_LastTradesAndStats(t *testing.T) {
	f := newFixture(t, nil)

	for _, symbol := range []string{"TEA", "GIN", "POP"} {
		rec := f.do(t, http.MethodPost, "/api/stocks/"+symbol+"/trades", trade(10, 60, "BUY"))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/api/trades/last", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode(t, rec)["count"])

	rec = f.do(t, http.MethodGet, "/api/trades/last?symbols=TEA,%20JOE,GIN", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int                            `json:"count"`
		Trades map[string]realtime.TradeEvent `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Contains(t, body.Trades, "TEA")
	assert.Contains(t, body.Trades, "GIN")

	rec = f.do(t, http.MethodGet, "/api/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats cache.CacheStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, cache.CacheStats{TotalCount: 3, FreshCount: 3}, stats)
}

func TestScheduler_Endpoints(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.engine.Trade("TEA", 20, 60, contracts.DirectionSell)
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/scheduler/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Count int                  `json:"count"`
		Jobs  []scheduler.JobStats `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "index_snapshot", list.Jobs[0].JobName)
	assert.Equal(t, 0, list.Jobs[0].TotalRuns)

	rec = f.do(t, http.MethodPost, "/api/scheduler/jobs/index_snapshot/run", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool { return f.history.Len() == 1 }, time.Second, 10*time.Millisecond)
	latest, ok := f.history.Latest()
	require.True(t, ok)
	assert.Equal(t, 60.0, latest.Value)

	require.Eventually(t, func() bool {
		rec := f.do(t, http.MethodGet, "/api/scheduler/jobs/index_snapshot/history", nil)
		return rec.Code == http.StatusOK && strings.Contains(rec.Body.String(), `"count":1,`)
	}, time.Second, 10*time.Millisecond)

	rec = f.do(t, http.MethodPost, "/api/scheduler/jobs/missing/run", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "job missing: job not found", decode(t, rec)["error"])

	rec = f.do(t, http.MethodGet, "/api/scheduler/jobs/missing/history", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
