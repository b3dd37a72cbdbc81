package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/internal/realtime"
	"github.com/alexboumb/SuperSimpleStocks2/internal/realtime/cache"
	"github.com/alexboumb/SuperSimpleStocks2/internal/valuation"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

// TradingHandler handles trade endpoints
type TradingHandler struct {
	engine *valuation.Engine
	cache  *cache.TradeCache
	logger *logger.Logger
}

// NewTradingHandler creates a new trading handler
func NewTradingHandler(engine *valuation.Engine, tradeCache *cache.TradeCache, log *logger.Logger) *TradingHandler {
	if log == nil {
		log = logger.Nop()
	}

	return &TradingHandler{
		engine: engine,
		cache:  tradeCache,
		logger: log,
	}
}

// TradeRequest is the body of POST /api/stocks/{symbol}/trades
type TradeRequest struct {
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price"`
	Direction string `json:"direction"`
}

// Record records a trade at the current time
// POST /api/stocks/{symbol}/trades
func (h *TradingHandler) Record(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	direction, err := contracts.ParseDirection(req.Direction)
	if err != nil {
		respondBusinessError(w, h.logger, err)
		return
	}

	trade, err := h.engine.Trade(symbol, req.Quantity, req.Price, direction)
	if err != nil {
		respondBusinessError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, trade)
}

// List returns the trades of a stock, oldest first
// GET /api/stocks/{symbol}/trades
func (h *TradingHandler) List(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	trades, err := h.engine.Trades(symbol)
	if err != nil {
		respondBusinessError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"count":  len(trades),
		"trades": trades,
	})
}

// Last returns the cached last trade of a stock
// GET /api/stocks/{symbol}/last
func (h *TradingHandler) Last(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	if _, err := h.engine.Stock(symbol); err != nil {
		respondBusinessError(w, h.logger, err)
		return
	}

	event, ok := h.cache.Get(symbol)
	if !ok {
		respondBusinessError(w, h.logger, contracts.NewSymbolError(contracts.KindNoDataForStock, symbol))
		return
	}

	respondJSON(w, h.logger, http.StatusOK, event)
}

// LastMany returns the cached last trades, keyed by symbol.
// ?symbols=TEA,GIN narrows the result; without it every cached symbol is returned.
// GET /api/trades/last
func (h *TradingHandler) LastMany(w http.ResponseWriter, r *http.Request) {
	var trades map[string]*realtime.TradeEvent
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		symbols := make([]string, 0)
		for _, symbol := range strings.Split(raw, ",") {
			if symbol = strings.TrimSpace(symbol); symbol != "" {
				symbols = append(symbols, symbol)
			}
		}
		trades = h.cache.GetMany(symbols)
	} else {
		trades = h.cache.GetAll()
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"count":  len(trades),
		"trades": trades,
	})
}

// CacheStats reports how many cached last trades are fresh or stale
// GET /api/cache/stats
func (h *TradingHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.cache.Stats())
}
