package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/internal/stock"
	"github.com/alexboumb/SuperSimpleStocks2/internal/valuation"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

// StockHandler handles catalogue and per-stock valuation endpoints
type StockHandler struct {
	engine *valuation.Engine
	logger *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(engine *valuation.Engine, log *logger.Logger) *StockHandler {
	if log == nil {
		log = logger.Nop()
	}

	return &StockHandler{
		engine: engine,
		logger: log,
	}
}

// StockResponse is a catalogue entry
type StockResponse struct {
	Symbol        string              `json:"symbol"`
	Type          contracts.StockKind `json:"type"`
	LastDividend  int                 `json:"last_dividend"`
	FixedDividend float64             `json:"fixed_dividend"`
	ParValue      int                 `json:"par_value"`
}

// RegisterStockRequest is the body of POST /api/stocks
type RegisterStockRequest struct {
	Symbol        string  `json:"symbol"`
	Type          string  `json:"type"`
	LastDividend  int     `json:"last_dividend"`
	FixedDividend float64 `json:"fixed_dividend"`
	ParValue      int     `json:"par_value"`
}

// ValueResponse carries a single computed figure
type ValueResponse struct {
	Symbol string  `json:"symbol"`
	Price  int     `json:"price,omitempty"`
	Value  float64 `json:"value"`
}

func toStockResponse(s *stock.Stock) StockResponse {
	return StockResponse{
		Symbol:        s.Symbol(),
		Type:          s.Kind(),
		LastDividend:  s.LastDividend(),
		FixedDividend: s.FixedDividend(),
		ParValue:      s.ParValue(),
	}
}

// List returns the catalogue in registration order
// GET /api/stocks
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	stocks := h.engine.Stocks()

	result := make([]StockResponse, len(stocks))
	for i, s := range stocks {
		result[i] = toStockResponse(s)
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"count":  len(result),
		"stocks": result,
	})
}

// Register adds a catalogue entry
// POST /api/stocks
func (h *StockHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	kind, err := contracts.ParseStockKind(req.Type)
	if err != nil {
		respondBusinessError(w, h.logger, err)
		return
	}

	s, err := stock.New(stock.Spec{
		Symbol:        req.Symbol,
		Kind:          kind,
		LastDividend:  req.LastDividend,
		FixedDividend: req.FixedDividend,
		ParValue:      req.ParValue,
	})
	if err != nil {
		respondBusinessError(w, h.logger, err)
		return
	}

	if err := h.engine.RegisterStock(s); err != nil {
		respondBusinessError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, toStockResponse(s))
}

// Get returns one catalogue entry
// GET /api/stocks/{symbol}
func (h *StockHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.engine.Stock(mux.Vars(r)["symbol"])
	if err != nil {
		respondBusinessError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, toStockResponse(s))
}

// DividendYield computes the dividend yield at a price
// GET /api/stocks/{symbol}/dividend-yield?price=N
func (h *StockHandler) DividendYield(w http.ResponseWriter, r *http.Request) {
	h.priced(w, r, h.engine.DividendYield)
}

// PERatio computes the P/E ratio at a price
// GET /api/stocks/{symbol}/pe-ratio?price=N
func (h *StockHandler) PERatio(w http.ResponseWriter, r *http.Request) {
	h.priced(w, r, h.engine.PERatio)
}

// VolumeWeightedPrice returns the windowed volume weighted stock price
// GET /api/stocks/{symbol}/vwsp
func (h *StockHandler) VolumeWeightedPrice(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	value, err := h.engine.VolumeWeightedPrice(symbol)
	if err != nil {
		respondBusinessError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"value":  value,
		"window": h.engine.Window().String(),
	})
}

func (h *StockHandler) priced(w http.ResponseWriter, r *http.Request, fn func(string, int) (float64, error)) {
	symbol := mux.Vars(r)["symbol"]

	price, err := priceParam(r)
	if err != nil {
		respondBusinessError(w, h.logger, err)
		return
	}

	value, err := fn(symbol, price)
	if err != nil {
		respondBusinessError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, ValueResponse{
		Symbol: symbol,
		Price:  price,
		Value:  value,
	})
}
