package handlers

import (
	"net/http"

	"github.com/alexboumb/SuperSimpleStocks2/internal/scheduler/jobs"
	"github.com/alexboumb/SuperSimpleStocks2/internal/valuation"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

// IndexHandler serves the all share index
type IndexHandler struct {
	engine  *valuation.Engine
	history *jobs.IndexHistory
	logger  *logger.Logger
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(engine *valuation.Engine, history *jobs.IndexHistory, log *logger.Logger) *IndexHandler {
	if log == nil {
		log = logger.Nop()
	}

	return &IndexHandler{
		engine:  engine,
		history: history,
		logger:  log,
	}
}

// Get computes the index now
// GET /api/index
func (h *IndexHandler) Get(w http.ResponseWriter, r *http.Request) {
	value, err := h.engine.AllShareIndex()
	if err != nil {
		respondBusinessError(w, h.logger, err)
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"value":         value,
		"traded_stocks": h.engine.TradedSymbols(),
	})
}

// History returns the scheduled snapshots, oldest first
// GET /api/index/history
func (h *IndexHandler) History(w http.ResponseWriter, r *http.Request) {
	snapshots := h.history.Snapshots()

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"count":     len(snapshots),
		"snapshots": snapshots,
	})
}
