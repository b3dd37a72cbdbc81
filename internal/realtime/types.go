package realtime

import (
	"time"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/internal/ledger"
)

// TradeEvent is the wire form of a recorded trade
type TradeEvent struct {
	ID        string              `json:"id"`
	Symbol    string              `json:"symbol"`
	Quantity  int                 `json:"quantity"`
	Price     int                 `json:"price"`
	Direction contracts.Direction `json:"direction"`
	Timestamp time.Time           `json:"timestamp"`
	IsStale   bool                `json:"is_stale"` // older than the cache TTL
}

// NewTradeEvent converts a ledger trade
func NewTradeEvent(t ledger.Trade) *TradeEvent {
	return &TradeEvent{
		ID:        t.ID,
		Symbol:    t.Symbol,
		Quantity:  t.Quantity,
		Price:     t.Price,
		Direction: t.Direction,
		Timestamp: t.Timestamp,
	}
}
