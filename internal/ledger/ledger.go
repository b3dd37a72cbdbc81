package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/internal/stock"
	"github.com/alexboumb/SuperSimpleStocks2/internal/validation"
)

// Trade is one recorded trade.
// Trades are handed out by value; the ledger's own copy never changes.
type Trade struct {
	ID        string              `json:"id"`
	Stock     *stock.Stock        `json:"-"`
	Symbol    string              `json:"symbol"`
	Timestamp time.Time           `json:"timestamp"`
	Quantity  int                 `json:"quantity"`
	Price     int                 `json:"price"`
	Direction contracts.Direction `json:"direction"`
}

// Aggregate is the windowed sum used by the volume weighted price.
// Sums are real-valued: price*quantity of two valid ints can exceed int64.
type Aggregate struct {
	SumPriceQuantity float64
	SumQuantity      float64
	Trades           int
}

// Ledger is an append-only, per-stock sequence of trades.
// A symbol has an entry only once it has been traded; entries are never empty.
type Ledger struct {
	mu     sync.RWMutex
	trades map[string][]Trade
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{
		trades: make(map[string][]Trade),
	}
}

// Record appends a trade for s
func (l *Ledger) Record(s *stock.Stock, ts time.Time, quantity, price int, direction contracts.Direction) (Trade, error) {
	if !validation.NotNil(s) {
		return Trade{}, contracts.NewError(contracts.KindInvalidStock)
	}
	if !validation.TimestampValid(ts) {
		return Trade{}, contracts.NewError(contracts.KindInvalidTimestamp)
	}
	if !validation.QuantityValid(quantity) {
		return Trade{}, contracts.NewError(contracts.KindInvalidQuantity)
	}
	if !validation.PriceValid(price) {
		return Trade{}, contracts.NewError(contracts.KindInvalidPrice)
	}
	if !validation.DirectionValid(direction) {
		return Trade{}, contracts.NewError(contracts.KindInvalidDirection)
	}

	trade := Trade{
		ID:        uuid.New().String(),
		Stock:     s,
		Symbol:    s.Symbol(),
		Timestamp: ts,
		Quantity:  quantity,
		Price:     price,
		Direction: direction,
	}

	l.mu.Lock()
	l.trades[s.Symbol()] = append(l.trades[s.Symbol()], trade)
	l.mu.Unlock()

	return trade, nil
}

// WindowedAggregate sums price*quantity and quantity over the trades of s
// with timestamp >= now-window.
// A stock that has never been traded fails with NoDataForStock; a stock whose
// trades all fall outside the window returns a zero aggregate.
func (l *Ledger) WindowedAggregate(s *stock.Stock, now time.Time, window time.Duration) (Aggregate, error) {
	if !validation.NotNil(s) {
		return Aggregate{}, contracts.NewError(contracts.KindInvalidStock)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	trades, ok := l.trades[s.Symbol()]
	if !ok {
		return Aggregate{}, contracts.NewSymbolError(contracts.KindNoDataForStock, s.Symbol())
	}

	cutoff := now.Add(-window)
	var agg Aggregate

	// Newest first. Record does not reject out-of-order timestamps, so the
	// whole sequence is scanned instead of stopping at the first old trade.
	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		if t.Timestamp.Before(cutoff) {
			continue
		}
		agg.SumPriceQuantity += float64(t.Price) * float64(t.Quantity)
		agg.SumQuantity += float64(t.Quantity)
		agg.Trades++
	}

	return agg, nil
}

// Trades returns a copy of the trades recorded for symbol, oldest first
func (l *Ledger) Trades(symbol string) []Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	trades := l.trades[symbol]
	out := make([]Trade, len(trades))
	copy(out, trades)
	return out
}

// Count returns the number of trades recorded for symbol
func (l *Ledger) Count(symbol string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.trades[symbol])
}

// Symbols returns every traded symbol, sorted
func (l *Ledger) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	symbols := make([]string, 0, len(l.trades))
	for symbol := range l.trades {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
