package valuation

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/internal/ledger"
	"github.com/alexboumb/SuperSimpleStocks2/internal/stock"
	"github.com/alexboumb/SuperSimpleStocks2/internal/validation"
	"github.com/alexboumb/SuperSimpleStocks2/pkg/logger"
)

// DefaultWindow is the trailing window of the volume weighted stock price
const DefaultWindow = 5 * time.Minute

// NoTradesInWindowPrice is returned by VolumeWeightedPrice when the stock has
// been traded but none of its trades fall inside the window.
const NoTradesInWindowPrice = 1.0

// TradeListener is notified after a trade is recorded
type TradeListener func(trade ledger.Trade)

// Engine answers valuation queries over a catalogue and records trades.
// It owns the catalogue and the ledger; nothing else mutates them.
type Engine struct {
	catalogue *stock.Catalogue
	ledger    *ledger.Ledger
	window    time.Duration
	now       func() time.Time
	logger    *logger.Logger

	// serializes clock reads and appends so timestamps never go backwards
	tradeMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []TradeListener
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithWindow replaces the 5 minute volume weighted price window
func WithWindow(window time.Duration) Option {
	return func(e *Engine) {
		if window > 0 {
			e.window = window
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.logger = log
		}
	}
}

// New creates an engine over catalogue with an empty ledger
func New(catalogue *stock.Catalogue, opts ...Option) *Engine {
	e := &Engine{
		catalogue: catalogue,
		ledger:    ledger.New(),
		window:    DefaultWindow,
		now:       time.Now,
		logger:    logger.Nop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Window returns the volume weighted price window
func (e *Engine) Window() time.Duration {
	return e.window
}

// DividendYield returns the dividend yield of symbol at price
func (e *Engine) DividendYield(symbol string, price int) (float64, error) {
	if !validation.SymbolValid(symbol) {
		return 0, e.reject("dividend_yield", symbol, contracts.NewError(contracts.KindInvalidSymbol))
	}
	if !validation.PriceValid(price) {
		return 0, e.reject("dividend_yield", symbol, contracts.NewError(contracts.KindInvalidPrice))
	}

	s, err := e.lookup(symbol)
	if err != nil {
		return 0, e.reject("dividend_yield", symbol, err)
	}

	yield, err := s.DividendYield(price)
	if err != nil {
		return 0, e.reject("dividend_yield", symbol, err)
	}
	return e.finite("dividend_yield", symbol, yield)
}

// PERatio returns the price/earnings ratio of symbol at price
func (e *Engine) PERatio(symbol string, price int) (float64, error) {
	if !validation.SymbolValid(symbol) {
		return 0, e.reject("pe_ratio", symbol, contracts.NewError(contracts.KindInvalidSymbol))
	}
	if !validation.PriceValid(price) {
		return 0, e.reject("pe_ratio", symbol, contracts.NewError(contracts.KindInvalidPrice))
	}

	s, err := e.lookup(symbol)
	if err != nil {
		return 0, e.reject("pe_ratio", symbol, err)
	}

	ratio, err := s.PERatio(price)
	if err != nil {
		return 0, e.reject("pe_ratio", symbol, err)
	}
	return e.finite("pe_ratio", symbol, ratio)
}

// Trade records a trade of symbol at the current time
func (e *Engine) Trade(symbol string, quantity, price int, direction contracts.Direction) (ledger.Trade, error) {
	if !validation.SymbolValid(symbol) {
		return ledger.Trade{}, e.reject("trade", symbol, contracts.NewError(contracts.KindInvalidSymbol))
	}
	if !validation.QuantityValid(quantity) {
		return ledger.Trade{}, e.reject("trade", symbol, contracts.NewError(contracts.KindInvalidQuantity))
	}
	if !validation.PriceValid(price) {
		return ledger.Trade{}, e.reject("trade", symbol, contracts.NewError(contracts.KindInvalidPrice))
	}
	if !validation.DirectionValid(direction) {
		return ledger.Trade{}, e.reject("trade", symbol, contracts.NewError(contracts.KindInvalidDirection))
	}

	s, err := e.lookup(symbol)
	if err != nil {
		return ledger.Trade{}, e.reject("trade", symbol, err)
	}

	e.tradeMu.Lock()
	trade, err := e.ledger.Record(s, e.now(), quantity, price, direction)
	e.tradeMu.Unlock()
	if err != nil {
		return ledger.Trade{}, e.reject("trade", symbol, err)
	}

	e.logger.WithFields(map[string]interface{}{
		"trade_id":  trade.ID,
		"symbol":    trade.Symbol,
		"quantity":  trade.Quantity,
		"price":     trade.Price,
		"direction": trade.Direction,
	}).Info("Trade recorded")

	e.notify(trade)
	return trade, nil
}

// VolumeWeightedPrice returns sum(price*quantity)/sum(quantity) over the
// trades of symbol inside the window.
//
// A stock that was never traded fails with NoDataForStock. A stock whose
// trades all fall outside the window returns NoTradesInWindowPrice.
func (e *Engine) VolumeWeightedPrice(symbol string) (float64, error) {
	if !validation.SymbolValid(symbol) {
		return 0, e.reject("vwsp", symbol, contracts.NewError(contracts.KindInvalidSymbol))
	}

	s, err := e.lookup(symbol)
	if err != nil {
		return 0, e.reject("vwsp", symbol, err)
	}

	price, err := e.volumeWeightedPrice(s)
	if err != nil {
		return 0, err
	}
	return e.finite("vwsp", symbol, price)
}

func (e *Engine) volumeWeightedPrice(s *stock.Stock) (float64, error) {
	agg, err := e.ledger.WindowedAggregate(s, e.now(), e.window)
	if err != nil {
		return 0, e.reject("vwsp", s.Symbol(), err)
	}

	if agg.SumQuantity == 0 {
		return NoTradesInWindowPrice, nil
	}

	return agg.SumPriceQuantity / agg.SumQuantity, nil
}

// AllShareIndex returns the geometric mean of the volume weighted price of
// every stock traded at least once, or 0 when nothing has been traded.
// Symbols are visited in sorted order so repeated reads are identical.
func (e *Engine) AllShareIndex() (float64, error) {
	symbols := e.ledger.Symbols()
	if len(symbols) == 0 {
		return 0, nil
	}

	prices := make([]float64, 0, len(symbols))
	for _, symbol := range symbols {
		s, err := e.lookup(symbol)
		if err != nil {
			return 0, err
		}

		price, err := e.volumeWeightedPrice(s)
		if err != nil {
			return 0, err
		}
		prices = append(prices, price)
	}

	return e.finite("index", "", geometricMean(prices))
}

// geometricMean is the n-th root of the product of values.
// When the product overflows, the mean is taken over logarithms instead.
func geometricMean(values []float64) float64 {
	n := float64(len(values))

	product := 1.0
	for _, v := range values {
		product *= v
	}
	if !math.IsInf(product, 0) {
		return math.Pow(product, 1/n)
	}

	sumLog := 0.0
	for _, v := range values {
		sumLog += math.Log(v)
	}
	return math.Exp(sumLog / n)
}

// RegisterStock adds an entry to the catalogue
func (e *Engine) RegisterStock(s *stock.Stock) error {
	if err := e.catalogue.Register(s); err != nil {
		return e.reject("register", "", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"symbol": s.Symbol(),
		"type":   s.Kind(),
	}).Info("Stock registered")
	return nil
}

// Stock returns the catalogue entry for symbol
func (e *Engine) Stock(symbol string) (*stock.Stock, error) {
	if !validation.SymbolValid(symbol) {
		return nil, contracts.NewError(contracts.KindInvalidSymbol)
	}
	return e.lookup(symbol)
}

// Stocks returns every catalogue entry in registration order
func (e *Engine) Stocks() []*stock.Stock {
	return e.catalogue.Stocks()
}

// Trades returns the trades recorded for symbol, oldest first
func (e *Engine) Trades(symbol string) ([]ledger.Trade, error) {
	if _, err := e.Stock(symbol); err != nil {
		return nil, err
	}
	return e.ledger.Trades(symbol), nil
}

// TradeCount returns the number of trades recorded for symbol
func (e *Engine) TradeCount(symbol string) int {
	return e.ledger.Count(symbol)
}

// TradedSymbols returns every symbol with at least one trade, sorted
func (e *Engine) TradedSymbols() []string {
	return e.ledger.Symbols()
}

// Subscribe registers a listener called after every recorded trade.
// Listeners run synchronously on the trading goroutine.
func (e *Engine) Subscribe(listener TradeListener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()

	e.listeners = append(e.listeners, listener)
}

func (e *Engine) notify(trade ledger.Trade) {
	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()

	for _, listener := range e.listeners {
		listener(trade)
	}
}

func (e *Engine) lookup(symbol string) (*stock.Stock, error) {
	s, ok := e.catalogue.Lookup(symbol)
	if !ok {
		return nil, contracts.NewSymbolError(contracts.KindNoSuchStock, symbol)
	}
	return s, nil
}

// finite turns an infinite or NaN result into ResultOutOfRange
func (e *Engine) finite(op, symbol string, v float64) (float64, error) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, e.reject(op, symbol, contracts.NewSymbolError(contracts.KindResultOutOfRange, symbol))
	}
	return v, nil
}

// reject logs a refused request and returns err unchanged
func (e *Engine) reject(op, symbol string, err error) error {
	fields := map[string]interface{}{
		"op":     op,
		"symbol": symbol,
	}

	var bizErr *contracts.Error
	if errors.As(err, &bizErr) {
		fields["kind"] = bizErr.Kind
	}

	e.logger.WithError(err).WithFields(fields).Debug("Request rejected")
	return err
}
