package stock

import (
	"sync"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
)

// Catalogue is the set of tradable stocks keyed by symbol.
// Entries are never removed; Symbols and Stocks keep registration order.
type Catalogue struct {
	mu     sync.RWMutex
	stocks map[string]*Stock
	order  []string
}

// NewCatalogue creates a catalogue from already constructed entries
func NewCatalogue(stocks ...*Stock) (*Catalogue, error) {
	c := &Catalogue{
		stocks: make(map[string]*Stock, len(stocks)),
	}

	for _, s := range stocks {
		if err := c.Register(s); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Register adds an entry; the symbol must not already be registered
func (c *Catalogue) Register(s *Stock) error {
	if s == nil {
		return contracts.NewError(contracts.KindInvalidStock)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.stocks[s.Symbol()]; exists {
		return contracts.NewSymbolError(contracts.KindDuplicateStock, s.Symbol())
	}

	c.stocks[s.Symbol()] = s
	c.order = append(c.order, s.Symbol())
	return nil
}

// Lookup returns the entry for symbol
func (c *Catalogue) Lookup(symbol string) (*Stock, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.stocks[symbol]
	return s, ok
}

// Symbols returns all symbols in registration order
func (c *Catalogue) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Stocks returns all entries in registration order
func (c *Catalogue) Stocks() []*Stock {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Stock, 0, len(c.order))
	for _, symbol := range c.order {
		out = append(out, c.stocks[symbol])
	}
	return out
}

// Len returns the number of entries
func (c *Catalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.order)
}

// DefaultCatalogue returns the sample Global Beverage Corporation Exchange data
func DefaultCatalogue() *Catalogue {
	specs := []Spec{
		{Symbol: "TEA", Kind: contracts.StockKindCommon, LastDividend: 0, ParValue: 100},
		{Symbol: "POP", Kind: contracts.StockKindCommon, LastDividend: 8, ParValue: 100},
		{Symbol: "ALE", Kind: contracts.StockKindCommon, LastDividend: 23, ParValue: 60},
		{Symbol: "GIN", Kind: contracts.StockKindPreferred, LastDividend: 8, FixedDividend: 0.02, ParValue: 100},
		{Symbol: "JOE", Kind: contracts.StockKindCommon, LastDividend: 13, ParValue: 250},
	}

	c, err := FromSpecs(specs)
	if err != nil {
		// the sample data is constant and valid
		panic(err)
	}
	return c
}

// FromSpecs constructs every entry and returns the catalogue.
// The first construction failure is returned; no partial catalogue is built.
func FromSpecs(specs []Spec) (*Catalogue, error) {
	stocks := make([]*Stock, 0, len(specs))
	for _, spec := range specs {
		s, err := New(spec)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}

	return NewCatalogue(stocks...)
}
