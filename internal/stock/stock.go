package stock

import (
	"strings"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
	"github.com/alexboumb/SuperSimpleStocks2/internal/validation"
)

// Stock is one catalogue entry.
// Fields are unexported so an entry cannot change after construction;
// the only way to obtain one is through the validating constructors.
type Stock struct {
	symbol        string
	kind          contracts.StockKind
	lastDividend  int
	fixedDividend float64
	parValue      int
}

// Spec describes a catalogue entry before validation
type Spec struct {
	Symbol        string              `yaml:"symbol" json:"symbol"`
	Kind          contracts.StockKind `yaml:"-" json:"type"`
	LastDividend  int                 `yaml:"last_dividend" json:"last_dividend"`
	FixedDividend float64             `yaml:"fixed_dividend" json:"fixed_dividend"`
	ParValue      int                 `yaml:"par_value" json:"par_value"`
}

// NewCommon creates a common stock
func NewCommon(symbol string, lastDividend, parValue int) (*Stock, error) {
	return New(Spec{
		Symbol:       symbol,
		Kind:         contracts.StockKindCommon,
		LastDividend: lastDividend,
		ParValue:     parValue,
	})
}

// NewPreferred creates a preferred stock
func NewPreferred(symbol string, lastDividend int, fixedDividend float64, parValue int) (*Stock, error) {
	return New(Spec{
		Symbol:        symbol,
		Kind:          contracts.StockKindPreferred,
		LastDividend:  lastDividend,
		FixedDividend: fixedDividend,
		ParValue:      parValue,
	})
}

// New validates spec and creates the entry.
// The symbol is stored without surrounding whitespace and the fixed
// dividend of a common stock is ignored.
func New(spec Spec) (*Stock, error) {
	spec.Symbol = strings.TrimSpace(spec.Symbol)
	if !validation.SymbolValid(spec.Symbol) {
		return nil, contracts.NewError(contracts.KindInvalidSymbol)
	}
	if !validation.DividendValid(spec.LastDividend) {
		return nil, contracts.NewError(contracts.KindInvalidDividend)
	}

	fixed := 0.0
	switch spec.Kind {
	case contracts.StockKindCommon:
	case contracts.StockKindPreferred:
		if !validation.FixedDividendValid(spec.FixedDividend) {
			return nil, contracts.NewError(contracts.KindInvalidFixedDividend)
		}
		fixed = spec.FixedDividend
	default:
		return nil, contracts.NewError(contracts.KindInvalidKind)
	}

	if !validation.ParValueValid(spec.ParValue) {
		return nil, contracts.NewError(contracts.KindInvalidParValue)
	}

	return &Stock{
		symbol:        spec.Symbol,
		kind:          spec.Kind,
		lastDividend:  spec.LastDividend,
		fixedDividend: fixed,
		parValue:      spec.ParValue,
	}, nil
}

// Symbol returns the unique catalogue key
func (s *Stock) Symbol() string { return s.symbol }

// Kind returns COMMON or PREFERRED
func (s *Stock) Kind() contracts.StockKind { return s.kind }

// LastDividend returns the last dividend
func (s *Stock) LastDividend() int { return s.lastDividend }

// FixedDividend returns the fixed dividend rate (0 for common stocks)
func (s *Stock) FixedDividend() float64 { return s.fixedDividend }

// ParValue returns the par value
func (s *Stock) ParValue() int { return s.parValue }

// Spec returns the entry's attributes
func (s *Stock) Spec() Spec {
	return Spec{
		Symbol:        s.symbol,
		Kind:          s.kind,
		LastDividend:  s.lastDividend,
		FixedDividend: s.fixedDividend,
		ParValue:      s.parValue,
	}
}

// DividendYield returns the dividend yield for the given price
//
//	COMMON:    lastDividend / price
//	PREFERRED: fixedDividend * parValue / price
func (s *Stock) DividendYield(price int) (float64, error) {
	if !validation.PriceValid(price) {
		return 0, contracts.NewError(contracts.KindInvalidPrice)
	}

	switch s.kind {
	case contracts.StockKindPreferred:
		return s.fixedDividend * float64(s.parValue) / float64(price), nil
	default:
		return float64(s.lastDividend) / float64(price), nil
	}
}

// PERatio returns price / lastDividend.
// A zero last dividend is reported as DividendZero.
func (s *Stock) PERatio(price int) (float64, error) {
	if !validation.PriceValid(price) {
		return 0, contracts.NewError(contracts.KindInvalidPrice)
	}
	if s.lastDividend == 0 {
		return 0, contracts.NewError(contracts.KindDividendZero)
	}

	return float64(price) / float64(s.lastDividend), nil
}
