// Package validation holds the domain predicates checked before any
// catalogue entry is constructed or any trade is recorded.
//
// Every predicate is total: it never panics and never returns an error.
// Callers translate a false result into the matching contracts error.
package validation

import (
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/alexboumb/SuperSimpleStocks2/internal/contracts"
)

// SymbolValid checks that the symbol is non-empty after trimming whitespace
func SymbolValid(symbol string) bool {
	return strings.TrimSpace(symbol) != ""
}

// PriceValid checks that the price is strictly positive
func PriceValid(price int) bool {
	return price > 0
}

// QuantityValid checks that the quantity is strictly positive
func QuantityValid(quantity int) bool {
	return quantity > 0
}

// DividendValid checks that the last dividend is not negative
func DividendValid(dividend int) bool {
	return dividend >= 0
}

// FixedDividendValid checks that the fixed dividend is finite and not negative.
func FixedDividendValid(fixedDividend float64) bool {
	return fixedDividend >= 0 && !math.IsInf(fixedDividend, 1)
}

// ParValueValid checks that the par value is strictly positive
func ParValueValid(parValue int) bool {
	return parValue > 0
}

// TimestampValid checks that the timestamp is set
func TimestampValid(ts time.Time) bool {
	return !ts.IsZero()
}

// DirectionValid checks that the direction is BUY or SELL
func DirectionValid(d contracts.Direction) bool {
	return d.IsValid()
}

// NotNil checks that v is present, including typed nil pointers
// stored in an interface.
func NotNil(v interface{}) bool {
	if v == nil {
		return false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}
