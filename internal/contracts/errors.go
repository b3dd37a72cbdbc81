package contracts

import "fmt"

// ErrorKind identifies one business failure condition
type ErrorKind string

const (
	KindInvalidSymbol        ErrorKind = "INVALID_SYMBOL"
	KindInvalidPrice         ErrorKind = "INVALID_PRICE"
	KindInvalidQuantity      ErrorKind = "INVALID_QUANTITY"
	KindInvalidDividend      ErrorKind = "INVALID_DIVIDEND"
	KindInvalidFixedDividend ErrorKind = "INVALID_FIXED_DIVIDEND"
	KindInvalidParValue      ErrorKind = "INVALID_PAR_VALUE"
	KindInvalidStock         ErrorKind = "INVALID_STOCK"
	KindInvalidTimestamp     ErrorKind = "INVALID_TIMESTAMP"
	KindInvalidDirection     ErrorKind = "INVALID_DIRECTION"
	KindInvalidKind          ErrorKind = "INVALID_KIND"
	KindNoSuchStock          ErrorKind = "NO_SUCH_STOCK"
	KindNoDataForStock       ErrorKind = "NO_DATA_FOR_STOCK"
	KindDividendZero         ErrorKind = "DIVIDEND_ZERO"
	KindDuplicateStock       ErrorKind = "DUPLICATE_STOCK"
	KindResultOutOfRange     ErrorKind = "RESULT_OUT_OF_RANGE"
)

var messages = map[ErrorKind]string{
	KindInvalidSymbol:        "stock symbol cannot be null or empty",
	KindInvalidPrice:         "price cannot be negative or zero",
	KindInvalidQuantity:      "quantity cannot be negative or zero",
	KindInvalidDividend:      "last dividend cannot be negative",
	KindInvalidFixedDividend: "fixed dividend cannot be negative",
	KindInvalidParValue:      "par value cannot be negative or zero",
	KindInvalidStock:         "stock cannot be null",
	KindInvalidTimestamp:     "timestamp cannot be null",
	KindInvalidDirection:     "direction must be either BUY or SELL",
	KindInvalidKind:          "stock type must be either COMMON or PREFERRED",
	KindNoSuchStock:          "no stock found",
	KindNoDataForStock:       "no data found for stock",
	KindDividendZero:         "impossible to calculate P/E ratio: dividend is zero",
	KindDuplicateStock:       "stock already registered",
	KindResultOutOfRange:     "result is out of range",
}

// Error is a recoverable business failure.
// Two errors are considered equal by errors.Is when their kinds match,
// so callers compare against the Err* sentinels below.
type Error struct {
	Kind   ErrorKind
	Symbol string // set for lookup failures
}

// Error returns the stable human-readable message for the kind
func (e *Error) Error() string {
	msg, ok := messages[e.Kind]
	if !ok {
		msg = string(e.Kind)
	}

	switch e.Kind {
	case KindNoSuchStock, KindDuplicateStock:
		return fmt.Sprintf("%s: %s", msg, e.Symbol)
	case KindNoDataForStock:
		return fmt.Sprintf("%s %s", msg, e.Symbol)
	case KindResultOutOfRange:
		if e.Symbol != "" {
			return fmt.Sprintf("%s: %s", msg, e.Symbol)
		}
	}
	return msg
}

// Is reports whether target is a *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError creates an error of the given kind without a symbol
func NewError(kind ErrorKind) *Error {
	return &Error{Kind: kind}
}

// NewSymbolError creates an error of the given kind for a symbol
func NewSymbolError(kind ErrorKind, symbol string) *Error {
	return &Error{Kind: kind, Symbol: symbol}
}

// Sentinels for errors.Is comparisons
var (
	ErrInvalidSymbol        = NewError(KindInvalidSymbol)
	ErrInvalidPrice         = NewError(KindInvalidPrice)
	ErrInvalidQuantity      = NewError(KindInvalidQuantity)
	ErrInvalidDividend      = NewError(KindInvalidDividend)
	ErrInvalidFixedDividend = NewError(KindInvalidFixedDividend)
	ErrInvalidParValue      = NewError(KindInvalidParValue)
	ErrInvalidStock         = NewError(KindInvalidStock)
	ErrInvalidTimestamp     = NewError(KindInvalidTimestamp)
	ErrInvalidDirection     = NewError(KindInvalidDirection)
	ErrInvalidKind          = NewError(KindInvalidKind)
	ErrNoSuchStock          = NewError(KindNoSuchStock)
	ErrNoDataForStock       = NewError(KindNoDataForStock)
	ErrDividendZero         = NewError(KindDividendZero)
	ErrDuplicateStock       = NewError(KindDuplicateStock)
	ErrResultOutOfRange     = NewError(KindResultOutOfRange)
)
