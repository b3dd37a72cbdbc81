package contracts

import "strings"

// StockKind selects the dividend yield formula of a catalogue entry
type StockKind string

const (
	StockKindCommon    StockKind = "COMMON"
	StockKindPreferred StockKind = "PREFERRED"
)

// ParseStockKind accepts "common"/"preferred" in any case
func ParseStockKind(s string) (StockKind, error) {
	switch StockKind(strings.ToUpper(strings.TrimSpace(s))) {
	case StockKindCommon:
		return StockKindCommon, nil
	case StockKindPreferred:
		return StockKindPreferred, nil
	default:
		return "", NewError(KindInvalidKind)
	}
}

// Direction represents buy or sell
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// ParseDirection accepts "buy"/"sell" in any case
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", NewError(KindInvalidDirection)
	}
	return d, nil
}

// IsValid checks if the direction is BUY or SELL
func (d Direction) IsValid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// IsBuy checks if the direction is BUY
func (d Direction) IsBuy() bool {
	return d == DirectionBuy
}
