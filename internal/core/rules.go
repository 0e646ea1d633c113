package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseSide accepts exactly "BUY" or "SELL".
func ParseSide(v string) (Side, error) {
	switch Side(v) {
	case Buy, Sell:
		return Side(v), nil
	}
	return "", Validation("param side is wrong")
}

func ValidateSymbol(symbol string) error {
	if strings.TrimSpace(symbol) == "" {
		return Validation("param symbol is required")
	}
	return nil
}

// ValidateQuantity accepts plain positive decimals only; exponent and signed
// forms parse as decimals but the exchange rejects them.
func ValidateQuantity(qty string) error {
	qty = strings.TrimSpace(qty)
	if strings.ContainsAny(qty, "eE+") {
		return Validation("param quantity must be a decimal")
	}
	v, err := decimal.NewFromString(qty)
	if err != nil {
		return Validation("param quantity must be a decimal")
	}
	if v.Cmp(decimal.Zero) <= 0 {
		return Validation("param quantity must be > 0")
	}
	return nil
}

// Validate runs before an order reaches any adapter. An empty ClientID is
// allowed; the adapter generates one.
func (o MarketOrder) Validate() error {
	if _, err := ParseSide(string(o.Side)); err != nil {
		return err
	}
	if err := ValidateSymbol(o.Symbol); err != nil {
		return err
	}
	return ValidateQuantity(o.Quantity)
}
