// Package currency converts bonus amounts between USD and the local currency.
package currency

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Type is the display currency of an amount
type Type string

const (
	USD Type = "USD"
	LC  Type = "LC"
)

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// ParseType accepts "usd" or "lc" in any case. Anything else is the local currency.
func ParseType(raw string) Type {
	if strings.EqualFold(strings.TrimSpace(raw), string(USD)) {
		return USD
	}
	return LC
}

// Converter applies a fixed USD to local currency rate.
type Converter struct {
	rate decimal.Decimal
}

// NewConverter parses rate as a decimal string. The rate must be positive.
func NewConverter(rate string) (*Converter, error) {
	r, err := decimal.NewFromString(strings.TrimSpace(rate))
	if err != nil {
		return nil, fmt.Errorf("failed to parse exchange rate %q: %w", rate, err)
	}
	if !r.IsPositive() {
		return nil, fmt.Errorf("exchange rate must be positive, got %s", r.String())
	}
	return &Converter{rate: r}, nil
}

// Rate returns the configured exchange rate
func (c *Converter) Rate() decimal.Decimal {
	return c.rate
}

// Convert returns amount unchanged for USD and floor(amount * rate) for LC.
// Results outside the int64 range saturate at its bounds.
func (c *Converter) Convert(amount int64, to Type) int64 {
	if to == USD {
		return amount
	}
	converted := decimal.NewFromInt(amount).Mul(c.rate).Floor()
	switch {
	case converted.GreaterThan(maxAmount):
		return math.MaxInt64
	case converted.LessThan(minAmount):
		return math.MinInt64
	}
	return converted.IntPart()
}
