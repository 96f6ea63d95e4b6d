package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const moneyScale int32 = 2 // amounts are whole cents

// incrementTier applies while the current bid is below upTo.
type incrementTier struct {
	upTo decimal.Decimal
	step decimal.Decimal
}

var (
	incrementTiers = []incrementTier{
		{upTo: decimal.NewFromInt(100), step: decimal.NewFromInt(1)},
		{upTo: decimal.NewFromInt(500), step: decimal.NewFromInt(5)},
		{upTo: decimal.NewFromInt(1000), step: decimal.NewFromInt(10)},
	}
	topIncrement = decimal.NewFromInt(25)
)

// BidIncrement returns the minimum raise required over currentBid.
// The schedule is a monotone step function of the current bid.
func BidIncrement(currentBid decimal.Decimal) decimal.Decimal {
	for _, tier := range incrementTiers {
		if currentBid.LessThan(tier.upTo) {
			return tier.step
		}
	}
	return topIncrement
}

// MinimumNextBid returns currentBid + BidIncrement(currentBid).
func MinimumNextBid(currentBid decimal.Decimal) decimal.Decimal {
	return currentBid.Add(BidIncrement(currentBid))
}

// ClearsIncrement returns true if amount meets or exceeds the minimum next bid over currentBid.
func ClearsIncrement(amount, currentBid decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(MinimumNextBid(currentBid))
}

// ValidateAmount checks that an amount is positive and expressed in whole cents.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidAmount, amount.String())
	}
	if !amount.Equal(amount.Round(moneyScale)) {
		return fmt.Errorf("%w: %s has sub-cent precision", ErrInvalidAmount, amount.String())
	}
	return nil
}

// ParseAmount converts untrusted text into a validated money amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// FormatMoney renders an amount with cent precision.
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(moneyScale)
}
