package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain error kinds. Every rejection returned by this package wraps exactly one of these.
var (
	ErrAuctionClosed        = errors.New("auction closed")
	ErrBidTooLow            = errors.New("bid too low")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrNoBuyItNowConfigured = errors.New("no buy-it-now price configured")
	ErrUnknownListing       = errors.New("unknown listing")
	ErrInvalidListing       = errors.New("invalid listing")
)

// BidError carries the context of a rejected bid or purchase.
type BidError struct {
	Kind      error
	ListingID string
	Amount    decimal.Decimal

	// MinimumBid is the lowest amount that would have been accepted (set for ErrBidTooLow)
	MinimumBid decimal.Decimal
}

func (e *BidError) Error() string {
	switch e.Kind {
	case ErrBidTooLow:
		return fmt.Sprintf("listing %s: %v: %s is below minimum %s",
			e.ListingID, e.Kind, e.Amount.StringFixed(moneyScale), e.MinimumBid.StringFixed(moneyScale))
	case ErrInvalidAmount:
		return fmt.Sprintf("listing %s: %v: %s", e.ListingID, e.Kind, e.Amount.String())
	default:
		return fmt.Sprintf("listing %s: %v", e.ListingID, e.Kind)
	}
}

func (e *BidError) Unwrap() error {
	return e.Kind
}
