package auctionapi

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/engine"
)

// ErrorCode is the stable machine-readable reason carried by an ErrorResponse.
type ErrorCode string

const (
	CodeAuctionClosed        ErrorCode = "auction_closed"
	CodeBidTooLow            ErrorCode = "bid_too_low"
	CodeInvalidAmount        ErrorCode = "invalid_amount"
	CodeNoBuyItNowConfigured ErrorCode = "no_buy_it_now_configured"
	CodeUnknownListing       ErrorCode = "unknown_listing"
	CodeInvalidListing       ErrorCode = "invalid_listing"
	CodeDuplicateListing     ErrorCode = "duplicate_listing"
	CodeBadRequest           ErrorCode = "bad_request"
	CodeInternal             ErrorCode = "internal_error"
)

// ErrorCodeFor classifies err. Unrecognized errors map to CodeInternal.
func ErrorCodeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, core.ErrAuctionClosed):
		return CodeAuctionClosed
	case errors.Is(err, core.ErrBidTooLow):
		return CodeBidTooLow
	case errors.Is(err, core.ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, core.ErrNoBuyItNowConfigured):
		return CodeNoBuyItNowConfigured
	case errors.Is(err, core.ErrUnknownListing):
		return CodeUnknownListing
	case errors.Is(err, core.ErrInvalidListing):
		return CodeInvalidListing
	case errors.Is(err, engine.ErrDuplicateListing):
		return CodeDuplicateListing
	default:
		return CodeInternal
	}
}

// ErrorMessage renders err for a shopper. Domain errors get fixed wording;
// anything else is reported generically so internals do not leak.
func ErrorMessage(err error) string {
	var bidErr *core.BidError
	switch ErrorCodeFor(err) {
	case CodeAuctionClosed:
		return "this auction has ended"
	case CodeBidTooLow:
		if errors.As(err, &bidErr) {
			return fmt.Sprintf("minimum bid is %s", FormatDollars(bidErr.MinimumBid))
		}
		return "bid is below the minimum"
	case CodeInvalidAmount:
		return "enter a valid amount"
	case CodeNoBuyItNowConfigured:
		return "buy it now is not available for this item"
	case CodeUnknownListing:
		return "listing not found"
	case CodeInvalidListing:
		return err.Error()
	case CodeDuplicateListing:
		return "a listing with this id already exists"
	default:
		return "something went wrong, please try again"
	}
}

// NewErrorResponse builds the error envelope for err.
func NewErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{
		Type:    TypeError,
		Code:    ErrorCodeFor(err),
		Message: ErrorMessage(err),
	}

	var bidErr *core.BidError
	if resp.Code == CodeBidTooLow && errors.As(err, &bidErr) {
		minimum := bidErr.MinimumBid
		resp.MinimumBid = &minimum
	}
	return resp
}

// BadRequest builds the error envelope for a malformed request.
func BadRequest(format string, args ...any) ErrorResponse {
	return ErrorResponse{
		Type:    TypeError,
		Code:    CodeBadRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

// FormatDollars renders an amount as "$1,234.50".
func FormatDollars(amount decimal.Decimal) string {
	fixed := core.FormatMoney(amount.Abs())
	whole, cents := fixed[:len(fixed)-3], fixed[len(fixed)-3:]

	var grouped []byte
	for i := 0; i < len(whole); i++ {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, whole[i])
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return sign + "$" + string(grouped) + cents
}
