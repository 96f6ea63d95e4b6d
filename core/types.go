package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the derived lifecycle state of a listing.
type Status string

const (
	StatusOpen        Status = "open"
	StatusEndedSold   Status = "ended_sold"
	StatusEndedUnsold Status = "ended_unsold"
)

// IsTerminal reports whether no further bids or purchases are accepted.
func (s Status) IsTerminal() bool {
	return s == StatusEndedSold || s == StatusEndedUnsold
}

// Bid is one accepted bid. Bids are immutable once appended to a listing's history.
type Bid struct {
	ID        string          `json:"id"`
	ListingID string          `json:"listing_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// BidRequest is a candidate bid submitted by a client.
// RequestTime is informational only; acceptance time is assigned by the engine.
type BidRequest struct {
	ListingID   string          `json:"listing_id"`
	BidderID    string          `json:"bidder_id"`
	Amount      decimal.Decimal `json:"amount"`
	RequestTime time.Time       `json:"request_time"`
}

// Purchase records a terminal buy-it-now sale. It is not a Bid and never
// goes through increment validation.
type Purchase struct {
	BuyerID   string          `json:"buyer_id"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// ListingParams are the auction terms fixed at listing creation.
type ListingParams struct {
	ID             string
	Title          string
	StartingBid    decimal.Decimal
	ReservePrice   *decimal.Decimal
	BuyItNowPrice  *decimal.Decimal
	AuctionEndTime time.Time
}

// TimeRemaining is the display breakdown of the time left on a listing.
type TimeRemaining struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
	IsOpen  bool  `json:"is_open"`
}

// Outcome describes how a listing resolved (or would resolve) at a point in time.
type Outcome struct {
	ListingID  string           `json:"listing_id"`
	Status     Status           `json:"status"`
	ReserveMet bool             `json:"reserve_met"`
	BidCount   int              `json:"bid_count"`
	ResolvedAt time.Time        `json:"resolved_at"`
	SalePrice  *decimal.Decimal `json:"sale_price,omitempty"`

	// Winner is the highest bid when the auction sold through bidding (nil otherwise)
	Winner *Bid `json:"winner,omitempty"`

	// RunnerUp is the highest bid placed by a bidder other than the winner (nil if none)
	RunnerUp *Bid `json:"runner_up,omitempty"`

	// Purchase is set when the listing ended through buy-it-now
	Purchase *Purchase `json:"purchase,omitempty"`
}
