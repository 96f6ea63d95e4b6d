package auctionapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// Request types understood by auctiond. Every request is a single JSON object
// with a "type" field; the response carries the matching *_response type or "error".
const (
	TypePing           = "ping"
	TypeKeyRequest     = "key_request"
	TypeCreateListing  = "create_listing"
	TypePlaceBid       = "place_bid"
	TypeBuyItNow       = "buy_it_now"
	TypeWatch          = "watch"
	TypeGetListing     = "get_listing"
	TypeTimeRemaining  = "time_remaining"
	TypeRankListings   = "rank_listings"
	TypeFilterListings = "filter_listings"
)

// Response types
const (
	TypePong                  = "pong"
	TypeError                 = "error"
	TypeKeyResponse           = "key_response"
	TypeListingResponse       = "listing_response"
	TypeBidResponse           = "bid_response"
	TypeTimeRemainingResponse = "time_remaining_response"
	TypeListingsResponse      = "listings_response"
)

// CreateListingRequest opens a new listing. ListingID is optional; the server
// generates one when empty.
type CreateListingRequest struct {
	Type           string           `json:"type"`
	ListingID      string           `json:"listing_id,omitempty"`
	Title          string           `json:"title,omitempty"`
	StartingBid    decimal.Decimal  `json:"starting_bid"`
	ReservePrice   *decimal.Decimal `json:"reserve_price,omitempty"`
	BuyItNowPrice  *decimal.Decimal `json:"buy_it_now_price,omitempty"`
	AuctionEndTime time.Time        `json:"auction_end_time"`
}

// Params converts the request to creation terms.
func (r CreateListingRequest) Params() core.ListingParams {
	return core.ListingParams{
		ID:             r.ListingID,
		Title:          r.Title,
		StartingBid:    r.StartingBid,
		ReservePrice:   r.ReservePrice,
		BuyItNowPrice:  r.BuyItNowPrice,
		AuctionEndTime: r.AuctionEndTime,
	}
}

// PlaceBidRequest submits a bid. Amount accepts a JSON number or string and
// is left raw so that a malformed amount is reported as an invalid amount
// rather than a malformed request.
type PlaceBidRequest struct {
	Type        string          `json:"type"`
	ListingID   string          `json:"listing_id"`
	BidderID    string          `json:"bidder_id"`
	Amount      json.RawMessage `json:"amount"`
	RequestTime time.Time       `json:"request_time,omitempty"`
}

// BidRequest converts the wire request to the engine's bid request. An
// unparseable amount returns an error wrapping core.ErrInvalidAmount.
func (r PlaceBidRequest) BidRequest() (core.BidRequest, error) {
	amount, err := ParseWireAmount(r.Amount)
	if err != nil {
		return core.BidRequest{}, err
	}
	return core.BidRequest{
		ListingID:   r.ListingID,
		BidderID:    r.BidderID,
		Amount:      amount,
		RequestTime: r.RequestTime,
	}, nil
}

// ParseWireAmount reads a money amount from a JSON number or string. Number
// literals are parsed from their text, so no float rounding is involved.
func ParseWireAmount(raw json.RawMessage) (decimal.Decimal, error) {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Zero, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
		}
	}
	return core.ParseAmount(text)
}

type BuyItNowRequest struct {
	Type      string `json:"type"`
	ListingID string `json:"listing_id"`
	BuyerID   string `json:"buyer_id"`
}

type WatchRequest struct {
	Type      string `json:"type"`
	ListingID string `json:"listing_id"`
	BidderID  string `json:"bidder_id"`
	Watching  bool   `json:"watching"`
}

// GetListingRequest fetches one listing. ViewerID, when set, fills in
// ListingView.IsWatching.
type GetListingRequest struct {
	Type      string `json:"type"`
	ListingID string `json:"listing_id"`
	ViewerID  string `json:"viewer_id,omitempty"`
}

type TimeRemainingRequest struct {
	Type      string `json:"type"`
	ListingID string `json:"listing_id"`
}

type RankListingsRequest struct {
	Type    string `json:"type"`
	SortKey string `json:"sort_key"`
}

// FilterListingsRequest selects listings by predicate. WindowHours is only
// used by the ending-soon-window filter.
type FilterListingsRequest struct {
	Type        string  `json:"type"`
	Filter      string  `json:"filter"`
	WindowHours float64 `json:"window_hours,omitempty"`
}

// BidView is a bid as shown to clients.
type BidView struct {
	ID        string          `json:"id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// ListingView is the client-facing projection of a listing. The reserve
// amount is never disclosed; only whether it exists and whether it is met.
type ListingView struct {
	ID             string             `json:"id"`
	Title          string             `json:"title,omitempty"`
	Status         core.Status        `json:"status"`
	StartingBid    decimal.Decimal    `json:"starting_bid"`
	CurrentBid     decimal.Decimal    `json:"current_bid"`
	MinimumNextBid decimal.Decimal    `json:"minimum_next_bid"`
	HasReserve     bool               `json:"has_reserve"`
	ReserveMet     bool               `json:"reserve_met"`
	BuyItNowPrice  *decimal.Decimal   `json:"buy_it_now_price,omitempty"`
	AuctionEndTime time.Time          `json:"auction_end_time"`
	TimeRemaining  core.TimeRemaining `json:"time_remaining"`
	BidCount       int                `json:"bid_count"`
	BidHistory     []BidView          `json:"bid_history"`
	WatcherCount   int                `json:"watcher_count"`
	IsWatching     bool               `json:"is_watching,omitempty"`
	Purchase       *core.Purchase     `json:"purchase,omitempty"`
}

// NewListingView projects a listing snapshot at now. viewerID may be empty.
func NewListingView(listing *core.Listing, now time.Time, viewerID string) ListingView {
	history := make([]BidView, len(listing.BidHistory))
	for i, bid := range listing.BidHistory {
		history[i] = NewBidView(bid)
	}

	view := ListingView{
		ID:             listing.ID,
		Title:          listing.Title,
		Status:         listing.Status(now),
		StartingBid:    listing.StartingBid,
		CurrentBid:     listing.CurrentBid(),
		MinimumNextBid: listing.MinimumNextBid(),
		HasReserve:     listing.ReservePrice != nil,
		ReserveMet:     len(listing.BidHistory) > 0 && listing.MeetsReserve(),
		BuyItNowPrice:  listing.BuyItNowPrice,
		AuctionEndTime: listing.AuctionEndTime,
		TimeRemaining:  core.ComputeTimeRemaining(listing, now),
		BidCount:       len(listing.BidHistory),
		BidHistory:     history,
		WatcherCount:   len(listing.Watchers()),
		Purchase:       listing.Purchase,
	}
	if viewerID != "" {
		view.IsWatching = listing.IsWatchedBy(viewerID)
	}
	return view
}

// NewListingViews projects a slice of snapshots, preserving order.
func NewListingViews(listings []*core.Listing, now time.Time) []ListingView {
	views := make([]ListingView, len(listings))
	for i, listing := range listings {
		views[i] = NewListingView(listing, now, "")
	}
	return views
}

func NewBidView(bid core.Bid) BidView {
	return BidView{
		ID:        bid.ID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		Timestamp: bid.Timestamp,
	}
}

type ListingResponse struct {
	Type    string      `json:"type"`
	Listing ListingView `json:"listing"`
}

// BidResponse confirms an accepted bid.
type BidResponse struct {
	Type           string          `json:"type"`
	Bid            BidView         `json:"bid"`
	NextMinimumBid decimal.Decimal `json:"next_minimum_bid"`
	Listing        ListingView     `json:"listing"`
}

type TimeRemainingResponse struct {
	Type          string             `json:"type"`
	ListingID     string             `json:"listing_id"`
	TimeRemaining core.TimeRemaining `json:"time_remaining"`
}

type ListingsResponse struct {
	Type     string        `json:"type"`
	Listings []ListingView `json:"listings"`
}

// KeyResponse describes how settlement receipts are signed. PublicKey is the
// PEM-encoded receipt key for the local signer and empty for enclave
// attestation, whose signing certificate travels inside every receipt.
type KeyResponse struct {
	Type         string `json:"type"`
	Signer       string `json:"signer"`
	KeyAlgorithm string `json:"key_algorithm"`
	PublicKey    string `json:"public_key,omitempty"`
}

// ErrorResponse reports a rejected request. MinimumBid is set for bid_too_low.
type ErrorResponse struct {
	Type       string           `json:"type"`
	Code       ErrorCode        `json:"code"`
	Message    string           `json:"message"`
	MinimumBid *decimal.Decimal `json:"minimum_bid,omitempty"`
}

type PongResponse struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
