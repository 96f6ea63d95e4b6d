package core

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing is an auction for one item. Terms are fixed at creation; the only
// mutations are PlaceBid (append to BidHistory), BuyItNow and Watch.
// Status is always derived and never stored.
type Listing struct {
	ID             string           `json:"id"`
	Title          string           `json:"title,omitempty"`
	StartingBid    decimal.Decimal  `json:"starting_bid"`
	ReservePrice   *decimal.Decimal `json:"reserve_price,omitempty"`
	BuyItNowPrice  *decimal.Decimal `json:"buy_it_now_price,omitempty"`
	AuctionEndTime time.Time        `json:"auction_end_time"`
	CreatedAt      time.Time        `json:"created_at"`

	// BidHistory is most-recent-first
	BidHistory []Bid     `json:"bid_history"`
	Purchase   *Purchase `json:"purchase,omitempty"`

	watchers map[string]struct{}
}

// NewListing validates the auction terms and creates an open listing.
// An empty ID is replaced with a generated one.
func NewListing(params ListingParams, now time.Time) (*Listing, error) {
	if err := ValidateAmount(params.StartingBid); err != nil {
		return nil, fmt.Errorf("%w: starting bid: %w", ErrInvalidListing, err)
	}
	if params.ReservePrice != nil {
		if err := ValidateAmount(*params.ReservePrice); err != nil {
			return nil, fmt.Errorf("%w: reserve price: %w", ErrInvalidListing, err)
		}
	}
	if params.BuyItNowPrice != nil {
		if err := ValidateAmount(*params.BuyItNowPrice); err != nil {
			return nil, fmt.Errorf("%w: buy-it-now price: %w", ErrInvalidListing, err)
		}
	}
	if !params.AuctionEndTime.After(now) {
		return nil, fmt.Errorf("%w: auction end time %s is not after %s",
			ErrInvalidListing, params.AuctionEndTime.Format(time.RFC3339), now.Format(time.RFC3339))
	}

	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}

	return &Listing{
		ID:             id,
		Title:          params.Title,
		StartingBid:    params.StartingBid,
		ReservePrice:   copyAmount(params.ReservePrice),
		BuyItNowPrice:  copyAmount(params.BuyItNowPrice),
		AuctionEndTime: params.AuctionEndTime,
		CreatedAt:      now,
		BidHistory:     []Bid{},
		watchers:       make(map[string]struct{}),
	}, nil
}

// CurrentBid is the highest accepted bid, or the starting bid when there are none.
func (l *Listing) CurrentBid() decimal.Decimal {
	if len(l.BidHistory) == 0 {
		return l.StartingBid
	}
	return l.BidHistory[0].Amount
}

// MinimumNextBid is the lowest amount the next bid must reach.
func (l *Listing) MinimumNextBid() decimal.Decimal {
	return MinimumNextBid(l.CurrentBid())
}

// MeetsReserve reports whether the current bid reaches the reserve. A listing
// without a reserve always meets it.
func (l *Listing) MeetsReserve() bool {
	if l.ReservePrice == nil {
		return true
	}
	return l.CurrentBid().GreaterThanOrEqual(*l.ReservePrice)
}

// HasBuyItNow reports whether a buy-it-now price is configured.
func (l *Listing) HasBuyItNow() bool {
	return l.BuyItNowPrice != nil
}

// IsOpen reports whether the listing accepts bids at now.
func (l *Listing) IsOpen(now time.Time) bool {
	return l.Status(now) == StatusOpen
}

// Status derives the lifecycle state at now from the end time, the bid history,
// the reserve and any buy-it-now purchase.
func (l *Listing) Status(now time.Time) Status {
	if l.Purchase != nil {
		return StatusEndedSold
	}
	if now.Before(l.AuctionEndTime) {
		return StatusOpen
	}
	if len(l.BidHistory) > 0 && l.MeetsReserve() {
		return StatusEndedSold
	}
	return StatusEndedUnsold
}

// Watch adds or removes bidderID from the watchers. It is idempotent and has
// no effect on bidding.
func (l *Listing) Watch(bidderID string, watching bool) {
	if l.watchers == nil {
		l.watchers = make(map[string]struct{})
	}
	if watching {
		l.watchers[bidderID] = struct{}{}
		return
	}
	delete(l.watchers, bidderID)
}

// IsWatchedBy reports whether bidderID watches the listing.
func (l *Listing) IsWatchedBy(bidderID string) bool {
	_, ok := l.watchers[bidderID]
	return ok
}

// Watchers returns the watcher ids in sorted order.
func (l *Listing) Watchers() []string {
	ids := make([]string, 0, len(l.watchers))
	for id := range l.watchers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (l *Listing) Clone() *Listing {
	clone := *l
	clone.ReservePrice = copyAmount(l.ReservePrice)
	clone.BuyItNowPrice = copyAmount(l.BuyItNowPrice)
	clone.BidHistory = slices.Clone(l.BidHistory)
	if clone.BidHistory == nil {
		clone.BidHistory = []Bid{}
	}
	if l.Purchase != nil {
		purchase := *l.Purchase
		clone.Purchase = &purchase
	}
	clone.watchers = make(map[string]struct{}, len(l.watchers))
	for id := range l.watchers {
		clone.watchers[id] = struct{}{}
	}
	return &clone
}

func copyAmount(amount *decimal.Decimal) *decimal.Decimal {
	if amount == nil {
		return nil
	}
	c := *amount
	return &c
}
