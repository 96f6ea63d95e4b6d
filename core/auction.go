package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlaceBid validates req against the listing at now and, on acceptance, prepends
// a new Bid to the history. The accepted bid carries a server-assigned id and
// timestamp.
//
// Validation order:
//  1. Listing must be open at now (a closed listing rejects any amount)
//  2. Amount must be positive with cent precision
//  3. Amount must reach CurrentBid + BidIncrement(CurrentBid)
//
// Returns the accepted bid and the minimum for the next round. Rejections leave
// the listing untouched and return a *BidError.
func (l *Listing) PlaceBid(req BidRequest, now time.Time) (Bid, decimal.Decimal, error) {
	if req.ListingID != "" && req.ListingID != l.ID {
		return Bid{}, decimal.Zero, &BidError{Kind: ErrUnknownListing, ListingID: req.ListingID, Amount: req.Amount}
	}

	if !l.IsOpen(now) {
		return Bid{}, decimal.Zero, &BidError{Kind: ErrAuctionClosed, ListingID: l.ID, Amount: req.Amount}
	}

	if err := ValidateAmount(req.Amount); err != nil {
		return Bid{}, decimal.Zero, &BidError{Kind: ErrInvalidAmount, ListingID: l.ID, Amount: req.Amount}
	}

	if !ClearsIncrement(req.Amount, l.CurrentBid()) {
		return Bid{}, decimal.Zero, &BidError{
			Kind:       ErrBidTooLow,
			ListingID:  l.ID,
			Amount:     req.Amount,
			MinimumBid: l.MinimumNextBid(),
		}
	}

	bid := Bid{
		ID:        uuid.NewString(),
		ListingID: l.ID,
		BidderID:  req.BidderID,
		Amount:    req.Amount,
		Timestamp: now,
	}
	l.BidHistory = append([]Bid{bid}, l.BidHistory...)

	return bid, l.MinimumNextBid(), nil
}

// BuyItNow ends an open listing immediately as a sale at the buy-it-now price.
// Outstanding bids stay in the history but do not win.
func (l *Listing) BuyItNow(buyerID string, now time.Time) (Purchase, error) {
	if !l.IsOpen(now) {
		return Purchase{}, &BidError{Kind: ErrAuctionClosed, ListingID: l.ID}
	}
	if l.BuyItNowPrice == nil {
		return Purchase{}, &BidError{Kind: ErrNoBuyItNowConfigured, ListingID: l.ID}
	}

	purchase := Purchase{
		BuyerID:   buyerID,
		Price:     *l.BuyItNowPrice,
		Timestamp: now,
	}
	l.Purchase = &purchase
	return purchase, nil
}

// Resolve reports the listing's outcome at now. For an open listing the
// outcome is provisional (status open, no winner). A final outcome is stamped
// with the purchase time or the auction end time, whichever ended it.
//
// Resolution flow:
//  1. Derive status from purchase, end time, history and reserve
//  2. Buy-it-now sales report the purchase price
//  3. Bidding sales report the head of the history as winner
//  4. Runner-up is the best bid from any other bidder
func (l *Listing) Resolve(now time.Time) Outcome {
	// Step 1: Derive status
	outcome := Outcome{
		ListingID:  l.ID,
		Status:     l.Status(now),
		ReserveMet: len(l.BidHistory) > 0 && l.MeetsReserve(),
		BidCount:   len(l.BidHistory),
		ResolvedAt: now,
	}

	switch {
	case l.Purchase != nil:
		outcome.ResolvedAt = l.Purchase.Timestamp
	case outcome.Status.IsTerminal():
		outcome.ResolvedAt = l.AuctionEndTime
	}

	if outcome.Status != StatusEndedSold {
		return outcome
	}

	// Step 2: Buy-it-now short-circuits the bidding result
	if l.Purchase != nil {
		purchase := *l.Purchase
		price := purchase.Price
		outcome.Purchase = &purchase
		outcome.SalePrice = &price
		return outcome
	}

	// Step 3: Highest bid wins
	winner := l.BidHistory[0]
	price := winner.Amount
	outcome.Winner = &winner
	outcome.SalePrice = &price

	// Step 4: Runner-up from a different bidder
	for i := range l.BidHistory[1:] {
		candidate := l.BidHistory[i+1]
		if candidate.BidderID != winner.BidderID {
			outcome.RunnerUp = &candidate
			break
		}
	}

	return outcome
}
