package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// EventType names an engine event.
type EventType string

const (
	EventBidAccepted  EventType = "bid_accepted"
	EventBuyItNow     EventType = "buy_it_now"
	EventAuctionEnded EventType = "auction_ended"
)

// Event is emitted after a state change. Events of one listing are delivered
// in the order the changes were applied; auction_ended is emitted exactly once
// per listing.
type Event struct {
	ID        string        `json:"event_id"`
	Type      EventType     `json:"type"`
	ListingID string        `json:"listing_id"`
	Timestamp time.Time     `json:"timestamp"`
	Listing   *core.Listing `json:"-"`

	// bid_accepted
	Bid            *core.Bid       `json:"bid,omitempty"`
	PreviousBid    *decimal.Decimal `json:"previous_bid,omitempty"`
	NextMinimumBid *decimal.Decimal `json:"next_minimum_bid,omitempty"`

	// buy_it_now
	Purchase *core.Purchase `json:"purchase,omitempty"`

	// auction_ended
	Outcome *core.Outcome `json:"outcome,omitempty"`
}

// Notifier receives engine events. Notify is called while the listing lock is
// held and must not block; implementations hand events off to their own queue.
type Notifier interface {
	Notify(event Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(event Event)

func (f NotifierFunc) Notify(event Event) {
	f(event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

func newEvent(eventType EventType, snapshot *core.Listing, now time.Time, fill func(*Event)) Event {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ListingID: snapshot.ID,
		Timestamp: now,
		Listing:   snapshot,
	}
	if fill != nil {
		fill(&ev)
	}
	return ev
}
