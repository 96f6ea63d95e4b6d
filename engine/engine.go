// Package engine serializes all state changes of each listing behind a
// per-listing lock and reports accepted bids, purchases and auction endings to
// a Notifier.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// ErrDuplicateListing is returned when a listing id is already registered.
var ErrDuplicateListing = errors.New("duplicate listing")

// Clock returns the current wall-clock time. Injected for deterministic tests.
type Clock func() time.Time

// BidResult is returned for an accepted bid.
type BidResult struct {
	Listing        *core.Listing
	Bid            core.Bid
	NextMinimumBid decimal.Decimal
}

// Engine owns a collection of listings. Mutations of one listing are serialized;
// different listings proceed in parallel. Listings returned by the engine are
// snapshots and never alias engine state.
type Engine struct {
	mu       sync.RWMutex
	listings map[string]*entry
	order    []string

	clock    Clock
	notifier Notifier
}

type entry struct {
	mu        sync.Mutex
	listing   *core.Listing
	finalized bool // auction_ended was emitted
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithNotifier sets the receiver of engine events.
func WithNotifier(notifier Notifier) Option {
	return func(e *Engine) {
		e.notifier = notifier
	}
}

// New creates an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		listings: make(map[string]*entry),
		clock:    time.Now,
		notifier: nopNotifier{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateListing validates params and registers a new open listing.
func (e *Engine) CreateListing(params core.ListingParams) (*core.Listing, error) {
	listing, err := core.NewListing(params, e.clock())
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.listings[listing.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateListing, listing.ID)
	}
	e.listings[listing.ID] = &entry{listing: listing}
	e.order = append(e.order, listing.ID)

	return listing.Clone(), nil
}

// PlaceBid evaluates req against the listing's state at the moment the
// listing lock is acquired. Two racing requests are strictly ordered; the
// second is judged against the first one's result.
func (e *Engine) PlaceBid(req core.BidRequest) (*BidResult, error) {
	en, err := e.lookup(req.ListingID)
	if err != nil {
		return nil, err
	}

	en.mu.Lock()
	defer en.mu.Unlock()

	now := e.clock()
	previous := en.listing.CurrentBid()

	bid, next, err := en.listing.PlaceBid(req, now)
	if err != nil {
		e.finalizeLocked(en, now)
		return nil, err
	}

	snapshot := en.listing.Clone()
	e.notifier.Notify(newEvent(EventBidAccepted, snapshot, now, func(ev *Event) {
		ev.Bid = &bid
		ev.PreviousBid = &previous
		ev.NextMinimumBid = &next
	}))

	return &BidResult{Listing: snapshot, Bid: bid, NextMinimumBid: next}, nil
}

// BuyItNow ends the listing immediately as a sale to buyerID.
func (e *Engine) BuyItNow(listingID, buyerID string) (*core.Listing, error) {
	en, err := e.lookup(listingID)
	if err != nil {
		return nil, err
	}

	en.mu.Lock()
	defer en.mu.Unlock()

	now := e.clock()
	purchase, err := en.listing.BuyItNow(buyerID, now)
	if err != nil {
		e.finalizeLocked(en, now)
		return nil, err
	}

	snapshot := en.listing.Clone()
	e.notifier.Notify(newEvent(EventBuyItNow, snapshot, now, func(ev *Event) {
		ev.Purchase = &purchase
	}))
	e.finalizeLocked(en, now)

	return snapshot, nil
}

// Watch adds or removes bidderID from the listing's watchers.
func (e *Engine) Watch(listingID, bidderID string, watching bool) (*core.Listing, error) {
	en, err := e.lookup(listingID)
	if err != nil {
		return nil, err
	}

	en.mu.Lock()
	defer en.mu.Unlock()

	en.listing.Watch(bidderID, watching)
	e.finalizeLocked(en, e.clock())
	return en.listing.Clone(), nil
}

// Listing returns a snapshot of one listing.
func (e *Engine) Listing(listingID string) (*core.Listing, error) {
	en, err := e.lookup(listingID)
	if err != nil {
		return nil, err
	}

	en.mu.Lock()
	defer en.mu.Unlock()

	e.finalizeLocked(en, e.clock())
	return en.listing.Clone(), nil
}

// Listings returns snapshots of all listings in creation order.
func (e *Engine) Listings() []*core.Listing {
	e.mu.RLock()
	entries := make([]*entry, 0, len(e.order))
	for _, id := range e.order {
		entries = append(entries, e.listings[id])
	}
	e.mu.RUnlock()

	snapshots := make([]*core.Listing, 0, len(entries))
	for _, en := range entries {
		en.mu.Lock()
		snapshots = append(snapshots, en.listing.Clone())
		en.mu.Unlock()
	}
	return snapshots
}

// TimeRemaining computes the countdown for a listing against the current clock.
func (e *Engine) TimeRemaining(listingID string) (core.TimeRemaining, error) {
	listing, err := e.Listing(listingID)
	if err != nil {
		return core.TimeRemaining{}, err
	}
	return core.ComputeTimeRemaining(listing, e.clock()), nil
}

// Outcome resolves a listing against the current clock.
func (e *Engine) Outcome(listingID string) (core.Outcome, error) {
	en, err := e.lookup(listingID)
	if err != nil {
		return core.Outcome{}, err
	}

	en.mu.Lock()
	defer en.mu.Unlock()

	now := e.clock()
	e.finalizeLocked(en, now)
	return en.listing.Resolve(now), nil
}

// Rank returns all listings ordered by key.
func (e *Engine) Rank(key core.SortKey) []*core.Listing {
	return core.RankListings(e.Listings(), key)
}

// Filter returns all listings matching filter at the current clock.
func (e *Engine) Filter(filter core.Filter) []*core.Listing {
	return core.FilterListings(e.Listings(), filter, e.clock())
}

// Now exposes the engine clock to callers that render time-dependent views.
func (e *Engine) Now() time.Time {
	return e.clock()
}

func (e *Engine) lookup(listingID string) (*entry, error) {
	e.mu.RLock()
	en, ok := e.listings[listingID]
	e.mu.RUnlock()

	if !ok {
		return nil, &core.BidError{Kind: core.ErrUnknownListing, ListingID: listingID}
	}
	return en, nil
}

// finalizeLocked emits auction_ended once the listing has reached a terminal
// status. Callers hold en.mu. Returns true if the event was emitted now.
func (e *Engine) finalizeLocked(en *entry, now time.Time) bool {
	if en.finalized || !en.listing.Status(now).IsTerminal() {
		return false
	}
	en.finalized = true

	outcome := en.listing.Resolve(now)
	e.notifier.Notify(newEvent(EventAuctionEnded, en.listing.Clone(), now, func(ev *Event) {
		ev.Outcome = &outcome
	}))
	return true
}
