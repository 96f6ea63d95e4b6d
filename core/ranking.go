package core

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// SortKey selects the ordering produced by RankListings.
type SortKey string

const (
	SortEndingSoon SortKey = "ending-soon"
	SortPriceLow   SortKey = "price-low"
	SortPriceHigh  SortKey = "price-high"
	SortMostBids   SortKey = "most-bids"
)

// ParseSortKey validates a sort key received from a client.
func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(s); key {
	case SortEndingSoon, SortPriceLow, SortPriceHigh, SortMostBids:
		return key, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// FilterKind selects the predicate applied by FilterListings.
type FilterKind string

const (
	FilterEndingSoonWindow FilterKind = "ending-soon-window"
	FilterHasBuyItNow      FilterKind = "has-buy-it-now"
	FilterNoReserve        FilterKind = "no-reserve"
)

// Filter is a listing predicate. Window is only read by FilterEndingSoonWindow.
type Filter struct {
	Kind   FilterKind
	Window time.Duration
}

// maxWindowHours is the longest window a time.Duration can hold.
var maxWindowHours = float64(math.MaxInt64) / float64(time.Hour)

// EndingSoonWithin matches open listings whose remaining time is at most hours.
// Windows too long for a time.Duration match every open listing.
func EndingSoonWithin(hours float64) Filter {
	if hours >= maxWindowHours {
		return Filter{Kind: FilterEndingSoonWindow, Window: math.MaxInt64}
	}
	return Filter{Kind: FilterEndingSoonWindow, Window: time.Duration(hours * float64(time.Hour))}
}

// ParseFilter validates a filter received from a client.
func ParseFilter(kind string, windowHours float64) (Filter, error) {
	switch k := FilterKind(kind); k {
	case FilterEndingSoonWindow:
		if math.IsNaN(windowHours) || windowHours <= 0 {
			return Filter{}, fmt.Errorf("filter %s needs a positive window, got %v hours", k, windowHours)
		}
		return EndingSoonWithin(windowHours), nil
	case FilterHasBuyItNow, FilterNoReserve:
		return Filter{Kind: k}, nil
	default:
		return Filter{}, fmt.Errorf("unknown filter %q", kind)
	}
}

// Matches reports whether listing satisfies the filter at now.
func (f Filter) Matches(listing *Listing, now time.Time) bool {
	switch f.Kind {
	case FilterEndingSoonWindow:
		remaining := ComputeTimeRemaining(listing, now)
		return remaining.IsOpen && listing.AuctionEndTime.Sub(now) <= f.Window
	case FilterHasBuyItNow:
		return listing.HasBuyItNow()
	case FilterNoReserve:
		return listing.ReservePrice == nil
	default:
		return false
	}
}

// RankListings returns a new slice ordered by key. The input slice is not
// modified. Ties keep their input order.
func RankListings(listings []*Listing, key SortKey) []*Listing {
	ranked := make([]*Listing, len(listings))
	copy(ranked, listings)

	var less func(a, b *Listing) bool
	switch key {
	case SortEndingSoon:
		less = func(a, b *Listing) bool { return a.AuctionEndTime.Before(b.AuctionEndTime) }
	case SortPriceLow:
		less = func(a, b *Listing) bool { return a.CurrentBid().LessThan(b.CurrentBid()) }
	case SortPriceHigh:
		less = func(a, b *Listing) bool { return a.CurrentBid().GreaterThan(b.CurrentBid()) }
	case SortMostBids:
		less = func(a, b *Listing) bool { return len(a.BidHistory) > len(b.BidHistory) }
	default:
		return ranked
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	return ranked
}

// FilterListings returns the listings matching filter at now, in input order.
func FilterListings(listings []*Listing, filter Filter, now time.Time) []*Listing {
	matched := make([]*Listing, 0, len(listings))
	for _, listing := range listings {
		if filter.Matches(listing, now) {
			matched = append(matched, listing)
		}
	}
	return matched
}
