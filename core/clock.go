package core

import "time"

// ComputeTimeRemaining breaks auctionEndTime - now into days, hours, minutes and
// whole seconds. It holds no state; callers recompute it on every tick.
// A listing ended by buy-it-now reports zero remaining time.
func ComputeTimeRemaining(listing *Listing, now time.Time) TimeRemaining {
	if listing.Purchase != nil {
		return TimeRemaining{}
	}
	return RemainingUntil(listing.AuctionEndTime, now)
}

// RemainingUntil breaks end - now into display units. Sub-second remainders
// still count as open.
func RemainingUntil(end, now time.Time) TimeRemaining {
	remaining := end.Sub(now)
	if remaining <= 0 {
		return TimeRemaining{}
	}

	total := int64(remaining / time.Second)
	return TimeRemaining{
		Days:    total / 86400,
		Hours:   (total % 86400) / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
		IsOpen:  true,
	}
}
