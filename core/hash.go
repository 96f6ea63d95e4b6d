package core

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ComputeBidHash computes the commitment for one accepted bid.
// Used by receipt generation and by receipt validation.
//
// Formula: SHA256(bid_id + "|" + amount_fixed_2 + "|" + nonce)
//
// The amount is rendered with exactly two decimals so "55" and "55.00" hash alike.
func ComputeBidHash(bidID string, amount decimal.Decimal, nonce string) string {
	data := fmt.Sprintf("%s|%s|%s", bidID, FormatMoney(amount), nonce)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeHistoryHash commits to the full ordered bid history of a listing.
//
// Formula: SHA256(listing_id + "|" + nonce + "|" + bid_id:bidder_id:amount:unix_nanos ...)
// with entries in history order (most recent first).
func ComputeHistoryHash(listingID string, history []Bid, nonce string) string {
	var b strings.Builder
	b.WriteString(listingID)
	b.WriteString("|")
	b.WriteString(nonce)
	for _, bid := range history {
		fmt.Fprintf(&b, "|%s:%s:%s:%d", bid.ID, bid.BidderID, FormatMoney(bid.Amount), bid.Timestamp.UnixNano())
	}
	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", hash)
}
