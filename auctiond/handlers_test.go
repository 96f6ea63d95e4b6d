package main

import (
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/core"
)

// roundTrip dispatches body and re-decodes the response as a client would.
func roundTrip[Resp any](t *testing.T, s *AuctionServer, body string) Resp {
	t.Helper()

	_, response := s.dispatch([]byte(body))
	data, err := json.Marshal(response)
	assert.Nil(t, err)

	var resp Resp
	assert.Nil(t, json.Unmarshal(data, &resp))
	return resp
}

func createListingBody(id string, extra string) string {
	end := testNow.Add(time.Hour).Format(time.RFC3339)
	return fmt.Sprintf(`{"type":"create_listing","listing_id":%q,"starting_bid":"50","auction_end_time":%q%s}`, id, end, extra)
}

func bidBody(listingID, bidder, value string) string {
	return fmt.Sprintf(`{"type":"place_bid","listing_id":%q,"bidder_id":%q,"amount":%s}`, listingID, bidder, value)
}

func TestDispatch_Ping(t *testing.T) {
	s, _ := newTestServer(t)

	resp := roundTrip[auctionapi.PongResponse](t, s, `{"type":"ping"}`)
	check.Equal(t, auctionapi.TypePong, resp.Type)
}

func TestDispatch_BadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"type":`},
		{"unknown type", `{"type":"teleport"}`},
		{"bid without bidder", bidBody("lot-1", "", "55")},
		{"unknown sort key", `{"type":"rank_listings","sort_key":"alphabetical"}`},
		{"filter without window", `{"type":"filter_listings","filter":"ending-soon-window"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := roundTrip[auctionapi.ErrorResponse](t, s, tt.body)
			check.Equal(t, auctionapi.TypeError, resp.Type)
			check.Equal(t, auctionapi.CodeBadRequest, resp.Code)
			check.NotEqual(t, "", resp.Message)
		})
	}
}

func TestDispatch_BiddingScenario(t *testing.T) {
	s, _ := newTestServer(t)

	created := roundTrip[auctionapi.ListingResponse](t, s, createListingBody("lot-1", ""))
	check.Equal(t, auctionapi.TypeListingResponse, created.Type)
	check.Equal(t, "51.00", core.FormatMoney(created.Listing.MinimumNextBid))

	tooLow := roundTrip[auctionapi.ErrorResponse](t, s, bidBody("lot-1", "a", "50"))
	check.Equal(t, auctionapi.CodeBidTooLow, tooLow.Code)
	check.Equal(t, "minimum bid is $51.00", tooLow.Message)

	accepted := roundTrip[auctionapi.BidResponse](t, s, bidBody("lot-1", "b", "55"))
	check.Equal(t, auctionapi.TypeBidResponse, accepted.Type)
	check.Equal(t, "55.00", core.FormatMoney(accepted.Bid.Amount))
	check.Equal(t, "56.00", core.FormatMoney(accepted.NextMinimumBid))
	check.Equal(t, 1, accepted.Listing.BidCount)

	// Judged against 55, not the starting bid
	raced := roundTrip[auctionapi.ErrorResponse](t, s, bidBody("lot-1", "c", "55.5"))
	check.Equal(t, auctionapi.CodeBidTooLow, raced.Code)
	check.Equal(t, "minimum bid is $56.00", raced.Message)
	assert.NotNil(t, raced.MinimumBid)
	check.Equal(t, "56.00", core.FormatMoney(*raced.MinimumBid))

	subCent := roundTrip[auctionapi.ErrorResponse](t, s, bidBody("lot-1", "c", "60.001"))
	check.Equal(t, auctionapi.CodeInvalidAmount, subCent.Code)
}

func TestDispatch_UnparseableAmounts(t *testing.T) {
	s, _ := newTestServer(t)
	roundTrip[auctionapi.ListingResponse](t, s, createListingBody("lot-1", ""))

	for _, value := range []string{`"lots"`, `"NaN"`, `"Infinity"`, `null`, `"-1"`} {
		t.Run(value, func(t *testing.T) {
			resp := roundTrip[auctionapi.ErrorResponse](t, s, bidBody("lot-1", "a", value))
			check.Equal(t, auctionapi.TypeError, resp.Type)
			check.Equal(t, auctionapi.CodeInvalidAmount, resp.Code)
			check.Equal(t, "enter a valid amount", resp.Message)
		})
	}

	listing := roundTrip[auctionapi.ListingResponse](t, s, `{"type":"get_listing","listing_id":"lot-1"}`)
	check.Equal(t, 0, listing.Listing.BidCount)
}

func TestDispatch_CreateListingErrors(t *testing.T) {
	s, _ := newTestServer(t)

	roundTrip[auctionapi.ListingResponse](t, s, createListingBody("lot-1", ""))

	dup := roundTrip[auctionapi.ErrorResponse](t, s, createListingBody("lot-1", ""))
	check.Equal(t, auctionapi.CodeDuplicateListing, dup.Code)

	past := fmt.Sprintf(`{"type":"create_listing","starting_bid":"10","auction_end_time":%q}`, testNow.Add(-time.Hour).Format(time.RFC3339))
	invalid := roundTrip[auctionapi.ErrorResponse](t, s, past)
	check.Equal(t, auctionapi.CodeInvalidListing, invalid.Code)
}

func TestDispatch_BuyItNowAndWatch(t *testing.T) {
	s, _ := newTestServer(t)
	roundTrip[auctionapi.ListingResponse](t, s, createListingBody("lot-1", `,"buy_it_now_price":"120"`))
	roundTrip[auctionapi.ListingResponse](t, s, createListingBody("lot-2", ""))

	watched := roundTrip[auctionapi.ListingResponse](t, s, `{"type":"watch","listing_id":"lot-1","bidder_id":"dana","watching":true}`)
	check.Equal(t, 1, watched.Listing.WatcherCount)
	check.True(t, watched.Listing.IsWatching)

	viewed := roundTrip[auctionapi.ListingResponse](t, s, `{"type":"get_listing","listing_id":"lot-1","viewer_id":"dana"}`)
	check.True(t, viewed.Listing.IsWatching)

	noBuyNow := roundTrip[auctionapi.ErrorResponse](t, s, `{"type":"buy_it_now","listing_id":"lot-2","buyer_id":"dana"}`)
	check.Equal(t, auctionapi.CodeNoBuyItNowConfigured, noBuyNow.Code)

	bought := roundTrip[auctionapi.ListingResponse](t, s, `{"type":"buy_it_now","listing_id":"lot-1","buyer_id":"dana"}`)
	check.Equal(t, core.StatusEndedSold, bought.Listing.Status)
	assert.NotNil(t, bought.Listing.Purchase)
	check.Equal(t, "120.00", core.FormatMoney(bought.Listing.Purchase.Price))
	check.False(t, bought.Listing.TimeRemaining.IsOpen)

	closed := roundTrip[auctionapi.ErrorResponse](t, s, bidBody("lot-1", "erin", "500"))
	check.Equal(t, auctionapi.CodeAuctionClosed, closed.Code)
	check.Equal(t, "this auction has ended", closed.Message)

	unknown := roundTrip[auctionapi.ErrorResponse](t, s, `{"type":"get_listing","listing_id":"nope"}`)
	check.Equal(t, auctionapi.CodeUnknownListing, unknown.Code)
}

func TestDispatch_TimeRemainingRankAndFilter(t *testing.T) {
	s, _ := newTestServer(t)
	roundTrip[auctionapi.ListingResponse](t, s, createListingBody("lot-1", ""))
	soon := fmt.Sprintf(`{"type":"create_listing","listing_id":"lot-2","starting_bid":"200","auction_end_time":%q}`,
		testNow.Add(20*time.Minute).Format(time.RFC3339))
	roundTrip[auctionapi.ListingResponse](t, s, soon)

	remaining := roundTrip[auctionapi.TimeRemainingResponse](t, s, `{"type":"time_remaining","listing_id":"lot-2"}`)
	check.Equal(t, core.TimeRemaining{Minutes: 20, IsOpen: true}, remaining.TimeRemaining)

	ranked := roundTrip[auctionapi.ListingsResponse](t, s, `{"type":"rank_listings","sort_key":"price-high"}`)
	assert.Equal(t, 2, len(ranked.Listings))
	check.Equal(t, "lot-2", ranked.Listings[0].ID)
	check.Equal(t, "lot-1", ranked.Listings[1].ID)

	filtered := roundTrip[auctionapi.ListingsResponse](t, s, `{"type":"filter_listings","filter":"ending-soon-window","window_hours":0.5}`)
	assert.Equal(t, 1, len(filtered.Listings))
	check.Equal(t, "lot-2", filtered.Listings[0].ID)
}

func TestDispatch_KeyRequest(t *testing.T) {
	s, _ := newTestServer(t)

	resp := roundTrip[auctionapi.KeyResponse](t, s, `{"type":"key_request"}`)
	check.Equal(t, auctionapi.TypeKeyResponse, resp.Type)
	check.Equal(t, SignerLocal, resp.Signer)
	check.NotEqual(t, "", resp.PublicKey)
}

func TestHandleConnection(t *testing.T) {
	s, _ := newTestServer(t)
	server, client := net.Pipe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.handleConnection(server)
	}()

	assert.Nil(t, json.NewEncoder(client).Encode(map[string]string{"type": "ping"}))

	var resp auctionapi.PongResponse
	assert.Nil(t, json.NewDecoder(client).Decode(&resp))
	check.Equal(t, auctionapi.TypePong, resp.Type)

	<-done
	check.Nil(t, client.Close())
}
