package main

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/core"
)

// dispatch decodes one request and returns its type and the response to send.
func (s *AuctionServer) dispatch(payload []byte) (string, any) {
	var baseReq struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &baseReq); err != nil {
		log.Printf("ERROR: Failed to decode base request: %v", err)
		return "", auctionapi.BadRequest("malformed request: %v", err)
	}

	log.Printf("INFO: Received request type: %s", baseReq.Type)

	switch baseReq.Type {
	case auctionapi.TypePing:
		return baseReq.Type, auctionapi.PongResponse{
			Type:      auctionapi.TypePong,
			Message:   "auction server is healthy",
			Timestamp: time.Now().Unix(),
		}
	case auctionapi.TypeKeyRequest:
		return baseReq.Type, s.handleKeyRequest()
	case auctionapi.TypeCreateListing:
		return baseReq.Type, handle(payload, s.handleCreateListing)
	case auctionapi.TypePlaceBid:
		return baseReq.Type, handle(payload, s.handlePlaceBid)
	case auctionapi.TypeBuyItNow:
		return baseReq.Type, handle(payload, s.handleBuyItNow)
	case auctionapi.TypeWatch:
		return baseReq.Type, handle(payload, s.handleWatch)
	case auctionapi.TypeGetListing:
		return baseReq.Type, handle(payload, s.handleGetListing)
	case auctionapi.TypeTimeRemaining:
		return baseReq.Type, handle(payload, s.handleTimeRemaining)
	case auctionapi.TypeRankListings:
		return baseReq.Type, handle(payload, s.handleRankListings)
	case auctionapi.TypeFilterListings:
		return baseReq.Type, handle(payload, s.handleFilterListings)
	default:
		return baseReq.Type, auctionapi.BadRequest("unknown request type: %s", baseReq.Type)
	}
}

// handle decodes payload into Req and runs fn. Errors become error responses.
func handle[Req any](payload []byte, fn func(Req) (any, error)) any {
	var req Req
	if err := json.Unmarshal(payload, &req); err != nil {
		return auctionapi.BadRequest("failed to decode request: %v", err)
	}

	resp, err := fn(req)
	if err != nil {
		return errorResponse(err)
	}
	return resp
}

// errorResponse logs err at a level matching its cause and converts it.
func errorResponse(err error) any {
	if bad, ok := err.(badRequestError); ok {
		return auctionapi.BadRequest("%s", bad.msg)
	}

	resp := auctionapi.NewErrorResponse(err)
	if resp.Code == auctionapi.CodeInternal {
		log.Printf("ERROR: Request failed: %v", err)
	} else {
		log.Printf("INFO: Request rejected: %v", err)
	}
	return resp
}

type badRequestError struct {
	msg string
}

func (e badRequestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return badRequestError{msg: fmt.Sprintf(format, args...)}
}

func (s *AuctionServer) handleKeyRequest() any {
	keyResp, err := HandleKeyRequest(s.keyManager, s.signer)
	if err != nil {
		log.Printf("ERROR: Key request failed: %v", err)
		return auctionapi.NewErrorResponse(err)
	}
	return keyResp
}

func (s *AuctionServer) handleCreateListing(req auctionapi.CreateListingRequest) (any, error) {
	listing, err := s.engine.CreateListing(req.Params())
	if err != nil {
		return nil, err
	}

	log.Printf("INFO: Created listing %s ending %s", listing.ID, listing.AuctionEndTime.Format(time.RFC3339))
	return s.listingResponse(listing, ""), nil
}

func (s *AuctionServer) handlePlaceBid(req auctionapi.PlaceBidRequest) (any, error) {
	if req.ListingID == "" || req.BidderID == "" {
		return nil, badRequest("listing_id and bidder_id are required")
	}

	bidReq, err := req.BidRequest()
	if err != nil {
		return nil, err
	}

	result, err := s.engine.PlaceBid(bidReq)
	if err != nil {
		return nil, err
	}

	log.Printf("INFO: Accepted bid %s on listing %s: %s", result.Bid.ID, req.ListingID, core.FormatMoney(result.Bid.Amount))
	return auctionapi.BidResponse{
		Type:           auctionapi.TypeBidResponse,
		Bid:            auctionapi.NewBidView(result.Bid),
		NextMinimumBid: result.NextMinimumBid,
		Listing:        auctionapi.NewListingView(result.Listing, s.engine.Now(), req.BidderID),
	}, nil
}

func (s *AuctionServer) handleBuyItNow(req auctionapi.BuyItNowRequest) (any, error) {
	if req.ListingID == "" || req.BuyerID == "" {
		return nil, badRequest("listing_id and buyer_id are required")
	}

	listing, err := s.engine.BuyItNow(req.ListingID, req.BuyerID)
	if err != nil {
		return nil, err
	}

	log.Printf("INFO: Listing %s bought now by %s", listing.ID, req.BuyerID)
	return s.listingResponse(listing, req.BuyerID), nil
}

func (s *AuctionServer) handleWatch(req auctionapi.WatchRequest) (any, error) {
	if req.ListingID == "" || req.BidderID == "" {
		return nil, badRequest("listing_id and bidder_id are required")
	}

	listing, err := s.engine.Watch(req.ListingID, req.BidderID, req.Watching)
	if err != nil {
		return nil, err
	}
	return s.listingResponse(listing, req.BidderID), nil
}

func (s *AuctionServer) handleGetListing(req auctionapi.GetListingRequest) (any, error) {
	listing, err := s.engine.Listing(req.ListingID)
	if err != nil {
		return nil, err
	}
	return s.listingResponse(listing, req.ViewerID), nil
}

func (s *AuctionServer) handleTimeRemaining(req auctionapi.TimeRemainingRequest) (any, error) {
	remaining, err := s.engine.TimeRemaining(req.ListingID)
	if err != nil {
		return nil, err
	}
	return auctionapi.TimeRemainingResponse{
		Type:          auctionapi.TypeTimeRemainingResponse,
		ListingID:     req.ListingID,
		TimeRemaining: remaining,
	}, nil
}

func (s *AuctionServer) handleRankListings(req auctionapi.RankListingsRequest) (any, error) {
	key, err := core.ParseSortKey(req.SortKey)
	if err != nil {
		return nil, badRequest("%v", err)
	}
	return s.listingsResponse(s.engine.Rank(key)), nil
}

func (s *AuctionServer) handleFilterListings(req auctionapi.FilterListingsRequest) (any, error) {
	filter, err := core.ParseFilter(req.Filter, req.WindowHours)
	if err != nil {
		return nil, badRequest("%v", err)
	}
	return s.listingsResponse(s.engine.Filter(filter)), nil
}

func (s *AuctionServer) listingResponse(listing *core.Listing, viewerID string) auctionapi.ListingResponse {
	return auctionapi.ListingResponse{
		Type:    auctionapi.TypeListingResponse,
		Listing: auctionapi.NewListingView(listing, s.engine.Now(), viewerID),
	}
}

func (s *AuctionServer) listingsResponse(listings []*core.Listing) auctionapi.ListingsResponse {
	return auctionapi.ListingsResponse{
		Type:     auctionapi.TypeListingsResponse,
		Listings: auctionapi.NewListingViews(listings, s.engine.Now()),
	}
}
