package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/auctionapi/parsing"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/engine"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// MockEnclaveHandle implements the Attest method for testing
type MockEnclaveHandle struct {
	AttestFunc func(options enclave.AttestationOptions) ([]byte, error)
}

func (m *MockEnclaveHandle) Attest(options enclave.AttestationOptions) ([]byte, error) {
	if m.AttestFunc != nil {
		return m.AttestFunc(options)
	}
	return nil, fmt.Errorf("mock not configured")
}

func mustDecodeHex(t *testing.T, hexStr string) []byte {
	t.Helper()
	data, err := hex.DecodeString(hexStr)
	if err != nil {
		t.Fatalf("invalid hex string: %s", hexStr)
	}
	return data
}

// CreateMockEnclave returns an attester producing Nitro-shaped documents with
// a dummy signature.
func CreateMockEnclave(t *testing.T) *MockEnclaveHandle {
	t.Helper()
	return &MockEnclaveHandle{
		AttestFunc: func(options enclave.AttestationOptions) ([]byte, error) {
			payload, err := cbor.Marshal(parsing.ReceiptDocument{
				ModuleID:  "test-enclave-12345",
				Digest:    "SHA384",
				Timestamp: uint64(testNow.UnixMilli()),
				PCRs: map[uint64][]byte{
					0: mustDecodeHex(t, "3b4cef27e672fdbcc808960a88ddfe7329dd2e367b6850c9a8d910315f0b47e4224d6db361b75e010c87691d86ca9c57"),
					1: mustDecodeHex(t, "4b4d5b3661b3efc12920900c80e126e4ce783c522de6c02a2a5bf7af3a2b9327b86776f188e4be1c1c404a129dbda493"),
					2: mustDecodeHex(t, "2bdd28c1d85bb3872da3617a29a6bfeb50c65750c995f92e7dac6b5f2c4c72e0f9976bdee62a0b25864d10dffb535e11"),
				},
				Certificate: []byte("test-certificate-data"),
				CABundle:    [][]byte{[]byte("test-ca-cert")},
				UserData:    options.UserData,
				Nonce:       options.Nonce,
			})
			if err != nil {
				return nil, err
			}

			protected, err := parsing.ProtectedHeader(-35)
			if err != nil {
				return nil, err
			}
			return parsing.EncodeSign1(protected, payload, []byte{0x04, 0x05, 0x06})
		},
	}
}

// parseSettlementReceipt parses receipt bytes and their settlement user data.
func parseSettlementReceipt(t *testing.T, receipt auctionapi.ReceiptCOSE) *auctionapi.SettlementReceipt {
	t.Helper()

	doc, userDataBytes, err := receipt.ParseReceiptDoc()
	if err != nil {
		t.Fatalf("Failed to parse receipt: %v", err)
	}

	var userData auctionapi.SettlementUserData
	if err := json.Unmarshal(userDataBytes, &userData); err != nil {
		t.Fatalf("Failed to unmarshal user data: %v", err)
	}

	return &auctionapi.SettlementReceipt{
		ReceiptDoc: doc,
		UserData:   &userData,
	}
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// endedListing builds a listing with bids from alice (55), bob (60) and
// alice (61), resolved after its end time.
func endedListing(t *testing.T) (*core.Listing, core.Outcome) {
	t.Helper()

	listing, err := core.NewListing(core.ListingParams{
		ID:             "lot-1",
		StartingBid:    amount("50"),
		AuctionEndTime: testNow.Add(time.Hour),
	}, testNow)
	assert.Nil(t, err)

	for i, bid := range []struct{ bidder, value string }{{"alice", "55"}, {"bob", "60"}, {"alice", "61"}} {
		_, _, err := listing.PlaceBid(core.BidRequest{ListingID: "lot-1", BidderID: bid.bidder, Amount: amount(bid.value)},
			testNow.Add(time.Duration(i+1)*time.Minute))
		assert.Nil(t, err)
	}

	return listing, listing.Resolve(testNow.Add(2 * time.Hour))
}

func newTestServer(t *testing.T) (*AuctionServer, *engine.Engine) {
	t.Helper()

	km, err := NewKeyManager()
	assert.Nil(t, err)

	eng := engine.New(engine.WithClock(func() time.Time { return testNow }))
	return &AuctionServer{
		maxWorkers: 2,
		engine:     eng,
		keyManager: km,
		signer:     SignerLocal,
	}, eng
}
