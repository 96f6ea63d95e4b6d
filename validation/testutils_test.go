package validation

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/auctionapi/parsing"
	"github.com/cloudx-io/auctionhouse/core"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	testBidNonce     = "b1d-n0nce"
	testHistoryNonce = "h1st0ry-n0nce"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// settledListing returns a listing won by alice at 61 over bob at 60.
func settledListing(t *testing.T) (*core.Listing, core.Outcome) {
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

// bidBy returns the most recent bid placed by bidder.
func bidBy(t *testing.T, listing *core.Listing, bidder string) core.Bid {
	t.Helper()
	for _, bid := range listing.BidHistory {
		if bid.BidderID == bidder {
			return bid
		}
	}
	t.Fatalf("no bid from %s", bidder)
	return core.Bid{}
}

func settlementData(listing *core.Listing, outcome core.Outcome) []byte {
	hashes := make([]string, 0, len(listing.BidHistory))
	for _, bid := range listing.BidHistory {
		hashes = append(hashes, core.ComputeBidHash(bid.ID, bid.Amount, testBidNonce))
	}

	data, _ := json.Marshal(auctionapi.SettlementUserData{
		ListingID:    listing.ID,
		Status:       outcome.Status,
		ReserveMet:   outcome.ReserveMet,
		SalePrice:    outcome.SalePrice,
		Winner:       auctionapi.NewReceiptBid(outcome.Winner),
		RunnerUp:     auctionapi.NewReceiptBid(outcome.RunnerUp),
		BidHashes:    hashes,
		BidHashNonce: testBidNonce,
		HistoryHash:  core.ComputeHistoryHash(listing.ID, listing.BidHistory, testHistoryNonce),
		HistoryNonce: testHistoryNonce,
		ResolvedAt:   outcome.ResolvedAt,
		Timestamp:    testNow,
	})
	return data
}

func signReceipt(t *testing.T, key *ecdsa.PrivateKey, alg cose.Algorithm, doc parsing.ReceiptDocument) auctionapi.ReceiptCOSE {
	t.Helper()

	payload, err := cbor.Marshal(doc)
	assert.Nil(t, err)
	protected, err := parsing.ProtectedHeader(int64(alg))
	assert.Nil(t, err)
	toBeSigned, err := parsing.SigStructure(protected, payload)
	assert.Nil(t, err)

	signer, err := cose.NewSigner(alg, key)
	assert.Nil(t, err)
	signature, err := signer.Sign(rand.Reader, toBeSigned)
	assert.Nil(t, err)

	receipt, err := parsing.EncodeSign1(protected, payload, signature)
	assert.Nil(t, err)
	return receipt
}

// localSigner mirrors the daemon's fallback signer: a P-256 key whose public
// half is embedded in every receipt and handed out as PEM.
type localSigner struct {
	key *ecdsa.PrivateKey
}

func newLocalSigner(t *testing.T) *localSigner {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	assert.Nil(t, err)
	return &localSigner{key: key}
}

func (s *localSigner) PublicKeyPEM(t *testing.T) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&s.key.PublicKey)
	assert.Nil(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func (s *localSigner) Sign(t *testing.T, userData []byte) auctionapi.ReceiptCOSE {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&s.key.PublicKey)
	assert.Nil(t, err)

	return signReceipt(t, s.key, cose.AlgorithmES256, parsing.ReceiptDocument{
		ModuleID:  "auctiond-local",
		Digest:    "SHA256",
		Timestamp: uint64(testNow.UnixMilli()),
		PCRs:      map[uint64][]byte{},
		PublicKey: der,
		UserData:  userData,
		Nonce:     []byte("receipt-nonce"),
	})
}

// testEnclave is a P-384 certificate chain standing in for the Nitro PKI.
type testEnclave struct {
	roots   *x509.CertPool
	rootDER []byte
	leafDER []byte
	leafKey *ecdsa.PrivateKey
}

func newTestEnclave(t *testing.T) *testEnclave {
	t.Helper()

	rootKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	assert.Nil(t, err)
	rootTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test.nitro-enclaves"},
		NotBefore:             testNow.Add(-24 * time.Hour),
		NotAfter:              testNow.Add(365 * 24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
	}
	rootDER, err := x509.CreateCertificate(rand.Reader, rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)
	assert.Nil(t, err)
	root, err := x509.ParseCertificate(rootDER)
	assert.Nil(t, err)

	leafKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	assert.Nil(t, err)
	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "i-test-enclave"},
		NotBefore:    testNow.Add(-time.Hour),
		NotAfter:     testNow.Add(3 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTemplate, root, &leafKey.PublicKey, rootKey)
	assert.Nil(t, err)

	roots := x509.NewCertPool()
	roots.AddCert(root)
	return &testEnclave{roots: roots, rootDER: rootDER, leafDER: leafDER, leafKey: leafKey}
}

func (e *testEnclave) Sign(t *testing.T, userData []byte) auctionapi.ReceiptCOSE {
	t.Helper()
	return signReceipt(t, e.leafKey, cose.AlgorithmES384, parsing.ReceiptDocument{
		ModuleID:    "i-test-enclave",
		Digest:      "SHA384",
		Timestamp:   uint64(testNow.UnixMilli()),
		PCRs:        map[uint64][]byte{0: {0xaa, 0xbb}, 1: {0xcc}, 2: {0xdd}},
		Certificate: e.leafDER,
		CABundle:    [][]byte{e.rootDER},
		UserData:    userData,
		Nonce:       []byte("receipt-nonce"),
	})
}

func gzipReceipt(t *testing.T, receipt auctionapi.ReceiptCOSE) auctionapi.ReceiptCOSEGzip {
	t.Helper()
	compressed, err := receipt.CompressGzip()
	assert.Nil(t, err)
	return compressed
}

func b64(der []byte) string {
	return base64.StdEncoding.EncodeToString(der)
}
