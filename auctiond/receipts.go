package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/core"
)

// Attester signs user data into a COSE_Sign1 document. Implemented by the
// Nitro NSM handle and by KeyManager.
type Attester interface {
	Attest(options enclave.AttestationOptions) ([]byte, error)
}

// getEnclaveAttester attempts to get the NSM attester, returns error if not available
func getEnclaveAttester() (Attester, error) {
	handle, err := enclave.GetOrInitializeHandle()
	if err != nil {
		return nil, fmt.Errorf("NSM not available: %w", err)
	}
	return handle, nil
}

// selectAttester returns the receipt signer named by signer. An unavailable
// NSM falls back to the local key so the daemon still runs outside an enclave.
func selectAttester(signer string, keyManager *KeyManager) (Attester, string) {
	if signer != SignerNitro {
		return keyManager, SignerLocal
	}

	attester, err := getEnclaveAttester()
	if err != nil {
		log.Printf("WARNING: %v (continuing with local receipt signer)", err)
		return keyManager, SignerLocal
	}
	return attester, SignerNitro
}

// GenerateSettlementReceipt commits to every accepted bid of the listing and
// to its outcome, and has attester sign the result.
func GenerateSettlementReceipt(attester Attester, listing *core.Listing, outcome core.Outcome) (auctionapi.ReceiptCOSE, error) {
	bidHashNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate bid hash nonce: %w", err)
	}

	historyNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate history nonce: %w", err)
	}

	bidHashes := make([]string, 0, len(listing.BidHistory))
	for _, bid := range listing.BidHistory {
		bidHashes = append(bidHashes, core.ComputeBidHash(bid.ID, bid.Amount, bidHashNonce))
	}

	userData := &auctionapi.SettlementUserData{
		ListingID:    listing.ID,
		Status:       outcome.Status,
		ReserveMet:   outcome.ReserveMet,
		SalePrice:    outcome.SalePrice,
		Winner:       auctionapi.NewReceiptBid(outcome.Winner),
		RunnerUp:     auctionapi.NewReceiptBid(outcome.RunnerUp),
		Purchase:     outcome.Purchase,
		BidHashes:    bidHashes,
		BidHashNonce: bidHashNonce,
		HistoryHash:  core.ComputeHistoryHash(listing.ID, listing.BidHistory, historyNonce),
		HistoryNonce: historyNonce,
		ResolvedAt:   outcome.ResolvedAt,
		Timestamp:    time.Now().UTC(),
	}

	return GenerateAttestation(attester, userData)
}

// GenerateAttestation signs userData with a fresh nonce.
func GenerateAttestation(attester Attester, userData *auctionapi.SettlementUserData) (auctionapi.ReceiptCOSE, error) {
	if attester == nil {
		return nil, fmt.Errorf("receipt attester is nil")
	}

	userDataBytes, err := json.Marshal(userData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user data: %w", err)
	}

	randomNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestation nonce: %w", err)
	}

	receiptCBOR, err := attester.Attest(enclave.AttestationOptions{
		UserData: userDataBytes,
		Nonce:    []byte(randomNonce),
	})
	if err != nil {
		log.Printf("ERROR: Receipt attestation failed: %v", err)
		return nil, fmt.Errorf("receipt attestation failed: %w", err)
	}

	log.Printf("INFO: Settlement receipt generated for listing %s: %d bytes", userData.ListingID, len(receiptCBOR))

	return auctionapi.ReceiptCOSE(receiptCBOR), nil
}

// generateSecureRandomBytes reads from crypto/rand, which inside an enclave
// is seeded by the NSM.
func generateSecureRandomBytes(length int) ([]byte, error) {
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("entropy generation failed: %w", err)
	}
	return randomBytes, nil
}

func generateNonce() (string, error) {
	randomBytes, err := generateSecureRandomBytes(32) // 256 bits of entropy
	if err != nil {
		return "", fmt.Errorf("failed to generate secure nonce - %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}
