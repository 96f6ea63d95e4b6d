package auctionapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/core"
)

// PCRs represents the Platform Configuration Registers of an AWS Nitro
// enclave. Empty for receipts signed by the local key.
type PCRs struct {
	// PCR0: Hash of the Enclave Image File (EIF)
	ImageFileHash string `json:"0,omitempty"`

	// PCR1: Hash of the Linux kernel and initial RAM data (initramfs)
	KernelHash string `json:"1,omitempty"`

	// PCR2: Hash of user applications, excluding the boot ramfs
	ApplicationHash string `json:"2,omitempty"`
}

// ReceiptDoc is the decoded envelope of a settlement receipt.
type ReceiptDoc struct {
	// Module ID identifies the signer ("auctiond-local" or the enclave id)
	ModuleID string `json:"module_id"`

	Timestamp       time.Time `json:"timestamp"`
	DigestAlgorithm string    `json:"digest"`
	PCRs            PCRs      `json:"pcrs"`

	// Certificate and CABundle are base64 DER; set only for enclave receipts
	Certificate string   `json:"certificate,omitempty"`
	CABundle    []string `json:"cabundle,omitempty"`

	// PublicKey is the base64 PKIX key of the local signer
	PublicKey string `json:"public_key,omitempty"`

	Nonce string `json:"nonce"`
}

// SettlementReceipt pairs the receipt envelope with its parsed settlement data.
type SettlementReceipt struct {
	ReceiptDoc
	UserData *SettlementUserData `json:"user_data"`
}

// ReceiptBid is a bid as committed to in a receipt. The bidder id is kept so
// shoppers can confirm who won; amounts are exact decimals.
type ReceiptBid struct {
	ID       string          `json:"id"`
	BidderID string          `json:"bidder_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// SettlementUserData is the payload signed into a settlement receipt. Every
// accepted bid is committed to by hash; the full ordered history by a single
// history hash.
type SettlementUserData struct {
	ListingID    string           `json:"listing_id"`
	Status       core.Status      `json:"status"`
	ReserveMet   bool             `json:"reserve_met"`
	SalePrice    *decimal.Decimal `json:"sale_price,omitempty"`
	Winner       *ReceiptBid      `json:"winner,omitempty"`
	RunnerUp     *ReceiptBid      `json:"runner_up,omitempty"`
	Purchase     *core.Purchase   `json:"purchase,omitempty"`
	BidHashes    []string         `json:"bid_hashes"`
	BidHashNonce string           `json:"bid_hash_nonce"`
	HistoryHash  string           `json:"history_hash"`
	HistoryNonce string           `json:"history_nonce"`
	ResolvedAt   time.Time        `json:"resolved_at"`
	Timestamp    time.Time        `json:"timestamp"`
}

// NewReceiptBid strips a bid down to what a receipt commits to.
func NewReceiptBid(bid *core.Bid) *ReceiptBid {
	if bid == nil {
		return nil
	}
	return &ReceiptBid{
		ID:       bid.ID,
		BidderID: bid.BidderID,
		Amount:   bid.Amount,
	}
}

// SettlementMessage is published on the settlement stream once a listing ends.
type SettlementMessage struct {
	ListingID     string            `json:"listing_id"`
	Outcome       core.Outcome      `json:"outcome"`
	ReceiptBase64 ReceiptCOSEBase64 `json:"receipt_cose_base64,omitempty"`
	ReceiptGzip   ReceiptCOSEGzip   `json:"receipt_cose_gzip_base64,omitempty"`
}
