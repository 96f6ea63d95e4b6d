package validation

import (
	"crypto/x509"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/core"
)

// ReceiptValidationInput contains all inputs needed to validate a settlement receipt
type ReceiptValidationInput struct {
	ReceiptGzip   auctionapi.ReceiptCOSEGzip   // Gzipped form from the settlement message
	ReceiptBase64 auctionapi.ReceiptCOSEBase64 // Used when ReceiptGzip is empty

	// PinnedPublicKeyPEM is the key from key_request; required for receipts
	// signed by the local key, ignored for enclave receipts.
	PinnedPublicKeyPEM string

	ListingID string // Empty skips the listing check
	BidID     string
	BidAmount decimal.Decimal
	SalePrice *decimal.Decimal // nil = no sale expected, non-nil = sold at this price
	IsWinner  bool             // Expected result for BidID

	// History, when set, is checked against the receipt's history hash
	History []core.Bid

	// Roots overrides the AWS Nitro root CA
	Roots *x509.CertPool
}

// ValidateSettlementReceipt validates a settlement receipt and verifies:
// - The signer is trusted and the signature holds
// - The receipt is for the expected listing
// - The bid was committed to in the receipt
// - The sale price matches
// - Winner determination
// - The full bid history, when supplied
//
// Returns:
//   - ReceiptValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed receipt)
func ValidateSettlementReceipt(input *ReceiptValidationInput) (*ReceiptValidationResult, error) {
	receipt, err := decodeReceipt(input)
	if err != nil {
		return nil, err
	}

	doc, userDataBytes, err := receipt.ParseReceiptDoc()
	if err != nil {
		return nil, fmt.Errorf("parse receipt document: %w", err)
	}

	result := &ReceiptValidationResult{
		BaseValidationResult: *validateSigner(receipt, doc, input.PinnedPublicKeyPEM, input.Roots),
	}

	if len(userDataBytes) == 0 {
		result.ValidationDetails = append(result.ValidationDetails, "Receipt settlement data missing")
		return result, nil
	}

	var data auctionapi.SettlementUserData
	if err := json.Unmarshal(userDataBytes, &data); err != nil {
		return nil, fmt.Errorf("parse settlement data: %w", err)
	}

	result.ListingValid = validateListing(input, &data, result)
	result.BidHashValid = validateBidHash(input, &data, result)
	result.SalePriceValid = validateSalePrice(input, &data, result)
	result.WinnerValid = validateWinner(input, &data, result)
	result.HistoryValid = validateHistory(input, &data, result)

	return result, nil
}

func decodeReceipt(input *ReceiptValidationInput) (auctionapi.ReceiptCOSE, error) {
	switch {
	case input.ReceiptGzip != "":
		receipt, err := input.ReceiptGzip.Decompress()
		if err != nil {
			return nil, fmt.Errorf("decompress receipt: %w", err)
		}
		return receipt, nil
	case input.ReceiptBase64 != "":
		return input.ReceiptBase64.Decode()
	default:
		return nil, fmt.Errorf("no receipt supplied")
	}
}

func validateListing(input *ReceiptValidationInput, data *auctionapi.SettlementUserData, result *ReceiptValidationResult) bool {
	if input.ListingID == "" {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Listing check skipped: receipt is for %s", data.ListingID))
		return true
	}
	if input.ListingID == data.ListingID {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Listing matches: %s", data.ListingID))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Listing mismatch: expected %s, receipt is for %s", input.ListingID, data.ListingID))
	return false
}

func validateBidHash(input *ReceiptValidationInput, data *auctionapi.SettlementUserData, result *ReceiptValidationResult) bool {
	if data.BidHashNonce == "" {
		result.ValidationDetails = append(result.ValidationDetails, "Bid hash nonce missing from receipt")
		return false
	}

	computedHash := core.ComputeBidHash(input.BidID, input.BidAmount, data.BidHashNonce)
	for _, committed := range data.BidHashes {
		if computedHash == committed {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid hash found in receipt: %s", computedHash))
			return true
		}
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid hash NOT found in receipt. Computed: %s", computedHash))
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Total hashes in receipt: %d", len(data.BidHashes)))
	return false
}

func validateSalePrice(input *ReceiptValidationInput, data *auctionapi.SettlementUserData, result *ReceiptValidationResult) bool {
	if input.SalePrice == nil {
		if data.SalePrice == nil {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Sale price validation passed: no sale expected, listing %s", data.Status))
			return true
		}
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Sale price mismatch: expected no sale, receipt has $%s", core.FormatMoney(*data.SalePrice)))
		return false
	}

	if data.SalePrice == nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Sale price mismatch: expected $%s, but receipt has no sale", core.FormatMoney(*input.SalePrice)))
		return false
	}

	if input.SalePrice.Equal(*data.SalePrice) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Sale price validation passed: $%s", core.FormatMoney(*data.SalePrice)))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Sale price mismatch: expected $%s, receipt has $%s",
		core.FormatMoney(*input.SalePrice), core.FormatMoney(*data.SalePrice)))
	return false
}

func validateWinner(input *ReceiptValidationInput, data *auctionapi.SettlementUserData, result *ReceiptValidationResult) bool {
	winner := data.Winner
	actuallyWon := data.SalePrice != nil && winner != nil && winner.ID == input.BidID

	if input.IsWinner == actuallyWon {
		if actuallyWon {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation passed: bid won as expected ($%s)", core.FormatMoney(winner.Amount)))
		} else {
			result.ValidationDetails = append(result.ValidationDetails, "Winner validation passed: bid lost as expected")
		}
		if data.Purchase != nil {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Listing sold via buy-it-now to %s", data.Purchase.BuyerID))
		}
		return true
	}

	if input.IsWinner {
		result.ValidationDetails = append(result.ValidationDetails, "Winner validation failed: expected to win, but did not win")
	} else {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Winner validation failed: expected to lose, but won at $%s", core.FormatMoney(winner.Amount)))
	}
	return false
}

func validateHistory(input *ReceiptValidationInput, data *auctionapi.SettlementUserData, result *ReceiptValidationResult) bool {
	if len(input.History) == 0 {
		result.ValidationDetails = append(result.ValidationDetails, "History check skipped: no bid history supplied")
		return true
	}

	computedHash := core.ComputeHistoryHash(data.ListingID, input.History, data.HistoryNonce)
	if computedHash == data.HistoryHash {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("History hash validation passed: %d bids", len(input.History)))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("History hash mismatch: computed %s, receipt has %s", computedHash, data.HistoryHash))
	return false
}
