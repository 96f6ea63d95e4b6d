package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/core"
	"github.com/cloudx-io/auctionhouse/validation"
)

func main() {
	var (
		settlementInput = flag.String("settlement", "", "Settlement message JSON (file path or inline JSON)")
		bidInput        = flag.String("bid", "", "Bid or bid_response JSON (file path or inline JSON)")
		publicKeyInput  = flag.String("public-key", "", "Pinned public key PEM from key_request (file path or inline PEM)")
		listingInput    = flag.String("listing", "", "Listing or listing_response JSON whose bid history is checked (optional)")
		salePrice       = flag.String("sale-price", "", "Expected sale price; \"none\" expects no sale (default: the settlement outcome)")
		isWinner        = flag.Bool("winner", false, "Expect the bid to have won")
		outputFormat    = flag.String("format", "text", "Output format: text or json")
		help            = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help {
		showUsage()
		os.Exit(0)
	}

	if *settlementInput == "" || *bidInput == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: --settlement and --bid are required\n")
		os.Exit(1)
	}

	input, err := buildValidationInput(*settlementInput, *bidInput, *listingInput, *salePrice, *isWinner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading inputs: %v\n", err)
		os.Exit(2)
	}

	if *publicKeyInput != "" {
		input.PinnedPublicKeyPEM = string(readInput(*publicKeyInput))
	}

	result, err := validation.ValidateSettlementReceipt(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		outputJSON(result)
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("Settlement Receipt Validator")
	fmt.Println()
	fmt.Println("Checks that a signed settlement receipt commits to your bid and matches the published outcome.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  receipt-validator --settlement <json> --bid <json> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --settlement <json>          Settlement message from auction.settlements.<listing_id>")
	fmt.Println("  --bid <json>                 Your accepted bid, or the bid_response that returned it")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --public-key <pem>           Key from key_request; required for locally signed receipts")
	fmt.Println("  --listing <json>             Listing view to check the full bid history against")
	fmt.Println("  --sale-price <amount|none>   Expected sale price (default: taken from the settlement outcome)")
	fmt.Println("  --winner                     Expect the bid to have won")
	fmt.Println("  --format <text|json>         Output format (default: text)")
	fmt.Println("  --help                       Show this help message")
	fmt.Println()
	fmt.Println("Each JSON or PEM flag accepts either a file path or an inline value.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  receipt-validator \\")
	fmt.Println("    --settlement settlement.json \\")
	fmt.Println("    --bid '{\"id\":\"2f1c...\",\"listing_id\":\"lot-1\",\"amount\":\"61\"}' \\")
	fmt.Println("    --public-key auctiond.pem \\")
	fmt.Println("    --winner")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Validation passed")
	fmt.Println("  1 - Validation failed")
	fmt.Println("  2 - Input or parsing error")
}

// readInput returns the file contents when input names a readable file,
// otherwise input itself.
func readInput(input string) []byte {
	if data, err := os.ReadFile(input); err == nil {
		return data
	}
	return []byte(input)
}

type bidInput struct {
	core.Bid
	Wrapped *core.Bid `json:"bid"`
}

type listingInput struct {
	BidHistory []core.Bid `json:"bid_history"`
	Listing    *struct {
		BidHistory []core.Bid `json:"bid_history"`
	} `json:"listing"`
}

func buildValidationInput(settlementJSON, bidJSON, listingJSON, salePrice string, isWinner bool) (*validation.ReceiptValidationInput, error) {
	var settlement auctionapi.SettlementMessage
	if err := json.Unmarshal(readInput(settlementJSON), &settlement); err != nil {
		return nil, fmt.Errorf("parse settlement: %w", err)
	}
	if settlement.ReceiptGzip == "" && settlement.ReceiptBase64 == "" {
		return nil, fmt.Errorf("settlement for %s carries no receipt", settlement.ListingID)
	}

	var parsed bidInput
	if err := json.Unmarshal(readInput(bidJSON), &parsed); err != nil {
		return nil, fmt.Errorf("parse bid: %w", err)
	}
	bid := parsed.Bid
	if parsed.Wrapped != nil {
		bid = *parsed.Wrapped
	}
	if bid.ID == "" {
		return nil, fmt.Errorf("missing bid id")
	}

	listingID := bid.ListingID
	if listingID == "" {
		listingID = settlement.ListingID
	}

	input := &validation.ReceiptValidationInput{
		ReceiptGzip:   settlement.ReceiptGzip,
		ReceiptBase64: settlement.ReceiptBase64,
		ListingID:     listingID,
		BidID:         bid.ID,
		BidAmount:     bid.Amount,
		SalePrice:     settlement.Outcome.SalePrice,
		IsWinner:      isWinner,
	}

	switch salePrice {
	case "":
	case "none":
		input.SalePrice = nil
	default:
		price, err := decimal.NewFromString(salePrice)
		if err != nil {
			return nil, fmt.Errorf("parse sale price: %w", err)
		}
		input.SalePrice = &price
	}

	if listingJSON != "" {
		var listing listingInput
		if err := json.Unmarshal(readInput(listingJSON), &listing); err != nil {
			return nil, fmt.Errorf("parse listing: %w", err)
		}
		input.History = listing.BidHistory
		if listing.Listing != nil {
			input.History = listing.Listing.BidHistory
		}
	}

	return input, nil
}

func outputText(result *validation.ReceiptValidationResult) {
	fmt.Println("Settlement Receipt Validator")
	fmt.Println("============================")
	fmt.Println()

	fmt.Println("Summary:")
	fmt.Printf("  Signer Trusted:          %v\n", result.CertificateValid)
	fmt.Printf("  Signature Valid:         %v\n", result.SignatureValid)
	fmt.Printf("  Listing Valid:           %v\n", result.ListingValid)
	fmt.Printf("  Bid Hash Valid:          %v\n", result.BidHashValid)
	fmt.Printf("  Sale Price Valid:        %v\n", result.SalePriceValid)
	fmt.Printf("  Winner Valid:            %v\n", result.WinnerValid)
	fmt.Printf("  History Valid:           %v\n", result.HistoryValid)

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("============================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
		fmt.Println("Exit Code: 0")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
		fmt.Println("Exit Code: 1")
	}
}

func outputJSON(result *validation.ReceiptValidationResult) {
	output := map[string]any{
		"valid":            result.IsValid(),
		"signer_trusted":   result.CertificateValid,
		"signature_valid":  result.SignatureValid,
		"listing_valid":    result.ListingValid,
		"bid_hash_valid":   result.BidHashValid,
		"sale_price_valid": result.SalePriceValid,
		"winner_valid":     result.WinnerValid,
		"history_valid":    result.HistoryValid,
		"details":          result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
