package validation

// BaseValidationResult contains validation results common to every receipt
type BaseValidationResult struct {
	// CertificateValid reports that the signer is trusted: the enclave
	// certificate chains to the AWS Nitro root, or the local key matches the
	// pinned public key.
	CertificateValid  bool
	SignatureValid    bool
	ValidationDetails []string
}

// ReceiptValidationResult contains validation results specific to settlement receipts
type ReceiptValidationResult struct {
	BaseValidationResult
	ListingValid   bool
	BidHashValid   bool
	SalePriceValid bool
	WinnerValid    bool
	HistoryValid   bool
}

// IsValid returns true if all receipt validation checks passed
func (r *ReceiptValidationResult) IsValid() bool {
	return r.CertificateValid && r.SignatureValid &&
		r.ListingValid && r.BidHashValid && r.SalePriceValid && r.WinnerValid && r.HistoryValid
}

