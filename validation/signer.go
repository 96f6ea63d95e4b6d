package validation

import (
	"crypto/ecdsa"
	"crypto/x509"
	"fmt"

	"github.com/cloudx-io/auctionhouse/auctionapi"
)

// validateSigner establishes trust in the receipt signer and verifies the
// COSE signature. Enclave receipts are trusted through their certificate
// chain; local receipts only through a pinned public key.
func validateSigner(receipt auctionapi.ReceiptCOSE, doc auctionapi.ReceiptDoc, pinnedPublicKeyPEM string, roots *x509.CertPool) *BaseValidationResult {
	result := &BaseValidationResult{
		ValidationDetails: []string{},
	}

	var key *ecdsa.PublicKey
	if doc.Certificate != "" {
		key = validateEnclaveSigner(doc, roots, result)
	} else {
		key = validateLocalSigner(doc, pinnedPublicKeyPEM, result)
	}

	if key == nil {
		result.SignatureValid = false
		result.ValidationDetails = append(result.ValidationDetails, "COSE signature not verified: no trusted key")
		return result
	}

	if err := VerifyCOSESignature(receipt, key); err != nil {
		result.SignatureValid = false
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("COSE signature verification failed: %v", err))
	} else {
		result.SignatureValid = true
		result.ValidationDetails = append(result.ValidationDetails, "COSE signature verified")
	}
	return result
}

func validateEnclaveSigner(doc auctionapi.ReceiptDoc, roots *x509.CertPool, result *BaseValidationResult) *ecdsa.PublicKey {
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Enclave receipt from module %s", doc.ModuleID))

	if len(doc.CABundle) == 0 {
		result.CertificateValid = false
		result.ValidationDetails = append(result.ValidationDetails, "Missing CA bundle")
	} else {
		var err error
		if roots == nil {
			err = ValidateCertificateChain(doc.Certificate, doc.CABundle, doc.Timestamp)
		} else {
			err = verifyCertificateChain(doc.Certificate, doc.CABundle, doc.Timestamp, roots)
		}
		if err != nil {
			result.CertificateValid = false
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Certificate chain validation failed: %v", err))
		} else {
			result.CertificateValid = true
			result.ValidationDetails = append(result.ValidationDetails, "Certificate chain verified")
		}
	}

	if pcrs := doc.PCRs; pcrs.ImageFileHash != "" {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("PCR0: %s", pcrs.ImageFileHash))
	}

	key, err := CertificatePublicKey(doc.Certificate)
	if err != nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Certificate unusable: %v", err))
		return nil
	}
	return key
}

func validateLocalSigner(doc auctionapi.ReceiptDoc, pinnedPublicKeyPEM string, result *BaseValidationResult) *ecdsa.PublicKey {
	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Locally signed receipt from module %s", doc.ModuleID))

	if pinnedPublicKeyPEM == "" {
		result.CertificateValid = false
		result.ValidationDetails = append(result.ValidationDetails, "No pinned public key supplied for a locally signed receipt")
		return nil
	}

	pinned, err := ParsePublicKeyPEM(pinnedPublicKeyPEM)
	if err != nil {
		result.CertificateValid = false
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Pinned public key invalid: %v", err))
		return nil
	}

	if doc.PublicKey == "" {
		result.CertificateValid = false
		result.ValidationDetails = append(result.ValidationDetails, "Public key missing from receipt")
		return pinned
	}

	embedded, err := parseEmbeddedKey(doc.PublicKey)
	switch {
	case err != nil:
		result.CertificateValid = false
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Receipt public key invalid: %v", err))
	case !pinned.Equal(embedded):
		result.CertificateValid = false
		result.ValidationDetails = append(result.ValidationDetails, "Public key mismatch: receipt was not signed by the pinned key")
	default:
		result.CertificateValid = true
		result.ValidationDetails = append(result.ValidationDetails, "Public key matches pinned key")
	}

	// The signature is always checked against the pinned key, never the embedded one
	return pinned
}
