package validation

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/auctionapi/parsing"
)

// VerifyCOSESignature verifies a receipt's COSE_Sign1 signature with key.
// The algorithm is read from the protected header: ES384 for enclave
// receipts, ES256 for receipts signed by the local key.
func VerifyCOSESignature(receipt auctionapi.ReceiptCOSE, key *ecdsa.PublicKey) error {
	if key == nil {
		return fmt.Errorf("no verification key")
	}

	msg, err := parsing.DecodeSign1(receipt)
	if err != nil {
		return err
	}

	alg, err := msg.Algorithm()
	if err != nil {
		return err
	}
	algorithm := cose.Algorithm(alg)
	if algorithm != cose.AlgorithmES256 && algorithm != cose.AlgorithmES384 {
		return fmt.Errorf("unsupported signature algorithm %d", alg)
	}

	sigStructure, err := parsing.SigStructure(msg.Protected, msg.Payload)
	if err != nil {
		return err
	}

	verifier, err := cose.NewVerifier(algorithm, key)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	if err := verifier.Verify(sigStructure, msg.Signature); err != nil {
		return fmt.Errorf("COSE signature verification failed: %w", err)
	}
	return nil
}

// CertificatePublicKey returns the ECDSA key of a base64 DER certificate.
func CertificatePublicKey(certB64 string) (*ecdsa.PublicKey, error) {
	cert, err := parseCertificate(certB64)
	if err != nil {
		return nil, err
	}

	key, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("certificate public key is not ECDSA")
	}
	return key, nil
}

// ParsePublicKeyPEM parses a PEM-encoded PKIX ECDSA public key, as returned
// by a key_request.
func ParsePublicKeyPEM(publicKeyPEM string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in public key")
	}
	return parsePKIXKey(block.Bytes)
}

// parseEmbeddedKey parses the base64 PKIX key carried by a local receipt.
func parseEmbeddedKey(publicKeyB64 string) (*ecdsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode receipt public key: %w", err)
	}
	return parsePKIXKey(der)
}

func parsePKIXKey(der []byte) (*ecdsa.PublicKey, error) {
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return key, nil
}
