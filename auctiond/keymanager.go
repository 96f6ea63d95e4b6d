package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/auctionhouse/auctionapi"
	"github.com/cloudx-io/auctionhouse/auctionapi/parsing"
)

const localModuleID = "auctiond-local"

// KeyManager holds the ECDSA P-256 key that signs receipts when no enclave
// is available. It implements Attester by producing a COSE_Sign1 document
// with the same layout as an enclave attestation.
type KeyManager struct {
	privateKey *ecdsa.PrivateKey // Keep private - sensitive!
	PublicKey  *ecdsa.PublicKey

	now func() time.Time
}

// NewKeyManager creates a new KeyManager with a fresh key pair
func NewKeyManager() (*KeyManager, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	return &KeyManager{
		privateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		now:        time.Now,
	}, nil
}

// PublicKeyPEM returns the public key in PEM format
func (km *KeyManager) PublicKeyPEM() (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(km.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pemBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	}

	return string(pem.EncodeToMemory(pemBlock)), nil
}

// Attest signs options.UserData into an ES256 COSE_Sign1 receipt.
func (km *KeyManager) Attest(options enclave.AttestationOptions) ([]byte, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(km.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	payload, err := cbor.Marshal(parsing.ReceiptDocument{
		ModuleID:  localModuleID,
		Digest:    "SHA256",
		Timestamp: uint64(km.now().UnixMilli()),
		PCRs:      map[uint64][]byte{},
		PublicKey: derBytes,
		UserData:  options.UserData,
		Nonce:     options.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal receipt document: %w", err)
	}

	protected, err := parsing.ProtectedHeader(int64(cose.AlgorithmES256))
	if err != nil {
		return nil, err
	}

	toBeSigned, err := parsing.SigStructure(protected, payload)
	if err != nil {
		return nil, err
	}

	signer, err := cose.NewSigner(cose.AlgorithmES256, km.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	signature, err := signer.Sign(rand.Reader, toBeSigned)
	if err != nil {
		return nil, fmt.Errorf("failed to sign receipt: %w", err)
	}

	return parsing.EncodeSign1(protected, payload, signature)
}

// HandleKeyRequest reports how receipts are signed and, for the local
// signer, the key to pin when validating them.
func HandleKeyRequest(keyManager *KeyManager, signer string) (*auctionapi.KeyResponse, error) {
	if signer == SignerNitro {
		return &auctionapi.KeyResponse{
			Type:         auctionapi.TypeKeyResponse,
			Signer:       SignerNitro,
			KeyAlgorithm: "ES384",
		}, nil
	}

	publicKeyPEM, err := keyManager.PublicKeyPEM()
	if err != nil {
		return nil, fmt.Errorf("failed to export public key: %w", err)
	}

	return &auctionapi.KeyResponse{
		Type:         auctionapi.TypeKeyResponse,
		Signer:       SignerLocal,
		KeyAlgorithm: "ES256",
		PublicKey:    publicKeyPEM,
	}, nil
}
