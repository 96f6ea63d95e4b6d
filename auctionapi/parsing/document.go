package parsing

import (
	"encoding/base64"
	"encoding/hex"
)

// ReceiptDocument is the CBOR payload of a settlement receipt. Enclave
// receipts use the AWS Nitro attestation document layout as is; local
// receipts fill the same fields without PCRs or certificates.
type ReceiptDocument struct {
	ModuleID    string            `cbor:"module_id"`
	Digest      string            `cbor:"digest"`
	Timestamp   uint64            `cbor:"timestamp"`
	PCRs        map[uint64][]byte `cbor:"pcrs"`
	Certificate []byte            `cbor:"certificate"`
	CABundle    [][]byte          `cbor:"cabundle"`
	PublicKey   []byte            `cbor:"public_key"`
	UserData    []byte            `cbor:"user_data"`
	Nonce       []byte            `cbor:"nonce"`
}

// FormatPCR renders a PCR as lowercase hex; an absent PCR is "".
func FormatPCR(pcr []byte) string {
	return hex.EncodeToString(pcr)
}

// EncodeCertificateBundle base64-encodes each DER certificate. Local
// receipts carry no bundle and yield nil.
func EncodeCertificateBundle(bundle [][]byte) []string {
	var encoded []string
	for _, der := range bundle {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(der))
	}
	return encoded
}
