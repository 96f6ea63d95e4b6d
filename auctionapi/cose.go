package auctionapi

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"

	"github.com/cloudx-io/auctionhouse/auctionapi/parsing"
)

// ReceiptCOSE is a raw untagged COSE_Sign1 settlement receipt:
// [protected, unprotected, payload, signature]
type ReceiptCOSE []byte

// ReceiptCOSEBase64 is a receipt in standard base64, used in JSON bodies.
type ReceiptCOSEBase64 string

// ReceiptCOSEURLBase64 is a receipt in unpadded base64url.
type ReceiptCOSEURLBase64 string

// ReceiptCOSEGzip is a gzip-compressed receipt in unpadded base64url, small
// enough for notification links.
type ReceiptCOSEGzip string

func (c ReceiptCOSE) EncodeBase64() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.StdEncoding.EncodeToString(c))
}

func (c ReceiptCOSE) EncodeURLSafe() ReceiptCOSEURLBase64 {
	return ReceiptCOSEURLBase64(base64.RawURLEncoding.EncodeToString(c))
}

// CompressGzip compresses the receipt. Output is deterministic for a given input.
func (c ReceiptCOSE) CompressGzip() (ReceiptCOSEGzip, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("create gzip writer: %w", err)
	}
	if _, err := gz.Write(c); err != nil {
		return "", fmt.Errorf("gzip write: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("gzip close: %w", err)
	}
	return ReceiptCOSEGzip(base64.RawURLEncoding.EncodeToString(buf.Bytes())), nil
}

// ParseReceiptDoc extracts the COSE_Sign1 payload and decodes the receipt
// envelope. Returns the envelope and the raw user data JSON.
func (c ReceiptCOSE) ParseReceiptDoc() (ReceiptDoc, []byte, error) {
	payload, err := parsing.ExtractCOSEPayload(c)
	if err != nil {
		return ReceiptDoc{}, nil, err
	}

	var raw parsing.ReceiptDocument
	if err := cbor.Unmarshal(payload, &raw); err != nil {
		return ReceiptDoc{}, nil, fmt.Errorf("parse receipt document: %w", err)
	}

	doc := ReceiptDoc{
		ModuleID:        raw.ModuleID,
		Timestamp:       time.UnixMilli(int64(raw.Timestamp)).UTC(),
		DigestAlgorithm: raw.Digest,
		PCRs:            ExtractPCRs(raw.PCRs),
		CABundle:        parsing.EncodeCertificateBundle(raw.CABundle),
		Nonce:           string(raw.Nonce),
	}
	if len(raw.Certificate) > 0 {
		doc.Certificate = base64.StdEncoding.EncodeToString(raw.Certificate)
	}
	if len(raw.PublicKey) > 0 {
		doc.PublicKey = base64.StdEncoding.EncodeToString(raw.PublicKey)
	}
	return doc, raw.UserData, nil
}

func (s ReceiptCOSEBase64) String() string {
	return string(s)
}

func (s ReceiptCOSEBase64) Decode() (ReceiptCOSE, error) {
	data, err := base64.StdEncoding.DecodeString(string(s))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64: %w", err)
	}
	return ReceiptCOSE(data), nil
}

// CompressGzip decodes and re-encodes the receipt in gzip form.
func (s ReceiptCOSEBase64) CompressGzip() (ReceiptCOSEGzip, error) {
	data, err := s.Decode()
	if err != nil {
		return "", err
	}
	return data.CompressGzip()
}

func (s ReceiptCOSEURLBase64) String() string {
	return string(s)
}

// Decode accepts both padded and unpadded input.
func (s ReceiptCOSEURLBase64) Decode() (ReceiptCOSE, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(string(s), "="))
	if err != nil {
		return nil, fmt.Errorf("decode COSE base64url: %w", err)
	}
	return ReceiptCOSE(data), nil
}

func (s ReceiptCOSEGzip) String() string {
	return string(s)
}

func (s ReceiptCOSEGzip) Decompress() (ReceiptCOSE, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(string(s), "="))
	if err != nil {
		return nil, fmt.Errorf("decode base64url: %w", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("read gzip stream: %w", err)
	}
	return ReceiptCOSE(data), nil
}

// ExtractPCRs formats the measurement registers of an enclave document.
func ExtractPCRs(rawPCRs map[uint64][]byte) PCRs {
	return PCRs{
		ImageFileHash:   parsing.FormatPCR(rawPCRs[0]),
		KernelHash:      parsing.FormatPCR(rawPCRs[1]),
		ApplicationHash: parsing.FormatPCR(rawPCRs[2]),
	}
}
