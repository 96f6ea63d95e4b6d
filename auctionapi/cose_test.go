package auctionapi

import (
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/auctionhouse/auctionapi/parsing"
)

func TestReceiptCOSE_EncodeBase64(t *testing.T) {
	coseBytes := ReceiptCOSE([]byte("mock-cose-receipt-data"))

	encoded := coseBytes.EncodeBase64()
	check.NotEqual(t, "", encoded)

	decoded, err := encoded.Decode()
	check.Nil(t, err)
	check.Equal(t, coseBytes, decoded)
}

func TestReceiptCOSE_EncodeURLSafe(t *testing.T) {
	coseBytes := ReceiptCOSE([]byte("mock-cose-receipt-data-for-url-encoding"))

	encoded := coseBytes.EncodeURLSafe()
	check.NotEqual(t, "", encoded)
	check.False(t, strings.Contains(encoded.String(), "="))

	decoded, err := encoded.Decode()
	check.Nil(t, err)
	check.Equal(t, coseBytes, decoded)
}

func TestReceiptCOSE_CompressGzip(t *testing.T) {
	coseBytes := ReceiptCOSE([]byte("mock-cose-receipt-data-for-compression-testing"))

	compressed, err := coseBytes.CompressGzip()
	check.Nil(t, err)
	check.NotEqual(t, "", compressed)

	for _, char := range compressed.String() {
		valid := (char >= 'A' && char <= 'Z') ||
			(char >= 'a' && char <= 'z') ||
			(char >= '0' && char <= '9') ||
			char == '-' || char == '_'
		check.True(t, valid)
	}

	decompressed, err := compressed.Decompress()
	check.Nil(t, err)
	check.Equal(t, coseBytes, decompressed)

	// Deterministic output
	again, err := coseBytes.CompressGzip()
	check.Nil(t, err)
	check.Equal(t, compressed, again)
}

func TestReceiptCOSEBase64_Decode(t *testing.T) {
	tests := []struct {
		name    string
		input   ReceiptCOSEBase64
		wantErr bool
	}{
		{name: "valid base64", input: "bW9jay1jb3NlLXJlY2VpcHQ="},
		{name: "illegal characters", input: "not-valid-base64!!!@@@", wantErr: true},
		{name: "wrong padding", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.input.Decode()
			if tt.wantErr {
				assert.NotNil(t, err)
				check.True(t, strings.Contains(err.Error(), "decode COSE base64"))
				check.Nil(t, result)
				return
			}
			check.Nil(t, err)
			check.Equal(t, "mock-cose-receipt", string(result))
		})
	}
}

func TestReceiptCOSEURLBase64_Decode(t *testing.T) {
	tests := []struct {
		name     string
		input    ReceiptCOSEURLBase64
		expected string
	}{
		{name: "no padding needed", input: "YWJj", expected: "abc"},
		{name: "two padding chars stripped", input: "dGVzdA", expected: "test"},
		{name: "one padding char stripped", input: "dGVzdGluZw", expected: "testing"},
		{name: "padded input", input: "dGVzdA==", expected: "test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.input.Decode()
			check.Nil(t, err)
			check.Equal(t, tt.expected, string(result))
		})
	}
}

func TestReceiptCOSEGzip_DecompressInvalid(t *testing.T) {
	tests := []struct {
		name           string
		input          ReceiptCOSEGzip
		errorSubstring string
	}{
		{name: "invalid base64url", input: "!!!invalid!!!", errorSubstring: "decode base64url"},
		{name: "valid base64 but not gzip", input: "bW9jaw", errorSubstring: "gzip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.input.Decompress()
			assert.NotNil(t, err)
			check.Nil(t, result)
			check.True(t, strings.Contains(err.Error(), tt.errorSubstring))
		})
	}
}

func TestReceiptCOSEBase64_CompressGzip(t *testing.T) {
	original := ReceiptCOSE([]byte("test-cose-data-for-compression-with-enough-data-to-compress"))

	compressed, err := original.EncodeBase64().CompressGzip()
	assert.Nil(t, err)

	decompressed, err := compressed.Decompress()
	assert.Nil(t, err)
	check.Equal(t, original.EncodeBase64(), decompressed.EncodeBase64())
}

func TestReceiptCOSE_ParseReceiptDoc(t *testing.T) {
	doc := parsing.ReceiptDocument{
		ModuleID:  "auctiond-local",
		Digest:    "SHA256",
		Timestamp: uint64(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()),
		PCRs:      map[uint64][]byte{0: {0xab, 0xcd}},
		PublicKey: []byte{0x01, 0x02},
		UserData:  []byte(`{"listing_id":"lot-1"}`),
		Nonce:     []byte("nonce-1"),
	}
	payload, err := cbor.Marshal(doc)
	assert.Nil(t, err)

	protected, err := parsing.ProtectedHeader(-7)
	assert.Nil(t, err)
	coseBytes, err := parsing.EncodeSign1(protected, payload, []byte{0x09})
	assert.Nil(t, err)

	parsed, userData, err := ReceiptCOSE(coseBytes).ParseReceiptDoc()
	assert.Nil(t, err)
	check.Equal(t, "auctiond-local", parsed.ModuleID)
	check.Equal(t, "SHA256", parsed.DigestAlgorithm)
	check.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), parsed.Timestamp)
	check.Equal(t, "abcd", parsed.PCRs.ImageFileHash)
	check.Equal(t, "AQI=", parsed.PublicKey)
	check.Equal(t, "", parsed.Certificate)
	check.Equal(t, "nonce-1", parsed.Nonce)
	check.Equal(t, `{"listing_id":"lot-1"}`, string(userData))
}

func TestReceiptCOSE_ParseReceiptDocInvalid(t *testing.T) {
	_, _, err := ReceiptCOSE([]byte("not cbor")).ParseReceiptDoc()
	check.NotNil(t, err)

	notSign1, err := cbor.Marshal([]any{[]byte{0x01}, []byte{0x02}})
	assert.Nil(t, err)
	_, _, err = ReceiptCOSE(notSign1).ParseReceiptDoc()
	assert.NotNil(t, err)
	check.True(t, strings.Contains(err.Error(), "expected 4 elements"))
}
