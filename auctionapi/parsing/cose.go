package parsing

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// headerLabelAlgorithm is the COSE header label for the signature algorithm
const headerLabelAlgorithm = 1

// Sign1 holds the four elements of an untagged COSE_Sign1 array.
type Sign1 struct {
	Protected []byte
	Payload   []byte
	Signature []byte
}

// DecodeSign1 decodes a COSE_Sign1 4-element array:
// [protected, unprotected, payload, signature]
func DecodeSign1(coseBytes []byte) (*Sign1, error) {
	var coseArray []any
	if err := cbor.Unmarshal(coseBytes, &coseArray); err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}

	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}

	protected, ok := coseArray[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid protected headers in COSE structure")
	}
	payload, ok := coseArray[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid payload in COSE structure")
	}
	signature, ok := coseArray[3].([]byte)
	if !ok {
		return nil, fmt.Errorf("invalid signature in COSE structure")
	}

	return &Sign1{Protected: protected, Payload: payload, Signature: signature}, nil
}

// ExtractCOSEPayload returns the payload (element 2) of a COSE_Sign1 array.
func ExtractCOSEPayload(coseBytes []byte) ([]byte, error) {
	msg, err := DecodeSign1(coseBytes)
	if err != nil {
		return nil, err
	}
	return msg.Payload, nil
}

// Algorithm reads the signature algorithm from the protected header.
func (m *Sign1) Algorithm() (int64, error) {
	var headers map[int64]any
	if err := cbor.Unmarshal(m.Protected, &headers); err != nil {
		return 0, fmt.Errorf("parse protected headers: %w", err)
	}

	switch alg := headers[headerLabelAlgorithm].(type) {
	case int64:
		return alg, nil
	case uint64:
		return int64(alg), nil
	default:
		return 0, fmt.Errorf("protected headers carry no algorithm")
	}
}

// SigStructure builds the COSE Sig_structure that the signature covers:
// ["Signature1", protected, external_aad, payload] with empty external_aad.
func SigStructure(protected, payload []byte) ([]byte, error) {
	sigStructure := []any{
		"Signature1",
		protected,
		[]byte{},
		payload,
	}

	data, err := cbor.Marshal(sigStructure)
	if err != nil {
		return nil, fmt.Errorf("marshal Sig_structure: %w", err)
	}
	return data, nil
}

// EncodeSign1 assembles an untagged COSE_Sign1 array with empty unprotected headers.
func EncodeSign1(protected, payload, signature []byte) ([]byte, error) {
	data, err := cbor.Marshal([]any{
		protected,
		map[int64]any{},
		payload,
		signature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal COSE_Sign1: %w", err)
	}
	return data, nil
}

// ProtectedHeader encodes a protected header carrying only the algorithm.
func ProtectedHeader(alg int64) ([]byte, error) {
	data, err := cbor.Marshal(map[int64]int64{headerLabelAlgorithm: alg})
	if err != nil {
		return nil, fmt.Errorf("marshal protected headers: %w", err)
	}
	return data, nil
}
