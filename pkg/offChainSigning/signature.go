package offChainSigning

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureType is appended to the 65 byte signature so the verifier knows
// how the signed digest was derived.
type SignatureType byte

const (
	// SignatureTypeNoPrepend is an EIP-712 digest signed without a message prefix.
	SignatureTypeNoPrepend SignatureType = 0x00
)

const rawSignatureLength = 65

// EncodeSignature normalizes the recovery id to 27/28 and returns the hex
// string sent in DYDX-SIGNATURE.
func EncodeSignature(sig []byte, sigType SignatureType) (string, error) {
	if len(sig) != rawSignatureLength {
		return "", fmt.Errorf("signature must be %d bytes, got %d", rawSignatureLength, len(sig))
	}
	out := make([]byte, rawSignatureLength+1)
	copy(out, sig)
	switch {
	case out[64] == 0 || out[64] == 1:
		out[64] += 27
	case out[64] == 27 || out[64] == 28:
	default:
		return "", fmt.Errorf("invalid signature recovery id %d", sig[64])
	}
	out[rawSignatureLength] = byte(sigType)
	return hexutil.Encode(out), nil
}

// DecodeSignature parses a DYDX-SIGNATURE value into a 65 byte signature with
// a 0/1 recovery id, ready for crypto.SigToPub.
func DecodeSignature(signature string) ([]byte, SignatureType, error) {
	if !strings.HasPrefix(signature, "0x") {
		signature = "0x" + signature
	}
	raw, err := hexutil.Decode(signature)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(raw) != rawSignatureLength+1 {
		return nil, 0, fmt.Errorf("signature must be %d bytes, got %d", rawSignatureLength+1, len(raw))
	}
	sigType := SignatureType(raw[rawSignatureLength])
	if sigType != SignatureTypeNoPrepend {
		return nil, 0, fmt.Errorf("unsupported signature type %d", sigType)
	}

	sig := make([]byte, rawSignatureLength)
	copy(sig, raw[:rawSignatureLength])
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return nil, 0, fmt.Errorf("invalid signature recovery id %d", raw[64])
	}
	return sig, sigType, nil
}

// RecoverAddress returns the address that produced signature over digest.
func RecoverAddress(digest common.Hash, signature string) (common.Address, error) {
	sig, _, err := DecodeSignature(signature)
	if err != nil {
		return common.Address{}, err
	}
	pubKey, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// VerifySignature reports whether signature was produced by address for the
// action bound to timestamp.
func VerifySignature(address common.Address, action *ApiKeyAction, chainId uint64, timestamp string, signature string) (bool, error) {
	digest, err := action.Hash(chainId, timestamp)
	if err != nil {
		return false, err
	}
	recovered, err := RecoverAddress(digest, signature)
	if err != nil {
		return false, err
	}
	return recovered == address, nil
}
