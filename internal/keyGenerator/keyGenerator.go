package keyGenerator

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// GeneratedECDSAKey describes a freshly provisioned secp256k1 key. PrivateKey
// is only set for keys generated in-process.
type GeneratedECDSAKey struct {
	PublicKey  *ecdsa.PublicKey
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
	KeyId      string
}

func (gek *GeneratedECDSAKey) GetPublicKeyBytes() ([]byte, error) {
	if gek.PublicKey == nil {
		return nil, fmt.Errorf("public key is nil")
	}
	return crypto.FromECDSAPub(gek.PublicKey), nil
}

// GetPublicKeyHex returns the uncompressed public key, 0x04 prefix included.
// This is the value registered as an api key.
func (gek *GeneratedECDSAKey) GetPublicKeyHex() (string, error) {
	pubKeyBytes, err := gek.GetPublicKeyBytes()
	if err != nil {
		return "", fmt.Errorf("failed to get public key bytes: %w", err)
	}
	return hexutil.Encode(pubKeyBytes), nil
}

// GetPublicKeyHexUnprefixed returns the public key hex without the 0x04 prefix.
// This format is used by Web3Signer
func (gek *GeneratedECDSAKey) GetPublicKeyHexUnprefixed() (string, error) {
	pubKeyBytes, err := gek.GetPublicKeyBytes()
	if err != nil {
		return "", fmt.Errorf("failed to get unprefixed public key bytes: %w", err)
	}
	if len(pubKeyBytes) != 65 || pubKeyBytes[0] != 0x04 {
		return "", fmt.Errorf("unexpected public key length: %d", len(pubKeyBytes))
	}
	return hexutil.Encode(pubKeyBytes[1:]), nil
}

func (gek *GeneratedECDSAKey) GetCompressedPublicKeyHex() (string, error) {
	if gek.PublicKey == nil {
		return "", fmt.Errorf("public key is nil")
	}
	return hexutil.Encode(crypto.CompressPubkey(gek.PublicKey)), nil
}

// GetPrivateKeyHex returns the private key without a 0x prefix, in the form
// accepted by the local signer configuration.
func (gek *GeneratedECDSAKey) GetPrivateKeyHex() (string, error) {
	if gek.PrivateKey == nil {
		return "", fmt.Errorf("private key is not available for key %s", gek.KeyId)
	}
	return hexutil.Encode(crypto.FromECDSA(gek.PrivateKey))[2:], nil
}

type IKeyGenerator interface {
	GenerateECDSAKey(ctx context.Context, keyName string, aliasName string) (*GeneratedECDSAKey, error)
	GetECDSAKeyById(ctx context.Context, keyId string) (*GeneratedECDSAKey, error)
}
