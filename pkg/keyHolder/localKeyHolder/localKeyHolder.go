package localKeyHolder

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/offChainSigning"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"go.uber.org/zap"
)

// LocalKeyHolder keeps secp256k1 private keys in memory, indexed by address.
type LocalKeyHolder struct {
	logger *zap.Logger
	keys   map[common.Address]*ecdsa.PrivateKey
	mu     sync.RWMutex
}

var _ offChainSigning.IKeyHolder = (*LocalKeyHolder)(nil)

func NewLocalKeyHolder(logger *zap.Logger) *LocalKeyHolder {
	return &LocalKeyHolder{
		logger: logger,
		keys:   make(map[common.Address]*ecdsa.PrivateKey),
	}
}

func (l *LocalKeyHolder) SignTypedData(ctx context.Context, address common.Address, typedData apitypes.TypedData) ([]byte, error) {
	l.mu.RLock()
	privateKey, exists := l.keys[address]
	l.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no key loaded for address %s", address.Hex())
	}

	digest, err := offChainSigning.HashTypedData(typedData)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(digest.Bytes(), privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest with key for %s: %w", address.Hex(), err)
	}

	l.logger.Debug("Signed typed data with local key",
		zap.String("address", address.Hex()),
		zap.String("primaryType", typedData.PrimaryType),
	)
	return signature, nil
}

// LoadPrivateKey adds privateKey and returns the address it signs for.
func (l *LocalKeyHolder) LoadPrivateKey(privateKey *ecdsa.PrivateKey) (common.Address, error) {
	if privateKey == nil {
		return common.Address{}, fmt.Errorf("private key cannot be nil")
	}
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.keys[address]; exists {
		return common.Address{}, fmt.Errorf("key for address %s already loaded", address.Hex())
	}
	l.keys[address] = privateKey

	l.logger.Info("Loaded private key", zap.String("address", address.Hex()))
	return address, nil
}

// LoadPrivateKeyFromHex loads a hex encoded private key, with or without 0x.
func (l *LocalKeyHolder) LoadPrivateKeyFromHex(privateKeyHex string) (common.Address, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to parse private key from hex: %w", err)
	}
	return l.LoadPrivateKey(privateKey)
}

// LoadKeystoreFile decrypts an Ethereum JSON keystore file.
func (l *LocalKeyHolder) LoadKeystoreFile(path string, password string) (common.Address, error) {
	keyJson, err := os.ReadFile(path)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to read keystore file %s: %w", path, err)
	}
	key, err := keystore.DecryptKey(keyJson, password)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decrypt keystore file %s: %w", path, err)
	}
	return l.LoadPrivateKey(key.PrivateKey)
}

// GenerateKey creates and loads a fresh key.
func (l *LocalKeyHolder) GenerateKey() (common.Address, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to generate ECDSA key: %w", err)
	}
	return l.LoadPrivateKey(privateKey)
}

// Addresses returns the addresses of all loaded keys.
func (l *LocalKeyHolder) Addresses() []common.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()

	addrs := make([]common.Address, 0, len(l.keys))
	for addr := range l.keys {
		addrs = append(addrs, addr)
	}
	return addrs
}

func (l *LocalKeyHolder) HasKey(address common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, exists := l.keys[address]
	return exists
}
