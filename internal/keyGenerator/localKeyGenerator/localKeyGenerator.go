package localKeyGenerator

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"sync"

	"github.com/Layr-Labs/dydx-api-keys-go/internal/keyGenerator"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type keyEntry struct {
	privateKey *ecdsa.PrivateKey
	keyName    string
	aliasName  string
}

// LocalKeyGenerator creates secp256k1 keys in process memory.
type LocalKeyGenerator struct {
	logger *zap.Logger

	mu       sync.RWMutex
	keyStore map[string]*keyEntry
}

var _ keyGenerator.IKeyGenerator = (*LocalKeyGenerator)(nil)

func NewLocalKeyGenerator(logger *zap.Logger) *LocalKeyGenerator {
	return &LocalKeyGenerator{
		logger:   logger,
		keyStore: make(map[string]*keyEntry),
	}
}

func (l *LocalKeyGenerator) GenerateECDSAKey(ctx context.Context, keyName string, aliasName string) (*keyGenerator.GeneratedECDSAKey, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA key: %w", err)
	}

	keyId := fmt.Sprintf("local-key-%s", uuid.New().String())

	l.mu.Lock()
	l.keyStore[keyId] = &keyEntry{
		privateKey: privateKey,
		keyName:    keyName,
		aliasName:  aliasName,
	}
	l.mu.Unlock()

	key := toGeneratedKey(keyId, privateKey)
	l.logger.Info("Generated ECDSA key",
		zap.String("keyId", keyId),
		zap.String("keyName", keyName),
		zap.String("aliasName", aliasName),
		zap.String("address", key.Address.String()),
	)
	return key, nil
}

func (l *LocalKeyGenerator) GetECDSAKeyById(ctx context.Context, keyId string) (*keyGenerator.GeneratedECDSAKey, error) {
	l.mu.RLock()
	entry, exists := l.keyStore[keyId]
	l.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("key with ID %s not found", keyId)
	}
	return toGeneratedKey(keyId, entry.privateKey), nil
}

// ExportKeystore writes the key as an encrypted V3 keystore file under dir and
// returns the file path.
func (l *LocalKeyGenerator) ExportKeystore(keyId string, dir string, password string) (string, error) {
	l.mu.RLock()
	entry, exists := l.keyStore[keyId]
	l.mu.RUnlock()

	if !exists {
		return "", fmt.Errorf("key with ID %s not found", keyId)
	}

	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
	account, err := ks.ImportECDSA(entry.privateKey, password)
	if err != nil {
		return "", fmt.Errorf("failed to write keystore for key %s: %w", keyId, err)
	}

	l.logger.Info("Exported key to keystore",
		zap.String("keyId", keyId),
		zap.String("path", account.URL.Path),
	)
	return account.URL.Path, nil
}

// GetKeyCount returns the number of keys in the store.
func (l *LocalKeyGenerator) GetKeyCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.keyStore)
}

func toGeneratedKey(keyId string, privateKey *ecdsa.PrivateKey) *keyGenerator.GeneratedECDSAKey {
	return &keyGenerator.GeneratedECDSAKey{
		PublicKey:  &privateKey.PublicKey,
		PrivateKey: privateKey,
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		KeyId:      keyId,
	}
}
