package awsKmsKeyHolder

import (
	"context"
	cryptoEcdsa "crypto/ecdsa"
	"encoding/asn1"
	"fmt"
	"math/big"
	"sync"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/offChainSigning"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// secp256k1 curve order, for low-S canonicalization
var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// KmsApi is the subset of the KMS client used for signing.
type KmsApi interface {
	GetPublicKey(ctx context.Context, params *kms.GetPublicKeyInput, optFns ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(ctx context.Context, params *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

type Config struct {
	// KeyIds are KMS key ids, ARNs or aliases of ECC_SECG_P256K1 signing keys.
	KeyIds []string
	// RequestsPerSecond caps KMS calls from this process. Zero disables the limit.
	RequestsPerSecond float64
	Burst             int
}

type kmsKey struct {
	keyId     string
	publicKey *cryptoEcdsa.PublicKey
}

// AWSKMSKeyHolder signs with secp256k1 keys held in AWS KMS. Private key
// material never leaves KMS.
type AWSKMSKeyHolder struct {
	logger    *zap.Logger
	kmsClient KmsApi
	limiter   *rate.Limiter

	mu   sync.RWMutex
	keys map[common.Address]*kmsKey
}

var _ offChainSigning.IKeyHolder = (*AWSKMSKeyHolder)(nil)

func NewAWSKMSKeyHolderFromConfig(awsCfg aws.Config, cfg *Config, logger *zap.Logger) *AWSKMSKeyHolder {
	return NewAWSKMSKeyHolder(kms.NewFromConfig(awsCfg), cfg, logger)
}

func NewAWSKMSKeyHolder(kmsClient KmsApi, cfg *Config, logger *zap.Logger) *AWSKMSKeyHolder {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg != nil && cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &AWSKMSKeyHolder{
		logger:    logger,
		kmsClient: kmsClient,
		limiter:   limiter,
		keys:      make(map[common.Address]*kmsKey),
	}
}

// RegisterKeys fetches the public key of every configured key id.
func (a *AWSKMSKeyHolder) RegisterKeys(ctx context.Context, keyIds []string) ([]common.Address, error) {
	addrs := make([]common.Address, 0, len(keyIds))
	for _, keyId := range keyIds {
		addr, err := a.RegisterKey(ctx, keyId)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// RegisterKey resolves the Ethereum address of a KMS key so it can be used
// for signing.
func (a *AWSKMSKeyHolder) RegisterKey(ctx context.Context, keyId string) (common.Address, error) {
	pubKey, err := a.getPublicKey(ctx, keyId)
	if err != nil {
		return common.Address{}, errors.Wrapf(err, "failed to get public key for key %s", keyId)
	}
	address := crypto.PubkeyToAddress(*pubKey)

	a.mu.Lock()
	a.keys[address] = &kmsKey{keyId: keyId, publicKey: pubKey}
	a.mu.Unlock()

	a.logger.Sugar().Infow("Registered KMS signing key", "keyId", keyId, "address", address.Hex())
	return address, nil
}

func (a *AWSKMSKeyHolder) SignTypedData(ctx context.Context, address common.Address, typedData apitypes.TypedData) ([]byte, error) {
	a.mu.RLock()
	key, exists := a.keys[address]
	a.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("no KMS key registered for address %s", address.Hex())
	}

	digest, err := offChainSigning.HashTypedData(typedData)
	if err != nil {
		return nil, err
	}
	sig, err := a.getSignatureFromKms(ctx, key, digest.Bytes())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to sign with KMS key %s", key.keyId)
	}
	return sig, nil
}

func (a *AWSKMSKeyHolder) getPublicKey(ctx context.Context, keyId string) (*cryptoEcdsa.PublicKey, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	result, err := a.kmsClient.GetPublicKey(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(keyId),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get public key: %w", err)
	}
	return ParseECDSAPublicKey(result.PublicKey)
}

// ParseECDSAPublicKey parses the DER-encoded SubjectPublicKeyInfo returned by KMS.
func ParseECDSAPublicKey(derBytes []byte) (*cryptoEcdsa.PublicKey, error) {
	var asn1pubk asn1EcPublicKey
	_, err := asn1.Unmarshal(derBytes, &asn1pubk)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ASN.1 public key: %w", err)
	}
	return crypto.UnmarshalPubkey(asn1pubk.PublicKey.Bytes)
}

type asn1EcSig struct {
	R asn1.RawValue
	S asn1.RawValue
}

type asn1EcPublicKey struct {
	EcPublicKeyInfo asn1EcPublicKeyInfo
	PublicKey       asn1.BitString
}

type asn1EcPublicKeyInfo struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.ObjectIdentifier
}

// getSignatureFromKms signs digest and returns r||s||v with v in {0, 1}.
func (a *AWSKMSKeyHolder) getSignatureFromKms(ctx context.Context, key *kmsKey, digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be exactly 32 bytes, got %d", len(digest))
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	signOutput, err := a.kmsClient.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(key.keyId),
		Message:          digest,
		SigningAlgorithm: types.SigningAlgorithmSpecEcdsaSha256,
		MessageType:      types.MessageTypeDigest,
	})
	if err != nil {
		return nil, err
	}

	var sigAsn1 asn1EcSig
	if _, err := asn1.Unmarshal(signOutput.Signature, &sigAsn1); err != nil {
		return nil, fmt.Errorf("failed to parse KMS signature: %w", err)
	}

	r := new(big.Int).SetBytes(sigAsn1.R.Bytes)
	s := new(big.Int).SetBytes(sigAsn1.S.Bytes)
	if s.Cmp(secp256k1HalfN) > 0 {
		s = new(big.Int).Sub(secp256k1N, s)
	}

	signature := make([]byte, 65)
	r.FillBytes(signature[0:32])
	s.FillBytes(signature[32:64])

	// KMS does not return a recovery id; find the one that yields our key
	for recoveryId := 0; recoveryId < 2; recoveryId++ {
		signature[64] = byte(recoveryId)

		recovered, err := crypto.SigToPub(digest, signature)
		if err != nil {
			a.logger.Debug("Public key recovery failed",
				zap.Int("recoveryId", recoveryId),
				zap.Error(err))
			continue
		}
		if recovered.X.Cmp(key.publicKey.X) == 0 && recovered.Y.Cmp(key.publicKey.Y) == 0 {
			return signature, nil
		}
	}

	return nil, fmt.Errorf("could not determine valid recovery ID - signature recovery failed")
}
