package awsKmsKeyHolder

import (
	"context"
	"crypto/ecdsa"
	"encoding/asn1"
	"fmt"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/offChainSigning"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	oidEcPublicKey = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}
	oidSecp256k1   = asn1.ObjectIdentifier{1, 3, 132, 0, 10}
)

// fakeKms signs with local keys and answers in the same DER formats as KMS.
type fakeKms struct {
	keys      map[string]*ecdsa.PrivateKey
	highS     bool
	signCalls atomic.Int32
	signErr   error
}

func (f *fakeKms) GetPublicKey(_ context.Context, params *kms.GetPublicKeyInput, _ ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error) {
	pk, ok := f.keys[*params.KeyId]
	if !ok {
		return nil, fmt.Errorf("NotFoundException: key %s", *params.KeyId)
	}
	pubBytes := crypto.FromECDSAPub(&pk.PublicKey)
	der, err := asn1.Marshal(asn1EcPublicKey{
		EcPublicKeyInfo: asn1EcPublicKeyInfo{Algorithm: oidEcPublicKey, Parameters: oidSecp256k1},
		PublicKey:       asn1.BitString{Bytes: pubBytes, BitLength: len(pubBytes) * 8},
	})
	if err != nil {
		return nil, err
	}
	return &kms.GetPublicKeyOutput{KeyId: params.KeyId, PublicKey: der}, nil
}

func (f *fakeKms) Sign(_ context.Context, params *kms.SignInput, _ ...func(*kms.Options)) (*kms.SignOutput, error) {
	f.signCalls.Add(1)
	if f.signErr != nil {
		return nil, f.signErr
	}
	pk, ok := f.keys[*params.KeyId]
	if !ok {
		return nil, fmt.Errorf("NotFoundException: key %s", *params.KeyId)
	}
	sig, err := crypto.Sign(params.Message, pk)
	if err != nil {
		return nil, err
	}
	r := new(big.Int).SetBytes(sig[0:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if f.highS {
		s = new(big.Int).Sub(secp256k1N, s)
	}
	der, err := asn1.Marshal(struct {
		R *big.Int
		S *big.Int
	}{r, s})
	if err != nil {
		return nil, err
	}
	return &kms.SignOutput{KeyId: params.KeyId, Signature: der}, nil
}

func newFakeKms(t *testing.T, keyIds ...string) *fakeKms {
	t.Helper()
	f := &fakeKms{keys: make(map[string]*ecdsa.PrivateKey)}
	for _, id := range keyIds {
		pk, err := crypto.GenerateKey()
		require.NoError(t, err)
		f.keys[id] = pk
	}
	return f
}

func Test_AWSKMSKeyHolder(t *testing.T) {
	ctx := context.Background()
	action, err := offChainSigning.NewApiKeyAction("/v3/api-keys", "POST", offChainSigning.EmptyBody().Set("apiKey", "0xPUBKEY"))
	require.NoError(t, err)
	typedData := action.TypedData(1, "2021-01-01T00:00:00.000Z")
	digest, err := offChainSigning.HashTypedData(typedData)
	require.NoError(t, err)

	t.Run("Should resolve addresses for registered keys", func(t *testing.T) {
		fake := newFakeKms(t, "alias/a", "alias/b")
		kh := NewAWSKMSKeyHolder(fake, &Config{}, zap.NewNop())

		addrs, err := kh.RegisterKeys(ctx, []string{"alias/a", "alias/b"})
		require.NoError(t, err)
		require.Len(t, addrs, 2)
		assert.Equal(t, crypto.PubkeyToAddress(fake.keys["alias/a"].PublicKey), addrs[0])
		assert.Equal(t, crypto.PubkeyToAddress(fake.keys["alias/b"].PublicKey), addrs[1])
	})

	t.Run("Should fail to register unknown keys", func(t *testing.T) {
		kh := NewAWSKMSKeyHolder(newFakeKms(t), &Config{}, zap.NewNop())
		_, err := kh.RegisterKey(ctx, "alias/missing")
		assert.ErrorContains(t, err, "alias/missing")
	})

	for _, highS := range []bool{false, true} {
		t.Run(fmt.Sprintf("Should produce a recoverable low-S signature (highS=%v)", highS), func(t *testing.T) {
			fake := newFakeKms(t, "alias/a")
			fake.highS = highS
			kh := NewAWSKMSKeyHolder(fake, &Config{}, zap.NewNop())
			addr, err := kh.RegisterKey(ctx, "alias/a")
			require.NoError(t, err)

			sig, err := kh.SignTypedData(ctx, addr, typedData)
			require.NoError(t, err)
			require.Len(t, sig, 65)

			s := new(big.Int).SetBytes(sig[32:64])
			assert.True(t, s.Cmp(secp256k1HalfN) <= 0)

			pub, err := crypto.SigToPub(digest.Bytes(), sig)
			require.NoError(t, err)
			assert.Equal(t, addr, crypto.PubkeyToAddress(*pub))
		})
	}

	t.Run("Should reject unregistered addresses without calling KMS", func(t *testing.T) {
		fake := newFakeKms(t, "alias/a")
		kh := NewAWSKMSKeyHolder(fake, &Config{}, zap.NewNop())
		_, err := kh.SignTypedData(ctx, common.HexToAddress("0x1"), typedData)
		assert.Error(t, err)
		assert.Equal(t, int32(0), fake.signCalls.Load())
	})

	t.Run("Should surface KMS errors", func(t *testing.T) {
		fake := newFakeKms(t, "alias/a")
		kh := NewAWSKMSKeyHolder(fake, &Config{}, zap.NewNop())
		addr, err := kh.RegisterKey(ctx, "alias/a")
		require.NoError(t, err)

		fake.signErr = fmt.Errorf("DisabledException")
		_, err = kh.SignTypedData(ctx, addr, typedData)
		assert.ErrorContains(t, err, "DisabledException")
	})

	t.Run("Should honor a cancelled context when throttled", func(t *testing.T) {
		fake := newFakeKms(t, "alias/a")
		kh := NewAWSKMSKeyHolder(fake, &Config{RequestsPerSecond: 0.001, Burst: 1}, zap.NewNop())
		addr, err := kh.RegisterKey(ctx, "alias/a")
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = kh.SignTypedData(cancelled, addr, typedData)
		assert.Error(t, err)
		assert.Equal(t, int32(0), fake.signCalls.Load())
	})
}
