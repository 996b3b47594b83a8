package web3SignerKeyHolder

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net/http"
	"testing"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/offChainSigning"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWeb3Signer struct {
	key       *ecdsa.PrivateKey
	signature string
	err       error
	accounts  []string
}

func (f *fakeWeb3Signer) SetHttpClient(*http.Client) {}

func (f *fakeWeb3Signer) EthAccounts(context.Context) ([]string, error) {
	return f.accounts, f.err
}

func (f *fakeWeb3Signer) Upcheck(context.Context) error {
	return f.err
}

func (f *fakeWeb3Signer) EthSignTypedData(_ context.Context, account string, typedData interface{}) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.signature != "" {
		return f.signature, nil
	}
	if account != crypto.PubkeyToAddress(f.key.PublicKey).Hex() {
		return "", fmt.Errorf("no key for %s", account)
	}
	digest, err := offChainSigning.HashTypedData(typedData.(apitypes.TypedData))
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(digest.Bytes(), f.key)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

func Test_Web3SignerKeyHolder(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	action, err := offChainSigning.NewApiKeyAction("/v3/api-keys", "GET", nil)
	require.NoError(t, err)
	typedData := action.TypedData(5, "2021-01-01T00:00:00.000Z")

	t.Run("Should return a signature that encodes and verifies", func(t *testing.T) {
		kh := NewWeb3SignerKeyHolder(&fakeWeb3Signer{key: key}, zap.NewNop())
		sig, err := kh.SignTypedData(ctx, addr, typedData)
		require.NoError(t, err)
		require.Len(t, sig, 65)

		encoded, err := offChainSigning.EncodeSignature(sig, offChainSigning.SignatureTypeNoPrepend)
		require.NoError(t, err)
		ok, err := offChainSigning.VerifySignature(addr, action, 5, "2021-01-01T00:00:00.000Z", encoded)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should reject malformed signatures", func(t *testing.T) {
		for _, bad := range []string{"0xzz", "0x1234"} {
			kh := NewWeb3SignerKeyHolder(&fakeWeb3Signer{signature: bad}, zap.NewNop())
			_, err := kh.SignTypedData(ctx, addr, typedData)
			assert.Error(t, err, bad)
		}
	})

	t.Run("Should surface remote errors", func(t *testing.T) {
		kh := NewWeb3SignerKeyHolder(&fakeWeb3Signer{err: fmt.Errorf("connection refused")}, zap.NewNop())
		_, err := kh.SignTypedData(ctx, addr, typedData)
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("Should list remote accounts", func(t *testing.T) {
		kh := NewWeb3SignerKeyHolder(&fakeWeb3Signer{accounts: []string{addr.Hex()}}, zap.NewNop())
		addrs, err := kh.Addresses(ctx)
		require.NoError(t, err)
		assert.Equal(t, []common.Address{addr}, addrs)

		kh = NewWeb3SignerKeyHolder(&fakeWeb3Signer{accounts: []string{"nope"}}, zap.NewNop())
		_, err = kh.Addresses(ctx)
		assert.Error(t, err)
	})
}
