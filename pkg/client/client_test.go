package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/apiKeys"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/clientErrors"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/config"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/keyHolder/localKeyHolder"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/offChainSigning"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/persistence/memory"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/venue"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	anvilPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	anvilAddress    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func newVenue(t *testing.T) string {
	t.Helper()
	s := venue.NewServer(&venue.Config{ChainId: uint64(config.ChainId_EthereumAnvil)}, memory.NewMemoryPersistence(), zaptest.NewLogger(t))
	srv := httptest.NewServer(s.GetHandler())
	t.Cleanup(srv.Close)
	return srv.URL
}

// newFakeWeb3Signer serves eth_accounts and eth_signTypedData for one key.
func newFakeWeb3Signer(t *testing.T, privateKeyHex string) string {
	t.Helper()
	pk, err := crypto.HexToECDSA(privateKeyHex[2:])
	require.NoError(t, err)
	account := crypto.PubkeyToAddress(pk.PublicKey)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/upcheck" {
			_, _ = w.Write([]byte("OK"))
			return
		}
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			Id     uint64            `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result interface{}
		switch req.Method {
		case "eth_accounts":
			result = []string{account.Hex()}
		case "eth_signTypedData":
			var typedData apitypes.TypedData
			require.NoError(t, json.Unmarshal(req.Params[1], &typedData))
			digest, err := offChainSigning.HashTypedData(typedData)
			require.NoError(t, err)
			sig, err := crypto.Sign(digest.Bytes(), pk)
			require.NoError(t, err)
			result = hexutil.Encode(sig)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.Id, "result": result})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func Test_NewClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Should reject invalid config as a config error", func(t *testing.T) {
		_, err := NewClient(ctx, &config.ClientConfig{ChainId: 42}, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.True(t, clientErrors.IsConfigError(err))
	})

	t.Run("Should reject a nil config", func(t *testing.T) {
		_, err := NewClient(ctx, nil, zaptest.NewLogger(t))
		assert.True(t, clientErrors.IsConfigError(err))
	})

	t.Run("Should report unreadable keystores as config errors", func(t *testing.T) {
		_, err := NewClient(ctx, &config.ClientConfig{
			ChainId: config.ChainId_EthereumAnvil,
			Signer: config.SignerConfig{
				Type:          config.SignerTypeLocal,
				KeystoreFiles: []config.KeystoreFileConfig{{Path: "/does/not/exist.json"}},
			},
		}, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.True(t, clientErrors.IsConfigError(err))
	})

	t.Run("Should manage keys with a local signer", func(t *testing.T) {
		c, err := NewClient(ctx, &config.ClientConfig{
			Host:                   newVenue(t),
			ChainId:                config.ChainId_EthereumAnvil,
			DefaultEthereumAddress: anvilAddress,
			Signer: config.SignerConfig{
				Type:        config.SignerTypeLocal,
				PrivateKeys: []string{anvilPrivateKey},
			},
		}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Equal(t, []common.Address{common.HexToAddress(anvilAddress)}, c.Addresses())

		_, err = c.ApiKeys.RegisterApiKey(ctx, "0xPUBKEY")
		require.NoError(t, err)

		keys, err := c.ApiKeys.GetApiKeys(ctx)
		require.NoError(t, err)
		require.Len(t, keys.ApiKeys, 1)
		assert.Equal(t, anvilAddress, keys.ApiKeys[0].EthereumAddress)

		require.NoError(t, c.ApiKeys.DeleteApiKey(ctx, "0xPUBKEY"))
	})

	t.Run("Should manage keys with a web3signer", func(t *testing.T) {
		c, err := NewClient(ctx, &config.ClientConfig{
			Host:                   newVenue(t),
			ChainId:                config.ChainId_EthereumAnvil,
			DefaultEthereumAddress: anvilAddress,
			Signer: config.SignerConfig{
				Type:         config.SignerTypeWeb3Signer,
				RemoteSigner: &config.RemoteSignerConfig{Url: newFakeWeb3Signer(t, anvilPrivateKey)},
			},
		}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.Equal(t, []common.Address{common.HexToAddress(anvilAddress)}, c.Addresses())

		res, err := c.ApiKeys.RegisterApiKey(ctx, "0xREMOTE")
		require.NoError(t, err)
		assert.Equal(t, "0xREMOTE", res.ApiKey.Key)
	})
}

func Test_NewClient_Web3SignerHealth(t *testing.T) {
	t.Run("Should fail with a config error when the web3signer is down", func(t *testing.T) {
		var rpcCalls int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/upcheck" {
				rpcCalls++
			}
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(srv.Close)

		_, err := NewClient(context.Background(), &config.ClientConfig{
			ChainId: config.ChainId_EthereumAnvil,
			Signer: config.SignerConfig{
				Type:         config.SignerTypeWeb3Signer,
				RemoteSigner: &config.RemoteSignerConfig{Url: srv.URL},
			},
		}, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.True(t, clientErrors.IsConfigError(err))
		assert.Contains(t, err.Error(), "upcheck")
		assert.Equal(t, 0, rpcCalls)
	})
}

func Test_NewClientWithKeyHolder(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	kh := localKeyHolder.NewLocalKeyHolder(logger)
	_, err := kh.LoadPrivateKeyFromHex(anvilPrivateKey)
	require.NoError(t, err)

	t.Run("Should fail calls without a default address", func(t *testing.T) {
		c, err := NewClientWithKeyHolder(&config.ClientConfig{
			Host:    newVenue(t),
			ChainId: config.ChainId_EthereumAnvil,
		}, kh, logger)
		require.NoError(t, err)

		_, ok := c.DefaultEthereumAddress()
		assert.False(t, ok)

		_, err = c.ApiKeys.GetApiKeys(ctx)
		assert.True(t, clientErrors.IsConfigError(err))

		keys, err := c.ApiKeys.GetApiKeys(ctx, apiKeys.WithEthereumAddress(common.HexToAddress(anvilAddress)))
		require.NoError(t, err)
		assert.Empty(t, keys.ApiKeys)
	})

	t.Run("Should reject a nil key holder", func(t *testing.T) {
		_, err := NewClientWithKeyHolder(&config.ClientConfig{Host: "http://localhost:8080"}, nil, logger)
		assert.True(t, clientErrors.IsConfigError(err))
	})
}
