package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func validConfig() *ClientConfig {
	return &ClientConfig{
		ChainId:                ChainId_EthereumGoerli,
		DefaultEthereumAddress: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		Signer: SignerConfig{
			Type:        SignerTypeLocal,
			PrivateKeys: []string{testPrivateKey},
		},
	}
}

func Test_ClientConfigValidate(t *testing.T) {
	t.Run("Should fill in defaults", func(t *testing.T) {
		cfg := validConfig()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "https://api.stage.dydx.exchange", cfg.Host)
		assert.Equal(t, DefaultHttpTimeout, cfg.HttpTimeout)

		addr, ok := cfg.GetDefaultEthereumAddress()
		assert.True(t, ok)
		assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), addr)
	})

	t.Run("Should allow a missing default address", func(t *testing.T) {
		cfg := validConfig()
		cfg.DefaultEthereumAddress = ""
		require.NoError(t, cfg.Validate())
		_, ok := cfg.GetDefaultEthereumAddress()
		assert.False(t, ok)
	})

	t.Run("Should trim a trailing slash from the host", func(t *testing.T) {
		cfg := validConfig()
		cfg.Host = "http://localhost:8080/"
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:8080", cfg.Host)
	})

	tests := []struct {
		name   string
		mutate func(*ClientConfig)
		field  string
	}{
		{name: "chain id", mutate: func(c *ClientConfig) { c.ChainId = 42 }, field: "chainId"},
		{name: "host", mutate: func(c *ClientConfig) { c.Host = "not a url" }, field: "host"},
		{name: "address", mutate: func(c *ClientConfig) { c.DefaultEthereumAddress = "0x123" }, field: "defaultEthereumAddress"},
		{name: "signer type", mutate: func(c *ClientConfig) { c.Signer.Type = "ledger" }, field: "signer.type"},
		{name: "private key length", mutate: func(c *ClientConfig) { c.Signer.PrivateKeys = []string{"0x1234"} }, field: "signer.privateKeys[0]"},
		{name: "no keys", mutate: func(c *ClientConfig) { c.Signer.PrivateKeys = nil }, field: "signer.privateKeys"},
		{name: "kms keys", mutate: func(c *ClientConfig) { c.Signer = SignerConfig{Type: SignerTypeAwsKms} }, field: "signer.awsKms.keyIds"},
		{name: "remote signer", mutate: func(c *ClientConfig) { c.Signer = SignerConfig{Type: SignerTypeWeb3Signer} }, field: "signer.remoteSigner"},
		{name: "remote signer url", mutate: func(c *ClientConfig) {
			c.Signer = SignerConfig{Type: SignerTypeWeb3Signer, RemoteSigner: &RemoteSignerConfig{}}
		}, field: "signer.remoteSigner.url"},
		{name: "timeout", mutate: func(c *ClientConfig) { c.HttpTimeout = -time.Second }, field: "httpTimeout"},
	}
	for _, tt := range tests {
		t.Run("Should reject invalid "+tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	t.Run("Should not echo private keys in errors", func(t *testing.T) {
		cfg := validConfig()
		cfg.Signer.PrivateKeys = []string{"0xdeadbeef"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "deadbeef")
	})
}

func Test_LoadClientConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
host: http://localhost:8080
chainId: 31337
defaultEthereumAddress: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
httpTimeout: 3s
signer:
  type: awsKms
  awsKms:
    keyIds: ["alias/dydx-1"]
    region: us-east-1
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ChainId_EthereumAnvil, cfg.ChainId)
	assert.Equal(t, 3*time.Second, cfg.HttpTimeout)
	assert.Equal(t, SignerTypeAwsKms, cfg.Signer.Type)
	assert.Equal(t, []string{"alias/dydx-1"}, cfg.Signer.AwsKms.KeyIds)
	assert.Equal(t, "us-east-1", cfg.Signer.AwsKms.Region)

	_, err = LoadClientConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func Test_ApplyOverrides(t *testing.T) {
	env := map[string]string{
		EnvHost:            "http://localhost:9999",
		EnvChainId:         "5",
		EnvEthereumAddress: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		EnvPrivateKey:      testPrivateKey,
		EnvHttpTimeout:     "1500ms",
		EnvDebug:           "true",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := &ClientConfig{}
	require.NoError(t, ApplyOverrides(cfg, lookup))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:9999", cfg.Host)
	assert.Equal(t, ChainId_EthereumGoerli, cfg.ChainId)
	assert.Equal(t, SignerTypeLocal, cfg.Signer.Type)
	assert.Equal(t, 1500*time.Millisecond, cfg.HttpTimeout)
	assert.True(t, cfg.Debug)

	t.Run("Should split KMS key ids", func(t *testing.T) {
		cfg := &ClientConfig{}
		require.NoError(t, ApplyOverrides(cfg, func(k string) (string, bool) {
			if k == EnvKmsKeyId {
				return "alias/a, alias/b", true
			}
			return "", false
		}))
		assert.Equal(t, SignerTypeAwsKms, cfg.Signer.Type)
		assert.Equal(t, []string{"alias/a", "alias/b"}, cfg.Signer.AwsKms.KeyIds)
	})

	t.Run("Should reject malformed values", func(t *testing.T) {
		for _, key := range []string{EnvChainId, EnvHttpTimeout, EnvDebug} {
			err := ApplyOverrides(&ClientConfig{}, func(k string) (string, bool) {
				if k == key {
					return "bogus", true
				}
				return "", false
			})
			assert.Error(t, err, key)
		}
	})

	t.Run("Should read overrides from the process environment", func(t *testing.T) {
		t.Setenv(EnvHost, "http://localhost:7777")
		t.Setenv(EnvChainId, "31337")

		cfg := validConfig()
		require.NoError(t, ApplyEnvOverrides(cfg))
		assert.Equal(t, "http://localhost:7777", cfg.Host)
		assert.Equal(t, ChainId_EthereumAnvil, cfg.ChainId)
		assert.Equal(t, SignerTypeLocal, cfg.Signer.Type)
	})
}
