package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for client configuration
const (
	EnvConfigFile       = "DYDX_CONFIG"
	EnvHost             = "DYDX_HOST"
	EnvChainId          = "DYDX_CHAIN_ID"
	EnvEthereumAddress  = "DYDX_ETHEREUM_ADDRESS"
	EnvSignerType       = "DYDX_SIGNER_TYPE"
	EnvPrivateKey       = "DYDX_PRIVATE_KEY"
	EnvKeystoreFile     = "DYDX_KEYSTORE_FILE"
	EnvKeystorePassword = "DYDX_KEYSTORE_PASSWORD"
	EnvKmsKeyId         = "DYDX_KMS_KEY_ID"
	EnvAwsRegion        = "DYDX_AWS_REGION"
	EnvWeb3SignerUrl    = "DYDX_WEB3SIGNER_URL"
	EnvHttpTimeout      = "DYDX_HTTP_TIMEOUT"
	EnvDebug            = "DYDX_DEBUG"
)

const (
	DefaultHttpTimeout  = 10 * time.Second
	DefaultKmsRateLimit = 10.0
	DefaultKmsRateBurst = 5
)

type ChainId uint

const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_EthereumRopsten ChainId = 3
	ChainId_EthereumGoerli  ChainId = 5
	ChainId_EthereumAnvil   ChainId = 31337
)

type ChainName string

const (
	ChainName_EthereumMainnet ChainName = "mainnet"
	ChainName_EthereumRopsten ChainName = "ropsten"
	ChainName_EthereumGoerli  ChainName = "goerli"
	ChainName_EthereumAnvil   ChainName = "devnet"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_EthereumMainnet: ChainName_EthereumMainnet,
	ChainId_EthereumRopsten: ChainName_EthereumRopsten,
	ChainId_EthereumGoerli:  ChainName_EthereumGoerli,
	ChainId_EthereumAnvil:   ChainName_EthereumAnvil,
}

// DefaultHosts maps each chain to the venue API that settles on it.
var DefaultHosts = map[ChainId]string{
	ChainId_EthereumMainnet: "https://api.dydx.exchange",
	ChainId_EthereumRopsten: "https://api.stage.dydx.exchange",
	ChainId_EthereumGoerli:  "https://api.stage.dydx.exchange",
	ChainId_EthereumAnvil:   "http://localhost:8080",
}

func GetDefaultHostForChainId(chainId ChainId) (string, error) {
	host, ok := DefaultHosts[chainId]
	if !ok {
		return "", fmt.Errorf("unsupported chain ID: %d", chainId)
	}
	return host, nil
}

// GetSupportedChainIDsString returns supported chain IDs as strings for CLI help
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (mainnet), %d (ropsten), %d (goerli), %d (anvil)",
		ChainId_EthereumMainnet, ChainId_EthereumRopsten, ChainId_EthereumGoerli, ChainId_EthereumAnvil)
}

type SignerType string

const (
	SignerTypeLocal      SignerType = "local"
	SignerTypeAwsKms     SignerType = "awsKms"
	SignerTypeWeb3Signer SignerType = "web3signer"
)

type KeystoreFileConfig struct {
	Path     string `json:"path" yaml:"path"`
	Password string `json:"password" yaml:"password"`
}

type AwsKmsConfig struct {
	KeyIds            []string `json:"keyIds" yaml:"keyIds"`
	Region            string   `json:"region" yaml:"region"`
	RequestsPerSecond float64  `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int      `json:"burst" yaml:"burst"`
}

type RemoteSignerConfig struct {
	Url     string        `json:"url" yaml:"url"`
	CACert  string        `json:"caCert" yaml:"caCert"`
	Cert    string        `json:"cert" yaml:"cert"`
	Key     string        `json:"key" yaml:"key"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

func (rsc *RemoteSignerConfig) Validate() error {
	return rsc.validate(field.NewPath("remoteSigner")).ToAggregate()
}

func (rsc *RemoteSignerConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	if rsc.Url == "" {
		allErrors = append(allErrors, field.Required(path.Child("url"), "url is required"))
	} else if u, err := url.ParseRequestURI(rsc.Url); err != nil || u.Host == "" {
		allErrors = append(allErrors, field.Invalid(path.Child("url"), rsc.Url, "url must be an absolute URL"))
	}
	if (rsc.Cert == "") != (rsc.Key == "") {
		allErrors = append(allErrors, field.Invalid(path.Child("cert"), rsc.Cert, "cert and key must be set together"))
	}
	return allErrors
}

// SignerConfig selects and configures the key holder.
type SignerConfig struct {
	Type          SignerType           `json:"type" yaml:"type"`
	PrivateKeys   []string             `json:"privateKeys" yaml:"privateKeys"`
	KeystoreFiles []KeystoreFileConfig `json:"keystoreFiles" yaml:"keystoreFiles"`
	AwsKms        *AwsKmsConfig        `json:"awsKms" yaml:"awsKms"`
	RemoteSigner  *RemoteSignerConfig  `json:"remoteSigner" yaml:"remoteSigner"`
}

func (sc *SignerConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch sc.Type {
	case SignerTypeLocal:
		if len(sc.PrivateKeys) == 0 && len(sc.KeystoreFiles) == 0 {
			allErrors = append(allErrors, field.Required(path.Child("privateKeys"), "at least one private key or keystore file is required"))
		}
		for i, pk := range sc.PrivateKeys {
			key := strings.TrimPrefix(strings.TrimSpace(pk), "0x")
			if len(key) != 64 {
				// never echo key material back
				allErrors = append(allErrors, field.Invalid(path.Child("privateKeys").Index(i), "<redacted>",
					fmt.Sprintf("private key must be 32 bytes (64 hex chars), got %d chars", len(key))))
			}
		}
		for i, ks := range sc.KeystoreFiles {
			if ks.Path == "" {
				allErrors = append(allErrors, field.Required(path.Child("keystoreFiles").Index(i).Child("path"), "path is required"))
			}
		}
	case SignerTypeAwsKms:
		if sc.AwsKms == nil || len(sc.AwsKms.KeyIds) == 0 {
			allErrors = append(allErrors, field.Required(path.Child("awsKms", "keyIds"), "at least one KMS key id is required"))
		}
	case SignerTypeWeb3Signer:
		if sc.RemoteSigner == nil {
			allErrors = append(allErrors, field.Required(path.Child("remoteSigner"), "remoteSigner is required"))
		} else {
			allErrors = append(allErrors, sc.RemoteSigner.validate(path.Child("remoteSigner"))...)
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), sc.Type,
			[]string{string(SignerTypeLocal), string(SignerTypeAwsKms), string(SignerTypeWeb3Signer)}))
	}
	return allErrors
}

// ClientConfig is the complete configuration of an api key client.
type ClientConfig struct {
	Host    string  `json:"host" yaml:"host"`
	ChainId ChainId `json:"chainId" yaml:"chainId"`

	// DefaultEthereumAddress signs every call that does not name an address.
	// Optional: calls with neither fail with a config error.
	DefaultEthereumAddress string `json:"defaultEthereumAddress" yaml:"defaultEthereumAddress"`

	Signer SignerConfig `json:"signer" yaml:"signer"`

	HttpTimeout time.Duration `json:"httpTimeout" yaml:"httpTimeout"`
	Debug       bool          `json:"debug" yaml:"debug"`
}

// Validate checks the configuration and fills in defaults for the host and
// HTTP timeout.
func (c *ClientConfig) Validate() error {
	var allErrors field.ErrorList

	if _, ok := ChainIdToName[c.ChainId]; !ok {
		allErrors = append(allErrors, field.Invalid(field.NewPath("chainId"), c.ChainId,
			fmt.Sprintf("unsupported chain ID. Supported: %s", GetSupportedChainIDsString())))
	} else if c.Host == "" {
		c.Host, _ = GetDefaultHostForChainId(c.ChainId)
	}

	if c.Host != "" {
		if u, err := url.ParseRequestURI(c.Host); err != nil || u.Host == "" {
			allErrors = append(allErrors, field.Invalid(field.NewPath("host"), c.Host, "host must be an absolute URL"))
		}
		c.Host = strings.TrimRight(c.Host, "/")
	}

	if c.DefaultEthereumAddress != "" && !common.IsHexAddress(c.DefaultEthereumAddress) {
		allErrors = append(allErrors, field.Invalid(field.NewPath("defaultEthereumAddress"), c.DefaultEthereumAddress, "invalid address format"))
	}

	allErrors = append(allErrors, c.Signer.validate(field.NewPath("signer"))...)

	if c.HttpTimeout < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("httpTimeout"), c.HttpTimeout.String(), "must not be negative"))
	} else if c.HttpTimeout == 0 {
		c.HttpTimeout = DefaultHttpTimeout
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// GetDefaultEthereumAddress returns the configured default address, if any.
func (c *ClientConfig) GetDefaultEthereumAddress() (common.Address, bool) {
	if c.DefaultEthereumAddress == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(c.DefaultEthereumAddress), true
}
