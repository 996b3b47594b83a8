package client

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/dydx-api-keys-go/internal/aws"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/apiKeys"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/clientErrors"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/clock"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/config"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/dispatcher"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/keyHolder/awsKmsKeyHolder"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/keyHolder/localKeyHolder"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/keyHolder/web3SignerKeyHolder"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/offChainSigning"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/transport"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const opNewClient = "NewClient"

// Client bundles the signer, transport and dispatcher for one venue and
// exposes the API key operations.
type Client struct {
	ApiKeys *apiKeys.ApiKeys

	dispatcher *dispatcher.Dispatcher
	addresses  []common.Address
	logger     *zap.Logger
}

// NewClient validates cfg, builds the configured key holder and wires the
// dispatcher. Failures are config errors.
func NewClient(ctx context.Context, cfg *config.ClientConfig, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, clientErrors.NewConfigError(opNewClient, fmt.Errorf("config cannot be nil"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, clientErrors.NewConfigError(opNewClient, err)
	}

	kh, addresses, err := newKeyHolder(ctx, &cfg.Signer, logger)
	if err != nil {
		return nil, clientErrors.NewConfigError(opNewClient, err)
	}
	return newClient(cfg, kh, addresses, transport.NewClient(cfg.HttpTimeout, logger), logger)
}

// NewClientWithKeyHolder wires a client around an existing key holder,
// ignoring cfg.Signer.
func NewClientWithKeyHolder(cfg *config.ClientConfig, kh offChainSigning.IKeyHolder, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, clientErrors.NewConfigError(opNewClient, fmt.Errorf("config cannot be nil"))
	}
	if kh == nil {
		return nil, clientErrors.NewConfigError(opNewClient, fmt.Errorf("key holder cannot be nil"))
	}
	return newClient(cfg, kh, nil, transport.NewClient(cfg.HttpTimeout, logger), logger)
}

func newClient(
	cfg *config.ClientConfig,
	kh offChainSigning.IKeyHolder,
	addresses []common.Address,
	tp transport.ITransport,
	logger *zap.Logger,
) (*Client, error) {
	dispatcherCfg := &dispatcher.DispatcherConfig{Host: cfg.Host}
	if addr, ok := cfg.GetDefaultEthereumAddress(); ok {
		dispatcherCfg.DefaultEthereumAddress = &addr
	}

	signer := offChainSigning.NewOffChainSigner(kh, uint64(cfg.ChainId), logger)
	d, err := dispatcher.NewDispatcher(
		dispatcherCfg,
		signer,
		tp,
		clock.NewSystemClock(),
		logger,
	)
	if err != nil {
		return nil, clientErrors.NewConfigError(opNewClient, err)
	}

	logger.Sugar().Infow("Created api key client",
		"host", cfg.Host,
		"chainId", signer.ChainId(),
		"signerType", cfg.Signer.Type,
		"addresses", len(addresses),
	)

	return &Client{
		ApiKeys:    apiKeys.NewApiKeys(d, logger),
		dispatcher: d,
		addresses:  addresses,
		logger:     logger,
	}, nil
}

// Addresses returns the accounts the key holder can sign for, when known.
func (c *Client) Addresses() []common.Address {
	out := make([]common.Address, len(c.addresses))
	copy(out, c.addresses)
	return out
}

// DefaultEthereumAddress returns the configured default account, if any.
func (c *Client) DefaultEthereumAddress() (common.Address, bool) {
	return c.dispatcher.DefaultEthereumAddress()
}

func newKeyHolder(ctx context.Context, cfg *config.SignerConfig, logger *zap.Logger) (offChainSigning.IKeyHolder, []common.Address, error) {
	switch cfg.Type {
	case config.SignerTypeLocal:
		return newLocalKeyHolder(cfg, logger)
	case config.SignerTypeAwsKms:
		return newAwsKmsKeyHolder(ctx, cfg.AwsKms, logger)
	case config.SignerTypeWeb3Signer:
		return newWeb3SignerKeyHolder(ctx, cfg.RemoteSigner, logger)
	default:
		return nil, nil, fmt.Errorf("unsupported signer type %q", cfg.Type)
	}
}

func newLocalKeyHolder(cfg *config.SignerConfig, logger *zap.Logger) (offChainSigning.IKeyHolder, []common.Address, error) {
	kh := localKeyHolder.NewLocalKeyHolder(logger)
	for i, pk := range cfg.PrivateKeys {
		if _, err := kh.LoadPrivateKeyFromHex(pk); err != nil {
			return nil, nil, fmt.Errorf("failed to load private key %d: %w", i, err)
		}
	}
	for _, ks := range cfg.KeystoreFiles {
		if _, err := kh.LoadKeystoreFile(ks.Path, ks.Password); err != nil {
			return nil, nil, fmt.Errorf("failed to load keystore %s: %w", ks.Path, err)
		}
	}
	return kh, kh.Addresses(), nil
}

func newAwsKmsKeyHolder(ctx context.Context, cfg *config.AwsKmsConfig, logger *zap.Logger) (offChainSigning.IKeyHolder, []common.Address, error) {
	awsCfg, err := aws.LoadAWSConfig(ctx, cfg.Region)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if arn, err := aws.GetCallerIdentity(ctx, awsCfg); err != nil {
		logger.Sugar().Warnw("Failed to resolve AWS caller identity", "error", err)
	} else {
		logger.Sugar().Infow("Using AWS identity", "arn", arn)
	}

	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = config.DefaultKmsRateLimit
	}
	burst := cfg.Burst
	if burst == 0 {
		burst = config.DefaultKmsRateBurst
	}

	kh := awsKmsKeyHolder.NewAWSKMSKeyHolderFromConfig(awsCfg, &awsKmsKeyHolder.Config{
		KeyIds:            cfg.KeyIds,
		RequestsPerSecond: rps,
		Burst:             burst,
	}, logger)
	addresses, err := kh.RegisterKeys(ctx, cfg.KeyIds)
	if err != nil {
		return nil, nil, err
	}
	return kh, addresses, nil
}

func newWeb3SignerKeyHolder(ctx context.Context, cfg *config.RemoteSignerConfig, logger *zap.Logger) (offChainSigning.IKeyHolder, []common.Address, error) {
	signerClient, err := web3signer.NewWeb3SignerClientFromRemoteSignerConfig(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create web3signer client: %w", err)
	}
	if err := signerClient.Upcheck(ctx); err != nil {
		return nil, nil, err
	}
	kh := web3SignerKeyHolder.NewWeb3SignerKeyHolder(signerClient, logger)

	addresses, err := kh.Addresses(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list web3signer accounts: %w", err)
	}
	return kh, addresses, nil
}
