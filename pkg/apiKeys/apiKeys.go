package apiKeys

import (
	"context"
	"net/http"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/dispatcher"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/offChainSigning"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/requestPath"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const Endpoint = "api-keys"

type (
	ApiKey          = types.ApiKey
	ApiKeysResponse = types.ApiKeysResponse
	ApiKeyResponse  = types.ApiKeyResponse
)

// IDispatcher signs and sends a call, decoding the response into out.
type IDispatcher interface {
	DoJSON(ctx context.Context, call *dispatcher.Call, out interface{}) error
}

type callOptions struct {
	ethereumAddress *common.Address
}

type Option func(*callOptions)

// WithEthereumAddress signs the call for addr instead of the default address.
func WithEthereumAddress(addr common.Address) Option {
	return func(o *callOptions) {
		o.ethereumAddress = &addr
	}
}

func applyOptions(opts []Option) *callOptions {
	o := &callOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ApiKeys manages the API keys owned by an Ethereum account.
type ApiKeys struct {
	dispatcher IDispatcher
	logger     *zap.Logger
}

func NewApiKeys(d IDispatcher, logger *zap.Logger) *ApiKeys {
	return &ApiKeys{
		dispatcher: d,
		logger:     logger,
	}
}

// GetApiKeys lists the API keys of the account.
func (a *ApiKeys) GetApiKeys(ctx context.Context, opts ...Option) (*ApiKeysResponse, error) {
	o := applyOptions(opts)

	res := &ApiKeysResponse{}
	err := a.dispatcher.DoJSON(ctx, &dispatcher.Call{
		Method:          http.MethodGet,
		Endpoint:        Endpoint,
		EthereumAddress: o.ethereumAddress,
	}, res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// RegisterApiKey registers publicKey as an API key of the account.
func (a *ApiKeys) RegisterApiKey(ctx context.Context, publicKey string, opts ...Option) (*ApiKeyResponse, error) {
	o := applyOptions(opts)

	res := &ApiKeyResponse{}
	err := a.dispatcher.DoJSON(ctx, &dispatcher.Call{
		Method:          http.MethodPost,
		Endpoint:        Endpoint,
		EthereumAddress: o.ethereumAddress,
		Body:            offChainSigning.EmptyBody().Set("apiKey", publicKey),
	}, res)
	if err != nil {
		return nil, err
	}
	a.logger.Sugar().Infow("Registered api key", "apiKey", publicKey)
	return res, nil
}

// DeleteApiKey removes publicKey from the account. The key travels as a
// query parameter and is part of the signed path.
func (a *ApiKeys) DeleteApiKey(ctx context.Context, publicKey string, opts ...Option) error {
	o := applyOptions(opts)

	err := a.dispatcher.DoJSON(ctx, &dispatcher.Call{
		Method:          http.MethodDelete,
		Endpoint:        Endpoint,
		EthereumAddress: o.ethereumAddress,
		Params:          requestPath.Params{}.Add("apiKey", publicKey),
	}, nil)
	if err != nil {
		return err
	}
	a.logger.Sugar().Infow("Deleted api key", "apiKey", publicKey)
	return nil
}
