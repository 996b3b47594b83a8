package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/clientErrors"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/clock"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/offChainSigning"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/requestPath"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/transport"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrNoEthereumAddress = errors.New("no ethereum address provided and no default address configured")

// IActionSigner produces the DYDX-SIGNATURE value for an action.
type IActionSigner interface {
	Sign(ctx context.Context, address common.Address, action *offChainSigning.ApiKeyAction, timestamp string) (string, error)
}

// Call describes one authenticated request. Endpoint excludes the version
// prefix, e.g. "api-keys". Params, when set, are encoded into the signed
// request path.
type Call struct {
	Method          string
	Endpoint        string
	EthereumAddress *common.Address
	Body            offChainSigning.Body
	Params          requestPath.Params
}

type DispatcherConfig struct {
	Host string
	// DefaultEthereumAddress is used when a call does not name an address.
	DefaultEthereumAddress *common.Address
}

// Dispatcher turns a Call into a signed HTTP request. It holds no mutable
// state and is safe for concurrent use when its signer and transport are.
type Dispatcher struct {
	host           string
	defaultAddress *common.Address
	signer         IActionSigner
	transport      transport.ITransport
	clock          clock.Clock
	logger         *zap.Logger
}

func NewDispatcher(
	cfg *DispatcherConfig,
	signer IActionSigner,
	tp transport.ITransport,
	clk clock.Clock,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if tp == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if clk == nil {
		clk = clock.NewSystemClock()
	}

	var defaultAddress *common.Address
	if cfg.DefaultEthereumAddress != nil {
		addr := *cfg.DefaultEthereumAddress
		defaultAddress = &addr
	}

	return &Dispatcher{
		host:           strings.TrimRight(cfg.Host, "/"),
		defaultAddress: defaultAddress,
		signer:         signer,
		transport:      tp,
		clock:          clk,
		logger:         logger,
	}, nil
}

// DefaultEthereumAddress returns the configured default, if any.
func (d *Dispatcher) DefaultEthereumAddress() (common.Address, bool) {
	if d.defaultAddress == nil {
		return common.Address{}, false
	}
	return *d.defaultAddress, true
}

func (d *Dispatcher) resolveAddress(call *Call) (common.Address, error) {
	if call.EthereumAddress != nil {
		return *call.EthereumAddress, nil
	}
	if d.defaultAddress != nil {
		return *d.defaultAddress, nil
	}
	return common.Address{}, ErrNoEthereumAddress
}

// Do signs and sends call. Config and signing failures return before any
// network I/O; every failure is a *clientErrors.Error.
func (d *Dispatcher) Do(ctx context.Context, call *Call) (*transport.Response, error) {
	method := strings.ToUpper(call.Method)
	op := fmt.Sprintf("%s %s", method, requestPath.Versioned(call.Endpoint))

	address, err := d.resolveAddress(call)
	if err != nil {
		return nil, clientErrors.NewConfigError(op, err)
	}

	path := call.Endpoint
	if len(call.Params) > 0 {
		path = requestPath.GenerateQueryPath(call.Endpoint, call.Params)
	}
	path = requestPath.Versioned(path)

	body := call.Body
	if body == nil {
		body = offChainSigning.EmptyBody()
	}

	timestamp := d.clock.Now()
	action, err := offChainSigning.NewApiKeyAction(path, method, body)
	if err != nil {
		return nil, clientErrors.NewSigningError(op, err)
	}

	signature, err := d.signer.Sign(ctx, address, action, timestamp)
	if err != nil {
		return nil, clientErrors.NewSigningError(op, err)
	}

	var reqBody []byte
	if !body.IsEmpty() {
		reqBody = []byte(action.Body())
	}

	requestId := uuid.New().String()
	d.logger.Sugar().Debugw("Dispatching signed request",
		"requestId", requestId,
		"method", method,
		"path", path,
		"ethereumAddress", address.Hex(),
		"timestamp", timestamp,
	)

	resp, err := d.transport.Send(ctx, &transport.Request{
		Url:    d.host + path,
		Method: method,
		Headers: map[string]string{
			types.HeaderSignature:       signature,
			types.HeaderTimestamp:       timestamp,
			types.HeaderEthereumAddress: address.Hex(),
		},
		Body: reqBody,
	})
	if err != nil {
		d.logger.Sugar().Warnw("Signed request failed",
			"requestId", requestId,
			"method", method,
			"path", path,
			"error", err,
		)
		var apiErr *clientErrors.ApiError
		if !errors.As(err, &apiErr) {
			apiErr = &clientErrors.ApiError{Message: err.Error(), Err: err}
		}
		return nil, clientErrors.NewApiError(op, apiErr)
	}

	d.logger.Sugar().Debugw("Signed request succeeded",
		"requestId", requestId,
		"status_code", resp.StatusCode,
	)
	return resp, nil
}

// DoJSON is Do followed by decoding a non-empty response body into out.
// A nil out discards the body.
func (d *Dispatcher) DoJSON(ctx context.Context, call *Call, out interface{}) error {
	resp, err := d.Do(ctx, call)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		op := fmt.Sprintf("%s %s", strings.ToUpper(call.Method), requestPath.Versioned(call.Endpoint))
		return clientErrors.NewApiError(op, &clientErrors.ApiError{
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			Message:    fmt.Sprintf("failed to decode response: %v", err),
			Err:        err,
		})
	}
	return nil
}
