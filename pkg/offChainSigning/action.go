package offChainSigning

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	Eip712DomainName    = "dYdX"
	Eip712DomainVersion = "1.0"
	Eip712PrimaryType   = "dYdX"

	// Eip712ApiKeyActionStruct documents the struct hashed for every api key action.
	Eip712ApiKeyActionStruct = "dYdX(string method,string requestPath,string body,string timestamp)"
)

var eip712Types = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
	},
	Eip712PrimaryType: {
		{Name: "method", Type: "string"},
		{Name: "requestPath", Type: "string"},
		{Name: "body", Type: "string"},
		{Name: "timestamp", Type: "string"},
	},
}

// ApiKeyAction is the signable part of an authenticated request. It is
// immutable once built; the timestamp is bound at signing time.
type ApiKeyAction struct {
	requestPath string
	method      string
	body        string
}

// NewApiKeyAction encodes a request into a signable action. requestPath must
// already carry the version prefix and any query string. A nil body is
// treated as the empty body, which still appears in the signed data as {}.
func NewApiKeyAction(requestPath string, method string, body Body) (*ApiKeyAction, error) {
	if body == nil {
		body = EmptyBody()
	}
	encoded, err := body.String()
	if err != nil {
		return nil, fmt.Errorf("failed to encode action body: %w", err)
	}
	return NewApiKeyActionFromEncodedBody(requestPath, method, encoded), nil
}

// NewApiKeyActionFromEncodedBody is used by verifiers that already hold the
// body exactly as it was sent.
func NewApiKeyActionFromEncodedBody(requestPath string, method string, encodedBody string) *ApiKeyAction {
	if encodedBody == "" {
		encodedBody = "{}"
	}
	return &ApiKeyAction{
		requestPath: requestPath,
		method:      strings.ToUpper(method),
		body:        encodedBody,
	}
}

func (a *ApiKeyAction) RequestPath() string {
	return a.requestPath
}

func (a *ApiKeyAction) Method() string {
	return a.method
}

// Body returns the canonical JSON body included in the signed data.
func (a *ApiKeyAction) Body() string {
	return a.body
}

// TypedData returns the EIP-712 structure signed for this action.
func (a *ApiKeyAction) TypedData(chainId uint64, timestamp string) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       eip712Types,
		PrimaryType: Eip712PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:    Eip712DomainName,
			Version: Eip712DomainVersion,
			ChainId: (*math.HexOrDecimal256)(new(big.Int).SetUint64(chainId)),
		},
		Message: apitypes.TypedDataMessage{
			"method":      a.method,
			"requestPath": a.requestPath,
			"body":        a.body,
			"timestamp":   timestamp,
		},
	}
}

// Hash returns the EIP-712 digest of the action bound to timestamp.
func (a *ApiKeyAction) Hash(chainId uint64, timestamp string) (common.Hash, error) {
	return HashTypedData(a.TypedData(chainId, timestamp))
}

func HashTypedData(typedData apitypes.TypedData) (common.Hash, error) {
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return common.BytesToHash(digest), nil
}
