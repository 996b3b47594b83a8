package offChainSigning

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"go.uber.org/zap"
)

// IKeyHolder owns private key material. Implementations must be safe for
// concurrent use; the signer does not serialize calls.
type IKeyHolder interface {
	// SignTypedData returns a 65 byte r||s||v signature over the EIP-712 digest
	// of typedData, made with the key of address.
	SignTypedData(ctx context.Context, address common.Address, typedData apitypes.TypedData) ([]byte, error)
}

// OffChainSigner signs api key actions on behalf of an account.
type OffChainSigner struct {
	keyHolder IKeyHolder
	chainId   uint64
	logger    *zap.Logger
}

func NewOffChainSigner(keyHolder IKeyHolder, chainId uint64, logger *zap.Logger) *OffChainSigner {
	return &OffChainSigner{
		keyHolder: keyHolder,
		chainId:   chainId,
		logger:    logger,
	}
}

func (s *OffChainSigner) ChainId() uint64 {
	return s.chainId
}

// Sign returns the DYDX-SIGNATURE value for action at timestamp. Key-holder
// failures are returned as-is, wrapped with the signing address.
func (s *OffChainSigner) Sign(ctx context.Context, address common.Address, action *ApiKeyAction, timestamp string) (string, error) {
	typedData := action.TypedData(s.chainId, timestamp)

	sig, err := s.keyHolder.SignTypedData(ctx, address, typedData)
	if err != nil {
		return "", fmt.Errorf("key holder failed to sign for %s: %w", address.Hex(), err)
	}

	encoded, err := EncodeSignature(sig, SignatureTypeNoPrepend)
	if err != nil {
		return "", fmt.Errorf("key holder returned an invalid signature for %s: %w", address.Hex(), err)
	}

	s.logger.Sugar().Debugw("Signed off-chain action",
		"address", address.Hex(),
		"method", action.Method(),
		"requestPath", action.RequestPath(),
		"timestamp", timestamp,
	)
	return encoded, nil
}
