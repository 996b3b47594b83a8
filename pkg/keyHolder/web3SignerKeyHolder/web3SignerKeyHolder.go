package web3SignerKeyHolder

import (
	"context"
	"fmt"
	"strings"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/offChainSigning"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"go.uber.org/zap"
)

// Web3SignerKeyHolder delegates signing to a remote Web3Signer instance.
type Web3SignerKeyHolder struct {
	client web3signer.IWeb3Signer
	logger *zap.Logger
}

var _ offChainSigning.IKeyHolder = (*Web3SignerKeyHolder)(nil)

func NewWeb3SignerKeyHolder(client web3signer.IWeb3Signer, logger *zap.Logger) *Web3SignerKeyHolder {
	return &Web3SignerKeyHolder{
		client: client,
		logger: logger,
	}
}

func (w *Web3SignerKeyHolder) SignTypedData(ctx context.Context, address common.Address, typedData apitypes.TypedData) ([]byte, error) {
	sigHex, err := w.client.EthSignTypedData(ctx, address.Hex(), typedData)
	if err != nil {
		return nil, fmt.Errorf("web3signer failed to sign for %s: %w", address.Hex(), err)
	}
	if !strings.HasPrefix(sigHex, "0x") {
		sigHex = "0x" + sigHex
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return nil, fmt.Errorf("web3signer returned a malformed signature: %w", err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("web3signer returned a %d byte signature, expected 65", len(sig))
	}

	w.logger.Sugar().Debugw("Signed typed data with Web3Signer", "address", address.Hex())
	return sig, nil
}

// Addresses lists the accounts the remote signer holds keys for.
func (w *Web3SignerKeyHolder) Addresses(ctx context.Context) ([]common.Address, error) {
	accounts, err := w.client.EthAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list web3signer accounts: %w", err)
	}
	addrs := make([]common.Address, 0, len(accounts))
	for _, account := range accounts {
		if !common.IsHexAddress(account) {
			return nil, fmt.Errorf("web3signer returned invalid account %q", account)
		}
		addrs = append(addrs, common.HexToAddress(account))
	}
	return addrs, nil
}
