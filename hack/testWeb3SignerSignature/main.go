package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/config"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/keyHolder/localKeyHolder"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/keyHolder/web3SignerKeyHolder"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/logger"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/offChainSigning"
)

// Signs the same api key action through a running Web3Signer and through the
// matching local private key, then checks both recover the same account.
func main() {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	ctx := context.Background()

	privateKeyStr := os.Getenv(config.EnvPrivateKey)
	if privateKeyStr == "" {
		l.Sugar().Fatal("DYDX_PRIVATE_KEY environment variable is not set")
	}
	url := os.Getenv(config.EnvWeb3SignerUrl)
	if url == "" {
		url = "http://localhost:9100"
	}

	local := localKeyHolder.NewLocalKeyHolder(l)
	address, err := local.LoadPrivateKeyFromHex(privateKeyStr)
	if err != nil {
		l.Sugar().Fatalf("failed to parse private key: %v", err)
	}

	web3SignerClient, err := web3signer.NewWeb3SignerClientFromRemoteSignerConfig(&config.RemoteSignerConfig{Url: url}, l)
	if err != nil {
		l.Sugar().Fatalw("failed to create Web3Signer client", "error", err)
	}
	remote := web3SignerKeyHolder.NewWeb3SignerKeyHolder(web3SignerClient, l)

	chainId := uint64(config.ChainId_EthereumGoerli)
	action, err := offChainSigning.NewApiKeyAction("/v3/api-keys", "POST", offChainSigning.EmptyBody().Set("apiKey", "0x04test"))
	if err != nil {
		l.Sugar().Fatalw("failed to build action", "error", err)
	}
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	sigWeb3, err := offChainSigning.NewOffChainSigner(remote, chainId, l).Sign(ctx, address, action, timestamp)
	if err != nil {
		l.Sugar().Fatalw("failed to sign with Web3Signer", "error", err)
	}
	sigLocal, err := offChainSigning.NewOffChainSigner(local, chainId, l).Sign(ctx, address, action, timestamp)
	if err != nil {
		l.Sugar().Fatalw("failed to sign with private key", "error", err)
	}

	fmt.Printf("Account:                 %s\n", address.Hex())
	fmt.Printf("Signature (Web3Signer):  %s\n", sigWeb3)
	fmt.Printf("Signature (Private Key): %s\n", sigLocal)

	for name, sig := range map[string]string{"Web3Signer": sigWeb3, "Private Key": sigLocal} {
		ok, err := offChainSigning.VerifySignature(address, action, chainId, timestamp, sig)
		if err != nil || !ok {
			fmt.Printf("%s signature does not verify: %v\n", name, err)
			os.Exit(1)
		}
	}
	fmt.Println("Both signatures verify!")
}
