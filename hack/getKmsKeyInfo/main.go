package main

import (
	"context"
	"os"

	"github.com/Layr-Labs/dydx-api-keys-go/internal/aws"
	"github.com/Layr-Labs/dydx-api-keys-go/internal/keyGenerator/awsKms"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/config"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/logger"
)

func main() {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	awsCfg, err := aws.LoadAWSConfig(context.Background(), os.Getenv(config.EnvAwsRegion))
	if err != nil {
		panic(err)
	}

	keyId := os.Getenv("KEY_ID")
	if keyId == "" {
		l.Sugar().Fatal("KEY_ID environment variable is not set")
	}

	keyGen := awsKms.NewAWSKMSKeyGeneratorFromConfig(awsCfg, config.ChainId_EthereumMainnet, l)

	key, err := keyGen.GetECDSAKeyById(context.Background(), keyId)
	if err != nil {
		l.Sugar().Fatalw("failed to get ECDSA key", "error", err)
	}

	pubKeyHex, err := key.GetPublicKeyHex()
	if err != nil {
		l.Sugar().Fatalw("failed to get public key hex", "error", err)
	}

	pubKeyHexUnprefixed, err := key.GetPublicKeyHexUnprefixed()
	if err != nil {
		l.Sugar().Fatalw("failed to get unprefixed public key hex", "error", err)
	}

	l.Sugar().Infow("KMS key",
		"keyId", key.KeyId,
		"publicKeyHex", pubKeyHex,
		"publicKeyHexUnprefixed", pubKeyHexUnprefixed,
		"address", key.Address.Hex(),
	)
}
