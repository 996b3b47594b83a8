package main

import (
	"fmt"

	"github.com/Layr-Labs/dydx-api-keys-go/internal/aws"
	"github.com/Layr-Labs/dydx-api-keys-go/internal/keyGenerator"
	"github.com/Layr-Labs/dydx-api-keys-go/internal/keyGenerator/awsKms"
	"github.com/Layr-Labs/dydx-api-keys-go/internal/keyGenerator/localKeyGenerator"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/config"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/logger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func keyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "generate-key",
			Usage: "Generate a secp256k1 key pair locally",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Usage: "Key name", Value: "api-key"},
				&cli.StringFlag{Name: "keystore-dir", Usage: "Write the private key to an encrypted keystore in this directory instead of printing it"},
				&cli.StringFlag{Name: "password", Usage: "Keystore password", EnvVars: []string{config.EnvKeystorePassword}},
			},
			Action: generateKeyAction,
		},
		{
			Name:  "create-kms-key",
			Usage: "Create an AWS KMS secp256k1 key for the awsKms signer",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Usage: "Key name tag", Required: true},
				&cli.StringFlag{Name: "alias", Usage: "Alias to create, without the alias/ prefix"},
			},
			Action: createKmsKeyAction,
		},
	}
}

func commandLogger(c *cli.Context) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

func generateKeyAction(c *cli.Context) error {
	l, err := commandLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	gen := localKeyGenerator.NewLocalKeyGenerator(l)
	key, err := gen.GenerateECDSAKey(c.Context, c.String("name"), "")
	if err != nil {
		return err
	}

	out, err := describeKey(key)
	if err != nil {
		return err
	}

	if dir := c.String("keystore-dir"); dir != "" {
		if c.String("password") == "" {
			return fmt.Errorf("a keystore password is required")
		}
		path, err := gen.ExportKeystore(key.KeyId, dir, c.String("password"))
		if err != nil {
			return err
		}
		out["keystore"] = path
	} else {
		privHex, err := key.GetPrivateKeyHex()
		if err != nil {
			return err
		}
		out["privateKey"] = privHex
	}
	return printJSON(out)
}

func createKmsKeyAction(c *cli.Context) error {
	l, err := commandLogger(c)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	chainId := config.ChainId(c.Uint64("chain-id"))
	if !c.IsSet("chain-id") {
		chainId = config.ChainId_EthereumMainnet
	}

	awsCfg, err := aws.LoadAWSConfig(c.Context, c.String("aws-region"))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	gen := awsKms.NewAWSKMSKeyGeneratorFromConfig(awsCfg, chainId, l)
	key, err := gen.GenerateECDSAKey(c.Context, c.String("name"), c.String("alias"))
	if err != nil {
		return err
	}

	out, err := describeKey(key)
	if err != nil {
		return err
	}
	out["keyId"] = key.KeyId
	return printJSON(out)
}

func describeKey(key *keyGenerator.GeneratedECDSAKey) (map[string]string, error) {
	pubHex, err := key.GetPublicKeyHex()
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"publicKey": pubHex,
		"address":   key.Address.Hex(),
	}, nil
}
