package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/apiKeys"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/client"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/config"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "dydx-api-keys",
		Usage: "Manage dYdX API keys with an Ethereum account",
		Description: `Lists, registers and deletes API keys. Every request is signed off-chain
with EIP-712 by a local key, an AWS KMS key or a Web3Signer.`,
		Version: "1.0.0",
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the account's API keys",
				Action: withClient(listAction),
			},
			{
				Name:  "register",
				Usage: "Register an API key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-key", Usage: "API key public key", Required: true},
				},
				Action: withClient(registerAction),
			},
			{
				Name:  "delete",
				Usage: "Delete an API key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-key", Usage: "API key public key", Required: true},
				},
				Action: withClient(deleteAction),
			},
			{
				Name:   "address",
				Usage:  "Print the accounts the signer can sign for",
				Action: withClient(addressAction),
			},
		},
	}
	app.Commands = append(app.Commands, keyCommands()...)

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file",
			EnvVars: []string{config.EnvConfigFile},
		},
		&cli.StringFlag{
			Name:    "host",
			Usage:   "Venue API host; defaults per chain",
			EnvVars: []string{config.EnvHost},
		},
		&cli.Uint64Flag{
			Name:    "chain-id",
			Aliases: []string{"chain"},
			Usage:   fmt.Sprintf("Ethereum chain ID: %s", config.GetSupportedChainIDsString()),
			EnvVars: []string{config.EnvChainId},
		},
		&cli.StringFlag{
			Name:    "ethereum-address",
			Aliases: []string{"addr"},
			Usage:   "Account to sign for; defaults to the signer's only account",
			EnvVars: []string{config.EnvEthereumAddress},
		},
		&cli.StringFlag{
			Name:    "signer-type",
			Usage:   "local, awsKms or web3signer",
			EnvVars: []string{config.EnvSignerType},
		},
		&cli.StringFlag{
			Name:    "private-key",
			Usage:   "Hex secp256k1 private key for the local signer",
			EnvVars: []string{config.EnvPrivateKey},
		},
		&cli.StringFlag{
			Name:    "keystore",
			Usage:   "Encrypted keystore file for the local signer",
			EnvVars: []string{config.EnvKeystoreFile},
		},
		&cli.StringFlag{
			Name:    "keystore-password",
			Usage:   "Keystore password",
			EnvVars: []string{config.EnvKeystorePassword},
		},
		&cli.StringFlag{
			Name:    "kms-key",
			Usage:   "AWS KMS key ids, ARNs or aliases, comma separated",
			EnvVars: []string{config.EnvKmsKeyId},
		},
		&cli.StringFlag{
			Name:    "aws-region",
			Usage:   "AWS region of the KMS keys",
			EnvVars: []string{config.EnvAwsRegion},
		},
		&cli.StringFlag{
			Name:    "web3signer-url",
			Usage:   "Web3Signer base URL",
			EnvVars: []string{config.EnvWeb3SignerUrl},
		},
		&cli.DurationFlag{
			Name:    "http-timeout",
			Usage:   "Venue request timeout",
			EnvVars: []string{config.EnvHttpTimeout},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "Enable verbose logging",
			EnvVars: []string{config.EnvDebug},
		},
	}
}

// flagEnvVars maps each config flag to the variable name ApplyOverrides keys on.
var flagEnvVars = map[string]string{
	config.EnvHost:             "host",
	config.EnvChainId:          "chain-id",
	config.EnvEthereumAddress:  "ethereum-address",
	config.EnvSignerType:       "signer-type",
	config.EnvPrivateKey:       "private-key",
	config.EnvKeystoreFile:     "keystore",
	config.EnvKeystorePassword: "keystore-password",
	config.EnvKmsKeyId:         "kms-key",
	config.EnvAwsRegion:        "aws-region",
	config.EnvWeb3SignerUrl:    "web3signer-url",
	config.EnvHttpTimeout:      "http-timeout",
	config.EnvDebug:            "verbose",
}

// parseClientConfig loads the config file, if any, then applies flags and
// their environment variables on top.
func parseClientConfig(c *cli.Context) (*config.ClientConfig, error) {
	cfg := &config.ClientConfig{}
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadClientConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	err := config.ApplyOverrides(cfg, func(name string) (string, bool) {
		flag, ok := flagEnvVars[name]
		if !ok || !c.IsSet(flag) {
			return "", false
		}
		return fmt.Sprint(c.Value(flag)), true
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

type clientAction func(c *cli.Context, apiClient *client.Client, opts []apiKeys.Option) error

func withClient(action clientAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := parseClientConfig(c)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() { _ = l.Sync() }()

		apiClient, err := client.NewClient(c.Context, cfg, l)
		if err != nil {
			return err
		}

		// with no configured default, a signer holding exactly one key signs for it
		var opts []apiKeys.Option
		if _, ok := apiClient.DefaultEthereumAddress(); !ok {
			if addrs := apiClient.Addresses(); len(addrs) == 1 {
				opts = append(opts, apiKeys.WithEthereumAddress(addrs[0]))
			}
		}
		return action(c, apiClient, opts)
	}
}

func listAction(c *cli.Context, apiClient *client.Client, opts []apiKeys.Option) error {
	res, err := apiClient.ApiKeys.GetApiKeys(c.Context, opts...)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func registerAction(c *cli.Context, apiClient *client.Client, opts []apiKeys.Option) error {
	res, err := apiClient.ApiKeys.RegisterApiKey(c.Context, c.String("api-key"), opts...)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func deleteAction(c *cli.Context, apiClient *client.Client, opts []apiKeys.Option) error {
	if err := apiClient.ApiKeys.DeleteApiKey(c.Context, c.String("api-key"), opts...); err != nil {
		return err
	}
	return printJSON(map[string]string{"deleted": c.String("api-key")})
}

func addressAction(_ *cli.Context, apiClient *client.Client, _ []apiKeys.Option) error {
	addrs := apiClient.Addresses()
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, addr.Hex())
	}
	res := map[string]interface{}{"addresses": out}
	if addr, ok := apiClient.DefaultEthereumAddress(); ok && addr != (common.Address{}) {
		res["default"] = addr.Hex()
	}
	return printJSON(res)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
