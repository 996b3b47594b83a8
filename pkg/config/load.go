package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadClientConfig reads a YAML config file. Environment overrides are not
// applied; see ApplyEnvOverrides.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &ClientConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnvOverrides overwrites fields of cfg with any DYDX_* variables set in
// the environment.
func ApplyEnvOverrides(cfg *ClientConfig) error {
	return ApplyOverrides(cfg, os.LookupEnv)
}

// ApplyOverrides overwrites fields of cfg from lookup, keyed by the DYDX_*
// variable names. Setting a key source also selects its signer type when none
// is configured.
func ApplyOverrides(cfg *ClientConfig, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvHost); ok {
		cfg.Host = v
	}
	if v, ok := lookup(EnvChainId); ok {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvChainId, v, err)
		}
		cfg.ChainId = ChainId(id)
	}
	if v, ok := lookup(EnvEthereumAddress); ok {
		cfg.DefaultEthereumAddress = v
	}
	if v, ok := lookup(EnvSignerType); ok {
		cfg.Signer.Type = SignerType(v)
	}
	if v, ok := lookup(EnvPrivateKey); ok && v != "" {
		cfg.Signer.PrivateKeys = append(cfg.Signer.PrivateKeys, v)
		if cfg.Signer.Type == "" {
			cfg.Signer.Type = SignerTypeLocal
		}
	}
	if v, ok := lookup(EnvKeystoreFile); ok && v != "" {
		password, _ := lookup(EnvKeystorePassword)
		cfg.Signer.KeystoreFiles = append(cfg.Signer.KeystoreFiles, KeystoreFileConfig{Path: v, Password: password})
		if cfg.Signer.Type == "" {
			cfg.Signer.Type = SignerTypeLocal
		}
	}
	if v, ok := lookup(EnvKmsKeyId); ok && v != "" {
		if cfg.Signer.AwsKms == nil {
			cfg.Signer.AwsKms = &AwsKmsConfig{}
		}
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.Signer.AwsKms.KeyIds = append(cfg.Signer.AwsKms.KeyIds, id)
			}
		}
		if cfg.Signer.Type == "" {
			cfg.Signer.Type = SignerTypeAwsKms
		}
	}
	if v, ok := lookup(EnvAwsRegion); ok {
		if cfg.Signer.AwsKms == nil {
			cfg.Signer.AwsKms = &AwsKmsConfig{}
		}
		cfg.Signer.AwsKms.Region = v
	}
	if v, ok := lookup(EnvWeb3SignerUrl); ok && v != "" {
		if cfg.Signer.RemoteSigner == nil {
			cfg.Signer.RemoteSigner = &RemoteSignerConfig{}
		}
		cfg.Signer.RemoteSigner.Url = v
		if cfg.Signer.Type == "" {
			cfg.Signer.Type = SignerTypeWeb3Signer
		}
	}
	if v, ok := lookup(EnvHttpTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvHttpTimeout, v, err)
		}
		cfg.HttpTimeout = d
	}
	if v, ok := lookup(EnvDebug); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDebug, v, err)
		}
		cfg.Debug = b
	}
	return nil
}
