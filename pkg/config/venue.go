package config

import (
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the mock venue
const (
	EnvVenuePort            = "DYDX_VENUE_PORT"
	EnvVenueChainId         = "DYDX_VENUE_CHAIN_ID"
	EnvVenuePersistenceType = "DYDX_VENUE_PERSISTENCE_TYPE"
	EnvVenueDataPath        = "DYDX_VENUE_DATA_PATH"
	EnvVenueRedisAddress    = "DYDX_VENUE_REDIS_ADDRESS"
	EnvVenueRedisPassword   = "DYDX_VENUE_REDIS_PASSWORD"
	EnvVenueRedisDB         = "DYDX_VENUE_REDIS_DB"
	EnvVenueMaxAge          = "DYDX_VENUE_MAX_AGE"
	EnvVenueDebug           = "DYDX_VENUE_DEBUG"
)

const DefaultVenuePort = 8080

type PersistenceType string

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

type PersistenceConfig struct {
	Type     PersistenceType `json:"type" yaml:"type"`
	DataPath string          `json:"dataPath" yaml:"dataPath"`
	Redis    *RedisConfig    `json:"redis" yaml:"redis"`
}

// VenueConfig configures the local mock venue.
type VenueConfig struct {
	Port        int               `json:"port" yaml:"port"`
	ChainId     ChainId           `json:"chainId" yaml:"chainId"`
	Persistence PersistenceConfig `json:"persistence" yaml:"persistence"`
	MaxAge      time.Duration     `json:"maxAge" yaml:"maxAge"`
	Debug       bool              `json:"debug" yaml:"debug"`
}

// Validate checks the configuration, defaulting the port and persistence type.
func (vc *VenueConfig) Validate() error {
	var allErrors field.ErrorList

	if vc.Port == 0 {
		vc.Port = DefaultVenuePort
	} else if vc.Port < 0 || vc.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), vc.Port, "must be between 1 and 65535"))
	}

	if _, ok := ChainIdToName[vc.ChainId]; !ok {
		allErrors = append(allErrors, field.Invalid(field.NewPath("chainId"), vc.ChainId,
			fmt.Sprintf("unsupported chain ID. Supported: %s", GetSupportedChainIDsString())))
	}

	if vc.MaxAge < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("maxAge"), vc.MaxAge.String(), "must not be negative"))
	}

	persistencePath := field.NewPath("persistence")
	if vc.Persistence.Type == "" {
		vc.Persistence.Type = PersistenceTypeMemory
	}
	switch vc.Persistence.Type {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if vc.Persistence.DataPath == "" {
			allErrors = append(allErrors, field.Required(persistencePath.Child("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		if vc.Persistence.Redis == nil || vc.Persistence.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(persistencePath.Child("redis", "address"), "redis address is required for redis persistence"))
		} else if vc.Persistence.Redis.DB < 0 || vc.Persistence.Redis.DB > 15 {
			allErrors = append(allErrors, field.Invalid(persistencePath.Child("redis", "db"), vc.Persistence.Redis.DB, "must be between 0 and 15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(persistencePath.Child("type"), vc.Persistence.Type,
			[]string{string(PersistenceTypeMemory), string(PersistenceTypeBadger), string(PersistenceTypeRedis)}))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
