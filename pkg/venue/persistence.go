package venue

import (
	"fmt"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/config"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/persistence"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/persistence/badger"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/persistence/memory"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/persistence/redis"
	"go.uber.org/zap"
)

// NewPersistence opens the API key store selected by cfg.
func NewPersistence(cfg *config.PersistenceConfig, logger *zap.Logger) (persistence.IApiKeyPersistence, error) {
	switch cfg.Type {
	case config.PersistenceTypeMemory, "":
		logger.Sugar().Warnw("Using in-memory persistence, all api keys are lost on restart")
		return memory.NewMemoryPersistence(), nil
	case config.PersistenceTypeBadger:
		return badger.NewBadgerPersistence(cfg.DataPath, logger)
	case config.PersistenceTypeRedis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis config is required for redis persistence")
		}
		return redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, logger)
	default:
		return nil, fmt.Errorf("unsupported persistence type %q", cfg.Type)
	}
}
