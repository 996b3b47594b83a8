package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Layr-Labs/dydx-api-keys-go/pkg/config"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/logger"
	"github.com/Layr-Labs/dydx-api-keys-go/pkg/venue"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "mock-venue",
		Usage: "Local dYdX-style API key venue",
		Description: `Serves GET, POST and DELETE /v3/api-keys behind DYDX-SIGNATURE
authentication, storing keys in memory, Badger or Redis.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   config.DefaultVenuePort,
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvVenuePort},
			},
			&cli.Uint64Flag{
				Name:    "chain-id",
				Aliases: []string{"chain"},
				Value:   uint64(config.ChainId_EthereumAnvil),
				Usage:   fmt.Sprintf("Chain ID signatures are bound to: %s", config.GetSupportedChainIDsString()),
				EnvVars: []string{config.EnvVenueChainId},
			},
			&cli.StringFlag{
				Name:    "persistence",
				Value:   string(config.PersistenceTypeMemory),
				Usage:   "API key store: memory, badger or redis",
				EnvVars: []string{config.EnvVenuePersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Badger data directory",
				EnvVars: []string{config.EnvVenueDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis address (host:port)",
				EnvVars: []string{config.EnvVenueRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvVenueRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvVenueRedisDB},
			},
			&cli.DurationFlag{
				Name:    "max-age",
				Usage:   "Oldest DYDX-TIMESTAMP accepted",
				Value:   30 * time.Second,
				EnvVars: []string{config.EnvVenueMaxAge},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvVenueDebug},
			},
		},
		Action: runMockVenue,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func parseVenueConfig(c *cli.Context) *config.VenueConfig {
	cfg := &config.VenueConfig{
		Port:    c.Int("port"),
		ChainId: config.ChainId(c.Uint64("chain-id")),
		Persistence: config.PersistenceConfig{
			Type:     config.PersistenceType(c.String("persistence")),
			DataPath: c.String("data-path"),
		},
		MaxAge: c.Duration("max-age"),
		Debug:  c.Bool("verbose"),
	}
	if c.IsSet("redis-address") {
		cfg.Persistence.Redis = &config.RedisConfig{
			Address:  c.String("redis-address"),
			Password: c.String("redis-password"),
			DB:       c.Int("redis-db"),
		}
	}
	return cfg
}

func runMockVenue(c *cli.Context) error {
	venueConfig := parseVenueConfig(c)

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: venueConfig.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	if err := venueConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := venue.NewPersistence(&venueConfig.Persistence, l)
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.HealthCheck(); err != nil {
		return fmt.Errorf("persistence health check failed: %w", err)
	}

	server := venue.NewServer(&venue.Config{
		Port:    venueConfig.Port,
		ChainId: uint64(venueConfig.ChainId),
		MaxAge:  venueConfig.MaxAge,
	}, store, l)

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	l.Sugar().Infow("Mock venue running",
		"port", venueConfig.Port,
		"chainId", venueConfig.ChainId,
		"persistence", venueConfig.Persistence.Type,
	)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	l.Sugar().Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}
