package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/folio-scout/harvest-cli/internal/config"
	"github.com/folio-scout/harvest-cli/internal/fetch"
	"github.com/folio-scout/harvest-cli/internal/resilience"
	"github.com/folio-scout/harvest-cli/internal/store"
)

// initStore opens the run archive configured by store.driver.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DSN
		if dsn == "" {
			dsn = "harvest.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		poolCfg := &store.PoolConfig{MaxConns: int32(cfg.Store.PoolSize)}
		return store.NewPostgres(ctx, cfg.Store.DSN, poolCfg)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens the archive and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// fetchConfig maps application config onto the fetch controller.
func fetchConfig(cfg *config.Config) fetch.Config {
	return fetch.Config{
		Concurrency:    cfg.Harvest.Concurrency,
		RequestTimeout: time.Duration(cfg.Harvest.RequestTimeoutSecs) * time.Second,
		UserAgent:      cfg.Platform.UserAgent,
		RatePerSec:     cfg.Rate.RequestsPerSec,
		Burst:          cfg.Rate.Burst,
		Retry: resilience.FromRetryConfig(
			cfg.Retry.MaxRetries,
			cfg.Retry.InitialBackoffMs,
			cfg.Retry.MaxBackoffMs,
			cfg.Retry.Multiplier,
			cfg.Retry.Jitter,
		),
		Breaker: resilience.FromCircuitConfig(
			cfg.Breaker.Threshold,
			cfg.Breaker.CooldownSecs,
		),
	}
}
