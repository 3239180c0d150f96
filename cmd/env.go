package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/nordatlas/atlas-cli/internal/config"
	"github.com/nordatlas/atlas-cli/internal/registry"
	"github.com/nordatlas/atlas-cli/internal/source"
	"github.com/nordatlas/atlas-cli/internal/store"
	"github.com/nordatlas/atlas-cli/pkg/aedregistry"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "atlas.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func newRegistryClient() *aedregistry.Client {
	opts := []aedregistry.Option{
		aedregistry.WithCredentials(cfg.Registry.ClientID, cfg.Registry.ClientSecret),
		aedregistry.WithRateLimit(cfg.Registry.RequestsPerSec),
	}
	if cfg.Registry.BaseURL != "" {
		opts = append(opts, aedregistry.WithBaseURL(cfg.Registry.BaseURL))
	}
	if cfg.Registry.TokenURL != "" {
		opts = append(opts, aedregistry.WithTokenURL(cfg.Registry.TokenURL))
	}
	return aedregistry.New(opts...)
}

// initRegistry builds the layer registry from the configured sources.
func initRegistry() (*registry.Registry, error) {
	srcs, err := config.LoadSources(cfg.Sources.File)
	if err != nil {
		return nil, err
	}

	client := newRegistryClient()
	reg := registry.New()
	for _, sc := range srcs {
		adapter, err := source.ForConfig(sc, client)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(sc, adapter); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
