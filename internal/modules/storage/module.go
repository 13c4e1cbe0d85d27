package storage

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"trade_engine/internal/modules/config"
	"trade_engine/internal/store"
	"trade_engine/internal/store/memory"
	"trade_engine/internal/store/postgres"
	"trade_engine/pkg/db"
)

// NewStore opens the store selected by storage.driver.
func NewStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.Storage.Driver != config.StoragePostgres {
		logger.Info("using in-memory store")
		return memory.New(), nil
	}

	ctx := context.Background()
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN:      cfg.Storage.DSN,
		MaxConns: cfg.Storage.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}
	tm := db.NewPgTxManager(poolMaster)
	st := postgres.New(tm)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := tm.Ping(ctx); err != nil {
				return fmt.Errorf("ping postgres: %w", err)
			}
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("postgres store ready")
			return nil
		},
		OnStop: func(context.Context) error {
			tm.Close()
			return nil
		},
	})
	return st, nil
}

func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(
			NewStore,
		),
	)
}
