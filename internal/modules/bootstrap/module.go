package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	bootstrap "trade_engine/internal/modules/bootstrap/service"
	"trade_engine/internal/modules/config"
	health "trade_engine/internal/modules/health/service"
)

// Module seeds the store and flips readiness once startup work is done.
func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			bootstrap.NewSeeder,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, s *bootstrap.Seeder, state *health.State, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if cfg.SeedFile != "" {
						f, err := bootstrap.ReadSeedFile(cfg.SeedFile)
						if err != nil {
							return err
						}
						if err := s.Seed(ctx, f); err != nil {
							return err
						}
					}
					if _, err := s.RestoreSessions(ctx); err != nil {
						return err
					}
					state.SetReady(true)
					logger.Info("service ready")
					return nil
				},
				OnStop: func(ctx context.Context) error {
					state.SetReady(false)
					return nil
				},
			})
		}),
	)
}
