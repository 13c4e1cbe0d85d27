package engine

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"trade_engine/internal/broker"
	"trade_engine/internal/dashboard"
	"trade_engine/internal/engine"
	"trade_engine/internal/idempotency"
	"trade_engine/internal/license"
	"trade_engine/internal/modules/config"
	"trade_engine/internal/risk"
	"trade_engine/internal/runner"
	"trade_engine/internal/signal"
	"trade_engine/internal/store"
)

func NewFilter(cfg *config.Config) *signal.Filter {
	return signal.NewFilter(cfg.Signal)
}

func NewEngine(st store.Store, logger *zap.Logger) *engine.Engine {
	return engine.New(st, risk.NewGate(st), logger)
}

// NewCache builds the idempotency cache and, when a ttl is set, runs the
// janitor until the app stops.
func NewCache(lc fx.Lifecycle, cfg *config.Config, st store.Store, logger *zap.Logger) *idempotency.Cache {
	c := idempotency.NewCache(st, cfg.Idempotency, logger)
	if cfg.Idempotency.TTL <= 0 || cfg.Idempotency.PurgeInterval <= 0 {
		return c
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				c.RunJanitor(ctx, cfg.Idempotency.PurgeInterval)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
	return c
}

func NewLicense(cfg *config.Config, st store.Store) license.Validator {
	if !cfg.License.Enforce {
		return license.AllowAll{}
	}
	return license.NewStoreValidator(st)
}

type RunnerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Store     store.Store
	Engine    *engine.Engine
	Filter    *signal.Filter
	Cache     *idempotency.Cache
	Publisher runner.Publisher
	License   license.Validator
	Observer  runner.TickObserver
	Logger    *zap.Logger
}

// NewRunner builds the tick service. Every running session is stopped
// when the app shuts down.
func NewRunner(p RunnerParams) *runner.Service {
	svc := runner.NewService(runner.Deps{
		Store:     p.Store,
		Engine:    p.Engine,
		Filter:    p.Filter,
		Cache:     p.Cache,
		Publisher: p.Publisher,
		License:   p.License,
		Observer:  p.Observer,
		Logger:    p.Logger,
	})
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			n, err := svc.StopAll(ctx)
			p.Logger.Info("sessions stopped on shutdown", zap.Int("sessions", n), zap.Error(err))
			return err
		},
	})
	return svc
}

func NewDashboard(st store.Store, svc *runner.Service) *dashboard.Service {
	return dashboard.NewService(st, svc)
}

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			NewFilter,
			NewEngine,
			NewCache,
			NewLicense,
			NewRunner,
			NewDashboard,
			broker.Unavailable,
		),
	)
}
