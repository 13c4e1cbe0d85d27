package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"trade_engine/internal/broker"
	"trade_engine/internal/dashboard"
	"trade_engine/internal/license"
	"trade_engine/internal/modules/config"
	"trade_engine/internal/runner"
	"trade_engine/internal/store"
	transport "trade_engine/internal/transport/http"
)

type HandlerParams struct {
	fx.In

	Config    *config.Config
	Runner    *runner.Service
	Dashboard *dashboard.Service
	Store     store.Store
	License   license.Validator
	Broker    broker.Capability
	Logger    *zap.Logger
}

func NewHandler(p HandlerParams) *transport.Handler {
	return transport.NewHandler(transport.Deps{
		Runner:         p.Runner,
		Dashboard:      p.Dashboard,
		Configs:        p.Store,
		License:        p.License,
		Broker:         p.Broker,
		Logger:         p.Logger,
		AllowedOrigins: p.Config.Service.AllowedOrigins,
	})
}

// RunHTTP serves the public API.
func RunHTTP(lc fx.Lifecycle, cfg *config.Config, h *transport.Handler, logger *zap.Logger) {
	addr := cfg.PublicAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info("api server listening", zap.String("addr", addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("api server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(
			NewHandler,
		),
		fx.Invoke(RunHTTP),
	)
}
