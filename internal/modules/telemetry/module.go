package telemetry

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"trade_engine/internal/modules/config"
	"trade_engine/pkg/logger"
	"trade_engine/pkg/tracing"
)

// NewLogger builds the service logger from log.level.
func NewLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	logger.SetServiceName(cfg.Service.Name)
	l, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = l.Sync()
			return nil
		},
	})
	return l, nil
}

// NewTracer installs the jaeger tracer when tracing is enabled.
func NewTracer(lc fx.Lifecycle, cfg *config.Config) (opentracing.Tracer, error) {
	tracing.SetServiceName(cfg.Service.Name)
	tracer, closeFn, err := tracing.InitTracer(tracing.Config{
		Enabled:    cfg.Tracing.Enabled,
		Host:       cfg.Tracing.Host,
		Port:       cfg.Tracing.Port,
		SampleRate: cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeFn()
			return nil
		},
	})
	return tracer, nil
}

// EventLogger routes fx lifecycle events through zap.
func EventLogger(l *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: l.Named("fx")}
}

func Module() fx.Option {
	return fx.Module("telemetry",
		fx.Provide(
			NewLogger,
			NewTracer,
		),
		fx.Invoke(func(opentracing.Tracer) {}),
	)
}
