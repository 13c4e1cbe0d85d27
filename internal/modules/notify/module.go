package notify

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"trade_engine/internal/modules/config"
	"trade_engine/internal/notify"
	"trade_engine/internal/runner"
	"trade_engine/internal/store"
)

// NewDispatcher wires the in-app channel and, when a token is set, the
// telegram channel. Workers run for the lifetime of the app; queued
// events are drained on stop.
func NewDispatcher(lc fx.Lifecycle, cfg *config.Config, st store.Store, logger *zap.Logger) (*notify.Dispatcher, error) {
	channels := []notify.Channel{notify.NewInApp(st)}
	if cfg.Notify.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Notify.Telegram)
		if err != nil {
			return nil, err
		}
		channels = append(channels, tg)
		logger.Info("telegram notifications enabled", zap.Int("chats", len(cfg.Notify.Telegram.Chats)))
	}

	d := notify.NewDispatcher(cfg.Notify.Config, logger, channels...)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			d.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return d.Stop(ctx)
		},
	})
	return d, nil
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			NewDispatcher,
			func(d *notify.Dispatcher) runner.Publisher { return d },
		),
	)
}
