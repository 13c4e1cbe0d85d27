package modules

import (
	"go.uber.org/fx"

	"trade_engine/internal/modules/api"
	"trade_engine/internal/modules/bootstrap"
	"trade_engine/internal/modules/config"
	"trade_engine/internal/modules/engine"
	"trade_engine/internal/modules/health"
	"trade_engine/internal/modules/notify"
	"trade_engine/internal/modules/storage"
	"trade_engine/internal/modules/telemetry"
	telegram "trade_engine/internal/modules/telegram_bot"
)

// App assembles the service. Shutdown order is the reverse of
// construction: the API stops first, then running sessions are stopped
// and their notices delivered, then the store closes.
func App(cfg *config.Config) fx.Option {
	return fx.Options(
		config.Module(cfg),
		telemetry.Module(),
		fx.WithLogger(telemetry.EventLogger),
		storage.Module(),
		health.Module(),
		notify.Module(),
		engine.Module(),
		bootstrap.Module(),
		api.Module(),
		telegram.Module(),
	)
}
