package telegram

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"trade_engine/internal/dashboard"
	"trade_engine/internal/modules/config"
	"trade_engine/internal/modules/telegram_bot/service"
	"trade_engine/internal/runner"
)

// Module runs the control bot when notify.telegram.token is set.
func Module() fx.Option {
	return fx.Module("telegram",
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config, r *runner.Service, d *dashboard.Service, logger *zap.Logger) {
				token := cfg.Notify.Telegram.Token
				if token == "" {
					return
				}
				var t *service.Telegram
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						api, err := tgbot.NewBotAPI(token)
						if err != nil {
							return fmt.Errorf("telegram: %w", err)
						}
						t = service.NewTelegram(api, cfg.Notify.Telegram.Chats, r, d, logger)
						t.Start(context.Background())
						return nil
					},
					OnStop: func(ctx context.Context) error {
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
