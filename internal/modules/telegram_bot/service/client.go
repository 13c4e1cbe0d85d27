package service

import (
	"context"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"trade_engine/internal/dashboard"
	"trade_engine/internal/notify"
	"trade_engine/internal/runner"
)

// API is the part of the bot client the control loop needs.
type API interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
	GetUpdatesChan(config tgbot.UpdateConfig) tgbot.UpdatesChannel
	StopReceivingUpdates()
}

// Telegram lets users with a bound chat control their bot session.
type Telegram struct {
	api       API
	users     map[int64]string
	runner    *runner.Service
	dashboard *dashboard.Service
	logger    *zap.Logger

	wg sync.WaitGroup
}

func NewTelegram(api API, chats []notify.ChatBinding, r *runner.Service, d *dashboard.Service, logger *zap.Logger) *Telegram {
	users := make(map[int64]string, len(chats))
	for _, c := range chats {
		users[c.ChatID] = c.UserID
	}
	return &Telegram{
		api:       api,
		users:     users,
		runner:    r,
		dashboard: d,
		logger:    logger.Named("telegram"),
	}
}

func (t *Telegram) Send(chatID int64, msg string) {
	if _, err := t.api.Send(tgbot.NewMessage(chatID, msg)); err != nil {
		t.logger.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// Start consumes updates until Stop.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.api.GetUpdatesChan(u)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for update := range updates {
			t.handleUpdate(ctx, update)
		}
	}()
}

func (t *Telegram) Stop() {
	t.api.StopReceivingUpdates()
	t.wg.Wait()
}
