package service

import (
	"context"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	btnStart     = "▶️ Start bot"
	btnStop      = "⏹ Stop bot"
	btnStatus    = "📊 Status"
	btnPnL       = "💰 PnL"
	btnPositions = "📂 Positions"
)

var buttons = map[string]string{
	btnStart:     "start",
	btnStop:      "stop",
	btnStatus:    "status",
	btnPnL:       "pnl",
	btnPositions: "positions",
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	chatID := msg.Chat.ID

	cmd := buttons[strings.TrimSpace(msg.Text)]
	if msg.IsCommand() {
		cmd = msg.Command()
	}
	if cmd == "" {
		return
	}

	userID, ok := t.users[chatID]
	if !ok {
		t.Send(chatID, "This chat is not linked to a trading account.")
		return
	}

	switch cmd {
	case "start":
		t.handleStart(ctx, chatID, userID)
	case "stop":
		t.handleStop(ctx, chatID, userID)
	case "status":
		t.handleStatus(ctx, chatID, userID)
	case "pnl":
		t.handlePnL(ctx, chatID, userID)
	case "positions":
		t.handlePositions(ctx, chatID, userID)
	default:
		t.sendMenu(chatID)
	}
}

func (t *Telegram) sendMenu(chatID int64) {
	msg := tgbot.NewMessage(chatID, "Choose an action:")
	msg.ReplyMarkup = tgbot.NewReplyKeyboard(
		tgbot.NewKeyboardButtonRow(
			tgbot.NewKeyboardButton(btnStart),
			tgbot.NewKeyboardButton(btnStop),
		),
		tgbot.NewKeyboardButtonRow(
			tgbot.NewKeyboardButton(btnStatus),
			tgbot.NewKeyboardButton(btnPnL),
			tgbot.NewKeyboardButton(btnPositions),
		),
	)
	if _, err := t.api.Send(msg); err != nil {
		t.logger.Warn("send menu", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (t *Telegram) handleStart(ctx context.Context, chatID int64, userID string) {
	st, err := t.runner.StartBot(ctx, userID)
	if err != nil {
		t.Send(chatID, "❌ Could not start the bot: "+err.Error())
		return
	}
	t.Send(chatID, "✅ Bot started.\n\n"+formatStatus(st))
}

func (t *Telegram) handleStop(ctx context.Context, chatID int64, userID string) {
	st, err := t.runner.StopBot(ctx, userID)
	if err != nil {
		t.Send(chatID, "⚠️ Could not stop the bot: "+err.Error())
		return
	}
	t.Send(chatID, "⏹ Bot stopped.\n\n"+formatStatus(st))
}

func (t *Telegram) handleStatus(ctx context.Context, chatID int64, userID string) {
	st, err := t.runner.Status(ctx, userID)
	if err != nil {
		t.Send(chatID, "⚠️ "+err.Error())
		return
	}
	t.Send(chatID, formatStatus(st))
}

func (t *Telegram) handlePnL(ctx context.Context, chatID int64, userID string) {
	p, err := t.dashboard.DailyPnL(ctx, userID)
	if err != nil {
		t.Send(chatID, "⚠️ "+err.Error())
		return
	}
	t.Send(chatID, formatPnL(p))
}

func (t *Telegram) handlePositions(ctx context.Context, chatID int64, userID string) {
	open, err := t.dashboard.OpenTrades(ctx, userID)
	if err != nil {
		t.Send(chatID, "⚠️ "+err.Error())
		return
	}
	t.Send(chatID, formatPositions(open, t.runner.LastPrices(userID)))
}
