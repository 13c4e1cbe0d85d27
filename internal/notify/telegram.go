package notify

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"trade_engine/internal/models"
)

type TelegramConfig struct {
	Token string        `mapstructure:"token"`
	Chats []ChatBinding `mapstructure:"chats"`
}

// ChatBinding routes one user's notices to a chat. Config keys are
// case-folded, so user ids cannot be map keys.
type ChatBinding struct {
	UserID string `mapstructure:"user_id"`
	ChatID int64  `mapstructure:"chat_id"`
}

// ChatIDs indexes the bindings by user id.
func (c TelegramConfig) ChatIDs() map[string]int64 {
	out := make(map[string]int64, len(c.Chats))
	for _, b := range c.Chats {
		out[b.UserID] = b.ChatID
	}
	return out
}

// Sender is the part of the bot API the channel uses.
type Sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram pushes notices to users that have a chat id configured.
type Telegram struct {
	bot     Sender
	chatIDs map[string]int64
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return NewTelegramWithSender(b, cfg.ChatIDs()), nil
}

func NewTelegramWithSender(bot Sender, chatIDs map[string]int64) *Telegram {
	return &Telegram{bot: bot, chatIDs: chatIDs}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Deliver(_ context.Context, n *models.Notification) error {
	chatID, ok := t.chatIDs[n.UserID]
	if !ok || chatID == 0 {
		return nil
	}
	return t.Send(chatID, fmt.Sprintf("%s\n%s", n.Title, n.Message))
}

func (t *Telegram) Send(chatID int64, msg string) error {
	if _, err := t.bot.Send(tgbot.NewMessage(chatID, msg)); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

func (t *Telegram) Sendf(chatID int64, format string, args ...any) error {
	return t.Send(chatID, fmt.Sprintf(format, args...))
}
