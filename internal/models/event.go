package models

import "time"

type EventType string

const (
	EventTradeOpened     EventType = "trade_opened"
	EventTradeClosed     EventType = "trade_closed"
	EventBotStopped      EventType = "bot_stopped"
	EventProfitTargetHit EventType = "profit_target_hit"
	EventLossLimitHit    EventType = "loss_limit_hit"
)

// Event is a user-facing decision notice handed to the notification sink.
type Event struct {
	Type    EventType
	UserID  string
	Title   string
	Message string
	At      time.Time
}

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
)

// Notification is a delivered event as stored for the user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventType EventType `json:"event_type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Channel   Channel   `json:"channel"`
	CreatedAt time.Time `json:"created_at"`
}
