package store

import (
	"context"
	"errors"
	"time"

	"trade_engine/internal/models"
)

// Lookups return (nil, nil) when nothing is stored for the key.

var (
	ErrPositionExists   = errors.New("open position already exists")
	ErrPositionNotFound = errors.New("open position not found")
	ErrSessionNotFound  = errors.New("bot session not found")
	// ErrDuplicateRequest is returned by Commit when the mutation's
	// idempotency key already has a recorded response.
	ErrDuplicateRequest = errors.New("idempotency key already recorded")
)

type ConfigStore interface {
	TradingConfig(ctx context.Context, userID string) (*models.TradingConfig, error)
	SaveTradingConfig(ctx context.Context, cfg *models.TradingConfig) error
	RiskConfig(ctx context.Context, userID string) (*models.RiskConfig, error)
	SaveRiskConfig(ctx context.Context, cfg *models.RiskConfig) error
	SessionConfig(ctx context.Context, userID string) (*models.SessionConfig, error)
	SaveSessionConfig(ctx context.Context, cfg *models.SessionConfig) error
}

type SessionStore interface {
	BotSession(ctx context.Context, userID string) (*models.BotSession, error)
	SaveBotSession(ctx context.Context, s *models.BotSession) error
	RunningSessions(ctx context.Context) ([]*models.BotSession, error)
}

type PositionStore interface {
	OpenPosition(ctx context.Context, userID, symbol string) (*models.OpenPosition, error)
	OpenPositions(ctx context.Context, userID string) ([]*models.OpenPosition, error)
	// ClosedPositions returns the newest rows first.
	ClosedPositions(ctx context.Context, userID string, limit int) ([]*models.ClosedPosition, error)
}

type LedgerStore interface {
	// RealizedPnL sums pnl of positions closed in [from, to).
	RealizedPnL(ctx context.Context, userID string, from, to time.Time) (float64, error)
	// OpenExposure sums entry_price*quantity over the user's open positions.
	OpenExposure(ctx context.Context, userID string) (float64, error)
}

type IdempotencyStore interface {
	// IdempotentResponse returns the recorded response for (op, key).
	// Records are written only through Commit.
	IdempotentResponse(ctx context.Context, op, key string) ([]byte, bool, error)
	PurgeIdempotentBefore(ctx context.Context, before time.Time) (int64, error)
}

type NotificationStore interface {
	SaveNotification(ctx context.Context, n *models.Notification) error
	// Notifications returns the newest rows first.
	Notifications(ctx context.Context, userID string, channel models.Channel, limit int) ([]*models.Notification, error)
}

type LicenseStore interface {
	License(ctx context.Context, userID string) (*models.License, error)
	SaveLicense(ctx context.Context, l *models.License) error
}

type SignalStore interface {
	// SignalRecords returns the newest rows first.
	SignalRecords(ctx context.Context, userID string, limit int) ([]*models.SignalRecord, error)
}

// Committer applies every change of a tick all-or-nothing.
type Committer interface {
	Commit(ctx context.Context, m *models.Mutation) error
}

// Reader is what the decision path reads.
type Reader interface {
	TradingConfig(ctx context.Context, userID string) (*models.TradingConfig, error)
	RiskConfig(ctx context.Context, userID string) (*models.RiskConfig, error)
	SessionConfig(ctx context.Context, userID string) (*models.SessionConfig, error)
	BotSession(ctx context.Context, userID string) (*models.BotSession, error)
	OpenPosition(ctx context.Context, userID, symbol string) (*models.OpenPosition, error)
	LedgerStore
}

type Store interface {
	ConfigStore
	SessionStore
	PositionStore
	LedgerStore
	IdempotencyStore
	NotificationStore
	LicenseStore
	SignalStore
	Committer
}
