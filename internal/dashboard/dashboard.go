package dashboard

import (
	"context"
	"fmt"
	"time"

	"trade_engine/internal/helper"
	"trade_engine/internal/models"
	"trade_engine/internal/store"
)

const places = 6

// PriceSource returns the latest observed price per symbol for a user.
type PriceSource interface {
	LastPrices(userID string) map[string]float64
}

type Summary struct {
	UserID             string  `json:"user_id"`
	Balance            float64 `json:"balance"`
	Equity             float64 `json:"equity"`
	Margin             float64 `json:"margin"`
	DailyRealizedPnL   float64 `json:"daily_realized_pnl"`
	DailyUnrealizedPnL float64 `json:"daily_unrealized_pnl"`
	BotRunning         bool    `json:"bot_running"`
}

type DailyPnL struct {
	UserID        string  `json:"user_id"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	TotalPnL      float64 `json:"total_pnl"`
}

// Service builds the read-only portfolio views.
type Service struct {
	store  store.Store
	prices PriceSource
	now    func() time.Time
}

func NewService(st store.Store, prices PriceSource) *Service {
	return &Service{store: st, prices: prices, now: time.Now}
}

func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	riskCfg, err := s.store.RiskConfig(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("dashboard.Summary: %w", err)
	}
	var capital float64
	if riskCfg != nil {
		capital = riskCfg.AllocatedCapital
	}

	realized, unrealized, err := s.pnl(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("dashboard.Summary: %w", err)
	}
	margin, err := s.store.OpenExposure(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("dashboard.Summary: %w", err)
	}
	sess, err := s.store.BotSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("dashboard.Summary: %w", err)
	}

	balance := capital + realized
	return &Summary{
		UserID:             userID,
		Balance:            helper.Round(balance, places),
		Equity:             helper.SumRounded(places, balance, unrealized),
		Margin:             helper.Round(margin, places),
		DailyRealizedPnL:   helper.Round(realized, places),
		DailyUnrealizedPnL: helper.Round(unrealized, places),
		BotRunning:         sess.IsRunning(),
	}, nil
}

func (s *Service) DailyPnL(ctx context.Context, userID string) (*DailyPnL, error) {
	realized, unrealized, err := s.pnl(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("dashboard.DailyPnL: %w", err)
	}
	return &DailyPnL{
		UserID:        userID,
		RealizedPnL:   helper.Round(realized, places),
		UnrealizedPnL: helper.Round(unrealized, places),
		TotalPnL:      helper.SumRounded(places, realized, unrealized),
	}, nil
}

// pnl returns today's realized pnl and the unrealized pnl of open
// positions marked at the last observed price, or entry when none.
func (s *Service) pnl(ctx context.Context, userID string) (float64, float64, error) {
	from, to := helper.DayBounds(s.now())
	realized, err := s.store.RealizedPnL(ctx, userID, from, to)
	if err != nil {
		return 0, 0, err
	}
	open, err := s.store.OpenPositions(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	prices := s.prices.LastPrices(userID)
	var unrealized float64
	for _, p := range open {
		mark, ok := prices[p.Symbol]
		if !ok {
			mark = p.EntryPrice
		}
		unrealized += p.PnL(mark)
	}
	return realized, unrealized, nil
}

func (s *Service) OpenTrades(ctx context.Context, userID string) ([]*models.OpenPosition, error) {
	return s.store.OpenPositions(ctx, userID)
}

func (s *Service) ClosedTrades(ctx context.Context, userID string, limit int) ([]*models.ClosedPosition, error) {
	return s.store.ClosedPositions(ctx, userID, limit)
}

func (s *Service) Notifications(ctx context.Context, userID string, channel models.Channel, limit int) ([]*models.Notification, error) {
	return s.store.Notifications(ctx, userID, channel, limit)
}
