package postgres

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"

	"trade_engine/internal/models"
)

func (s *Store) TradingConfig(ctx context.Context, userID string) (cfg *models.TradingConfig, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.TradingConfig: %w", err)
		}
	}()
	var (
		c      models.TradingConfig
		assets []byte
	)
	err = s.db.Conn().QueryRow(ctx, `
		SELECT user_id, assets, timeframe, max_trades_per_session, quantity,
		       profit_threshold, loss_threshold, updated_at
		FROM trading_configs WHERE user_id = $1`, userID,
	).Scan(&c.UserID, &assets, &c.Timeframe, &c.MaxTradesPerSession, &c.Quantity,
		&c.ProfitThreshold, &c.LossThreshold, &c.UpdatedAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err = sonic.Unmarshal(assets, &c.Assets); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) SaveTradingConfig(ctx context.Context, cfg *models.TradingConfig) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SaveTradingConfig: %w", err)
		}
	}()
	assets, err := sonic.Marshal(cfg.Assets)
	if err != nil {
		return err
	}
	_, err = s.db.Conn().Exec(ctx, `
		INSERT INTO trading_configs (user_id, assets, timeframe, max_trades_per_session,
		                             quantity, profit_threshold, loss_threshold, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
		    assets = EXCLUDED.assets,
		    timeframe = EXCLUDED.timeframe,
		    max_trades_per_session = EXCLUDED.max_trades_per_session,
		    quantity = EXCLUDED.quantity,
		    profit_threshold = EXCLUDED.profit_threshold,
		    loss_threshold = EXCLUDED.loss_threshold,
		    updated_at = EXCLUDED.updated_at`,
		cfg.UserID, assets, cfg.Timeframe, cfg.MaxTradesPerSession,
		cfg.Quantity, cfg.ProfitThreshold, cfg.LossThreshold, s.stamp(cfg.UpdatedAt))
	return err
}

func (s *Store) RiskConfig(ctx context.Context, userID string) (cfg *models.RiskConfig, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.RiskConfig: %w", err)
		}
	}()
	var c models.RiskConfig
	err = s.db.Conn().QueryRow(ctx, `
		SELECT user_id, daily_profit_target, daily_loss_limit, allocated_capital, updated_at
		FROM risk_configs WHERE user_id = $1`, userID,
	).Scan(&c.UserID, &c.DailyProfitTarget, &c.DailyLossLimit, &c.AllocatedCapital, &c.UpdatedAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) SaveRiskConfig(ctx context.Context, cfg *models.RiskConfig) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SaveRiskConfig: %w", err)
		}
	}()
	_, err = s.db.Conn().Exec(ctx, `
		INSERT INTO risk_configs (user_id, daily_profit_target, daily_loss_limit, allocated_capital, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
		    daily_profit_target = EXCLUDED.daily_profit_target,
		    daily_loss_limit = EXCLUDED.daily_loss_limit,
		    allocated_capital = EXCLUDED.allocated_capital,
		    updated_at = EXCLUDED.updated_at`,
		cfg.UserID, cfg.DailyProfitTarget, cfg.DailyLossLimit, cfg.AllocatedCapital, s.stamp(cfg.UpdatedAt))
	return err
}

func (s *Store) SessionConfig(ctx context.Context, userID string) (cfg *models.SessionConfig, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SessionConfig: %w", err)
		}
	}()
	var c models.SessionConfig
	err = s.db.Conn().QueryRow(ctx, `
		SELECT user_id, duration_minutes, updated_at
		FROM session_configs WHERE user_id = $1`, userID,
	).Scan(&c.UserID, &c.DurationMinutes, &c.UpdatedAt)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) SaveSessionConfig(ctx context.Context, cfg *models.SessionConfig) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SaveSessionConfig: %w", err)
		}
	}()
	_, err = s.db.Conn().Exec(ctx, `
		INSERT INTO session_configs (user_id, duration_minutes, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
		    duration_minutes = EXCLUDED.duration_minutes,
		    updated_at = EXCLUDED.updated_at`,
		cfg.UserID, cfg.DurationMinutes, s.stamp(cfg.UpdatedAt))
	return err
}
