package runner

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"trade_engine/internal/metrics"
	"trade_engine/internal/models"
)

// StartBot begins a fresh running epoch for the user. The user needs a
// valid license and all three configs.
func (s *Service) StartBot(ctx context.Context, userID string) (*models.BotStatus, error) {
	st, err := s.license.Validate(ctx, userID)
	if err != nil {
		return nil, persistence(err, "runner.StartBot")
	}
	if !st.Valid {
		return nil, errors.Wrap(ErrLicense, st.Message)
	}

	if err := s.requireConfigs(ctx, userID); err != nil {
		return nil, err
	}

	_, unlock := s.lock(userID)
	defer unlock()

	prev, err := s.store.BotSession(ctx, userID)
	if err != nil {
		return nil, persistence(err, "runner.StartBot")
	}

	now := s.now()
	sess := &models.BotSession{
		UserID:    userID,
		Running:   true,
		StartedAt: &now,
		UpdatedAt: now,
	}
	if err := s.store.SaveBotSession(ctx, sess); err != nil {
		return nil, persistence(err, "runner.StartBot")
	}
	if !prev.IsRunning() {
		metrics.ActiveSessions.Inc()
	}

	s.logger.Info("bot started", zap.String("user_id", userID))
	status := sess.Status()
	return &status, nil
}

func (s *Service) requireConfigs(ctx context.Context, userID string) error {
	trading, err := s.store.TradingConfig(ctx, userID)
	if err != nil {
		return persistence(err, "runner.requireConfigs")
	}
	if trading == nil {
		return errors.Wrap(ErrConfigRequired, "trading config")
	}
	riskCfg, err := s.store.RiskConfig(ctx, userID)
	if err != nil {
		return persistence(err, "runner.requireConfigs")
	}
	if riskCfg == nil {
		return errors.Wrap(ErrConfigRequired, "risk config")
	}
	sessCfg, err := s.store.SessionConfig(ctx, userID)
	if err != nil {
		return persistence(err, "runner.requireConfigs")
	}
	if sessCfg == nil {
		return errors.Wrap(ErrConfigRequired, "session config")
	}
	return nil
}

// StopBot stops the user's session on request. Stopping an idle user
// records a stopped session.
func (s *Service) StopBot(ctx context.Context, userID string) (*models.BotStatus, error) {
	return s.stop(ctx, userID, models.StopReasonManual, "Bot stopped manually by user")
}

func (s *Service) stop(ctx context.Context, userID string, reason models.StopReason, msg string) (*models.BotStatus, error) {
	_, unlock := s.lock(userID)
	defer unlock()

	cur, err := s.store.BotSession(ctx, userID)
	if err != nil {
		return nil, persistence(err, "runner.stop")
	}
	now := s.now()
	if cur == nil {
		cur = &models.BotSession{UserID: userID}
	}
	wasRunning := cur.Running
	stopped := cur.Stopped(reason, now)
	if err := s.store.SaveBotSession(ctx, stopped); err != nil {
		return nil, persistence(err, "runner.stop")
	}
	if wasRunning {
		metrics.ActiveSessions.Dec()
	}

	s.publisher.Publish(models.Event{
		Type:    models.EventBotStopped,
		UserID:  userID,
		Title:   "Bot stopped",
		Message: msg,
		At:      now,
	})
	s.logger.Info("bot stopped", zap.String("user_id", userID), zap.String("reason", string(reason)))

	status := stopped.Status()
	return &status, nil
}

// Status reports the user's session. Users that never started are
// reported as not running.
func (s *Service) Status(ctx context.Context, userID string) (*models.BotStatus, error) {
	sess, err := s.store.BotSession(ctx, userID)
	if err != nil {
		return nil, persistence(err, "runner.Status")
	}
	if sess == nil {
		return &models.BotStatus{UserID: userID}, nil
	}
	status := sess.Status()
	if !status.Running && status.StopReason == models.StopReasonNone {
		status.StopReason = models.StopReasonStopped
	}
	return &status, nil
}

// StopAll stops every running session. Called on shutdown.
func (s *Service) StopAll(ctx context.Context) (int, error) {
	running, err := s.store.RunningSessions(ctx)
	if err != nil {
		return 0, persistence(err, "runner.StopAll")
	}
	var (
		stopped int
		errs    error
	)
	for _, sess := range running {
		if _, err := s.stop(ctx, sess.UserID, models.StopReasonServiceShutdown, "Bot stopped because the service is shutting down"); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		stopped++
	}
	return stopped, errs
}
