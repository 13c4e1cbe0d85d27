package risk

import (
	"context"
	"fmt"
	"time"

	"trade_engine/internal/helper"
	"trade_engine/internal/models"
)

const (
	MsgDurationExpired = "Bot stopped: session duration expired"
	MsgProfitTarget    = "Bot stopped: daily profit target reached"
	MsgLossLimit       = "Bot stopped: daily loss limit reached"
)

// Ledger is the part of the store the gate reads.
type Ledger interface {
	RealizedPnL(ctx context.Context, userID string, from, to time.Time) (float64, error)
}

// Verdict says whether the session must be force-stopped before any trade
// logic runs. Zero value means keep going.
type Verdict struct {
	Stop    bool
	Reason  models.StopReason
	Message string
}

// Gate stops sessions on elapsed duration, daily profit target or daily
// loss limit, checked in that order.
type Gate struct {
	ledger Ledger
	now    func() time.Time
}

func NewGate(ledger Ledger) *Gate {
	return &Gate{ledger: ledger, now: time.Now}
}

// WithClock replaces the time source.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Now returns the gate's current time.
func (g *Gate) Now() time.Time { return g.now() }

// Evaluate checks a running session. sessCfg and riskCfg may be nil.
func (g *Gate) Evaluate(
	ctx context.Context,
	session *models.BotSession,
	sessCfg *models.SessionConfig,
	riskCfg *models.RiskConfig,
) (Verdict, error) {
	now := g.now()

	if sessCfg != nil && session.StartedAt != nil {
		if now.Sub(*session.StartedAt) >= sessCfg.Duration() {
			return Verdict{Stop: true, Reason: models.StopReasonDurationExpired, Message: MsgDurationExpired}, nil
		}
	}

	if riskCfg == nil {
		return Verdict{}, nil
	}

	realized, err := g.RealizedToday(ctx, session.UserID)
	if err != nil {
		return Verdict{}, err
	}

	switch {
	case realized >= riskCfg.DailyProfitTarget:
		return Verdict{Stop: true, Reason: models.StopReasonProfitTarget, Message: MsgProfitTarget}, nil
	case realized <= -riskCfg.DailyLossLimit:
		return Verdict{Stop: true, Reason: models.StopReasonLossLimit, Message: MsgLossLimit}, nil
	}
	return Verdict{}, nil
}

// RealizedToday sums realized pnl for the current UTC day.
func (g *Gate) RealizedToday(ctx context.Context, userID string) (float64, error) {
	from, to := helper.DayBounds(g.now())
	pnl, err := g.ledger.RealizedPnL(ctx, userID, from, to)
	if err != nil {
		return 0, fmt.Errorf("risk.RealizedToday: %w", err)
	}
	return pnl, nil
}

// Events returns the notices that accompany a stop.
func (v Verdict) Events(userID string, at time.Time) []models.Event {
	if !v.Stop {
		return nil
	}
	stopped := func(msg string) models.Event {
		return models.Event{Type: models.EventBotStopped, UserID: userID, Title: "Bot stopped", Message: msg, At: at}
	}
	switch v.Reason {
	case models.StopReasonProfitTarget:
		return []models.Event{
			{Type: models.EventProfitTargetHit, UserID: userID, Title: "Daily profit target reached",
				Message: "Bot stopped after reaching daily profit target", At: at},
			stopped("Bot stopped due to daily profit target"),
		}
	case models.StopReasonLossLimit:
		return []models.Event{
			{Type: models.EventLossLimitHit, UserID: userID, Title: "Daily loss limit reached",
				Message: "Bot stopped after hitting daily loss limit", At: at},
			stopped("Bot stopped due to daily loss limit"),
		}
	default:
		return []models.Event{stopped("Bot stopped because session duration expired")}
	}
}
