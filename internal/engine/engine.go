package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"trade_engine/internal/helper"
	"trade_engine/internal/models"
	"trade_engine/internal/risk"
	"trade_engine/internal/store"
)

const (
	MsgConfigNotFound     = "Trading config not found"
	MsgBotNotRunning      = "Bot is not running"
	MsgSymbolNotEnabled   = "Symbol not enabled in config"
	MsgClosedOnProfit     = "Trade closed on profit threshold"
	MsgClosedOnLoss       = "Trade closed on loss threshold"
	MsgTradeMaintained    = "Open trade maintained"
	MsgMaxTradesReached   = "Max trades per session reached"
	MsgInsufficientTrend  = "Insufficient trend history"
	MsgRejectedBySignal   = "Trade rejected by AI gate"
	MsgNoTrendChange      = "No trend change"
	MsgCapitalLimitExceed = "Allocated capital limit exceeded"
	MsgOpenedFromTrend    = "Trade opened from trend direction"
)

const pnlPlaces = 6

// Input is one tick as seen by the engine. LastPrice is the trend baseline
// held by the caller for (UserID, Symbol).
type Input struct {
	UserID         string
	Symbol         string
	Price          float64
	SignalApproved bool
	LastPrice      float64
	HasLastPrice   bool
}

// Outcome is the decision plus everything the caller has to persist and
// publish. Nothing is written by the engine itself.
type Outcome struct {
	Decision models.Decision
	Mutation models.Mutation
	Events   []models.Event
	// LastPrice is installed as the new baseline when UpdateLastPrice is set.
	LastPrice       float64
	UpdateLastPrice bool
}

type Engine struct {
	store  store.Reader
	gate   *risk.Gate
	logger *zap.Logger
}

func New(st store.Reader, gate *risk.Gate, logger *zap.Logger) *Engine {
	return &Engine{store: st, gate: gate, logger: logger.Named("engine")}
}

// ProcessTick runs the decision ladder for one tick. Every branch returns
// exactly one decision; an error means a collaborator read failed and
// nothing must be applied.
// Callers serialize ProcessTick per user.
func (e *Engine) ProcessTick(ctx context.Context, in Input) (out Outcome, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "engine.ProcessTick")
	defer span.Finish()

	defer func() {
		if err != nil {
			err = fmt.Errorf("engine.ProcessTick: %w", err)
			return
		}
		span.SetTag("action", string(out.Decision.Action))
		e.logger.Debug("tick processed",
			zap.String("user_id", in.UserID),
			zap.String("symbol", in.Symbol),
			zap.Float64("price", in.Price),
			zap.String("action", string(out.Decision.Action)),
			zap.String("message", out.Decision.Message),
		)
	}()

	out.Mutation.UserID = in.UserID

	cfg, err := e.store.TradingConfig(ctx, in.UserID)
	if err != nil {
		return out, err
	}
	if cfg == nil {
		return e.reply(out, in, models.ActionRejected, MsgConfigNotFound), nil
	}

	session, err := e.store.BotSession(ctx, in.UserID)
	if err != nil {
		return out, err
	}
	if !session.IsRunning() {
		return e.reply(out, in, models.ActionHeld, MsgBotNotRunning), nil
	}

	sessCfg, err := e.store.SessionConfig(ctx, in.UserID)
	if err != nil {
		return out, err
	}
	riskCfg, err := e.store.RiskConfig(ctx, in.UserID)
	if err != nil {
		return out, err
	}

	verdict, err := e.gate.Evaluate(ctx, session, sessCfg, riskCfg)
	if err != nil {
		return out, err
	}
	now := e.gate.Now()
	if verdict.Stop {
		out.Mutation.Session = session.Stopped(verdict.Reason, now)
		out.Events = verdict.Events(in.UserID, now)
		return e.reply(out, in, models.ActionHeld, verdict.Message), nil
	}

	if !cfg.Allows(in.Symbol) {
		return e.reply(out, in, models.ActionRejected, MsgSymbolNotEnabled), nil
	}

	pos, err := e.store.OpenPosition(ctx, in.UserID, in.Symbol)
	if err != nil {
		return out, err
	}
	if pos != nil {
		return e.manage(out, in, cfg, pos, now), nil
	}

	if session.TradesOpenedThisSession >= cfg.MaxTradesPerSession {
		out = e.reply(out, in, models.ActionHeld, MsgMaxTradesReached)
		return withBaseline(out, in.Price), nil
	}

	// The baseline moves on every tick from here on, rejected or not.
	prev, hadPrev := in.LastPrice, in.HasLastPrice
	out = withBaseline(out, in.Price)

	if !hadPrev {
		return e.reply(out, in, models.ActionHeld, MsgInsufficientTrend), nil
	}
	if !in.SignalApproved {
		return e.reply(out, in, models.ActionRejected, MsgRejectedBySignal), nil
	}
	if in.Price == prev {
		return e.reply(out, in, models.ActionHeld, MsgNoTrendChange), nil
	}

	if riskCfg != nil {
		exposure, err := e.store.OpenExposure(ctx, in.UserID)
		if err != nil {
			return out, err
		}
		if exposure+in.Price*cfg.Quantity > riskCfg.AllocatedCapital {
			return e.reply(out, in, models.ActionRejected, MsgCapitalLimitExceed), nil
		}
	}

	side := models.SideSell
	if in.Price > prev {
		side = models.SideBuy
	}
	opened := &models.OpenPosition{
		UserID:     in.UserID,
		Symbol:     in.Symbol,
		Side:       side,
		Quantity:   cfg.Quantity,
		EntryPrice: in.Price,
		OpenedAt:   now,
	}
	out.Mutation.Open = opened
	out.Mutation.IncrementTrades = true

	out = e.reply(out, in, models.ActionOpened, MsgOpenedFromTrend)
	out.Decision.Side = side
	out.Decision.EntryPrice = helper.Ptr(in.Price)
	out.Events = append(out.Events, models.Event{
		Type:    models.EventTradeOpened,
		UserID:  in.UserID,
		Title:   "Trade opened",
		Message: fmt.Sprintf("%s %s opened at %s", in.Symbol, side, formatPrice(in.Price)),
		At:      now,
	})
	return out, nil
}

// manage handles a tick for a symbol that already has an open position.
func (e *Engine) manage(out Outcome, in Input, cfg *models.TradingConfig, pos *models.OpenPosition, now time.Time) Outcome {
	out = withBaseline(out, in.Price)

	pnl := pos.PnL(in.Price)

	var reason models.CloseReason
	switch {
	case pnl >= cfg.ProfitThreshold:
		reason = models.CloseReasonTakeProfit
		out = e.reply(out, in, models.ActionClosed, MsgClosedOnProfit)
	case pnl <= cfg.LossThreshold:
		reason = models.CloseReasonStopLoss
		out = e.reply(out, in, models.ActionClosed, MsgClosedOnLoss)
	default:
		out = e.reply(out, in, models.ActionHeld, MsgTradeMaintained)
	}

	out.Decision.Side = pos.Side
	out.Decision.PnL = helper.RoundPtr(pnl, pnlPlaces)
	out.Decision.EntryPrice = helper.Ptr(pos.EntryPrice)
	out.Decision.ClosePrice = helper.Ptr(in.Price)

	if reason == models.CloseReasonNone {
		return out
	}

	out.Decision.CloseReason = reason
	out.Mutation.Close = pos.Close(in.Price, pnl, reason, now)
	msg := fmt.Sprintf("%s %s closed at %s, pnl=%s",
		in.Symbol, pos.Side, formatPrice(in.Price), formatPrice(*out.Decision.PnL))
	out.Events = append(out.Events, models.Event{
		Type:    models.EventTradeClosed,
		UserID:  in.UserID,
		Title:   "Trade closed",
		Message: msg,
		At:      now,
	})
	return out
}

func (e *Engine) reply(out Outcome, in Input, action models.Action, msg string) Outcome {
	out.Decision.Action = action
	out.Decision.Message = msg
	out.Decision.Symbol = in.Symbol
	return out
}

func withBaseline(out Outcome, price float64) Outcome {
	out.LastPrice = price
	out.UpdateLastPrice = true
	return out
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
