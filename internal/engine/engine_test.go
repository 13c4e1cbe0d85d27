package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"trade_engine/internal/models"
	"trade_engine/internal/risk"
	"trade_engine/internal/store/memory"
)

var now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type fixture struct {
	st  *memory.Store
	eng *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	gate := risk.NewGate(st).WithClock(func() time.Time { return now })
	return &fixture{st: st, eng: New(st, gate, zap.NewNop())}
}

func (f *fixture) configure(t *testing.T, maxTrades int) {
	t.Helper()
	ctx := context.Background()
	err := f.st.SaveTradingConfig(ctx, &models.TradingConfig{
		UserID:              "u1",
		Assets:              []string{"EURUSD"},
		Timeframe:           "M1",
		MaxTradesPerSession: maxTrades,
		Quantity:            1,
		ProfitThreshold:     0.02,
		LossThreshold:       -0.02,
	})
	if err != nil {
		t.Fatalf("save config: %v", err)
	}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	started := now.Add(-time.Minute)
	if err := f.st.SaveBotSession(context.Background(), &models.BotSession{UserID: "u1", Running: true, StartedAt: &started}); err != nil {
		t.Fatalf("save session: %v", err)
	}
}

// tick runs one tick and commits its mutation, like the runner does.
func (f *fixture) tick(t *testing.T, in Input) Outcome {
	t.Helper()
	out, err := f.eng.ProcessTick(context.Background(), in)
	if err != nil {
		t.Fatalf("process tick: %v", err)
	}
	if err := f.st.Commit(context.Background(), &out.Mutation); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return out
}

func expect(t *testing.T, out Outcome, action models.Action, msg string) {
	t.Helper()
	if out.Decision.Action != action || out.Decision.Message != msg {
		t.Fatalf("expected %s %q, got %s %q", action, msg, out.Decision.Action, out.Decision.Message)
	}
}

func TestMissingConfigIsRejected(t *testing.T) {
	f := newFixture(t)
	out := f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.1})
	expect(t, out, models.ActionRejected, MsgConfigNotFound)
	if out.UpdateLastPrice {
		t.Fatalf("baseline must not move before the ladder reaches trade logic")
	}
}

func TestStoppedBotHolds(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 1)
	out := f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.1})
	expect(t, out, models.ActionHeld, MsgBotNotRunning)
}

func TestSymbolNotEnabled(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 1)
	f.start(t)
	out := f.tick(t, Input{UserID: "u1", Symbol: "GBPUSD", Price: 1.3, SignalApproved: true})
	expect(t, out, models.ActionRejected, MsgSymbolNotEnabled)
}

func TestOpenFromTrendThenTakeProfit(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 1)
	f.start(t)

	out := f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.10, SignalApproved: true})
	expect(t, out, models.ActionHeld, MsgInsufficientTrend)
	if !out.UpdateLastPrice || out.LastPrice != 1.10 {
		t.Fatalf("expected baseline 1.10, got %+v", out)
	}

	out = f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.11, SignalApproved: true, LastPrice: 1.10, HasLastPrice: true})
	expect(t, out, models.ActionOpened, MsgOpenedFromTrend)
	if out.Decision.Side != models.SideBuy || *out.Decision.EntryPrice != 1.11 {
		t.Fatalf("unexpected open decision %+v", out.Decision)
	}
	if len(out.Events) != 1 || out.Events[0].Type != models.EventTradeOpened {
		t.Fatalf("expected trade_opened event, got %+v", out.Events)
	}

	sess, _ := f.st.BotSession(context.Background(), "u1")
	if sess.TradesOpenedThisSession != 1 {
		t.Fatalf("expected one trade counted, got %d", sess.TradesOpenedThisSession)
	}

	out = f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.14, LastPrice: 1.11, HasLastPrice: true})
	expect(t, out, models.ActionClosed, MsgClosedOnProfit)
	if *out.Decision.PnL != 0.03 || out.Decision.CloseReason != models.CloseReasonTakeProfit {
		t.Fatalf("unexpected close decision %+v pnl=%v", out.Decision, *out.Decision.PnL)
	}
	if *out.Decision.ClosePrice != 1.14 || *out.Decision.EntryPrice != 1.11 {
		t.Fatalf("unexpected close prices %+v", out.Decision)
	}
	if len(out.Events) != 1 || out.Events[0].Message != "EURUSD BUY closed at 1.14, pnl=0.03" {
		t.Fatalf("unexpected close event %+v", out.Events)
	}

	// The session allows one trade, so the next flat tick is held.
	out = f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.15, SignalApproved: true, LastPrice: 1.14, HasLastPrice: true})
	expect(t, out, models.ActionHeld, MsgMaxTradesReached)
	if !out.UpdateLastPrice || out.LastPrice != 1.15 {
		t.Fatalf("max trades branch must still move the baseline")
	}
}

func TestFallingPriceOpensSell(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5)
	f.start(t)

	out := f.tick(t, Input{UserID: "u1", Symbol: "eurusd", Price: 1.10, SignalApproved: true, LastPrice: 1.12, HasLastPrice: true})
	expect(t, out, models.ActionOpened, MsgOpenedFromTrend)
	if out.Decision.Side != models.SideSell {
		t.Fatalf("expected SELL on falling price, got %s", out.Decision.Side)
	}
}

func TestOpenPositionHeldAndStopLoss(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5)
	f.start(t)

	f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.11, SignalApproved: true, LastPrice: 1.10, HasLastPrice: true})

	out := f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.10, LastPrice: 1.11, HasLastPrice: true})
	expect(t, out, models.ActionHeld, MsgTradeMaintained)
	if *out.Decision.PnL != -0.01 {
		t.Fatalf("expected unrealized -0.01, got %v", *out.Decision.PnL)
	}
	if out.Mutation.Close != nil {
		t.Fatalf("held tick must not close")
	}

	out = f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.08, LastPrice: 1.10, HasLastPrice: true})
	expect(t, out, models.ActionClosed, MsgClosedOnLoss)
	if out.Decision.CloseReason != models.CloseReasonStopLoss {
		t.Fatalf("expected sl_hit, got %s", out.Decision.CloseReason)
	}
}

func TestSignalRejectionStillMovesBaseline(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5)
	f.start(t)

	out := f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.12, SignalApproved: false, LastPrice: 1.10, HasLastPrice: true})
	expect(t, out, models.ActionRejected, MsgRejectedBySignal)
	if !out.UpdateLastPrice || out.LastPrice != 1.12 {
		t.Fatalf("expected baseline moved to 1.12, got %+v", out)
	}
}

func TestNoTrendChange(t *testing.T) {
	f := newFixture(t)
	f.configure(t, 5)
	f.start(t)

	out := f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.1, SignalApproved: true, LastPrice: 1.1, HasLastPrice: true})
	expect(t, out, models.ActionHeld, MsgNoTrendChange)
}

func TestCapitalLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5)
	f.start(t)
	_ = f.st.SaveRiskConfig(ctx, &models.RiskConfig{UserID: "u1", DailyProfitTarget: 50, DailyLossLimit: 50, AllocatedCapital: 2})
	_ = f.st.SaveTradingConfig(ctx, &models.TradingConfig{
		UserID: "u1", Assets: []string{"EURUSD", "GBPUSD"}, Timeframe: "M1",
		MaxTradesPerSession: 5, Quantity: 1, ProfitThreshold: 0.02, LossThreshold: -0.02,
	})

	out := f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.11, SignalApproved: true, LastPrice: 1.10, HasLastPrice: true})
	expect(t, out, models.ActionOpened, MsgOpenedFromTrend)

	out = f.tick(t, Input{UserID: "u1", Symbol: "GBPUSD", Price: 1.30, SignalApproved: true, LastPrice: 1.29, HasLastPrice: true})
	expect(t, out, models.ActionRejected, MsgCapitalLimitExceed)

	exposure, _ := f.st.OpenExposure(ctx, "u1")
	if exposure > 2 {
		t.Fatalf("exposure %v above allocated capital", exposure)
	}
}

func TestProfitTargetStopsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5)
	f.start(t)
	_ = f.st.SaveRiskConfig(ctx, &models.RiskConfig{UserID: "u1", DailyProfitTarget: 50, DailyLossLimit: 50, AllocatedCapital: 1000})

	pos := &models.OpenPosition{UserID: "u1", Symbol: "X", Side: models.SideBuy, Quantity: 1, EntryPrice: 10}
	if err := f.st.Commit(ctx, &models.Mutation{UserID: "u1", Open: pos}); err != nil {
		t.Fatalf("seed open: %v", err)
	}
	cur, _ := f.st.OpenPosition(ctx, "u1", "X")
	if err := f.st.Commit(ctx, &models.Mutation{UserID: "u1", Close: cur.Close(70, 60, models.CloseReasonTakeProfit, now.Add(-time.Hour))}); err != nil {
		t.Fatalf("seed close: %v", err)
	}

	out := f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.1, SignalApproved: true, LastPrice: 1.0, HasLastPrice: true})
	expect(t, out, models.ActionHeld, risk.MsgProfitTarget)
	if len(out.Events) != 2 {
		t.Fatalf("expected profit_target_hit and bot_stopped, got %+v", out.Events)
	}

	sess, _ := f.st.BotSession(ctx, "u1")
	if sess.Running || sess.StopReason != models.StopReasonProfitTarget {
		t.Fatalf("expected stopped session, got %+v", sess)
	}

	// Stopping is sticky until an explicit restart.
	out = f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.2, SignalApproved: true, LastPrice: 1.1, HasLastPrice: true})
	expect(t, out, models.ActionHeld, MsgBotNotRunning)
	if out.Events != nil {
		t.Fatalf("repeat ticks must not re-emit stop events")
	}
}

func TestDurationExpiredPreservesCounter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.configure(t, 5)
	started := now.Add(-2 * time.Hour)
	_ = f.st.SaveBotSession(ctx, &models.BotSession{UserID: "u1", Running: true, StartedAt: &started, TradesOpenedThisSession: 3})
	_ = f.st.SaveSessionConfig(ctx, &models.SessionConfig{UserID: "u1", DurationMinutes: 60})

	out := f.tick(t, Input{UserID: "u1", Symbol: "EURUSD", Price: 1.1})
	expect(t, out, models.ActionHeld, risk.MsgDurationExpired)

	sess, _ := f.st.BotSession(ctx, "u1")
	if sess.Running || sess.TradesOpenedThisSession != 3 || !sess.StartedAt.Equal(started) {
		t.Fatalf("unexpected stopped session %+v", sess)
	}
}

type failingReader struct {
	*memory.Store
	err error
}

func (r failingReader) OpenPosition(context.Context, string, string) (*models.OpenPosition, error) {
	return nil, r.err
}

func TestReadErrorPropagates(t *testing.T) {
	st := memory.New()
	boom := errors.New("db down")
	gate := risk.NewGate(st).WithClock(func() time.Time { return now })
	eng := New(failingReader{Store: st, err: boom}, gate, zap.NewNop())

	f := &fixture{st: st, eng: eng}
	f.configure(t, 1)
	f.start(t)

	_, err := eng.ProcessTick(context.Background(), Input{UserID: "u1", Symbol: "EURUSD", Price: 1.1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
}
