package runner

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"trade_engine/internal/engine"
	"trade_engine/internal/idempotency"
	"trade_engine/internal/license"
	"trade_engine/internal/metrics"
	"trade_engine/internal/models"
	"trade_engine/internal/signal"
	"trade_engine/internal/store"
)

// OpTick scopes idempotency keys of tick submissions.
const OpTick = "/engine/tick"

// Publisher receives decision events. It must not block.
type Publisher interface {
	Publish(events ...models.Event)
}

// TickObserver is told about every processed tick.
type TickObserver interface {
	TouchTick(t time.Time)
}

type Deps struct {
	Store     store.Store
	Engine    *engine.Engine
	Filter    *signal.Filter
	Cache     *idempotency.Cache
	Publisher Publisher
	License   license.Validator
	Observer  TickObserver
	Logger    *zap.Logger
}

// Service runs ticks through filter, gate and engine under the user's lock
// and persists the result before answering.
type Service struct {
	*Manager

	store     store.Store
	engine    *engine.Engine
	filter    *signal.Filter
	cache     *idempotency.Cache
	publisher Publisher
	license   license.Validator
	observer  TickObserver
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		Manager:   NewManager(),
		store:     d.Store,
		engine:    d.Engine,
		filter:    d.Filter,
		cache:     d.Cache,
		publisher: d.Publisher,
		license:   d.License,
		observer:  d.Observer,
		logger:    d.Logger.Named("runner"),
		now:       time.Now,
	}
	if s.license == nil {
		s.license = license.AllowAll{}
	}
	return s
}

// Ingest processes one tick and returns the encoded response. The response
// is recorded under key in the same commit as the tick's state, so replays
// of the key return the recorded bytes without touching any state.
func (s *Service) Ingest(ctx context.Context, req models.TickRequest, key string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "runner.Ingest")
	defer span.Finish()

	started := time.Now()
	payload, err := s.cache.Do(ctx, OpTick, key, func(ctx context.Context, rec *models.IdempotencyRecord) ([]byte, error) {
		return s.processTick(ctx, req, rec)
	})
	if errors.Is(err, idempotency.ErrUnavailable) || errors.Is(err, store.ErrDuplicateRequest) {
		metrics.PersistenceFailuresTotal.Inc()
		return nil, persistence(err, "runner.Ingest")
	}
	if err != nil {
		return nil, err
	}
	metrics.TradeExecutionDuration.Observe(time.Since(started).Seconds())
	return payload, nil
}

func (s *Service) processTick(ctx context.Context, req models.TickRequest, rec *models.IdempotencyRecord) ([]byte, error) {
	symbol := models.NormalizeSymbol(req.Symbol)

	us, unlock := s.lock(req.UserID)
	defer unlock()

	win := us.window(symbol, s.filter)
	filterStarted := time.Now()
	verdict := s.filter.Evaluate(win, req.Price, req.ShockFlag, req.Threshold())
	metrics.SignalDuration.WithLabelValues("tick").Observe(time.Since(filterStarted).Seconds())

	last, hasLast := us.lastPrice(symbol)
	out, err := s.engine.ProcessTick(ctx, engine.Input{
		UserID:         req.UserID,
		Symbol:         symbol,
		Price:          req.Price,
		SignalApproved: verdict.Approved,
		LastPrice:      last,
		HasLastPrice:   hasLast,
	})
	if err != nil {
		metrics.PersistenceFailuresTotal.Inc()
		return nil, persistence(err, "runner.processTick")
	}

	d := out.Decision
	payload, err := sonic.Marshal(&models.TickResponse{
		Action:           d.Action,
		Message:          d.Message,
		Symbol:           d.Symbol,
		SignalApproved:   verdict.Approved,
		SignalConfidence: verdict.Confidence,
		SignalReasons:    verdict.Reasons,
		Side:             d.Side,
		PnL:              d.PnL,
		EntryPrice:       d.EntryPrice,
		ClosePrice:       d.ClosePrice,
		CloseReason:      d.CloseReason,
	})
	if err != nil {
		return nil, errors.Wrap(err, "runner.processTick: encode response")
	}

	out.Mutation.Signal = s.signalRecord(req.UserID, symbol, req.Price, req.Timestamp, verdict)
	if rec != nil {
		rec.Payload = payload
		out.Mutation.Idempotency = rec
	}
	if err := s.store.Commit(ctx, &out.Mutation); err != nil {
		if errors.Is(err, store.ErrDuplicateRequest) {
			return nil, errors.Wrap(err, "runner.processTick")
		}
		metrics.PersistenceFailuresTotal.Inc()
		s.logger.Error("commit failed",
			zap.String("user_id", req.UserID),
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return nil, persistence(err, "runner.processTick")
	}

	us.setWindow(symbol, win)
	if out.UpdateLastPrice {
		us.lastPrices[symbol] = out.LastPrice
	}
	if sess := out.Mutation.Session; sess != nil && !sess.Running {
		metrics.ActiveSessions.Dec()
	}

	if len(out.Events) > 0 {
		s.publisher.Publish(out.Events...)
	}
	metrics.DecisionsTotal.WithLabelValues(string(out.Decision.Action)).Inc()
	if s.observer != nil {
		s.observer.TouchTick(s.now())
	}

	return payload, nil
}

// Evaluate runs the signal filter alone. The price enters the user's
// window like a tick would and the verdict is audited.
func (s *Service) Evaluate(ctx context.Context, req models.EvaluateRequest) (*models.EvaluateResponse, error) {
	symbol := models.NormalizeSymbol(req.Symbol)

	us, unlock := s.lock(req.UserID)
	defer unlock()

	win := us.window(symbol, s.filter)
	started := time.Now()
	verdict := s.filter.Evaluate(win, req.Price, req.ShockFlag, req.Threshold())
	metrics.SignalDuration.WithLabelValues("evaluate").Observe(time.Since(started).Seconds())

	m := &models.Mutation{UserID: req.UserID, Signal: s.signalRecord(req.UserID, symbol, req.Price, nil, verdict)}
	if err := s.store.Commit(ctx, m); err != nil {
		return nil, persistence(err, "runner.Evaluate")
	}
	us.setWindow(symbol, win)

	return &models.EvaluateResponse{
		Approved:      verdict.Approved,
		Confidence:    verdict.Confidence,
		Reasons:       verdict.Reasons,
		TrendStrength: verdict.TrendStrength,
		Volatility:    verdict.Volatility,
	}, nil
}

func (s *Service) signalRecord(userID, symbol string, price float64, observedAt *time.Time, v signal.Verdict) *models.SignalRecord {
	return &models.SignalRecord{
		UserID:        userID,
		Symbol:        symbol,
		Price:         price,
		Approved:      v.Approved,
		Confidence:    v.Confidence,
		Reasons:       v.Reasons,
		TrendStrength: v.TrendStrength,
		Volatility:    v.Volatility,
		ObservedAt:    observedAt,
		CreatedAt:     s.now(),
	}
}

// IsRetryable reports whether err came from a failed commit.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence)
}
