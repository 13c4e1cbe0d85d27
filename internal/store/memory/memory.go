package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trade_engine/internal/models"
	"trade_engine/internal/store"
)

type posKey struct {
	userID string
	symbol string
}

type idemKey struct {
	op  string
	key string
}

type idemRecord struct {
	payload   []byte
	createdAt time.Time
}

// Store keeps everything in process memory. It is used for local runs and
// tests; nothing survives a restart.
type Store struct {
	mu sync.RWMutex

	trading  map[string]*models.TradingConfig
	risk     map[string]*models.RiskConfig
	sessCfg  map[string]*models.SessionConfig
	sessions map[string]*models.BotSession
	licenses map[string]*models.License

	open          map[posKey]*models.OpenPosition
	closed        map[string][]*models.ClosedPosition
	notifications map[string][]*models.Notification
	signals       map[string][]*models.SignalRecord
	nextID        int64

	idem map[idemKey]*idemRecord

	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		trading:       make(map[string]*models.TradingConfig),
		risk:          make(map[string]*models.RiskConfig),
		sessCfg:       make(map[string]*models.SessionConfig),
		sessions:      make(map[string]*models.BotSession),
		licenses:      make(map[string]*models.License),
		open:          make(map[posKey]*models.OpenPosition),
		closed:        make(map[string][]*models.ClosedPosition),
		notifications: make(map[string][]*models.Notification),
		signals:       make(map[string][]*models.SignalRecord),
		idem:          make(map[idemKey]*idemRecord),
		now:           time.Now,
	}
}

// WithClock replaces the time source used for idempotency timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) TradingConfig(_ context.Context, userID string) (*models.TradingConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.trading[userID]
	if !ok {
		return nil, nil
	}
	out := *c
	out.Assets = append([]string(nil), c.Assets...)
	return &out, nil
}

func (s *Store) SaveTradingConfig(_ context.Context, cfg *models.TradingConfig) error {
	c := *cfg
	c.Assets = append([]string(nil), cfg.Assets...)
	s.mu.Lock()
	s.trading[cfg.UserID] = &c
	s.mu.Unlock()
	return nil
}

func (s *Store) RiskConfig(_ context.Context, userID string) (*models.RiskConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.risk[userID]), nil
}

func (s *Store) SaveRiskConfig(_ context.Context, cfg *models.RiskConfig) error {
	s.mu.Lock()
	s.risk[cfg.UserID] = clone(cfg)
	s.mu.Unlock()
	return nil
}

func (s *Store) SessionConfig(_ context.Context, userID string) (*models.SessionConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.sessCfg[userID]), nil
}

func (s *Store) SaveSessionConfig(_ context.Context, cfg *models.SessionConfig) error {
	s.mu.Lock()
	s.sessCfg[cfg.UserID] = clone(cfg)
	s.mu.Unlock()
	return nil
}

func (s *Store) BotSession(_ context.Context, userID string) (*models.BotSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.sessions[userID]), nil
}

func (s *Store) SaveBotSession(_ context.Context, sess *models.BotSession) error {
	s.mu.Lock()
	s.sessions[sess.UserID] = clone(sess)
	s.mu.Unlock()
	return nil
}

func (s *Store) RunningSessions(_ context.Context) ([]*models.BotSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.BotSession
	for _, sess := range s.sessions {
		if sess.Running {
			out = append(out, clone(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) OpenPosition(_ context.Context, userID, symbol string) (*models.OpenPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.open[posKey{userID, symbol}]), nil
}

func (s *Store) OpenPositions(_ context.Context, userID string) ([]*models.OpenPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.OpenPosition
	for k, p := range s.open {
		if k.userID == userID {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ClosedPositions(_ context.Context, userID string, limit int) ([]*models.ClosedPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.closed[userID], limit), nil
}

func (s *Store) RealizedPnL(_ context.Context, userID string, from, to time.Time) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, c := range s.closed[userID] {
		if !c.ClosedAt.Before(from) && c.ClosedAt.Before(to) {
			total += c.PnL
		}
	}
	return total, nil
}

func (s *Store) OpenExposure(_ context.Context, userID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for k, p := range s.open {
		if k.userID == userID {
			total += p.Exposure()
		}
	}
	return total, nil
}

func (s *Store) SaveNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	s.notifications[n.UserID] = append(s.notifications[n.UserID], clone(n))
	s.mu.Unlock()
	return nil
}

func (s *Store) Notifications(_ context.Context, userID string, channel models.Channel, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var filtered []*models.Notification
	for _, n := range s.notifications[userID] {
		if n.Channel == channel {
			filtered = append(filtered, n)
		}
	}
	return newestFirst(filtered, limit), nil
}

func (s *Store) License(_ context.Context, userID string) (*models.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.licenses[userID]), nil
}

func (s *Store) SaveLicense(_ context.Context, l *models.License) error {
	s.mu.Lock()
	s.licenses[l.UserID] = clone(l)
	s.mu.Unlock()
	return nil
}

func (s *Store) SignalRecords(_ context.Context, userID string, limit int) ([]*models.SignalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newestFirst(s.signals[userID], limit), nil
}

// Commit validates the whole mutation before touching any state.
func (s *Store) Commit(_ context.Context, m *models.Mutation) error {
	if m == nil || m.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Open != nil {
		if _, ok := s.open[posKey{m.Open.UserID, m.Open.Symbol}]; ok {
			return store.ErrPositionExists
		}
	}
	if m.Close != nil {
		cur, ok := s.open[posKey{m.Close.UserID, m.Close.Symbol}]
		if !ok || cur.ID != m.Close.ID {
			return store.ErrPositionNotFound
		}
	}
	if m.IncrementTrades && m.Session == nil {
		if _, ok := s.sessions[m.UserID]; !ok {
			return store.ErrSessionNotFound
		}
	}
	if rec := m.Idempotency; rec != nil {
		if _, ok := s.idem[idemKey{rec.Op, rec.Key}]; ok {
			return store.ErrDuplicateRequest
		}
	}

	if m.Session != nil {
		s.sessions[m.UserID] = clone(m.Session)
	}
	if m.IncrementTrades {
		sess := s.sessions[m.UserID]
		sess.TradesOpenedThisSession++
		sess.UpdatedAt = s.now()
	}
	if m.Close != nil {
		delete(s.open, posKey{m.Close.UserID, m.Close.Symbol})
		s.closed[m.UserID] = append(s.closed[m.UserID], clone(m.Close))
	}
	if m.Open != nil {
		s.nextID++
		p := clone(m.Open)
		p.ID = s.nextID
		s.open[posKey{p.UserID, p.Symbol}] = p
	}
	if m.Signal != nil {
		s.signals[m.UserID] = append(s.signals[m.UserID], clone(m.Signal))
	}
	if rec := m.Idempotency; rec != nil {
		s.idem[idemKey{rec.Op, rec.Key}] = &idemRecord{
			payload:   append([]byte(nil), rec.Payload...),
			createdAt: s.now(),
		}
	}
	return nil
}

func (s *Store) IdempotentResponse(_ context.Context, op, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.idem[idemKey{op, key}]
	if !ok {
		return nil, false, nil
	}
	return rec.payload, true, nil
}

func (s *Store) PurgeIdempotentBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, rec := range s.idem {
		if rec.createdAt.Before(before) {
			delete(s.idem, k)
			n++
		}
	}
	return n, nil
}

func clone[T any](v *T) *T {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func newestFirst[T any](rows []*T, limit int) []*T {
	out := make([]*T, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, clone(rows[i]))
	}
	return out
}
