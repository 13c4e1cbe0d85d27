package runner

import "sync"

// Manager owns the per-user engine state.
type Manager struct {
	mu    sync.Mutex
	users map[string]*userSession
}

func NewManager() *Manager {
	return &Manager{users: make(map[string]*userSession)}
}

// session returns the user's state, creating it on first use.
func (m *Manager) session(userID string) *userSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.users[userID]
	if !ok {
		s = newUserSession()
		m.users[userID] = s
	}
	return s
}

// lock acquires the user's critical section and returns its state.
func (m *Manager) lock(userID string) (*userSession, func()) {
	s := m.session(userID)
	s.mu.Lock()
	return s, s.mu.Unlock
}

// LastPrices returns a copy of the user's trend baselines.
func (m *Manager) LastPrices(userID string) map[string]float64 {
	s, unlock := m.lock(userID)
	defer unlock()
	return s.snapshotPrices()
}
