package runner

import (
	"sync"

	"trade_engine/internal/signal"
)

// userSession is the in-memory engine state of one user. mu serializes
// every tick, evaluation and lifecycle change for the user.
type userSession struct {
	mu sync.Mutex

	windows    map[string]*signal.Window // symbol -> recent prices
	lastPrices map[string]float64        // symbol -> trend baseline
}

func newUserSession() *userSession {
	return &userSession{
		windows:    make(map[string]*signal.Window),
		lastPrices: make(map[string]float64),
	}
}

// window returns a working copy of the symbol's window. It is installed
// with setWindow only once the tick has been persisted.
func (s *userSession) window(symbol string, f *signal.Filter) *signal.Window {
	w, ok := s.windows[symbol]
	if !ok {
		return f.NewWindow()
	}
	return w.Clone()
}

func (s *userSession) setWindow(symbol string, w *signal.Window) {
	s.windows[symbol] = w
}

func (s *userSession) lastPrice(symbol string) (float64, bool) {
	p, ok := s.lastPrices[symbol]
	return p, ok
}

func (s *userSession) snapshotPrices() map[string]float64 {
	out := make(map[string]float64, len(s.lastPrices))
	for k, v := range s.lastPrices {
		out[k] = v
	}
	return out
}
