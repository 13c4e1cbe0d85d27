package service

import (
	"sync/atomic"
	"time"
)

// State is what the admin endpoints report about the process.
type State struct {
	ready     atomic.Bool
	startedAt time.Time

	lastTickUnix atomic.Int64 // unix seconds
	ticks        atomic.Int64
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

// TouchTick records a processed tick.
func (s *State) TouchTick(t time.Time) {
	s.lastTickUnix.Store(t.Unix())
	s.ticks.Add(1)
}

func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Ticks() int64 { return s.ticks.Load() }

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
