package models

import "time"

// BotSession is the per-user bot state. One per user; a new StartedAt
// begins a fresh running epoch.
type BotSession struct {
	UserID                  string     `json:"user_id"`
	Running                 bool       `json:"running"`
	StartedAt               *time.Time `json:"started_at,omitempty"`
	TradesOpenedThisSession int        `json:"trades_opened_this_session"`
	StopReason              StopReason `json:"stop_reason,omitempty"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// IsRunning is nil-safe.
func (s *BotSession) IsRunning() bool {
	return s != nil && s.Running
}

// Stopped returns a copy with Running cleared. The trade counter and
// StartedAt are preserved.
func (s *BotSession) Stopped(reason StopReason, at time.Time) *BotSession {
	out := *s
	out.Running = false
	out.StopReason = reason
	out.UpdatedAt = at
	return &out
}

// Status is the outward view of s.
func (s *BotSession) Status() BotStatus {
	return BotStatus{
		UserID:                  s.UserID,
		Running:                 s.Running,
		StartedAt:               s.StartedAt,
		TradesOpenedThisSession: s.TradesOpenedThisSession,
		StopReason:              s.StopReason,
	}
}

type StopReason string

const (
	StopReasonNone            StopReason = ""
	StopReasonManual          StopReason = "manual_stop"
	StopReasonStopped         StopReason = "stopped"
	StopReasonDurationExpired StopReason = "session_duration_expired"
	StopReasonProfitTarget    StopReason = "daily_profit_target"
	StopReasonLossLimit       StopReason = "daily_loss_limit"
	StopReasonServiceShutdown StopReason = "service_shutdown"
)

// BotStatus is the outward view of a session.
type BotStatus struct {
	UserID                  string     `json:"user_id"`
	Running                 bool       `json:"running"`
	StartedAt               *time.Time `json:"started_at"`
	TradesOpenedThisSession int        `json:"trades_opened_this_session"`
	StopReason              StopReason `json:"stop_reason,omitempty"`
}
