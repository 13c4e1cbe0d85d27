package models

import "time"

type Action string

const (
	ActionOpened   Action = "opened"
	ActionHeld     Action = "held"
	ActionClosed   Action = "closed"
	ActionRejected Action = "rejected"
)

// Decision is the engine verdict for a single tick.
type Decision struct {
	Action      Action
	Message     string
	Symbol      string
	Side        Side
	EntryPrice  *float64
	ClosePrice  *float64
	PnL         *float64
	CloseReason CloseReason
}

// TickRequest is one price observation submitted for a user.
type TickRequest struct {
	UserID              string     `json:"user_id" validate:"required"`
	Symbol              string     `json:"symbol" validate:"required"`
	Price               float64    `json:"price" validate:"gt=0"`
	ShockFlag           bool       `json:"shock_flag"`
	ConfidenceThreshold *float64   `json:"confidence_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	Timestamp           *time.Time `json:"timestamp,omitempty"`
	// IdempotencyKey is only read from stream frames; HTTP uses the header.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

const DefaultConfidenceThreshold = 0.55

// Threshold returns the requested confidence threshold or the default.
func (r *TickRequest) Threshold() float64 {
	if r.ConfidenceThreshold == nil {
		return DefaultConfidenceThreshold
	}
	return *r.ConfidenceThreshold
}

// TickResponse is what gets returned to the client and cached under the
// idempotency key.
type TickResponse struct {
	Action           Action      `json:"action"`
	Message          string      `json:"message"`
	Symbol           string      `json:"symbol"`
	SignalApproved   bool        `json:"signal_approved"`
	SignalConfidence float64     `json:"signal_confidence"`
	SignalReasons    []string    `json:"signal_reasons"`
	Side             Side        `json:"side,omitempty"`
	PnL              *float64    `json:"pnl,omitempty"`
	EntryPrice       *float64    `json:"entry_price,omitempty"`
	ClosePrice       *float64    `json:"close_price,omitempty"`
	CloseReason      CloseReason `json:"close_reason,omitempty"`
}

// EvaluateRequest asks for a standalone signal filter verdict.
type EvaluateRequest struct {
	UserID              string   `json:"user_id" validate:"required"`
	Symbol              string   `json:"symbol" validate:"required"`
	Price               float64  `json:"price" validate:"gt=0"`
	ShockFlag           bool     `json:"shock_flag"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
}

func (r *EvaluateRequest) Threshold() float64 {
	if r.ConfidenceThreshold == nil {
		return DefaultConfidenceThreshold
	}
	return *r.ConfidenceThreshold
}

type EvaluateResponse struct {
	Approved      bool     `json:"approved"`
	Confidence    float64  `json:"confidence"`
	Reasons       []string `json:"reasons"`
	TrendStrength float64  `json:"trend_strength"`
	Volatility    float64  `json:"volatility"`
}
