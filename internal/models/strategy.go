package models

import "time"

// Side as stored on positions: "BUY"/"SELL", empty when not applicable.
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SignalRecord is the audit row of one signal filter evaluation.
type SignalRecord struct {
	UserID        string    `json:"user_id"`
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Approved      bool      `json:"approved"`
	Confidence    float64   `json:"confidence"`
	Reasons       []string  `json:"reasons"`
	TrendStrength float64   `json:"trend_strength"`
	Volatility    float64   `json:"volatility"`
	// ObservedAt is the client timestamp of the tick, when one was sent.
	ObservedAt *time.Time `json:"observed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
